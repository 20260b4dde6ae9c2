// Package blas benchmarks the optimised library path: a single sgemm through
// gonum's blas32 front end. The pure-Go gonum kernel is used unless the
// binary is built with the netlib tag, which routes the call to the system
// CBLAS.
package blas

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/matrix"
)

const Name = "cblas"

// Multiply computes C = 1.0 * A * op(B) + 0.0 * C with row-major storage, A
// not transposed and B transposed. B's storage is read as an n x k operand,
// so for the square benchmark shapes this is A times the transpose of B as
// laid out in memory. beta is zero, so C is overwritten, never accumulated.
func Multiply(a, b *matrix.Matrix, m, k, n int) (*matrix.Matrix, error) {
	shape := backend.Shape{M: m, K: k, N: n}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := shape.CheckOperands(a, b); err != nil {
		return nil, err
	}

	c := make([]float32, m*n)
	blas32.Gemm(blas.NoTrans, blas.Trans, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a.Data},
		blas32.General{Rows: n, Cols: k, Stride: k, Data: b.Data},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c},
	)
	return &matrix.Matrix{Rows: m, Cols: n, Data: c}, nil
}

// Implementation names the sgemm provider currently registered with blas32.
func Implementation() string {
	return fmt.Sprintf("%T", blas32.Implementation())
}

func New() *backend.FuncBackend {
	return backend.NewFuncBackend(Name, Multiply)
}
