// Package naive is the unoptimised baseline: a plain triple loop with no
// blocking, vectorisation or parallelism.
package naive

import (
	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/matrix"
)

const Name = "naive"

// MatMul returns the m x n product of row-major a (m x k) and b (k x n).
// Accumulation is float32 with the k loop innermost and ascending; callers
// must not rely on the result matching other backends bit for bit.
func MatMul(a, b []float32, m, k, n int) []float32 {
	c := make([]float32, m*n)
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			var sum float32
			for p := 0; p < k; p++ {
				sum += a[i*k+p] * b[p*n+j]
			}
			c[i*n+j] = sum
		}
	}
	return c
}

// Multiply checks the operands against (m, k, n) and runs MatMul.
func Multiply(a, b *matrix.Matrix, m, k, n int) (*matrix.Matrix, error) {
	shape := backend.Shape{M: m, K: k, N: n}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if err := shape.CheckOperands(a, b); err != nil {
		return nil, err
	}
	return &matrix.Matrix{Rows: m, Cols: n, Data: MatMul(a.Data, b.Data, m, k, n)}, nil
}

func New() *backend.FuncBackend {
	return backend.NewFuncBackend(Name, Multiply)
}
