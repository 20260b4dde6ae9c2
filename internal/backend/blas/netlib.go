//go:build netlib && cgo

package blas

// Building with -tags netlib links the system CBLAS (OpenBLAS on Linux,
// Accelerate on macOS). Point CGO_LDFLAGS at the library, e.g. -lopenblas.

import (
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/netlib/blas/netlib"

	"github.com/23skdu/longbow-matbench/internal/logger"
)

func init() {
	blas32.Use(netlib.Implementation{})
	logger.Log.Debug("CGO/BLAS acceleration enabled", "implementation", "netlib")
}
