// Package matrix holds the dense row-major float32 matrix shared by every
// backend, and the random generator that fills benchmark inputs.
package matrix

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned for non-positive dimensions or operands whose
// length does not match their declared shape.
var ErrInvalidArgument = errors.New("invalid argument")

// Matrix is a Rows x Cols grid stored row-major: element (i, j) is Data[i*Cols+j].
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// New allocates a zeroed rows x cols matrix.
func New(rows, cols int) (*Matrix, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}, nil
}

// FromSlice wraps data without copying. len(data) must equal rows*cols.
func FromSlice(rows, cols int, data []float32) (*Matrix, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d elements for a %dx%d matrix", ErrInvalidArgument, len(data), rows, cols)
	}
	return &Matrix{Rows: rows, Cols: cols, Data: data}, nil
}

// Identity returns the n x n identity matrix.
func Identity(n int) (*Matrix, error) {
	m, err := New(n, n)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m, nil
}

func (m *Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

func (m *Matrix) Set(i, j int, v float32) {
	m.Data[i*m.Cols+j] = v
}

func (m *Matrix) Len() int {
	return len(m.Data)
}

func checkDims(rows, cols int) error {
	if rows <= 0 || cols <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d (must be positive)", ErrInvalidArgument, rows, cols)
	}
	return nil
}
