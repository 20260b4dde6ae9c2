// Package backend defines how the benchmark runner drives a matmul strategy.
//
// A Backend opens a Session bound to one shape. Bind hands the session its
// inputs once, outside the timed region; Run is the timed call and may be
// invoked any number of times; Close releases whatever Open acquired.
// Stateless backends implement all of this with FuncBackend.
package backend

import (
	"fmt"

	"github.com/23skdu/longbow-matbench/internal/matrix"
)

// Shape is the M x K by K x N product being benchmarked.
type Shape struct {
	M, K, N int
}

// Square returns the s x s by s x s shape.
func Square(s int) Shape {
	return Shape{M: s, K: s, N: s}
}

func (s Shape) Validate() error {
	if s.M <= 0 || s.K <= 0 || s.N <= 0 {
		return fmt.Errorf("%w: shape %s (dimensions must be positive)", matrix.ErrInvalidArgument, s)
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.M, s.K, s.N)
}

// CheckOperands verifies that a is M x K and b is K x N.
func (s Shape) CheckOperands(a, b *matrix.Matrix) error {
	if a == nil || b == nil {
		return fmt.Errorf("%w: nil operand", matrix.ErrInvalidArgument)
	}
	if a.Rows != s.M || a.Cols != s.K || len(a.Data) != s.M*s.K {
		return fmt.Errorf("%w: A is %dx%d, shape %s wants %dx%d", matrix.ErrInvalidArgument, a.Rows, a.Cols, s, s.M, s.K)
	}
	if b.Rows != s.K || b.Cols != s.N || len(b.Data) != s.K*s.N {
		return fmt.Errorf("%w: B is %dx%d, shape %s wants %dx%d", matrix.ErrInvalidArgument, b.Rows, b.Cols, s, s.K, s.N)
	}
	return nil
}

type Backend interface {
	Name() string
	Open(shape Shape) (Session, error)
}

type Session interface {
	Bind(a, b *matrix.Matrix) error
	Run() (*matrix.Matrix, error)
	Close() error
}

// MultiplyFunc is a stateless matmul: the whole product, including output
// allocation, happens inside one call.
type MultiplyFunc func(a, b *matrix.Matrix, m, k, n int) (*matrix.Matrix, error)

// FuncBackend adapts a MultiplyFunc to Backend.
type FuncBackend struct {
	name string
	fn   MultiplyFunc
}

func NewFuncBackend(name string, fn MultiplyFunc) *FuncBackend {
	return &FuncBackend{name: name, fn: fn}
}

func (f *FuncBackend) Name() string { return f.name }

func (f *FuncBackend) Open(shape Shape) (Session, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &funcSession{shape: shape, fn: f.fn}, nil
}

type funcSession struct {
	shape  Shape
	fn     MultiplyFunc
	a, b   *matrix.Matrix
	closed bool
}

func (s *funcSession) Bind(a, b *matrix.Matrix) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.shape.CheckOperands(a, b); err != nil {
		return err
	}
	s.a, s.b = a, b
	return nil
}

func (s *funcSession) Run() (*matrix.Matrix, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.a == nil {
		return nil, ErrNotBound
	}
	return s.fn(s.a, s.b, s.shape.M, s.shape.K, s.shape.N)
}

func (s *funcSession) Close() error {
	s.a, s.b = nil, nil
	s.closed = true
	return nil
}
