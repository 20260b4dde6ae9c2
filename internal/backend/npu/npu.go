// Package npu benchmarks a fixed-function accelerator matmul. Each session is
// bound to one shape: Open negotiates the plan and acquires device memory,
// Bind uploads fp16 operands once, Run executes the plan and reads C back,
// Close releases everything exactly once.
package npu

import (
	"errors"
	"fmt"

	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/device"
	"github.com/23skdu/longbow-matbench/internal/fp16"
	"github.com/23skdu/longbow-matbench/internal/logger"
	"github.com/23skdu/longbow-matbench/internal/matrix"
	"github.com/23skdu/longbow-matbench/internal/metrics"
)

// Name labels results from the hardware driver. Any other driver is
// labelled Name(driver), so emulator timings never pass for NPU timings.
const Name = "rknn"

type Options struct {
	// NativeLayout asks the driver for its native operand layout. Inputs are
	// still copied linearly, which is fine for timing but means C is not the
	// mathematical product.
	NativeLayout bool
}

type Backend struct {
	drv  device.Driver
	opts Options
}

func New(drv device.Driver, opts Options) *Backend {
	return &Backend{drv: drv, opts: opts}
}

func (b *Backend) Name() string {
	if d := b.drv.Name(); d != Name {
		return Name + "(" + d + ")"
	}
	return Name
}

func (b *Backend) Open(shape backend.Shape) (backend.Session, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}

	layout := device.LayoutNormal
	if b.opts.NativeLayout {
		layout = device.LayoutNative
	}
	info := device.MatMulInfo{
		M:        shape.M,
		K:        shape.K,
		N:        shape.N,
		Type:     device.Float16MMFloat16ToFloat32,
		ACLayout: layout,
		BLayout:  layout,
	}

	ctx, io, err := b.drv.CreateMatMul(info)
	if err != nil {
		return nil, fmt.Errorf("negotiate %s plan for %s: %w", info.Type, shape, err)
	}

	s := &session{
		shape: shape,
		ctx:   ctx,
		io:    io,
		log:   logger.Log.With("driver", b.drv.Name(), "shape", shape.String()),
	}
	if err := s.setup(); err != nil {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, err
	}

	s.log.Debug("npu session open",
		"a_bytes", io.A.Size,
		"b_bytes", io.B.Size,
		"c_bytes", io.C.Size,
	)
	return s, nil
}

type session struct {
	shape backend.Shape
	ctx   device.MatMulContext
	io    device.IOAttr
	log   *logger.Logger

	a, b, c *device.Mem
	held    int64
	bound   bool
	closed  bool
}

func (s *session) setup() error {
	for _, attr := range []device.TensorAttr{s.io.A, s.io.B, s.io.C} {
		if err := s.alloc(attr); err != nil {
			return err
		}
	}
	if s.c.Size() < 4*s.shape.M*s.shape.N {
		return fmt.Errorf("%w: output region of %d bytes cannot hold %s float32 result",
			matrix.ErrInvalidArgument, s.c.Size(), s.shape)
	}
	return nil
}

// alloc creates the region for attr's slot and binds it. A region that was
// created but failed to bind is still recorded so Close can free it.
func (s *session) alloc(attr device.TensorAttr) error {
	m, err := s.ctx.CreateMem(attr.Size)
	if err != nil {
		return fmt.Errorf("allocate %s (%d bytes): %w", attr.Slot, attr.Size, err)
	}
	switch attr.Slot {
	case device.SlotA:
		s.a = m
	case device.SlotB:
		s.b = m
	default:
		s.c = m
	}
	s.held += int64(m.Size())
	metrics.AddDeviceMemory(int64(m.Size()))

	if err := s.ctx.SetIOMem(m, attr); err != nil {
		return fmt.Errorf("bind %s: %w", attr.Slot, err)
	}
	return nil
}

// Bind narrows a and b to fp16 into the input regions and rebinds them so
// the driver picks up the new contents. Regions larger than the operand are
// zero padded.
func (s *session) Bind(a, b *matrix.Matrix) error {
	if s.closed {
		return backend.ErrClosed
	}
	if err := s.shape.CheckOperands(a, b); err != nil {
		return err
	}
	fp16.Encode(s.a.Float16s(), a.Data)
	fp16.Encode(s.b.Float16s(), b.Data)
	if err := s.ctx.SetIOMem(s.a, s.io.A); err != nil {
		return fmt.Errorf("publish A: %w", err)
	}
	if err := s.ctx.SetIOMem(s.b, s.io.B); err != nil {
		return fmt.Errorf("publish B: %w", err)
	}
	s.bound = true
	return nil
}

// Run executes the plan synchronously and copies M*N floats out of C.
func (s *session) Run() (*matrix.Matrix, error) {
	if s.closed {
		return nil, backend.ErrClosed
	}
	if !s.bound {
		return nil, backend.ErrNotBound
	}
	if err := s.ctx.Run(); err != nil {
		return nil, err
	}
	n := s.shape.M * s.shape.N
	out := make([]float32, n)
	copy(out, s.c.Float32s()[:n])
	return &matrix.Matrix{Rows: s.shape.M, Cols: s.shape.N, Data: out}, nil
}

// Close destroys A, B and C, then the plan. Later calls are no-ops.
func (s *session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, m := range []*device.Mem{s.a, s.b, s.c} {
		if m == nil {
			continue
		}
		if err := s.ctx.DestroyMem(m); err != nil {
			errs = append(errs, err)
		}
	}
	metrics.AddDeviceMemory(-s.held)
	s.held = 0
	s.a, s.b, s.c = nil, nil, nil

	if err := s.ctx.Destroy(); err != nil {
		errs = append(errs, err)
	}
	err := errors.Join(errs...)
	if err != nil {
		s.log.Warn("npu teardown incomplete", "error", err.Error())
	} else {
		s.log.Debug("npu session closed")
	}
	return err
}
