package npu

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/23skdu/longbow-matbench/internal/backend"
	"github.com/23skdu/longbow-matbench/internal/backend/naive"
	"github.com/23skdu/longbow-matbench/internal/device"
	"github.com/23skdu/longbow-matbench/internal/matrix"
	"github.com/23skdu/longbow-matbench/internal/metrics"
)

func TestLifecycleSquare4(t *testing.T) {
	emu := device.NewEmulator()
	be := New(emu, Options{})
	shape := backend.Square(4)

	sess, err := be.Open(shape)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if emu.LiveMem() != 3 || emu.LiveContexts() != 1 {
		t.Fatalf("expected 3 regions and 1 context, got %d and %d", emu.LiveMem(), emu.LiveContexts())
	}

	g := matrix.NewGenerator(rand.NewPCG(1, 2))
	a, _ := g.Generate(4, 4)
	b, _ := g.Generate(4, 4)
	if err := sess.Bind(a, b); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	c, err := sess.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Len() != 16 || c.Rows != 4 || c.Cols != 4 {
		t.Errorf("result is %dx%d with %d elements, want 4x4 with 16", c.Rows, c.Cols, c.Len())
	}

	if err := sess.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if emu.LiveMem() != 0 || emu.LiveContexts() != 0 {
		t.Errorf("teardown leaked %d regions and %d contexts", emu.LiveMem(), emu.LiveContexts())
	}
}

func TestResultWithinHalfPrecision(t *testing.T) {
	be := New(device.NewEmulator(), Options{})
	n := 32
	sess, err := be.Open(backend.Square(n))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	g := matrix.NewGenerator(rand.NewPCG(5, 6))
	a, _ := g.Generate(n, n)
	b, _ := g.Generate(n, n)
	if err := sess.Bind(a, b); err != nil {
		t.Fatal(err)
	}
	got, err := sess.Run()
	if err != nil {
		t.Fatal(err)
	}
	want := naive.MatMul(a.Data, b.Data, n, n, n)

	// Each operand loses up to 2^-11 relative; the products sum to at most n.
	tol := float64(n) * 2 * math.Ldexp(1, -11)
	for i := range want {
		if diff := math.Abs(float64(got.Data[i] - want[i])); diff > tol {
			t.Fatalf("C[%d] = %v, float32 reference %v (diff %g > %g)", i, got.Data[i], want[i], diff, tol)
		}
	}
}

func TestRepeatedRunsReuseInputs(t *testing.T) {
	be := New(device.NewEmulator(), Options{})
	sess, err := be.Open(backend.Square(3))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()

	id, _ := matrix.Identity(3)
	b, _ := matrix.FromSlice(3, 3, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	if err := sess.Bind(id, b); err != nil {
		t.Fatal(err)
	}
	for run := 0; run < 5; run++ {
		c, err := sess.Run()
		if err != nil {
			t.Fatal(err)
		}
		for i := range b.Data {
			if c.Data[i] != b.Data[i] {
				t.Fatalf("run %d: C[%d] = %v, want %v", run, i, c.Data[i], b.Data[i])
			}
		}
	}
}

func TestRunBeforeBind(t *testing.T) {
	sess, err := New(device.NewEmulator(), Options{}).Open(backend.Square(2))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if _, err := sess.Run(); !errors.Is(err, backend.ErrNotBound) {
		t.Errorf("expected ErrNotBound, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	emu := device.NewEmulator()
	sess, err := New(emu, Options{}).Open(backend.Square(2))
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Fatal(err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
	if _, err := sess.Run(); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Run after Close: expected ErrClosed, got %v", err)
	}
	a, _ := matrix.New(2, 2)
	if err := sess.Bind(a, a); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Bind after Close: expected ErrClosed, got %v", err)
	}
	if emu.LiveContexts() != 0 {
		t.Errorf("context destroyed more or less than once: %d live", emu.LiveContexts())
	}
}

func TestNegotiationFailure(t *testing.T) {
	emu := device.NewEmulator()
	// The emulator has no native layout, so the plan is refused.
	_, err := New(emu, Options{NativeLayout: true}).Open(backend.Square(4))

	var se *device.StatusError
	if !errors.As(err, &se) || se.Code != device.StatusParamInvalid {
		t.Fatalf("expected StatusParamInvalid, got %v", err)
	}
	if emu.LiveContexts() != 0 || emu.LiveMem() != 0 {
		t.Error("failed negotiation left resources behind")
	}
}

func TestAllocationFailureReleasesPartialSetup(t *testing.T) {
	emu := device.NewEmulator()
	// Room for the fp16 A and B regions of a 4x4 plan (32 bytes each) but not C.
	emu.MaxMemory = 80
	before := testutil.ToFloat64(metrics.DeviceMemoryBytes)

	_, err := New(emu, Options{}).Open(backend.Square(4))

	var se *device.StatusError
	if !errors.As(err, &se) || se.Code != device.StatusMallocFail {
		t.Fatalf("expected StatusMallocFail, got %v", err)
	}
	if emu.LiveMem() != 0 || emu.LiveContexts() != 0 {
		t.Errorf("partial setup leaked %d regions and %d contexts", emu.LiveMem(), emu.LiveContexts())
	}
	if got := testutil.ToFloat64(metrics.DeviceMemoryBytes); got != before {
		t.Errorf("device memory gauge %v, want %v", got, before)
	}
}

func TestDeviceMemoryGauge(t *testing.T) {
	before := testutil.ToFloat64(metrics.DeviceMemoryBytes)
	sess, err := New(device.NewEmulator(), Options{}).Open(backend.Square(8))
	if err != nil {
		t.Fatal(err)
	}
	want := float64(8*8*2 + 8*8*2 + 8*8*4)
	if got := testutil.ToFloat64(metrics.DeviceMemoryBytes) - before; got != want {
		t.Errorf("gauge grew by %v, want %v", got, want)
	}
	sess.Close()
	if got := testutil.ToFloat64(metrics.DeviceMemoryBytes); got != before {
		t.Errorf("gauge %v after Close, want %v", got, before)
	}
}

func TestBindRejectsWrongShape(t *testing.T) {
	sess, err := New(device.NewEmulator(), Options{}).Open(backend.Square(4))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	a, _ := matrix.New(3, 4)
	b, _ := matrix.New(4, 4)
	if err := sess.Bind(a, b); !errors.Is(err, matrix.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestOpenRejectsBadShape(t *testing.T) {
	if _, err := New(device.NewEmulator(), Options{}).Open(backend.Shape{M: 4}); !errors.Is(err, matrix.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

// paddedDriver negotiates regions larger (or, with a negative pad, smaller)
// than the operands, the way real drivers round sizes up to their alignment.
// New regions are filled with 0xFF so padding left unwritten shows up.
type paddedDriver struct {
	*device.Emulator
	padA, padB, padC int
	mems             []*device.Mem
}

func (d *paddedDriver) CreateMatMul(info device.MatMulInfo) (device.MatMulContext, device.IOAttr, error) {
	ctx, io, err := d.Emulator.CreateMatMul(info)
	if err != nil {
		return nil, io, err
	}
	io.A.Size += d.padA
	io.B.Size += d.padB
	io.C.Size += d.padC
	return &paddedContext{MatMulContext: ctx, d: d}, io, nil
}

type paddedContext struct {
	device.MatMulContext
	d *paddedDriver
}

func (c *paddedContext) CreateMem(size int) (*device.Mem, error) {
	m, err := c.MatMulContext.CreateMem(size)
	if err != nil {
		return nil, err
	}
	for i := range m.Float16s() {
		m.Float16s()[i] = 0xFFFF
	}
	c.d.mems = append(c.d.mems, m)
	return m, nil
}

func TestPaddedRegions(t *testing.T) {
	drv := &paddedDriver{Emulator: device.NewEmulator(), padA: 64, padB: 128, padC: 256}
	shape := backend.Square(4)
	sess, err := New(drv, Options{}).Open(shape)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer sess.Close()

	a, _ := matrix.New(4, 4)
	b, _ := matrix.New(4, 4)
	for i := range a.Data {
		a.Data[i] = float32(i + 1)
		b.Data[i] = float32(i%3) - 1
	}
	if err := sess.Bind(a, b); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	for i, m := range drv.mems[:2] {
		for j, h := range m.Float16s()[16:] {
			if h != 0 {
				t.Fatalf("region %d: padding element %d = %#x, want 0", i, 16+j, h)
			}
		}
	}

	c, err := sess.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if c.Len() != 16 {
		t.Fatalf("result has %d elements, want 16", c.Len())
	}
	want := naive.MatMul(a.Data, b.Data, 4, 4, 4)
	for i := range want {
		if c.Data[i] != want[i] {
			t.Errorf("C[%d] = %v, want %v", i, c.Data[i], want[i])
		}
	}
}

func TestUndersizedOutputRegion(t *testing.T) {
	drv := &paddedDriver{Emulator: device.NewEmulator(), padC: -4}
	_, err := New(drv, Options{}).Open(backend.Square(4))
	if !errors.Is(err, matrix.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if drv.LiveMem() != 0 || drv.LiveContexts() != 0 {
		t.Errorf("rejected setup leaked %d regions and %d contexts", drv.LiveMem(), drv.LiveContexts())
	}
}

func TestNameReflectsDriver(t *testing.T) {
	if got := New(device.NewEmulator(), Options{}).Name(); got != "rknn(emulated)" {
		t.Errorf("emulated backend named %q", got)
	}
	if got := New(namedDriver{device.NewEmulator(), "rknn"}, Options{}).Name(); got != Name {
		t.Errorf("hardware backend named %q, want %q", got, Name)
	}
}

type namedDriver struct {
	*device.Emulator
	name string
}

func (d namedDriver) Name() string { return d.name }
