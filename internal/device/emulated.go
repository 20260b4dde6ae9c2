package device

import (
	"sync"

	"github.com/23skdu/longbow-matbench/internal/fp16"
)

// Emulator is a software Driver with the same contract as the NPU: fp16
// operands are taken from device memory when a region is bound, products
// accumulate in float32 and C is written as float32. It only speaks the normal row-major layout and the
// fp16 -> fp32 plan, and it accounts for every region and context it hands out
// so teardown can be checked.
type Emulator struct {
	// MaxMemory caps the bytes of live regions; zero means unlimited.
	MaxMemory int

	mu       sync.Mutex
	liveMem  map[*Mem]*emuContext
	liveCtx  int
	memBytes int
}

func NewEmulator() *Emulator {
	return &Emulator{liveMem: make(map[*Mem]*emuContext)}
}

func (e *Emulator) Name() string { return "emulated" }

func (e *Emulator) CreateMatMul(info MatMulInfo) (MatMulContext, IOAttr, error) {
	if info.M <= 0 || info.K <= 0 || info.N <= 0 {
		return nil, IOAttr{}, status("rknn_matmul_create", StatusParamInvalid)
	}
	if info.Type != Float16MMFloat16ToFloat32 {
		return nil, IOAttr{}, status("rknn_matmul_create", StatusParamInvalid)
	}
	if info.ACLayout != LayoutNormal || info.BLayout != LayoutNormal {
		return nil, IOAttr{}, status("rknn_matmul_create", StatusParamInvalid)
	}

	io := IOAttr{
		A: TensorAttr{Slot: SlotA, Name: "A", Dims: []int{info.M, info.K}, Size: info.M * info.K * 2},
		B: TensorAttr{Slot: SlotB, Name: "B", Dims: []int{info.K, info.N}, Size: info.K * info.N * 2},
		C: TensorAttr{Slot: SlotC, Name: "C", Dims: []int{info.M, info.N}, Size: info.M * info.N * 4},
	}

	e.mu.Lock()
	e.liveCtx++
	e.mu.Unlock()

	return &emuContext{
		emu:  e,
		info: info,
		a:    make([]float32, info.M*info.K),
		b:    make([]float32, info.K*info.N),
	}, io, nil
}

// LiveMem returns the number of regions created and not yet destroyed.
func (e *Emulator) LiveMem() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.liveMem)
}

// LiveContexts returns the number of plans created and not yet destroyed.
func (e *Emulator) LiveContexts() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.liveCtx
}

type emuContext struct {
	emu       *Emulator
	info      MatMulInfo
	slots     [3]*Mem
	destroyed bool

	// fp32 staging for the operands, refreshed by SetIOMem.
	a, b []float32
}

func (c *emuContext) CreateMem(size int) (*Mem, error) {
	if c.destroyed {
		return nil, status("rknn_create_mem", StatusCtxInvalid)
	}
	if size <= 0 {
		return nil, status("rknn_create_mem", StatusParamInvalid)
	}

	e := c.emu
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.MaxMemory > 0 && e.memBytes+size > e.MaxMemory {
		return nil, status("rknn_create_mem", StatusMallocFail)
	}
	m := &Mem{data: make([]byte, size)}
	e.liveMem[m] = c
	e.memBytes += size
	return m, nil
}

func (c *emuContext) DestroyMem(m *Mem) error {
	e := c.emu
	e.mu.Lock()
	defer e.mu.Unlock()
	owner, ok := e.liveMem[m]
	if !ok || owner != c {
		return status("rknn_destroy_mem", StatusParamInvalid)
	}
	delete(e.liveMem, m)
	e.memBytes -= m.Size()
	for i, s := range c.slots {
		if s == m {
			c.slots[i] = nil
		}
	}
	return nil
}

func (c *emuContext) SetIOMem(m *Mem, attr TensorAttr) error {
	if c.destroyed {
		return status("rknn_matmul_set_io_mem", StatusCtxInvalid)
	}
	c.emu.mu.Lock()
	owner, ok := c.emu.liveMem[m]
	c.emu.mu.Unlock()
	if !ok || owner != c {
		return status("rknn_matmul_set_io_mem", StatusParamInvalid)
	}
	if attr.Slot < SlotA || attr.Slot > SlotC || m.Size() < attr.Size {
		return status("rknn_matmul_set_io_mem", StatusInputInvalid)
	}
	c.slots[attr.Slot] = m
	c.ingest(attr.Slot, m)
	return nil
}

// ingest widens a freshly bound input region into fp32 staging, the way the
// device takes ownership of operand data at bind time rather than per run.
func (c *emuContext) ingest(slot Slot, m *Mem) {
	switch slot {
	case SlotA:
		fp16.Decode(c.a, m.Float16s())
	case SlotB:
		fp16.Decode(c.b, m.Float16s())
	}
}

func (c *emuContext) Run() error {
	if c.destroyed {
		return status("rknn_matmul_run", StatusCtxInvalid)
	}
	ma, mb, mc := c.slots[SlotA], c.slots[SlotB], c.slots[SlotC]
	if ma == nil || mb == nil || mc == nil {
		return status("rknn_matmul_run", StatusCtxInvalid)
	}

	M, K, N := c.info.M, c.info.K, c.info.N

	out := mc.Float32s()[:M*N]
	clear(out)
	for i := 0; i < M; i++ {
		row := out[i*N : (i+1)*N]
		for p := 0; p < K; p++ {
			av := c.a[i*K+p]
			brow := c.b[p*N : (p+1)*N]
			for j, bv := range brow {
				row[j] += av * bv
			}
		}
	}
	return nil
}

func (c *emuContext) Destroy() error {
	if c.destroyed {
		return status("rknn_matmul_destroy", StatusCtxInvalid)
	}
	c.destroyed = true
	c.slots = [3]*Mem{}
	c.a, c.b = nil, nil

	c.emu.mu.Lock()
	c.emu.liveCtx--
	c.emu.mu.Unlock()
	return nil
}
