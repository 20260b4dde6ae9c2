//go:build rknpu && cgo

package device

/*
#cgo LDFLAGS: -lrknnrt
#include <stdlib.h>
#include <rknn_api.h>
#include <rknn_matmul_api.h>
*/
import "C"

import (
	"unsafe"
)

type rknnDriver struct{}

// NewRKNN returns the Rockchip NPU driver backed by librknnrt.
func NewRKNN() (Driver, error) {
	return rknnDriver{}, nil
}

func (rknnDriver) Name() string { return "rknn" }

func (rknnDriver) CreateMatMul(info MatMulInfo) (MatMulContext, IOAttr, error) {
	c := &rknnContext{}
	c.info.M = C.int32_t(info.M)
	c.info.K = C.int32_t(info.K)
	c.info.N = C.int32_t(info.N)
	c.info._type = C.rknn_matmul_type(info.Type)
	c.info.AC_layout = C.int16_t(info.ACLayout)
	c.info.B_layout = C.int16_t(info.BLayout)

	ret := C.rknn_matmul_create(&c.ctx, &c.info, &c.io)
	if err := status("rknn_matmul_create", int(ret)); err != nil {
		return nil, IOAttr{}, err
	}

	io := IOAttr{
		A: tensorAttr(SlotA, &c.io.A),
		B: tensorAttr(SlotB, &c.io.B),
		C: tensorAttr(SlotC, &c.io.C),
	}
	return c, io, nil
}

func tensorAttr(slot Slot, a *C.rknn_matmul_tensor_attr) TensorAttr {
	dims := make([]int, int(a.n_dims))
	for i := range dims {
		dims[i] = int(a.dims[i])
	}
	return TensorAttr{
		Slot: slot,
		Name: C.GoString(&a.name[0]),
		Dims: dims,
		Size: int(a.size),
	}
}

type rknnContext struct {
	ctx  C.rknn_matmul_ctx
	info C.rknn_matmul_info
	io   C.rknn_matmul_io_attr
}

func (c *rknnContext) attr(slot Slot) *C.rknn_matmul_tensor_attr {
	switch slot {
	case SlotA:
		return &c.io.A
	case SlotB:
		return &c.io.B
	default:
		return &c.io.C
	}
}

func (c *rknnContext) CreateMem(size int) (*Mem, error) {
	mem := C.rknn_create_mem(C.rknn_context(c.ctx), C.uint32_t(size))
	if mem == nil {
		return nil, status("rknn_create_mem", StatusMallocFail)
	}
	data := unsafe.Slice((*byte)(mem.virt_addr), int(mem.size))
	return &Mem{data: data, handle: mem}, nil
}

func (c *rknnContext) DestroyMem(m *Mem) error {
	mem, ok := m.handle.(*C.rknn_tensor_mem)
	if !ok {
		return status("rknn_destroy_mem", StatusParamInvalid)
	}
	ret := C.rknn_destroy_mem(C.rknn_context(c.ctx), mem)
	m.data, m.handle = nil, nil
	return status("rknn_destroy_mem", int(ret))
}

func (c *rknnContext) SetIOMem(m *Mem, attr TensorAttr) error {
	mem, ok := m.handle.(*C.rknn_tensor_mem)
	if !ok {
		return status("rknn_matmul_set_io_mem", StatusParamInvalid)
	}
	ret := C.rknn_matmul_set_io_mem(c.ctx, mem, c.attr(attr.Slot))
	return status("rknn_matmul_set_io_mem", int(ret))
}

func (c *rknnContext) Run() error {
	return status("rknn_matmul_run", int(C.rknn_matmul_run(c.ctx)))
}

func (c *rknnContext) Destroy() error {
	return status("rknn_matmul_destroy", int(C.rknn_matmul_destroy(c.ctx)))
}
