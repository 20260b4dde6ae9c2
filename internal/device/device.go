// Package device is the contract between the NPU backend and an accelerator
// driver: plan negotiation for a fixed-shape matmul, device memory regions,
// slot binding, synchronous execution and teardown. It follows the shape of
// the Rockchip RKNN matmul API. Two drivers exist: the rknn cgo binding
// (build tag rknpu) and a software emulator.
package device

import (
	"errors"
	"fmt"
	"unsafe"
)

// ErrUnavailable is returned when a driver is not compiled in or no device
// is present.
var ErrUnavailable = errors.New("accelerator driver unavailable")

// MatMulType selects operand and result precision. Values match
// rknn_matmul_type.
type MatMulType int32

const (
	Float16MMFloat16ToFloat32 MatMulType = 1
	Int8MMInt8ToInt32         MatMulType = 2
	Int8MMInt8ToInt8          MatMulType = 3
	Float16MMFloat16ToFloat16 MatMulType = 4
)

func (t MatMulType) String() string {
	switch t {
	case Float16MMFloat16ToFloat32:
		return "fp16xfp16->fp32"
	case Int8MMInt8ToInt32:
		return "int8xint8->int32"
	case Int8MMInt8ToInt8:
		return "int8xint8->int8"
	case Float16MMFloat16ToFloat16:
		return "fp16xfp16->fp16"
	default:
		return fmt.Sprintf("MatMulType(%d)", int32(t))
	}
}

type Layout int16

const (
	LayoutNormal Layout = 0
	LayoutNative Layout = 1
)

// MatMulInfo describes the plan to negotiate.
type MatMulInfo struct {
	M, K, N  int
	Type     MatMulType
	ACLayout Layout
	BLayout  Layout
}

type Slot int

const (
	SlotA Slot = iota
	SlotB
	SlotC
)

func (s Slot) String() string {
	switch s {
	case SlotA:
		return "A"
	case SlotB:
		return "B"
	case SlotC:
		return "C"
	default:
		return fmt.Sprintf("Slot(%d)", int(s))
	}
}

// TensorAttr is the driver's description of one operand. Size is in bytes
// and may exceed the logical element count when the layout needs padding.
type TensorAttr struct {
	Slot Slot
	Name string
	Dims []int
	Size int
}

// IOAttr is the negotiated layout for all three operands.
type IOAttr struct {
	A, B, C TensorAttr
}

// Mem is a device-visible memory region. The typed views alias the mapping;
// the device reads what the host wrote when the region is next bound.
type Mem struct {
	data   []byte
	handle any
}

func (m *Mem) Size() int { return len(m.data) }

// Float16s views the region as binary16 bit patterns.
func (m *Mem) Float16s() []uint16 {
	if len(m.data) < 2 {
		return nil
	}
	return unsafe.Slice((*uint16)(unsafe.Pointer(unsafe.SliceData(m.data))), len(m.data)/2)
}

// Float32s views the region as float32 values.
func (m *Mem) Float32s() []float32 {
	if len(m.data) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(m.data))), len(m.data)/4)
}

// MatMulContext is one negotiated plan. All calls are synchronous; Run
// blocks until the device finishes.
type MatMulContext interface {
	CreateMem(size int) (*Mem, error)
	DestroyMem(m *Mem) error
	// SetIOMem binds m to attr's slot. Calling it again on an already bound
	// region tells the driver the host has refreshed its contents.
	SetIOMem(m *Mem, attr TensorAttr) error
	Run() error
	Destroy() error
}

type Driver interface {
	Name() string
	CreateMatMul(info MatMulInfo) (MatMulContext, IOAttr, error)
}
