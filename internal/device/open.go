package device

import "fmt"

// Open selects a driver by name. "rknn" (or empty) is the hardware driver and
// fails with ErrUnavailable when the binding is not compiled in; the software
// emulator is only used when asked for by name.
func Open(name string) (Driver, error) {
	switch name {
	case "rknn", "":
		return NewRKNN()
	case "emulated":
		return NewEmulator(), nil
	default:
		return nil, fmt.Errorf("unknown npu driver %q (want rknn or emulated)", name)
	}
}
