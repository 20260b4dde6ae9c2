//go:build !rknpu || !cgo

package device

// NewRKNN reports ErrUnavailable; build with -tags rknpu and cgo enabled to
// link librknnrt.
func NewRKNN() (Driver, error) {
	return nil, ErrUnavailable
}
