// Package fp16 converts between float32 and IEEE 754 binary16, the input
// format of the NPU matmul. Conversion rounds to nearest, ties to even;
// values beyond 65504 become infinity and values below 2^-24 flush to zero.
package fp16

import "github.com/x448/float16"

// MaxValue is the largest finite binary16 value.
const MaxValue = 65504

// FromFloat32 returns the binary16 bit pattern nearest to f.
func FromFloat32(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

// ToFloat32 widens a binary16 bit pattern. Widening is exact.
func ToFloat32(h uint16) float32 {
	return float16.Frombits(h).Float32()
}

// Encode narrows src into dst element by element. If dst is longer than src
// the remainder is zeroed, which is what padded device buffers expect; if it
// is shorter, src is truncated. It returns the number of converted values.
func Encode(dst []uint16, src []float32) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = float16.Fromfloat32(src[i]).Bits()
	}
	clear(dst[n:])
	return n
}

// Decode widens src into dst and returns the number of converted values.
func Decode(dst []float32, src []uint16) int {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		dst[i] = float16.Frombits(src[i]).Float32()
	}
	return n
}
