package core

import (
	"encoding/binary"
	"math"
)

const (
	// FieldCapacity is the number of scalar elements in the shared field.
	// The fragment stage's row lookup and the kernel's work-item count both
	// come from this constant.
	FieldCapacity = 1024

	// FieldStride is the byte distance between elements. A uniform array
	// element is rounded up to 16 bytes, so each f32 lives in the x
	// component of a vec4.
	FieldStride = 16

	// FieldSize is the byte size of the shared field buffer.
	FieldSize = FieldCapacity * FieldStride

	// Kernel wave parameters.
	FieldPhaseAmplitude = 4.0
	FieldPhaseFrames    = 60.0
	FieldIndexScale     = 64.0

	// FieldWorkgroupSize is the device kernel's workgroup width.
	FieldWorkgroupSize = 64
)

// FieldTheta is the wave argument for element i at frame.
func FieldTheta(i uint32, frame uint64) float64 {
	phase := FieldPhaseAmplitude * math.Sin(float64(frame)/FieldPhaseFrames)
	return phase + float64(i)/FieldIndexScale
}

// FieldValue is sin(theta)^2 for element i at frame.
func FieldValue(i uint32, frame uint64) float32 {
	s := math.Sin(FieldTheta(i, frame))
	return float32(s * s)
}

// PutFieldElement writes v and its padding at element i of a mapped field.
func PutFieldElement(dst []byte, i uint32, v float32) {
	off := int(i) * FieldStride
	binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
	clear(dst[off+4 : off+FieldStride])
}

// FieldElement reads element i of a field laid out with FieldStride.
func FieldElement(src []byte, i uint32) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src[int(i)*FieldStride:]))
}

// WorkgroupsFor returns the number of groups of size needed to cover count
// items. The kernel discards the items past count in the last group.
func WorkgroupsFor(count, size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return (count + size - 1) / size
}
