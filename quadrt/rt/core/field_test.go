package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldValue_FirstElementAtFrameZero(t *testing.T) {
	// sin(0 + 0/64)^2
	assert.Equal(t, float32(0), FieldValue(0, 0))
}

func TestFieldValue_IndexOffset(t *testing.T) {
	// At frame 0 the phase term is zero, so theta is i/64.
	for _, i := range []uint32{1, 64, 100, FieldCapacity - 1} {
		s := math.Sin(float64(i) / 64)
		assert.InDelta(t, s*s, float64(FieldValue(i, 0)), 1e-6, "element %d", i)
	}
}

func TestFieldValue_Range(t *testing.T) {
	for frame := uint64(0); frame < 400; frame += 7 {
		for i := uint32(0); i < FieldCapacity; i += 13 {
			v := FieldValue(i, frame)
			if v < 0 || v > 1 {
				t.Fatalf("value %f out of [0,1] at i=%d frame=%d", v, i, frame)
			}
		}
	}
}

func TestPutFieldElement_StrideAndPadding(t *testing.T) {
	buf := make([]byte, 3*FieldStride)
	for i := range buf {
		buf[i] = 0xAA
	}
	PutFieldElement(buf, 1, 0.5)

	assert.Equal(t, float32(0.5), FieldElement(buf, 1))
	for _, b := range buf[FieldStride+4 : 2*FieldStride] {
		require.Equal(t, byte(0), b, "padding must be cleared")
	}
	// neighbours untouched
	assert.Equal(t, byte(0xAA), buf[FieldStride-1])
	assert.Equal(t, byte(0xAA), buf[2*FieldStride])
}

func TestWorkgroupsFor(t *testing.T) {
	assert.Equal(t, uint32(16), WorkgroupsFor(FieldCapacity, FieldWorkgroupSize))
	assert.Equal(t, uint32(2), WorkgroupsFor(65, 64))
	assert.Equal(t, uint32(1), WorkgroupsFor(1, 64))
	assert.Equal(t, uint32(0), WorkgroupsFor(0, 64))
	assert.Equal(t, uint32(0), WorkgroupsFor(10, 0))

	// Coverage is never short of count.
	for count := uint32(1); count < 300; count++ {
		groups := WorkgroupsFor(count, FieldWorkgroupSize)
		assert.GreaterOrEqual(t, groups*FieldWorkgroupSize, count)
		assert.Less(t, (groups-1)*FieldWorkgroupSize, count)
	}
}

func TestFieldSize(t *testing.T) {
	assert.Equal(t, 16384, FieldSize)
}
