package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDevice struct {
	size     uint64
	dispatch [][2]uint64
}

func (d *recordingDevice) Size() uint64 { return d.size }
func (d *recordingDevice) Dispatch(count uint32, frame uint64) error {
	d.dispatch = append(d.dispatch, [2]uint64{uint64(count), frame})
	return nil
}

type deviceInterop struct {
	fakeInterop
	dev *recordingDevice
}

func (d *deviceInterop) Map() (Mapping, error) { return d.dev, nil }

func mapHost(t *testing.T) (*fakeInterop, ComputeOwned) {
	t.Helper()
	in := newFakeInterop()
	_, g := registeredField(t, in)
	c, err := g.Map()
	require.NoError(t, err)
	return in, c
}

func TestFieldKernel_HostWritesEveryElement(t *testing.T) {
	for _, workers := range []int{1, 3, 7, 64} {
		in, c := mapHost(t)
		for i := range in.buf {
			in.buf[i] = 0xFF
		}
		require.NoError(t, FieldKernel{Workers: workers}.Run(c, FieldCapacity, 42))

		for i := uint32(0); i < FieldCapacity; i++ {
			require.Equal(t, FieldValue(i, 42), FieldElement(in.buf, i), "workers=%d element=%d", workers, i)
		}
	}
}

func TestFieldKernel_DeterministicAcrossWorkerCounts(t *testing.T) {
	var first []byte
	for _, workers := range []int{1, 2, 5, 16} {
		in, c := mapHost(t)
		require.NoError(t, FieldKernel{Workers: workers}.Run(c, FieldCapacity, 7))
		if first == nil {
			first = append([]byte(nil), in.buf...)
			continue
		}
		assert.True(t, bytes.Equal(first, in.buf), "workers=%d produced different bytes", workers)
	}
}

func TestFieldKernel_PartialCountLeavesTail(t *testing.T) {
	in, c := mapHost(t)
	for i := range in.buf {
		in.buf[i] = 0xAA
	}
	require.NoError(t, FieldKernel{Workers: 4}.Run(c, 10, 3))

	assert.Equal(t, FieldValue(9, 3), FieldElement(in.buf, 9))
	assert.Equal(t, byte(0xAA), in.buf[10*FieldStride])
}

func TestFieldKernel_ZeroCount(t *testing.T) {
	in, c := mapHost(t)
	require.NoError(t, FieldKernel{}.Run(c, 0, 1))
	assert.Equal(t, make([]byte, FieldSize), in.buf)
}

func TestFieldKernel_CountOutOfRange(t *testing.T) {
	_, c := mapHost(t)
	err := FieldKernel{}.Run(c, FieldCapacity+1, 0)
	assert.ErrorIs(t, err, ErrCountOutOfRange)
}

func TestFieldKernel_StaleToken(t *testing.T) {
	_, c := mapHost(t)
	_, err := c.Unmap()
	require.NoError(t, err)

	assert.ErrorIs(t, FieldKernel{}.Run(c, FieldCapacity, 0), ErrStaleOwnership)
}

func TestFieldKernel_DeviceMappingDispatches(t *testing.T) {
	in := &deviceInterop{dev: &recordingDevice{size: FieldSize}}
	_, g := registeredField(t, in)
	c, err := g.Map()
	require.NoError(t, err)

	require.NoError(t, FieldKernel{}.Run(c, FieldCapacity, 99))
	assert.Equal(t, [][2]uint64{{FieldCapacity, 99}}, in.dev.dispatch)
}
