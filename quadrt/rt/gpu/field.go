package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
)

// FieldBuffer is the storage shared by the compute kernel and the fragment
// stage. It is bound as a uniform block when drawing and as storage or a
// copy destination while compute owns it.
type FieldBuffer struct {
	Buffer   *wgpu.Buffer
	Capacity uint32
}

// NewFieldBuffer allocates capacity elements of core.FieldStride bytes.
func NewFieldBuffer(ctx *Context, capacity uint32) (*FieldBuffer, error) {
	buf, err := ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Field Buffer",
		Size:  uint64(capacity) * core.FieldStride,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fieldquad.Check("allocate field buffer", err)
	}
	return &FieldBuffer{Buffer: buf, Capacity: capacity}, nil
}

// Size is the buffer size as reported by the device.
func (f *FieldBuffer) Size() uint64 {
	return f.Buffer.GetSize()
}

func (f *FieldBuffer) Release() {
	if f.Buffer != nil {
		f.Buffer.Release()
	}
}
