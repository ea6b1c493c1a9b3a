package gpu

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/gekko3d/fieldquad/quadrt/rt/shaders"
	"github.com/pkg/errors"
)

// uniformAlign is the granularity uniform buffers are allocated in.
const uniformAlign = 16

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}

func visibility(m shaders.StageMask) wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if m.Has(shaders.StageVertex) {
		v |= wgpu.ShaderStageVertex
	}
	if m.Has(shaders.StageFragment) {
		v |= wgpu.ShaderStageFragment
	}
	if m.Has(shaders.StageCompute) {
		v |= wgpu.ShaderStageCompute
	}
	return v
}

func bufferBindingType(k shaders.BindingKind) wgpu.BufferBindingType {
	switch k {
	case shaders.BindingStorage:
		return wgpu.BufferBindingTypeStorage
	case shaders.BindingReadOnlyStorage:
		return wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return wgpu.BufferBindingTypeUniform
	}
}

// layoutEntries turns reflected bindings into one bind group layout. Every
// binding must live in group 0.
func layoutEntries(bindings []shaders.Binding) ([]wgpu.BindGroupLayoutEntry, error) {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		if b.Group != 0 {
			return nil, errors.Errorf("binding %q is in group %d, only group 0 is supported", b.Name, b.Group)
		}
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    b.Slot,
			Visibility: visibility(b.Stages),
			Buffer: wgpu.BufferBindingLayout{
				Type:             bufferBindingType(b.Kind),
				MinBindingSize:   uint64(b.Size),
				HasDynamicOffset: false,
			},
		})
	}
	return entries, nil
}

// vertexLayout describes core.Vertex: position at location 0 and the blue
// byte, read with its pad byte as unorm8x2, at location 1.
func vertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: core.VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{
				Format:         wgpu.VertexFormatFloat32x3,
				Offset:         0,
				ShaderLocation: 0,
			},
			{
				Format:         wgpu.VertexFormatUnorm8x2,
				Offset:         12,
				ShaderLocation: 1,
			},
		},
	}
}

func vertexBytes(vs [core.VertexCount]core.Vertex) []byte {
	out := make([]byte, 0, len(vs)*int(core.VertexStride))
	for _, v := range vs {
		for _, c := range v.Position {
			out = binary.LittleEndian.AppendUint32(out, math.Float32bits(c))
		}
		out = append(out, v.Blue, 0, 0, 0)
	}
	return out
}

// indexBytes fills all core.MaxIndices slots; unused slots are 0.
func indexBytes(seq []uint32) []byte {
	out := make([]byte, core.MaxIndices*4)
	for i, idx := range seq {
		binary.LittleEndian.PutUint32(out[i*4:], idx)
	}
	return out
}

func float32Bytes(v float32) []byte {
	return binary.LittleEndian.AppendUint32(nil, math.Float32bits(v))
}

// fieldParamsBytes matches FieldParams in field.wgsl. The frame counter is
// truncated to 32 bits on the device.
func fieldParamsBytes(frame uint64, count uint32) []byte {
	out := make([]byte, uniformAlign)
	binary.LittleEndian.PutUint32(out[0:], uint32(frame))
	binary.LittleEndian.PutUint32(out[4:], count)
	return out
}
