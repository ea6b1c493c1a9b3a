package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/pkg/errors"
)

// Resource names in fragment.wgsl.
const (
	FieldBlockName  = "field"
	TimeUniformName = "time"
)

// FramePipeline draws the quad reading the field buffer as a uniform block.
type FramePipeline struct {
	ctx       *Context
	program   *Program
	geometry  *GeometryStore
	field     *FieldBuffer
	frameRate int

	frameUniforms *wgpu.Buffer
	timeOffset    uint64
	bindGroup     *wgpu.BindGroup
}

// NewFramePipeline resolves the program's time uniform and field block and
// binds the field buffer into the render bind group once.
func NewFramePipeline(ctx *Context, program *Program, geometry *GeometryStore, field *FieldBuffer, frameRate int) (*FramePipeline, error) {
	block, err := program.ResolveUniformBlock(FieldBlockName)
	if err != nil {
		return nil, err
	}
	if block.ArrayLength != field.Capacity || uint64(block.ArrayStride) != core.FieldStride {
		return nil, fieldquad.Fatalf("bind field block",
			"shader declares %d elements of %d bytes, buffer holds %d of %d",
			block.ArrayLength, block.ArrayStride, field.Capacity, core.FieldStride)
	}
	timeLoc, err := program.ResolveUniform(TimeUniformName)
	if err != nil {
		return nil, err
	}
	if timeLoc.Group != block.Group {
		return nil, fieldquad.Fatalf("bind frame uniforms", "time and field live in different bind groups")
	}
	timeBlock, ok := program.linked.BindingAt(timeLoc.Group, timeLoc.Binding)
	if !ok {
		return nil, fieldquad.Fatalf("bind frame uniforms", "no binding at group %d slot %d", timeLoc.Group, timeLoc.Binding)
	}

	f := &FramePipeline{
		ctx:        ctx,
		program:    program,
		geometry:   geometry,
		field:      field,
		frameRate:  frameRate,
		timeOffset: uint64(timeLoc.Offset),
	}
	f.frameUniforms, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Frame Uniforms",
		Size:  alignUp(uint64(timeBlock.Size), uniformAlign),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fieldquad.Check("allocate frame uniforms", err)
	}
	f.bindGroup, err = ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "QuadBG",
		Layout: program.BindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: timeLoc.Binding, Buffer: f.frameUniforms, Size: wgpu.WholeSize},
			{Binding: block.Slot, Buffer: field.Buffer, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fieldquad.Check("create render bind group", err)
	}
	return f, nil
}

// DrawFrame renders and presents one frame. The field must be graphics-owned.
func (f *FramePipeline) DrawFrame(owned core.GraphicsOwned, frame uint64) error {
	if !owned.Valid() {
		return errors.Wrap(core.ErrStaleOwnership, "draw frame")
	}
	t := core.TimeAt(frame, f.frameRate)
	if err := f.ctx.Queue.WriteBuffer(f.frameUniforms, f.timeOffset, float32Bytes(t)); err != nil {
		return fieldquad.Check("write time uniform", err)
	}

	surfaceTexture, err := f.ctx.Surface.GetCurrentTexture()
	if err != nil {
		return fieldquad.Check("acquire surface texture", err)
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fieldquad.Check("create surface view", err)
	}
	defer view.Release()

	encoder, err := f.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fieldquad.Check("create command encoder", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{0, 0, 0, 1},
		}},
	})
	pass.SetPipeline(f.program.Pipeline)
	pass.SetBindGroup(0, f.bindGroup, nil)
	pass.SetVertexBuffer(0, f.geometry.VertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(f.geometry.IndexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	pass.DrawIndexed(f.geometry.Count(), 1, 0, 0, 0)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fieldquad.Check("finish render commands", err)
	}
	defer cmd.Release()
	f.ctx.Queue.Submit(cmd)
	f.ctx.Surface.Present()
	return nil
}

func (f *FramePipeline) Release() {
	if f.bindGroup != nil {
		f.bindGroup.Release()
	}
	if f.frameUniforms != nil {
		f.frameUniforms.Release()
	}
}
