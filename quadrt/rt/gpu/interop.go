package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/gekko3d/fieldquad/quadrt/rt/shaders"
	"github.com/pkg/errors"
)

// maxMapPolls bounds the wait for a staging buffer mapping.
const maxMapPolls = 1000

// DeviceInterop runs the field kernel as a compute shader writing the field
// buffer in place.
type DeviceInterop struct {
	ctx    *Context
	field  *FieldBuffer
	logger fieldquad.Logger

	pipeline  *wgpu.ComputePipeline
	layout    *wgpu.BindGroupLayout
	plLayout  *wgpu.PipelineLayout
	params    *wgpu.Buffer
	bindGroup *wgpu.BindGroup
}

func NewDeviceInterop(ctx *Context, field *FieldBuffer, logger fieldquad.Logger) *DeviceInterop {
	return &DeviceInterop{ctx: ctx, field: field, logger: fieldquad.OrNop(logger)}
}

// Register builds the compute pipeline and binds the field buffer as its
// storage output.
func (d *DeviceInterop) Register() error {
	cs, err := shaders.Compile(shaders.FieldSource, shaders.StageCompute)
	if err != nil {
		return err
	}
	for _, diag := range cs.Diagnostics {
		d.logger.Warnf("shader: %s", diag)
	}
	bindings := cs.Bindings()
	for _, b := range bindings {
		if b.Kind == shaders.BindingStorage && b.ArrayLength != d.field.Capacity {
			return errors.Errorf("kernel declares %d field elements, buffer holds %d", b.ArrayLength, d.field.Capacity)
		}
	}
	entries, err := layoutEntries(bindings)
	if err != nil {
		return err
	}

	module, err := compileModule(d.ctx, cs)
	if err != nil {
		return err
	}
	defer module.Release()

	dev := d.ctx.Device
	if d.layout, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "FieldKernelBGL",
		Entries: entries,
	}); err != nil {
		return err
	}
	if d.plLayout, err = dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "FieldKernelPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{d.layout},
	}); err != nil {
		return err
	}
	if d.pipeline, err = dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "FieldKernelPipeline",
		Layout: d.plLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: cs.EntryPoint,
		},
	}); err != nil {
		return err
	}
	if d.params, err = dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Field Kernel Params",
		Size:  uniformAlign,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	}); err != nil {
		return err
	}
	d.bindGroup, err = dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "FieldKernelBG",
		Layout: d.layout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: d.params, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: d.field.Buffer, Size: wgpu.WholeSize},
		},
	})
	return err
}

// Map hands out a mapping that records dispatches. The field buffer itself
// is written on the device, so there is nothing to copy on Unmap.
func (d *DeviceInterop) Map() (core.Mapping, error) {
	if d.pipeline == nil {
		return nil, core.ErrNotRegistered
	}
	return &deviceMapping{interop: d, size: d.field.Size()}, nil
}

// Unmap waits for every dispatch submitted through the mapping.
func (d *DeviceInterop) Unmap(m core.Mapping) error {
	dm, ok := m.(*deviceMapping)
	if !ok || dm.interop != d {
		return errors.Errorf("unmap: mapping %T does not belong to this interop", m)
	}
	dm.closed = true
	d.ctx.Wait()
	return nil
}

func (d *DeviceInterop) Unregister() error {
	if d.bindGroup != nil {
		d.bindGroup.Release()
		d.bindGroup = nil
	}
	if d.params != nil {
		d.params.Release()
		d.params = nil
	}
	if d.pipeline != nil {
		d.pipeline.Release()
		d.pipeline = nil
	}
	if d.plLayout != nil {
		d.plLayout.Release()
		d.plLayout = nil
	}
	if d.layout != nil {
		d.layout.Release()
		d.layout = nil
	}
	return nil
}

type deviceMapping struct {
	interop *DeviceInterop
	size    uint64
	closed  bool
}

func (m *deviceMapping) Size() uint64 { return m.size }

// Dispatch submits ceil(count/workgroup) workgroups of the field kernel.
func (m *deviceMapping) Dispatch(count uint32, frame uint64) error {
	if m.closed {
		return core.ErrNotMapped
	}
	d := m.interop
	if err := d.ctx.Queue.WriteBuffer(d.params, 0, fieldParamsBytes(frame, count)); err != nil {
		return fieldquad.Check("write kernel params", err)
	}
	encoder, err := d.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fieldquad.Check("create command encoder", err)
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(d.pipeline)
	pass.SetBindGroup(0, d.bindGroup, nil)
	pass.DispatchWorkgroups(core.WorkgroupsFor(count, core.FieldWorkgroupSize), 1, 1)
	pass.End()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fieldquad.Check("finish compute commands", err)
	}
	defer cmd.Release()
	d.ctx.Queue.Submit(cmd)
	return nil
}

// HostInterop maps a write-only staging buffer into host memory for the Go
// kernel and copies it into the field buffer on Unmap.
type HostInterop struct {
	ctx     *Context
	field   *FieldBuffer
	staging *wgpu.Buffer
}

func NewHostInterop(ctx *Context, field *FieldBuffer) *HostInterop {
	return &HostInterop{ctx: ctx, field: field}
}

func (h *HostInterop) Register() error {
	var err error
	h.staging, err = h.ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Field Staging Buffer",
		Size:  h.field.Size(),
		Usage: wgpu.BufferUsageMapWrite | wgpu.BufferUsageCopySrc,
	})
	return err
}

// Map waits for the staging buffer and exposes its bytes.
func (h *HostInterop) Map() (core.Mapping, error) {
	if h.staging == nil {
		return nil, core.ErrNotRegistered
	}
	size := h.staging.GetSize()

	done := false
	var status wgpu.BufferMapAsyncStatus
	err := h.staging.MapAsync(wgpu.MapModeWrite, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	})
	if err != nil {
		return nil, err
	}
	for i := 0; i < maxMapPolls && !done; i++ {
		h.ctx.Wait()
	}
	if !done {
		return nil, errors.New("staging buffer mapping did not complete")
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errors.Errorf("staging buffer mapping failed: %s", status.String())
	}
	return hostMapping(h.staging.GetMappedRange(0, uint(size))), nil
}

// Unmap releases the host view, copies staging into the field buffer and
// waits for the copy.
func (h *HostInterop) Unmap(core.Mapping) error {
	h.staging.Unmap()

	encoder, err := h.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fieldquad.Check("create command encoder", err)
	}
	defer encoder.Release()
	encoder.CopyBufferToBuffer(h.staging, 0, h.field.Buffer, 0, h.staging.GetSize())
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fieldquad.Check("finish copy commands", err)
	}
	defer cmd.Release()
	h.ctx.Queue.Submit(cmd)
	h.ctx.Wait()
	return nil
}

func (h *HostInterop) Unregister() error {
	if h.staging != nil {
		h.staging.Release()
		h.staging = nil
	}
	return nil
}

type hostMapping []byte

func (m hostMapping) Size() uint64  { return uint64(len(m)) }
func (m hostMapping) Bytes() []byte { return m }
