package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/shaders"
)

// Program is the linked vertex/fragment pipeline with its reflected
// resource interface.
type Program struct {
	Pipeline        *wgpu.RenderPipeline
	BindGroupLayout *wgpu.BindGroupLayout
	PipelineLayout  *wgpu.PipelineLayout

	linked   *shaders.Linked
	logger   fieldquad.Logger
	blocks   map[string]shaders.Binding
	uniforms map[string]shaders.Location
}

func compileModule(ctx *Context, cs *shaders.CompiledStage) (*wgpu.ShaderModule, error) {
	module, err := ctx.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          cs.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: cs.Source},
	})
	if err != nil {
		return nil, fieldquad.Check("create shader module "+cs.Name, err)
	}
	return module, nil
}

// NewProgram compiles and links the quad's vertex and fragment stages for
// the surface format. Stage modules are released once the pipeline exists.
func NewProgram(ctx *Context, logger fieldquad.Logger) (*Program, error) {
	logger = fieldquad.OrNop(logger)

	vs, err := shaders.Compile(shaders.VertexSource, shaders.StageVertex)
	if err != nil {
		return nil, err
	}
	fs, err := shaders.Compile(shaders.FragmentSource, shaders.StageFragment)
	if err != nil {
		return nil, err
	}
	linked, err := shaders.Link(vs, fs)
	if err != nil {
		return nil, err
	}
	for _, d := range linked.Diagnostics() {
		logger.Warnf("shader: %s", d)
	}

	entries, err := layoutEntries(linked.Bindings())
	if err != nil {
		return nil, fieldquad.Check("link shader program", err)
	}

	vsModule, err := compileModule(ctx, vs)
	if err != nil {
		return nil, err
	}
	defer vsModule.Release()
	fsModule, err := compileModule(ctx, fs)
	if err != nil {
		return nil, err
	}
	defer fsModule.Release()

	p := &Program{
		linked:   linked,
		logger:   logger,
		blocks:   map[string]shaders.Binding{},
		uniforms: map[string]shaders.Location{},
	}

	p.BindGroupLayout, err = ctx.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "QuadBGL",
		Entries: entries,
	})
	if err != nil {
		return nil, fieldquad.Check("create bind group layout", err)
	}

	p.PipelineLayout, err = ctx.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "QuadPipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.BindGroupLayout},
	})
	if err != nil {
		return nil, fieldquad.Check("create pipeline layout", err)
	}

	p.Pipeline, err = ctx.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "QuadPipeline",
		Layout: p.PipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vsModule,
			EntryPoint: vs.EntryPoint,
			Buffers:    []wgpu.VertexBufferLayout{vertexLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     fsModule,
			EntryPoint: fs.EntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    ctx.Config.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:         wgpu.PrimitiveTopologyTriangleStrip,
			StripIndexFormat: wgpu.IndexFormatUint32,
			FrontFace:        wgpu.FrontFaceCCW,
			CullMode:         wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fieldquad.Check("create render pipeline", err)
	}
	return p, nil
}

// ResolveUniformBlock returns the binding of the uniform block name.
func (p *Program) ResolveUniformBlock(name string) (shaders.Binding, error) {
	if b, ok := p.blocks[name]; ok {
		return b, nil
	}
	b, err := p.linked.UniformBlock(name)
	if err != nil {
		return shaders.Binding{}, fieldquad.Check("resolve uniform block", err)
	}
	p.blocks[name] = b
	return b, nil
}

// ResolveUniform returns the location of the uniform name.
func (p *Program) ResolveUniform(name string) (shaders.Location, error) {
	if loc, ok := p.uniforms[name]; ok {
		return loc, nil
	}
	loc, err := p.linked.Uniform(name)
	if err != nil {
		return shaders.Location{}, fieldquad.Check("resolve uniform", err)
	}
	p.uniforms[name] = loc
	return loc, nil
}

func (p *Program) Release() {
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
	if p.PipelineLayout != nil {
		p.PipelineLayout.Release()
	}
	if p.BindGroupLayout != nil {
		p.BindGroupLayout.Release()
	}
}
