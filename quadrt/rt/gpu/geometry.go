package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
)

// GeometryStore owns the quad's immutable vertex buffer and the index
// buffer rewritten on each phase change.
type GeometryStore struct {
	ctx          *Context
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	count        uint32
}

// NewGeometryStore uploads the quad vertices and allocates MaxIndices index
// slots.
func NewGeometryStore(ctx *Context) (*GeometryStore, error) {
	g := &GeometryStore{ctx: ctx}

	var err error
	g.VertexBuffer, err = ctx.Device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "Quad Vertex Buffer",
		Contents: vertexBytes(core.QuadVertices()),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fieldquad.Check("upload vertices", err)
	}

	g.IndexBuffer, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Quad Index Buffer",
		Size:  core.MaxIndices * 4,
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fieldquad.Check("allocate index buffer", err)
	}
	return g, nil
}

// SetIndices replaces the whole index buffer with seq.
func (g *GeometryStore) SetIndices(seq []uint32) error {
	if err := core.ValidateIndices(seq); err != nil {
		return err
	}
	if err := g.ctx.Queue.WriteBuffer(g.IndexBuffer, 0, indexBytes(seq)); err != nil {
		return fieldquad.Check("upload indices", err)
	}
	g.count = uint32(len(seq))
	return nil
}

// Count is the length of the current index sequence.
func (g *GeometryStore) Count() uint32 { return g.count }

func (g *GeometryStore) Release() {
	if g.VertexBuffer != nil {
		g.VertexBuffer.Release()
	}
	if g.IndexBuffer != nil {
		g.IndexBuffer.Release()
	}
}
