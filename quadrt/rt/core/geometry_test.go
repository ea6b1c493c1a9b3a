package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVertexLayout(t *testing.T) {
	assert.Equal(t, uint64(16), VertexStride)

	v := QuadVertices()
	assert.Equal(t, uint8(0), v[0].Blue)
	assert.Equal(t, uint8(255), v[1].Blue)
	assert.Equal(t, uint8(0), v[2].Blue)
	assert.Equal(t, uint8(255), v[3].Blue)
	for _, vert := range v {
		assert.Equal(t, float32(0), vert.Position.Z())
	}
}

func TestPhaseAt(t *testing.T) {
	tests := []struct {
		tick uint64
		want Phase
	}{
		{0, PhaseTriangle0},
		{29, PhaseTriangle0},
		{30, PhaseTriangle1},
		{59, PhaseTriangle1},
		{60, PhaseTriangle2},
		{90, PhaseTriangle3},
		{119, PhaseTriangle3},
		{120, PhaseQuad},
		{1 << 40, PhaseQuad},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PhaseAt(tt.tick, 30), "tick %d", tt.tick)
	}
}

func TestPhaseIndices(t *testing.T) {
	assert.Equal(t, []uint32{0, 1, 2}, PhaseTriangle0.Indices())
	assert.Equal(t, []uint32{1, 2, 3}, PhaseTriangle1.Indices())
	assert.Equal(t, []uint32{2, 3, 0}, PhaseTriangle2.Indices())
	assert.Equal(t, []uint32{3, 0, 1}, PhaseTriangle3.Indices())
	assert.Equal(t, []uint32{0, 1, 3, 2}, PhaseQuad.Indices())

	idx := PhaseQuad.Indices()
	idx[0] = 9
	assert.Equal(t, uint32(0), PhaseQuad.Indices()[0], "Indices must return a copy")

	for p := PhaseTriangle0; p <= PhaseQuad; p++ {
		assert.NoError(t, ValidateIndices(p.Indices()), p.String())
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "triangle2", PhaseTriangle2.String())
	assert.Equal(t, "quad", PhaseQuad.String())
}

func TestValidateIndices(t *testing.T) {
	assert.Error(t, ValidateIndices(nil))
	assert.Error(t, ValidateIndices([]uint32{0, 1}))
	assert.Error(t, ValidateIndices([]uint32{0, 1, 2, 3, 0}))
	assert.Error(t, ValidateIndices([]uint32{0, 1, 4}))
}

func TestTimeAt(t *testing.T) {
	assert.Equal(t, float32(0), TimeAt(0, 30))
	assert.Equal(t, float32(1), TimeAt(30, 30))
	assert.InDelta(t, 0.5, TimeAt(15, 30), 1e-7)
}
