package core

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Vertex matches the vertex stage inputs: location 0 is the position,
// location 1 reads Blue (and the pad byte) as a normalized unorm8x2.
type Vertex struct {
	Position mgl32.Vec3
	Blue     uint8
	_        [3]uint8
}

// VertexStride is the byte size of one Vertex.
const VertexStride = uint64(unsafe.Sizeof(Vertex{}))

// VertexCount is the number of vertices in the quad.
const VertexCount = 4

// QuadVertices returns the four corners in draw-index order.
func QuadVertices() [VertexCount]Vertex {
	return [VertexCount]Vertex{
		{Position: mgl32.Vec3{1, 1, 0}, Blue: 0},
		{Position: mgl32.Vec3{-1, 1, 0}, Blue: 255},
		{Position: mgl32.Vec3{-1, -1, 0}, Blue: 0},
		{Position: mgl32.Vec3{1, -1, 0}, Blue: 255},
	}
}

// Phase is one span of ticks with a fixed index sequence.
type Phase int

const (
	PhaseTriangle0 Phase = iota
	PhaseTriangle1
	PhaseTriangle2
	PhaseTriangle3
	PhaseQuad
)

// MaxIndices is the longest index sequence of any phase.
const MaxIndices = 4

var phaseIndices = [...][]uint32{
	PhaseTriangle0: {0, 1, 2},
	PhaseTriangle1: {1, 2, 3},
	PhaseTriangle2: {2, 3, 0},
	PhaseTriangle3: {3, 0, 1},
	PhaseQuad:      {0, 1, 3, 2},
}

// Indices returns a copy of the phase's strip indices.
func (p Phase) Indices() []uint32 {
	return append([]uint32(nil), phaseIndices[p]...)
}

func (p Phase) String() string {
	switch p {
	case PhaseTriangle0, PhaseTriangle1, PhaseTriangle2, PhaseTriangle3:
		return fmt.Sprintf("triangle%d", int(p))
	case PhaseQuad:
		return "quad"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// PhaseAt returns the phase active at tick. Each triangle phase lasts
// frameRate ticks; the quad phase never ends.
func PhaseAt(tick uint64, frameRate int) Phase {
	p := tick / uint64(frameRate)
	if p >= uint64(PhaseQuad) {
		return PhaseQuad
	}
	return Phase(p)
}

// ValidateIndices checks a draw sequence against the vertex array.
func ValidateIndices(indices []uint32) error {
	if len(indices) < 3 || len(indices) > MaxIndices {
		return errors.Errorf("index sequence of length %d, want 3 or 4", len(indices))
	}
	for _, idx := range indices {
		if idx >= VertexCount {
			return errors.Errorf("index %d out of range for %d vertices", idx, VertexCount)
		}
	}
	return nil
}

// TimeAt is the time uniform for frame, in seconds.
func TimeAt(frame uint64, frameRate int) float32 {
	return float32(float64(frame) / float64(frameRate))
}
