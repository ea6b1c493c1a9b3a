package core

import (
	"fmt"

	"github.com/gekko3d/fieldquad"
	"github.com/pkg/errors"
)

var (
	ErrNotRegistered     = errors.New("shared field is not registered with the compute side")
	ErrAlreadyRegistered = errors.New("shared field is already registered")
	ErrAlreadyMapped     = errors.New("shared field is already mapped for compute")
	ErrNotMapped         = errors.New("shared field is not mapped for compute")
	ErrStaleOwnership    = errors.New("ownership token no longer describes the shared field")
)

// Mapping is the compute-side view of the field while it is compute-owned.
type Mapping interface {
	// Size is the mapped byte size as reported by the subsystem.
	Size() uint64
}

// HostMapping exposes the mapped bytes to code running on the host.
type HostMapping interface {
	Mapping
	Bytes() []byte
}

// DeviceMapping records kernel dispatches that run on the device once the
// mapping is released.
type DeviceMapping interface {
	Mapping
	Dispatch(count uint32, frame uint64) error
}

// Interop is the subsystem side of the shared field: it registers the buffer
// with the compute path and hands out mappings. Unmap must not return before
// every dispatch recorded against the mapping has completed.
type Interop interface {
	Register() error
	Map() (Mapping, error)
	Unmap(Mapping) error
	Unregister() error
}

// Owner names the side that currently owns the field.
type Owner int

const (
	OwnerGraphics Owner = iota
	OwnerCompute
)

func (o Owner) String() string {
	switch o {
	case OwnerGraphics:
		return "graphics"
	case OwnerCompute:
		return "compute"
	default:
		return fmt.Sprintf("Owner(%d)", int(o))
	}
}

// SharedField enforces that the field buffer is owned by exactly one side.
// Ownership moves only through GraphicsOwned.Map and ComputeOwned.Unmap; each
// transition bumps the epoch so tokens from earlier states stop working.
type SharedField struct {
	interop    Interop
	capacity   uint32
	stride     uint32
	registered bool
	owner      Owner
	epoch      uint64
	mapping    Mapping
}

// NewSharedField describes a field of capacity elements of stride bytes. It
// starts graphics-owned and unregistered.
func NewSharedField(interop Interop, capacity, stride uint32) *SharedField {
	return &SharedField{
		interop:  interop,
		capacity: capacity,
		stride:   stride,
		owner:    OwnerGraphics,
	}
}

func (f *SharedField) Capacity() uint32 { return f.capacity }
func (f *SharedField) Stride() uint32   { return f.stride }
func (f *SharedField) Owner() Owner     { return f.owner }
func (f *SharedField) Registered() bool { return f.registered }

// ExpectedSize is capacity times stride.
func (f *SharedField) ExpectedSize() uint64 {
	return uint64(f.capacity) * uint64(f.stride)
}

// Register declares the field to the compute side, once, and returns the
// initial graphics-owned token.
func (f *SharedField) Register() (GraphicsOwned, error) {
	if f.registered {
		return GraphicsOwned{}, ErrAlreadyRegistered
	}
	if err := f.interop.Register(); err != nil {
		return GraphicsOwned{}, fieldquad.Check("register shared field", err)
	}
	f.registered = true
	return GraphicsOwned{field: f, epoch: f.epoch}, nil
}

// Unregister releases the compute-side registration. The field must be
// graphics-owned.
func (f *SharedField) Unregister() error {
	if !f.registered {
		return ErrNotRegistered
	}
	if f.owner != OwnerGraphics {
		return ErrAlreadyMapped
	}
	if err := f.interop.Unregister(); err != nil {
		return fieldquad.Check("unregister shared field", err)
	}
	f.registered = false
	f.epoch++
	return nil
}

func (f *SharedField) mapForCompute(epoch uint64) (ComputeOwned, error) {
	if !f.registered {
		return ComputeOwned{}, ErrNotRegistered
	}
	if f.owner == OwnerCompute {
		return ComputeOwned{}, ErrAlreadyMapped
	}
	if epoch != f.epoch {
		return ComputeOwned{}, ErrStaleOwnership
	}
	m, err := f.interop.Map()
	if err != nil {
		return ComputeOwned{}, fieldquad.Check("map shared field", err)
	}
	if got, want := m.Size(), f.ExpectedSize(); got != want {
		return ComputeOwned{}, fieldquad.Fatalf("map shared field",
			"mapped size %d bytes, expected %d (%d elements x %d bytes)", got, want, f.capacity, f.stride)
	}
	f.owner = OwnerCompute
	f.mapping = m
	f.epoch++
	return ComputeOwned{field: f, epoch: f.epoch, mapping: m}, nil
}

func (f *SharedField) unmapFromCompute(epoch uint64) (GraphicsOwned, error) {
	if f.owner != OwnerCompute {
		return GraphicsOwned{}, ErrNotMapped
	}
	if epoch != f.epoch {
		return GraphicsOwned{}, ErrStaleOwnership
	}
	if err := f.interop.Unmap(f.mapping); err != nil {
		return GraphicsOwned{}, fieldquad.Check("unmap shared field", err)
	}
	f.owner = OwnerGraphics
	f.mapping = nil
	f.epoch++
	return GraphicsOwned{field: f, epoch: f.epoch}, nil
}

// ComputeOwned is held while the compute side may write the field. Only this
// token exposes the mapping.
type ComputeOwned struct {
	field   *SharedField
	epoch   uint64
	mapping Mapping
}

// Valid reports whether the token still describes the field's state.
func (c ComputeOwned) Valid() bool {
	return c.field != nil && c.field.owner == OwnerCompute && c.field.epoch == c.epoch
}

// Mapping returns the compute-side view, or nil for a stale token.
func (c ComputeOwned) Mapping() Mapping {
	if !c.Valid() {
		return nil
	}
	return c.mapping
}

// Field returns the field the token belongs to.
func (c ComputeOwned) Field() *SharedField { return c.field }

// Unmap hands the field back to graphics. It returns after all compute work
// against the mapping has finished.
func (c ComputeOwned) Unmap() (GraphicsOwned, error) {
	if c.field == nil {
		return GraphicsOwned{}, ErrStaleOwnership
	}
	return c.field.unmapFromCompute(c.epoch)
}

// GraphicsOwned is held while the rasterizer may read the field.
type GraphicsOwned struct {
	field *SharedField
	epoch uint64
}

// Valid reports whether the token still describes the field's state.
func (g GraphicsOwned) Valid() bool {
	return g.field != nil && g.field.registered && g.field.owner == OwnerGraphics && g.field.epoch == g.epoch
}

func (g GraphicsOwned) Field() *SharedField { return g.field }

// Map hands the field to the compute side. There is never more than one
// outstanding mapping.
func (g GraphicsOwned) Map() (ComputeOwned, error) {
	if g.field == nil {
		return ComputeOwned{}, ErrStaleOwnership
	}
	return g.field.mapForCompute(g.epoch)
}
