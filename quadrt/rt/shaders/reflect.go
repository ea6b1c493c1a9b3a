package shaders

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gekko3d/fieldquad"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/wgsl"
	"github.com/pkg/errors"
)

// Stage is a programmable pipeline stage.
type Stage int

const (
	StageVertex Stage = iota
	StageFragment
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

func (s Stage) irStage() ir.ShaderStage {
	switch s {
	case StageFragment:
		return ir.StageFragment
	case StageCompute:
		return ir.StageCompute
	default:
		return ir.StageVertex
	}
}

// StageMask is a set of stages.
type StageMask uint8

func (s Stage) Mask() StageMask { return 1 << s }

func (m StageMask) Has(s Stage) bool { return m&s.Mask() != 0 }

// BindingKind is the address space of a bound buffer.
type BindingKind int

const (
	BindingUniform BindingKind = iota
	BindingStorage
	BindingReadOnlyStorage
)

// Member is one field of a bound struct.
type Member struct {
	Name   string
	Offset uint32
	Size   uint32
}

// Binding describes a buffer resource declared by a shader.
type Binding struct {
	Name     string
	TypeName string
	Group    uint32
	Slot     uint32
	Kind     BindingKind
	Size     uint32
	Members  []Member
	Stages   StageMask

	// ArrayLength and ArrayStride describe the first fixed-size array
	// member, if any.
	ArrayLength uint32
	ArrayStride uint32
}

// Location addresses a single uniform value: the buffer binding holding it
// and its byte offset there.
type Location struct {
	Group   uint32
	Binding uint32
	Offset  uint32
}

// CompiledStage is a validated WGSL module for one stage.
type CompiledStage struct {
	Name        string
	Stage       Stage
	EntryPoint  string
	Source      string
	Module      *ir.Module
	Diagnostics []string
}

// Compile expands the named embedded source and compiles it for stage.
func Compile(name string, stage Stage) (*CompiledStage, error) {
	src, err := Source(name)
	if err != nil {
		return nil, fieldquad.Check("compile "+name, err)
	}
	return CompileSource(name, stage, src)
}

// CompileSource parses, lowers and validates src. The module must declare
// exactly one entry point for stage. Lowering warnings are returned as
// diagnostics on success; any failure carries the diagnostic text.
func CompileSource(name string, stage Stage, src string) (*CompiledStage, error) {
	op := "compile " + name
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, fieldquad.Check(op, err)
	}
	lowered, err := wgsl.LowerWithWarnings(ast, src)
	if err != nil {
		return nil, fieldquad.Check(op, err)
	}
	verrs, err := naga.Validate(lowered.Module)
	if err != nil {
		return nil, fieldquad.Check(op, err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, v := range verrs {
			msgs = append(msgs, v.Error())
		}
		return nil, fieldquad.Fatalf(op, "validation failed: %s", strings.Join(msgs, "; "))
	}

	cs := &CompiledStage{Name: name, Stage: stage, Source: src, Module: lowered.Module}
	for _, w := range lowered.Warnings {
		cs.Diagnostics = append(cs.Diagnostics,
			fmt.Sprintf("%s:%d:%d: %s", name, w.Span.Start.Line, w.Span.Start.Column, w.Message))
	}

	var entries []string
	for _, ep := range lowered.Module.EntryPoints {
		if ep.Stage == stage.irStage() {
			entries = append(entries, ep.Name)
		}
	}
	if len(entries) != 1 {
		return nil, fieldquad.Fatalf(op, "want one %s entry point, found %d", stage, len(entries))
	}
	cs.EntryPoint = entries[0]
	return cs, nil
}

// Bindings reflects the buffer resources the stage declares.
func (c *CompiledStage) Bindings() []Binding {
	m := c.Module
	var out []Binding
	for _, gv := range m.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		var kind BindingKind
		switch gv.Space {
		case ir.SpaceUniform:
			kind = BindingUniform
		case ir.SpaceStorage:
			kind = BindingStorage
			if gv.Access == ir.StorageRead {
				kind = BindingReadOnlyStorage
			}
		default:
			continue
		}
		b := Binding{
			Name:   gv.Name,
			Group:  gv.Binding.Group,
			Slot:   gv.Binding.Binding,
			Kind:   kind,
			Stages: c.Stage.Mask(),
		}
		t := m.Types[gv.Type]
		b.TypeName = t.Name
		b.Size = typeSize(m, gv.Type)
		if st, ok := t.Inner.(ir.StructType); ok {
			for _, mem := range st.Members {
				b.Members = append(b.Members, Member{Name: mem.Name, Offset: mem.Offset, Size: typeSize(m, mem.Type)})
				if at, ok := m.Types[mem.Type].Inner.(ir.ArrayType); ok && b.ArrayLength == 0 && at.Size.Constant != nil {
					b.ArrayLength = *at.Size.Constant
					b.ArrayStride = at.Stride
				}
			}
		}
		out = append(out, b)
	}
	sortBindings(out)
	return out
}

func typeSize(m *ir.Module, h ir.TypeHandle) uint32 {
	switch t := m.Types[h].Inner.(type) {
	case ir.ScalarType:
		return uint32(t.Width)
	case ir.VectorType:
		return uint32(t.Size) * uint32(t.Scalar.Width)
	case ir.ArrayType:
		if t.Size.Constant == nil {
			return 0
		}
		return *t.Size.Constant * t.Stride
	case ir.StructType:
		return t.Span
	default:
		return 0
	}
}

func sortBindings(bs []Binding) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Group != bs[j].Group {
			return bs[i].Group < bs[j].Group
		}
		return bs[i].Slot < bs[j].Slot
	})
}

// Linked is the reflected interface of a vertex/fragment stage pair.
type Linked struct {
	Vertex   *CompiledStage
	Fragment *CompiledStage
	bindings []Binding
}

// Link pairs exactly one vertex and one fragment stage. A resource declared
// by both must agree on name, kind and size.
func Link(stages ...*CompiledStage) (*Linked, error) {
	const op = "link shader program"
	l := &Linked{}
	for _, s := range stages {
		switch s.Stage {
		case StageVertex:
			if l.Vertex != nil {
				return nil, fieldquad.Fatalf(op, "more than one vertex stage (%s, %s)", l.Vertex.Name, s.Name)
			}
			l.Vertex = s
		case StageFragment:
			if l.Fragment != nil {
				return nil, fieldquad.Fatalf(op, "more than one fragment stage (%s, %s)", l.Fragment.Name, s.Name)
			}
			l.Fragment = s
		default:
			return nil, fieldquad.Fatalf(op, "%s stage %s cannot be linked into a render program", s.Stage, s.Name)
		}
	}
	if l.Vertex == nil || l.Fragment == nil {
		return nil, fieldquad.Fatalf(op, "need a vertex and a fragment stage")
	}

	merged := map[[2]uint32]Binding{}
	for _, s := range []*CompiledStage{l.Vertex, l.Fragment} {
		for _, b := range s.Bindings() {
			key := [2]uint32{b.Group, b.Slot}
			prev, ok := merged[key]
			if !ok {
				merged[key] = b
				continue
			}
			if prev.Name != b.Name || prev.Kind != b.Kind || prev.Size != b.Size {
				return nil, fieldquad.Fatalf(op, "group %d binding %d declared as %q and %q", b.Group, b.Slot, prev.Name, b.Name)
			}
			prev.Stages |= b.Stages
			merged[key] = prev
		}
	}
	for _, b := range merged {
		l.bindings = append(l.bindings, b)
	}
	sortBindings(l.bindings)
	return l, nil
}

// Diagnostics returns the warnings of both stages.
func (l *Linked) Diagnostics() []string {
	return append(append([]string(nil), l.Vertex.Diagnostics...), l.Fragment.Diagnostics...)
}

// Bindings returns the program's buffer resources ordered by group and slot.
func (l *Linked) Bindings() []Binding {
	return append([]Binding(nil), l.bindings...)
}

// BindingAt returns the resource at group and slot.
func (l *Linked) BindingAt(group, slot uint32) (Binding, bool) {
	for _, b := range l.bindings {
		if b.Group == group && b.Slot == slot {
			return b, true
		}
	}
	return Binding{}, false
}

// UniformBlock returns the uniform buffer declared under name.
func (l *Linked) UniformBlock(name string) (Binding, error) {
	for _, b := range l.bindings {
		if b.Kind == BindingUniform && (b.Name == name || b.TypeName == name) {
			return b, nil
		}
	}
	return Binding{}, errors.Errorf("no uniform block named %q", name)
}

// Uniform returns the location of a member named name inside one of the
// program's uniform buffers.
func (l *Linked) Uniform(name string) (Location, error) {
	for _, b := range l.bindings {
		if b.Kind != BindingUniform {
			continue
		}
		for _, m := range b.Members {
			if m.Name == name {
				return Location{Group: b.Group, Binding: b.Slot, Offset: m.Offset}, nil
			}
		}
	}
	return Location{}, errors.Errorf("no uniform named %q", name)
}
