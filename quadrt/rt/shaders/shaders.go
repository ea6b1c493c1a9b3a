package shaders

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/pkg/errors"
)

//go:embed util.wgsl
var UtilWGSL string

//go:embed varyings.wgsl
var VaryingsWGSL string

//go:embed vertex.wgsl
var VertexWGSL string

//go:embed fragment.wgsl
var FragmentWGSL string

//go:embed field.wgsl
var FieldWGSL string

// Stage source names.
const (
	VertexSource   = "vertex.wgsl"
	FragmentSource = "fragment.wgsl"
	FieldSource    = "field.wgsl"
)

// Entry points.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
	FieldEntry    = "cs_main"
)

type templateData struct {
	FieldCapacity  uint32
	WorkgroupSize  uint32
	PhaseAmplitude float64
	PhaseFrames    float64
	IndexScale     float64
}

var constants = templateData{
	FieldCapacity:  core.FieldCapacity,
	WorkgroupSize:  core.FieldWorkgroupSize,
	PhaseAmplitude: core.FieldPhaseAmplitude,
	PhaseFrames:    core.FieldPhaseFrames,
	IndexScale:     core.FieldIndexScale,
}

var funcs = template.FuncMap{
	// f32 prints a WGSL float literal; "4" alone would be an abstract int.
	"f32": func(v float64) string { return fmt.Sprintf("%.6f", v) },
}

// parts lists the files concatenated, in order, for each stage source.
var parts = map[string][]string{
	VertexSource:   {UtilWGSL, VaryingsWGSL, VertexWGSL},
	FragmentSource: {UtilWGSL, VaryingsWGSL, FragmentWGSL},
	FieldSource:    {UtilWGSL, FieldWGSL},
}

// Source returns the complete WGSL for a stage file with the core constants
// filled in.
func Source(name string) (string, error) {
	files, ok := parts[name]
	if !ok {
		return "", errors.Errorf("unknown shader source %q", name)
	}
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(strings.Join(files, "\n"))
	if err != nil {
		return "", errors.Wrapf(err, "parse shader template %s", name)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, constants); err != nil {
		return "", errors.Wrapf(err, "expand shader template %s", name)
	}
	return b.String(), nil
}
