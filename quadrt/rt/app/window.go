package app

import (
	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/gekko3d/fieldquad/quadrt/rt/gpu"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// NewWindowed builds the GPU components for window and assembles the App.
// Any failure is a FatalEnvironmentError.
func NewWindowed(cfg fieldquad.Config, window *glfw.Window, logger fieldquad.Logger, metrics *fieldquad.FrameMetrics, exit fieldquad.ExitFunc) (*App, error) {
	logger = fieldquad.OrNop(logger)

	ctx, err := gpu.NewContext(window)
	if err != nil {
		return nil, err
	}
	program, err := gpu.NewProgram(ctx, logger)
	if err != nil {
		return nil, err
	}
	geometry, err := gpu.NewGeometryStore(ctx)
	if err != nil {
		return nil, err
	}
	field, err := gpu.NewFieldBuffer(ctx, core.FieldCapacity)
	if err != nil {
		return nil, err
	}
	frames, err := gpu.NewFramePipeline(ctx, program, geometry, field, cfg.FrameRate)
	if err != nil {
		return nil, err
	}

	var interop core.Interop
	switch cfg.Interop {
	case fieldquad.InteropHost:
		interop = gpu.NewHostInterop(ctx, field)
	default:
		interop = gpu.NewDeviceInterop(ctx, field, logger)
	}

	return New(Deps{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Interop:  interop,
		Geometry: geometry,
		Drawer:   frames,
		Input:    NewWindowInput(window),
		Exit:     exit,
		Release: func() {
			frames.Release()
			field.Release()
			geometry.Release()
			program.Release()
			ctx.Release()
		},
	})
}
