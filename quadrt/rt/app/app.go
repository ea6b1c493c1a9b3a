package app

import (
	"context"
	"os"
	"time"

	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/pkg/errors"
)

// Geometry replaces the active index sequence.
type Geometry interface {
	SetIndices(seq []uint32) error
}

// Drawer renders and presents one frame from a graphics-owned field.
type Drawer interface {
	DrawFrame(owned core.GraphicsOwned, frame uint64) error
}

// Input reports user requests. Poll delivers pending window events.
type Input interface {
	Poll()
	TerminationRequested() bool
	CloseRequested() bool
}

// Deps are the collaborators an App is assembled from.
type Deps struct {
	Config   fieldquad.Config
	Logger   fieldquad.Logger
	Metrics  *fieldquad.FrameMetrics
	Interop  core.Interop
	Geometry Geometry
	Drawer   Drawer
	Input    Input
	Exit     fieldquad.ExitFunc
	// Sleep replaces time.Sleep in the scheduler.
	Sleep func(time.Duration)
	// Release frees device resources after the field is unregistered.
	Release func()
}

// App owns every component of the running program. Construction performs all
// one-time setup; Run drives the frame loop.
type App struct {
	Config    fieldquad.Config
	Logger    fieldquad.Logger
	Metrics   *fieldquad.FrameMetrics
	Boundary  fieldquad.Boundary
	Field     *core.SharedField
	Kernel    core.FieldKernel
	Geometry  Geometry
	Drawer    Drawer
	Input     Input
	Scheduler fieldquad.FixedDelayScheduler

	owned      core.GraphicsOwned
	frame      uint64
	phase      core.Phase
	terminated bool
	release    func()

	fpsFrames int
	fpsStart  time.Time
}

// New registers the shared field and returns an App ready to Run.
func New(d Deps) (*App, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	if d.Interop == nil || d.Geometry == nil || d.Drawer == nil || d.Input == nil {
		return nil, errors.New("app: interop, geometry, drawer and input are required")
	}
	logger := fieldquad.OrNop(d.Logger)
	if d.Exit == nil {
		d.Exit = os.Exit
	}
	a := &App{
		Config:   d.Config,
		Logger:   logger,
		Metrics:  d.Metrics,
		Boundary: fieldquad.Boundary{Logger: logger, Exit: d.Exit},
		Field:    core.NewSharedField(d.Interop, core.FieldCapacity, core.FieldStride),
		Kernel:   core.FieldKernel{Workers: d.Config.HostWorkers},
		Geometry: d.Geometry,
		Drawer:   d.Drawer,
		Input:    d.Input,
		Scheduler: fieldquad.FixedDelayScheduler{
			Interval: fieldquad.IntervalFor(d.Config.FrameRate),
			Sleep:    d.Sleep,
		},
		release: d.Release,
	}
	if d.Metrics != nil {
		a.Scheduler.OnTick = d.Metrics.ObserveTick
	}

	owned, err := a.Field.Register()
	if err != nil {
		return nil, err
	}
	a.owned = owned
	logger.Infof("field registered: %d elements x %d bytes, interop %s", core.FieldCapacity, core.FieldStride, d.Config.Interop)
	return a, nil
}

// Frame is the number of frames drawn so far.
func (a *App) Frame() uint64 { return a.frame }

// Terminated reports whether the user asked the program to end.
func (a *App) Terminated() bool { return a.terminated }

// Run drives ticks until the user terminates, the window is closed, ctx is
// done, or a fatal error occurs. Fatal errors and termination both leave
// through the boundary; a closed window releases resources and returns.
func (a *App) Run(ctx context.Context) error {
	a.fpsStart = time.Now()
	err := a.Scheduler.Run(ctx, a.Tick)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.Release()
			return nil
		}
		a.Boundary.Fail(err)
		return err
	}
	if a.terminated {
		return nil
	}
	a.Release()
	return nil
}

// Tick runs one iteration of the frame loop. Termination is checked before
// any GPU work.
func (a *App) Tick(tick uint64) (bool, error) {
	a.Input.Poll()
	if a.Input.TerminationRequested() {
		a.terminated = true
		a.Logger.Infof("termination requested after %d frames", a.frame)
		a.Boundary.Terminate()
		return false, nil
	}
	if a.Input.CloseRequested() {
		a.Logger.Infof("window closed after %d frames", a.frame)
		return false, nil
	}

	if err := a.updatePhase(tick); err != nil {
		return false, err
	}

	compute, err := a.owned.Map()
	if err != nil {
		return false, err
	}
	if err := a.Kernel.Run(compute, core.FieldCapacity, a.frame); err != nil {
		return false, fieldquad.Check("run field kernel", err)
	}
	owned, err := compute.Unmap()
	if err != nil {
		return false, err
	}
	a.owned = owned
	if a.Metrics != nil {
		a.Metrics.FieldMaps.Inc()
	}

	if err := a.Drawer.DrawFrame(a.owned, a.frame); err != nil {
		return false, err
	}
	a.frame++
	if a.Metrics != nil {
		a.Metrics.Frames.Inc()
	}
	a.logFPS()
	return true, nil
}

func (a *App) updatePhase(tick uint64) error {
	phase := core.PhaseAt(tick, a.Config.FrameRate)
	if tick != 0 && phase == a.phase {
		return nil
	}
	if err := a.Geometry.SetIndices(phase.Indices()); err != nil {
		return err
	}
	a.phase = phase
	a.Logger.Debugf("tick %d: phase %s, indices %v", tick, phase, phase.Indices())
	if a.Metrics != nil {
		a.Metrics.Phase.Set(float64(phase))
		a.Metrics.PhaseTransitions.Inc()
	}
	return nil
}

func (a *App) logFPS() {
	if !a.Logger.DebugEnabled() {
		return
	}
	a.fpsFrames++
	if elapsed := time.Since(a.fpsStart); elapsed >= time.Second {
		a.Logger.Debugf("fps %.1f", float64(a.fpsFrames)/elapsed.Seconds())
		a.fpsFrames = 0
		a.fpsStart = time.Now()
	}
}

// Release unregisters the shared field and frees device resources. It runs
// only on the window-close path.
func (a *App) Release() {
	if a.Field.Registered() {
		if err := a.Field.Unregister(); err != nil {
			a.Logger.Errorf("release: %v", err)
		}
	}
	if a.release != nil {
		a.release()
		a.release = nil
	}
}
