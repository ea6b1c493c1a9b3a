package app

import (
	"context"
	"testing"
	"time"

	"github.com/gekko3d/fieldquad"
	"github.com/gekko3d/fieldquad/quadrt/rt/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostBuf []byte

func (h hostBuf) Size() uint64  { return uint64(len(h)) }
func (h hostBuf) Bytes() []byte { return h }

// recorder collects the order of interop and draw calls.
type recorder struct {
	events []string
}

type fakeInterop struct {
	rec          *recorder
	buf          []byte
	mappedSize   uint64
	mapped       bool
	unregistered int
	// snapshots holds element 0 as seen by the copy-back on each unmap.
	snapshots []float32
}

func newFakeInterop(rec *recorder) *fakeInterop {
	return &fakeInterop{rec: rec, buf: make([]byte, core.FieldSize), mappedSize: core.FieldSize}
}

func (f *fakeInterop) Register() error { f.rec.events = append(f.rec.events, "register"); return nil }

func (f *fakeInterop) Map() (core.Mapping, error) {
	f.rec.events = append(f.rec.events, "map")
	f.mapped = true
	return hostBuf(f.buf[:f.mappedSize]), nil
}

func (f *fakeInterop) Unmap(core.Mapping) error {
	f.rec.events = append(f.rec.events, "unmap")
	f.mapped = false
	f.snapshots = append(f.snapshots, core.FieldElement(f.buf, 0))
	return nil
}

func (f *fakeInterop) Unregister() error {
	f.rec.events = append(f.rec.events, "unregister")
	f.unregistered++
	return nil
}

type fakeGeometry struct {
	uploads [][]uint32
	current []uint32
}

func (g *fakeGeometry) SetIndices(seq []uint32) error {
	g.uploads = append(g.uploads, seq)
	g.current = seq
	return nil
}

type drawCall struct {
	frame   uint64
	time    float32
	indices []uint32
}

type fakeDrawer struct {
	t         *testing.T
	rec       *recorder
	interop   *fakeInterop
	geometry  *fakeGeometry
	frameRate int
	calls     []drawCall
}

func (d *fakeDrawer) DrawFrame(owned core.GraphicsOwned, frame uint64) error {
	d.rec.events = append(d.rec.events, "draw")
	require.True(d.t, owned.Valid(), "draw with a stale token")
	require.False(d.t, d.interop.mapped, "draw while compute owns the field")
	d.calls = append(d.calls, drawCall{frame: frame, time: core.TimeAt(frame, d.frameRate), indices: d.geometry.current})
	return nil
}

type fakeInput struct {
	polls       int
	terminateAt int // poll number (1-based) that reports termination; 0 never
	closeAt     int
}

func (in *fakeInput) Poll() { in.polls++ }
func (in *fakeInput) TerminationRequested() bool {
	return in.terminateAt > 0 && in.polls >= in.terminateAt
}
func (in *fakeInput) CloseRequested() bool {
	return in.closeAt > 0 && in.polls >= in.closeAt
}

type harness struct {
	app      *App
	rec      *recorder
	interop  *fakeInterop
	geometry *fakeGeometry
	drawer   *fakeDrawer
	input    *fakeInput
	exits    []int
	released int
	metrics  *fieldquad.FrameMetrics
}

func newHarness(t *testing.T, input *fakeInput, tweak func(*fakeInterop)) *harness {
	t.Helper()
	h := &harness{rec: &recorder{}, input: input, metrics: fieldquad.NewFrameMetrics()}
	h.interop = newFakeInterop(h.rec)
	if tweak != nil {
		tweak(h.interop)
	}
	h.geometry = &fakeGeometry{}
	cfg := fieldquad.DefaultConfig()
	cfg.Interop = fieldquad.InteropHost
	cfg.HostWorkers = 4
	h.drawer = &fakeDrawer{t: t, rec: h.rec, interop: h.interop, geometry: h.geometry, frameRate: cfg.FrameRate}

	a, err := New(Deps{
		Config:   cfg,
		Logger:   fieldquad.NewNopLogger(),
		Metrics:  h.metrics,
		Interop:  h.interop,
		Geometry: h.geometry,
		Drawer:   h.drawer,
		Input:    input,
		Exit:     func(code int) { h.exits = append(h.exits, code) },
		Sleep:    func(time.Duration) {},
		Release:  func() { h.released++ },
	})
	require.NoError(t, err)
	h.app = a
	return h
}

func TestApp_PhaseSequence(t *testing.T) {
	h := newHarness(t, &fakeInput{terminateAt: 151}, nil)
	require.NoError(t, h.app.Run(context.Background()))

	require.Len(t, h.geometry.uploads, 5)
	assert.Equal(t, [][]uint32{{0, 1, 2}, {1, 2, 3}, {2, 3, 0}, {3, 0, 1}, {0, 1, 3, 2}}, h.geometry.uploads)

	require.Len(t, h.drawer.calls, 150)
	assert.Equal(t, []uint32{0, 1, 2}, h.drawer.calls[0].indices)
	assert.Equal(t, []uint32{0, 1, 2}, h.drawer.calls[29].indices)
	assert.Equal(t, []uint32{1, 2, 3}, h.drawer.calls[30].indices)
	assert.Equal(t, []uint32{3, 0, 1}, h.drawer.calls[119].indices)
	assert.Equal(t, []uint32{0, 1, 3, 2}, h.drawer.calls[120].indices)
	assert.Equal(t, []uint32{0, 1, 3, 2}, h.drawer.calls[149].indices)

	assert.Equal(t, float64(5), testutil.ToFloat64(h.metrics.PhaseTransitions))
	assert.Equal(t, float64(core.PhaseQuad), testutil.ToFloat64(h.metrics.Phase))
}

func TestApp_TickScenario(t *testing.T) {
	h := newHarness(t, &fakeInput{}, nil)

	more, err := h.app.Tick(0)
	require.NoError(t, err)
	assert.True(t, more)

	require.Len(t, h.drawer.calls, 1)
	assert.Equal(t, uint64(0), h.drawer.calls[0].frame)
	assert.Equal(t, float32(0), h.drawer.calls[0].time)
	assert.Equal(t, float32(0), h.interop.snapshots[0], "element 0 at frame 0")

	for tick := uint64(1); tick <= 30; tick++ {
		_, err := h.app.Tick(tick)
		require.NoError(t, err)
	}
	assert.Equal(t, float32(1), h.drawer.calls[30].time)
	assert.Equal(t, uint64(31), h.app.Frame())

	// kernel output visible to the copy-back matches the reference value
	assert.Equal(t, core.FieldValue(0, 30), h.interop.snapshots[30])
	assert.Equal(t, core.FieldValue(1023, 30), core.FieldElement(h.interop.buf, 1023))
}

func TestApp_OwnershipOrder(t *testing.T) {
	h := newHarness(t, &fakeInput{terminateAt: 4}, nil)
	require.NoError(t, h.app.Run(context.Background()))

	want := []string{"register"}
	for i := 0; i < 3; i++ {
		want = append(want, "map", "unmap", "draw")
	}
	assert.Equal(t, want, h.rec.events)
	assert.Equal(t, float64(3), testutil.ToFloat64(h.metrics.FieldMaps))
	assert.Equal(t, float64(3), testutil.ToFloat64(h.metrics.Frames))
}

func TestApp_TerminationExitsZeroBeforeGPUWork(t *testing.T) {
	h := newHarness(t, &fakeInput{terminateAt: 3}, nil)
	require.NoError(t, h.app.Run(context.Background()))

	assert.Equal(t, []int{fieldquad.ExitOK}, h.exits)
	assert.True(t, h.app.Terminated())
	assert.Len(t, h.drawer.calls, 2)
	assert.Equal(t, 2, countEvents(h.rec.events, "map"), "no map on the terminating tick")
	assert.Zero(t, h.interop.unregistered, "termination does not tear down")
	assert.Zero(t, h.released)
}

func TestApp_MappedSizeMismatchExitsOne(t *testing.T) {
	h := newHarness(t, &fakeInput{}, func(f *fakeInterop) { f.mappedSize = core.FieldCapacity * 4 })
	err := h.app.Run(context.Background())

	require.Error(t, err)
	assert.True(t, fieldquad.IsFatal(err))
	assert.Equal(t, []int{fieldquad.ExitFatal}, h.exits)
	assert.Empty(t, h.drawer.calls)
}

func TestApp_WindowCloseReleases(t *testing.T) {
	h := newHarness(t, &fakeInput{closeAt: 3}, nil)
	require.NoError(t, h.app.Run(context.Background()))

	assert.Empty(t, h.exits)
	assert.Len(t, h.drawer.calls, 2)
	assert.Equal(t, 1, h.interop.unregistered)
	assert.Equal(t, 1, h.released)
	assert.False(t, h.app.Field.Registered())
	assert.Equal(t, "unregister", h.rec.events[len(h.rec.events)-1])
}

func TestApp_ContextCancelReleases(t *testing.T) {
	h := newHarness(t, &fakeInput{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.app.Run(ctx))
	assert.Empty(t, h.drawer.calls)
	assert.Equal(t, 1, h.released)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := fieldquad.DefaultConfig()
	cfg.FrameRate = 0
	_, err := New(Deps{Config: cfg})
	assert.Error(t, err)

	_, err = New(Deps{Config: fieldquad.DefaultConfig()})
	assert.Error(t, err)
}

func countEvents(events []string, name string) int {
	n := 0
	for _, e := range events {
		if e == name {
			n++
		}
	}
	return n
}
