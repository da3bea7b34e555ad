package mapview

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-geochat/internal/render"
	"github.com/joeblew999/plat-geochat/internal/session"
)

// fakeEngine records every command it receives.
type fakeEngine struct {
	mu      sync.Mutex
	flights []FlyToCommand
	fits    []FitBoundsCommand
	applied [][]render.Primitive
}

func (e *fakeEngine) FlyTo(cmd FlyToCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flights = append(e.flights, cmd)
}

func (e *fakeEngine) FitBounds(cmd FitBoundsCommand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fits = append(e.fits, cmd)
}

func (e *fakeEngine) ApplyPrimitives(p []render.Primitive) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applied = append(e.applied, p)
}

func (e *fakeEngine) flightCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.flights)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestApplyFlyToFallbacks(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSurface(session.NewStore(nil), session.NewBus(), engine, nil)

	s.Apply(&session.MapAction{Type: session.ActionFlyTo, Center: []float64{76.9, 43.2}})

	require.Len(t, engine.flights, 1)
	cmd := engine.flights[0]
	assert.Equal(t, orb.Point{76.9, 43.2}, cmd.Center)
	assert.Equal(t, DefaultFlyToZoom, cmd.Zoom)
	assert.Equal(t, 0.0, cmd.Pitch)
	assert.Equal(t, 0.0, cmd.Bearing)
	assert.Equal(t, DefaultActionDuration, cmd.Duration)
}

func TestApplyFlyToExplicitFields(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSurface(session.NewStore(nil), session.NewBus(), engine, nil)

	zoom, pitch, bearing := 9.0, 30.0, 120.0
	duration := 500
	s.Apply(&session.MapAction{
		Type: session.ActionFlyTo, Center: []float64{0, 0},
		Zoom: &zoom, Pitch: &pitch, Bearing: &bearing, Duration: &duration,
	})

	require.Len(t, engine.flights, 1)
	cmd := engine.flights[0]
	assert.Equal(t, 9.0, cmd.Zoom)
	assert.Equal(t, 30.0, cmd.Pitch)
	assert.Equal(t, 120.0, cmd.Bearing)
	assert.Equal(t, 500*time.Millisecond, cmd.Duration)
}

func TestApplyFitBoundsFallbacks(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSurface(session.NewStore(nil), session.NewBus(), engine, nil)

	s.Apply(&session.MapAction{
		Type:   session.ActionFitBounds,
		Bounds: [][]float64{{46.5, 40.5}, {87.3, 55.4}},
	})

	require.Len(t, engine.fits, 1)
	cmd := engine.fits[0]
	assert.Equal(t, orb.Point{46.5, 40.5}, cmd.Bounds.Min)
	assert.Equal(t, orb.Point{87.3, 55.4}, cmd.Bounds.Max)
	assert.Equal(t, DefaultFitBoundsPadding, cmd.Padding)
	assert.Equal(t, DefaultActionDuration, cmd.Duration)
}

func TestApplyDropsMalformedActions(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSurface(session.NewStore(nil), session.NewBus(), engine, nil)

	s.Apply(&session.MapAction{Type: session.ActionFlyTo})
	s.Apply(&session.MapAction{Type: session.ActionFitBounds})
	s.Apply(&session.MapAction{Type: "teleport", Center: []float64{0, 0}})

	assert.Empty(t, engine.flights)
	assert.Empty(t, engine.fits)
}

func TestRunConsumesActionExactlyOnce(t *testing.T) {
	bus := session.NewBus()
	store := session.NewStore(bus)
	engine := &fakeEngine{}
	surface := NewSurface(store, bus, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go surface.Run(ctx)

	store.SetMapAction(session.MapAction{Type: session.ActionFlyTo, Center: []float64{67, 48}})
	waitFor(t, func() bool { return engine.flightCount() == 1 })

	// the slot is drained; nothing is waiting and nothing can replay
	assert.False(t, store.HasPendingAction())

	// a second surface subscribing later must not see the consumed action
	engine2 := &fakeEngine{}
	surface2 := NewSurface(store, bus, engine2, nil)
	ctx2, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	go surface2.Run(ctx2)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, engine2.flightCount())
	assert.Equal(t, 1, engine.flightCount())
}

func TestRunRendersLayerChanges(t *testing.T) {
	bus := session.NewBus()
	store := session.NewStore(bus)
	engine := &fakeEngine{}
	surface := NewSurface(store, bus, engine, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go surface.Run(ctx)

	// the initial render proves Run has subscribed to the bus, so the
	// layer event below cannot be dropped
	waitFor(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.applied) >= 1
	})

	store.AddLayer(session.Layer{
		ID: "boundary", Type: session.LayerGeoJSON, Visible: true, Opacity: 1,
		Paint: map[string]any{"fill-outline-color": "#fff"},
	})

	waitFor(t, func() bool {
		engine.mu.Lock()
		defer engine.mu.Unlock()
		return len(engine.applied) >= 2 && len(engine.applied[len(engine.applied)-1]) == 2
	})
}
