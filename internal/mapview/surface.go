// Package mapview is the map rendering surface: it observes the session
// store, renders layer primitives through the dispatch rules, and applies
// queued camera actions exactly once against an external map engine.
package mapview

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/render"
	"github.com/joeblew999/plat-geochat/internal/session"
)

// Camera fallbacks applied when an action leaves a field unset.
const (
	DefaultFlyToZoom        = 12.0
	DefaultFitBoundsPadding = 50.0
	DefaultActionDuration   = 2000 * time.Millisecond
)

// FlyToCommand is a fully resolved camera flight.
type FlyToCommand struct {
	Center   orb.Point
	Zoom     float64
	Pitch    float64
	Bearing  float64
	Duration time.Duration
}

// FitBoundsCommand is a fully resolved bounds fit.
type FitBoundsCommand struct {
	Bounds   orb.Bound
	Padding  float64
	Duration time.Duration
}

// Engine is the external map engine the surface drives.
type Engine interface {
	FlyTo(cmd FlyToCommand)
	FitBounds(cmd FitBoundsCommand)
	ApplyPrimitives(primitives []render.Primitive)
}

// Surface wires the store to a map engine. It is notified only on layer
// and action slice changes, never on unrelated store writes.
type Surface struct {
	store  *session.Store
	bus    *session.Bus
	engine Engine
	logger *zap.Logger
}

// NewSurface creates a map surface for store, publishing to engine.
func NewSurface(store *session.Store, bus *session.Bus, engine Engine, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surface{store: store, bus: bus, engine: engine, logger: logger}
}

// Run renders the current layer list, then reacts to layer and action
// events until ctx is done. Subscribing never replays an already-consumed
// action: only the live slot is inspected.
func (s *Surface) Run(ctx context.Context) {
	ch := s.bus.Subscribe(session.SliceLayers, session.SliceAction)
	defer s.bus.Unsubscribe(ch)

	s.engine.ApplyPrimitives(render.PrimitivesFor(s.store.Layers()))
	s.drainAction()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ch:
			switch ev.Slice {
			case session.SliceLayers:
				s.engine.ApplyPrimitives(render.PrimitivesFor(s.store.Layers()))
			case session.SliceAction:
				if ev.Action == "enqueued" {
					s.drainAction()
				}
			}
		}
	}
}

// drainAction consumes the pending action, if any, and issues the camera
// command. Read+clear is one atomic store step, so the same action can
// never fire twice.
func (s *Surface) drainAction() {
	act := s.store.ConsumeAction()
	if act == nil {
		return
	}
	s.Apply(act)
}

// Apply translates a consumed action into an engine camera command,
// filling the documented fallbacks.
func (s *Surface) Apply(act *session.MapAction) {
	switch act.Type {
	case session.ActionFlyTo:
		if len(act.Center) < 2 {
			s.logger.Warn("flyTo action without center dropped")
			return
		}
		cmd := FlyToCommand{
			Center:   orb.Point{act.Center[0], act.Center[1]},
			Zoom:     DefaultFlyToZoom,
			Duration: DefaultActionDuration,
		}
		if act.Zoom != nil {
			cmd.Zoom = *act.Zoom
		}
		if act.Pitch != nil {
			cmd.Pitch = *act.Pitch
		}
		if act.Bearing != nil {
			cmd.Bearing = *act.Bearing
		}
		if act.Duration != nil {
			cmd.Duration = time.Duration(*act.Duration) * time.Millisecond
		}
		s.engine.FlyTo(cmd)
	case session.ActionFitBounds:
		if len(act.Bounds) < 2 || len(act.Bounds[0]) < 2 || len(act.Bounds[1]) < 2 {
			s.logger.Warn("fitBounds action without bounds dropped")
			return
		}
		cmd := FitBoundsCommand{
			Bounds: orb.Bound{
				Min: orb.Point{act.Bounds[0][0], act.Bounds[0][1]},
				Max: orb.Point{act.Bounds[1][0], act.Bounds[1][1]},
			},
			Padding:  DefaultFitBoundsPadding,
			Duration: DefaultActionDuration,
		}
		if act.Padding != nil {
			cmd.Padding = *act.Padding
		}
		if act.Duration != nil {
			cmd.Duration = time.Duration(*act.Duration) * time.Millisecond
		}
		s.engine.FitBounds(cmd)
	default:
		s.logger.Warn("unknown map action type", zap.String("type", string(act.Type)))
	}
}
