package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// WelcomeText seeds the chat log. The message list is never empty and its
// first entry is never a user message.
const WelcomeText = "Welcome to the geospatial research console. Ask about " +
	"satellite imagery, NDVI, flood detection, air quality, or a region " +
	"like Kazakhstan."

// DefaultView centers the map over Central Asia, matching the demo data.
var DefaultView = ViewState{Longitude: 67.0, Latitude: 48.0, Zoom: 4}

// Store is the session state container. All mutation goes through named
// methods, each atomic with respect to concurrent reads; every mutation
// publishes a slice-keyed change event on the bus.
type Store struct {
	mu  sync.Mutex
	bus *Bus

	now   func() time.Time
	newID func() string

	view      ViewState
	layers    []Layer
	messages  []ChatMessage
	pending   *MapAction
	chart     *ChartData
	basemap   string
	is3D      bool
	loading   bool
	connected bool
}

// NewStore creates a store seeded with the welcome message and default
// view, publishing changes on bus.
func NewStore(bus *Bus) *Store {
	s := &Store{
		bus:     bus,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
		view:    DefaultView,
		basemap: "dark",
	}
	s.messages = []ChatMessage{s.welcome()}
	return s
}

func (s *Store) welcome() ChatMessage {
	return ChatMessage{
		ID:        s.newID(),
		Role:      RoleAssistant,
		Content:   WelcomeText,
		Timestamp: s.now(),
	}
}

func (s *Store) publish(e Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// SetViewState shallow-merges a partial update into the view state.
func (s *Store) SetViewState(patch ViewStatePatch) {
	s.mu.Lock()
	if patch.Longitude != nil {
		s.view.Longitude = *patch.Longitude
	}
	if patch.Latitude != nil {
		s.view.Latitude = *patch.Latitude
	}
	if patch.Zoom != nil {
		s.view.Zoom = *patch.Zoom
	}
	if patch.Pitch != nil {
		s.view.Pitch = *patch.Pitch
	}
	if patch.Bearing != nil {
		s.view.Bearing = *patch.Bearing
	}
	s.mu.Unlock()
	s.publish(Event{Slice: SliceView, Action: "updated"})
}

// View returns a copy of the current view state.
func (s *Store) View() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// AddLayer upserts a layer: any existing layer with the same id is
// removed, then the new layer is appended at the tail so it renders on
// top. This is an upsert-with-reorder, not an in-place update.
func (s *Store) AddLayer(layer Layer) {
	s.mu.Lock()
	s.removeLayerLocked(layer.ID)
	s.layers = append(s.layers, layer)
	s.mu.Unlock()
	s.publish(Event{Slice: SliceLayers, Action: "updated", ID: layer.ID})
}

func (s *Store) removeLayerLocked(id string) bool {
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveLayer removes the layer with the given id, if present.
func (s *Store) RemoveLayer(id string) {
	s.mu.Lock()
	removed := s.removeLayerLocked(id)
	s.mu.Unlock()
	if removed {
		s.publish(Event{Slice: SliceLayers, Action: "removed", ID: id})
	}
}

// ClearLayers removes all layers.
func (s *Store) ClearLayers() {
	s.mu.Lock()
	s.layers = nil
	s.mu.Unlock()
	s.publish(Event{Slice: SliceLayers, Action: "cleared"})
}

// ReplaceLayers swaps the whole layer list in one atomic step. This is
// the full-replace used when a chat response carries layers: clear, then
// append each in order — never a merge.
func (s *Store) ReplaceLayers(layers []Layer) {
	s.mu.Lock()
	s.layers = nil
	for _, l := range layers {
		s.removeLayerLocked(l.ID)
		s.layers = append(s.layers, l)
	}
	s.mu.Unlock()
	s.publish(Event{Slice: SliceLayers, Action: "replaced"})
}

// ToggleLayerVisibility flips a layer's visibility. Toggling twice
// restores the original value.
func (s *Store) ToggleLayerVisibility(id string) {
	s.mu.Lock()
	changed := false
	for i := range s.layers {
		if s.layers[i].ID == id {
			s.layers[i].Visible = !s.layers[i].Visible
			changed = true
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.publish(Event{Slice: SliceLayers, Action: "updated", ID: id})
	}
}

// SetLayerOpacity sets a layer's opacity, clamped to [0, 1].
func (s *Store) SetLayerOpacity(id string, opacity float64) {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	s.mu.Lock()
	changed := false
	for i := range s.layers {
		if s.layers[i].ID == id {
			s.layers[i].Opacity = opacity
			changed = true
			break
		}
	}
	s.mu.Unlock()
	if changed {
		s.publish(Event{Slice: SliceLayers, Action: "updated", ID: id})
	}
}

// Layers returns a copy of the layer list in render order.
func (s *Store) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// Layer returns a layer by id.
func (s *Store) Layer(id string) (Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.layers {
		if l.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

// SetBasemap selects the active basemap by id.
func (s *Store) SetBasemap(id string) {
	s.mu.Lock()
	s.basemap = id
	s.mu.Unlock()
	s.publish(Event{Slice: SliceBasemap, Action: "updated", ID: id})
}

// Basemap returns the active basemap id.
func (s *Store) Basemap() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.basemap
}

// Toggle3D flips the 3D flag and couples it to pitch: on sets pitch to
// 45°, off resets it to 0°.
func (s *Store) Toggle3D() {
	s.mu.Lock()
	s.is3D = !s.is3D
	if s.is3D {
		s.view.Pitch = 45
	} else {
		s.view.Pitch = 0
	}
	s.mu.Unlock()
	s.publish(Event{Slice: SliceView, Action: "updated"})
}

// Is3D reports whether 3D mode is on.
func (s *Store) Is3D() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.is3D
}

// SetMapAction writes the single-slot action queue, replacing any pending
// action.
func (s *Store) SetMapAction(action MapAction) {
	s.mu.Lock()
	s.pending = &action
	s.mu.Unlock()
	s.publish(Event{Slice: SliceAction, Action: "enqueued"})
}

// ClearMapAction empties the action slot without consuming it.
func (s *Store) ClearMapAction() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
	s.publish(Event{Slice: SliceAction, Action: "cleared"})
}

// ConsumeAction reads and clears the pending action as one atomic step so
// a camera command is applied exactly once per enqueue. Returns nil when
// the slot is empty.
func (s *Store) ConsumeAction() *MapAction {
	s.mu.Lock()
	act := s.pending
	s.pending = nil
	s.mu.Unlock()
	if act != nil {
		s.publish(Event{Slice: SliceAction, Action: "consumed"})
	}
	return act
}

// HasPendingAction reports whether an action is waiting.
func (s *Store) HasPendingAction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// AddMessage assigns a fresh id and timestamp to msg and appends it.
// Returns the stored message.
func (s *Store) AddMessage(msg ChatMessage) ChatMessage {
	s.mu.Lock()
	msg.ID = s.newID()
	msg.Timestamp = s.now()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.publish(Event{Slice: SliceMessages, Action: "appended", ID: msg.ID})
	return msg
}

// Messages returns a copy of the chat log.
func (s *Store) Messages() []ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// ClearMessages resets the log to exactly one assistant welcome message
// and clears the chart.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	s.messages = []ChatMessage{s.welcome()}
	s.chart = nil
	s.mu.Unlock()
	s.publish(Event{Slice: SliceMessages, Action: "cleared"})
	s.publish(Event{Slice: SliceChart, Action: "cleared"})
}

// SetLoading flags whether one query is outstanding. It signals intent to
// the UI; it is not a mutual-exclusion lock.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
	s.publish(Event{Slice: SliceLoading, Action: "updated"})
}

// IsLoading reports whether a query is outstanding.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// SetChart replaces the chart wholesale. Nil clears it.
func (s *Store) SetChart(chart *ChartData) {
	s.mu.Lock()
	s.chart = chart
	s.mu.Unlock()
	s.publish(Event{Slice: SliceChart, Action: "updated"})
}

// Chart returns the current chart payload, or nil.
func (s *Store) Chart() *ChartData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chart
}

// SetConnected records the backend liveness indicator. False means the
// session runs in demo mode.
func (s *Store) SetConnected(connected bool) {
	s.mu.Lock()
	changed := s.connected != connected
	s.connected = connected
	s.mu.Unlock()
	if changed {
		s.publish(Event{Slice: SliceConnection, Action: "updated"})
	}
}

// Connected reports backend liveness.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
