package session

import "sync"

// Slice names one independently observable part of the session state.
// Subscribers pick the slices they care about so unrelated writes never
// wake them.
type Slice string

const (
	SliceView       Slice = "view"
	SliceLayers     Slice = "layers"
	SliceMessages   Slice = "messages"
	SliceAction     Slice = "action"
	SliceChart      Slice = "chart"
	SliceLoading    Slice = "loading"
	SliceBasemap    Slice = "basemap"
	SliceConnection Slice = "connection"
)

// Event represents one state slice mutation.
type Event struct {
	Slice  Slice
	Action string // "updated", "appended", "removed", "cleared", "replaced", "enqueued", "consumed"
	ID     string // layer or message ID when applicable
}

// Bus is a fan-out pub/sub for state change events, filtered by slice.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]map[Slice]struct{}
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[chan Event]map[Slice]struct{})}
}

// Publish sends an event to all subscribers of its slice (non-blocking).
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch, slices := range b.subs {
		if slices != nil {
			if _, ok := slices[e.Slice]; !ok {
				continue
			}
		}
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip
		}
	}
}

// Subscribe returns a buffered channel that receives events for the given
// slices. With no slices it receives everything.
func (b *Bus) Subscribe(slices ...Slice) chan Event {
	ch := make(chan Event, 16)
	var filter map[Slice]struct{}
	if len(slices) > 0 {
		filter = make(map[Slice]struct{}, len(slices))
		for _, s := range slices {
			filter[s] = struct{}{}
		}
	}
	b.mu.Lock()
	b.subs[ch] = filter
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}
