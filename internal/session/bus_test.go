package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusSliceFiltering(t *testing.T) {
	bus := NewBus()
	layersOnly := bus.Subscribe(SliceLayers)
	everything := bus.Subscribe()
	defer bus.Unsubscribe(layersOnly)
	defer bus.Unsubscribe(everything)

	bus.Publish(Event{Slice: SliceMessages, Action: "appended"})
	bus.Publish(Event{Slice: SliceLayers, Action: "updated", ID: "a"})

	select {
	case ev := <-layersOnly:
		assert.Equal(t, SliceLayers, ev.Slice)
		assert.Equal(t, "a", ev.ID)
	default:
		t.Fatal("expected layers event")
	}
	select {
	case ev := <-layersOnly:
		t.Fatalf("unexpected second event %+v", ev)
	default:
	}

	require.Len(t, everything, 2)
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(SliceLoading)
	defer bus.Unsubscribe(ch)

	// overfill the buffer; Publish must drop instead of blocking
	for i := 0; i < 100; i++ {
		bus.Publish(Event{Slice: SliceLoading, Action: "updated"})
	}
	assert.Equal(t, 16, len(ch))
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(SliceView)
	bus.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)

	// publishing after unsubscribe must not panic
	bus.Publish(Event{Slice: SliceView, Action: "updated"})
}
