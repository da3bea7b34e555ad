package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubResponder returns a canned response or error and records the call.
type stubResponder struct {
	resp   *Response
	err    error
	query  string
	bounds *MapBounds
	calls  int
}

func (r *stubResponder) Chat(ctx context.Context, query string, bounds *MapBounds) (*Response, error) {
	r.calls++
	r.query = query
	r.bounds = bounds
	return r.resp, r.err
}

func TestSendSuccessAppliesResponse(t *testing.T) {
	s := newTestStore()
	zoom := 6.0
	stub := &stubResponder{resp: &Response{
		Message: "Found 8 stations",
		Layers:  []Layer{{ID: "stations", Type: LayerCircle, Visible: true, Opacity: 1}},
		Chart:   &ChartData{Type: "bar", Title: "AQI by station"},
		Action:  &MapAction{Type: ActionFlyTo, Center: []float64{67, 48}, Zoom: &zoom},
	}}
	d := NewDispatcher(s, stub, nil)

	d.Send(context.Background(), "show air quality")

	msgs := s.Messages()
	require.Len(t, msgs, 3) // welcome + user + assistant
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "show air quality", msgs[1].Content)
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	assert.Equal(t, "Found 8 stations", msgs[2].Content)

	assert.Equal(t, []string{"stations"}, layerIDs(s.Layers()))
	require.NotNil(t, s.Chart())
	assert.Equal(t, "AQI by station", s.Chart().Title)
	assert.True(t, s.HasPendingAction())
	assert.False(t, s.IsLoading())
}

func TestSendTransportFailure(t *testing.T) {
	s := newTestStore()
	s.AddLayer(Layer{ID: "keep", Type: LayerGeoJSON, Visible: true, Opacity: 1})
	s.SetChart(&ChartData{Type: "bar", Title: "keep"})
	d := NewDispatcher(s, &stubResponder{err: errors.New("connection refused")}, nil)

	d.Send(context.Background(), "hello")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, FailureText, msgs[2].Content)
	// failure leaves layers and chart untouched
	assert.Equal(t, []string{"keep"}, layerIDs(s.Layers()))
	assert.Equal(t, "keep", s.Chart().Title)
	assert.False(t, s.IsLoading())
	assert.False(t, s.HasPendingAction())
}

func TestSendMissingMessageIsFailure(t *testing.T) {
	s := newTestStore()
	d := NewDispatcher(s, &stubResponder{resp: &Response{Message: ""}}, nil)

	d.Send(context.Background(), "hello")

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, FailureText, msgs[2].Content)
	assert.False(t, s.IsLoading())
}

func TestSendEmptyLayerListClears(t *testing.T) {
	s := newTestStore()
	s.AddLayer(Layer{ID: "old", Type: LayerGeoJSON, Visible: true, Opacity: 1})
	d := NewDispatcher(s, &stubResponder{resp: &Response{
		Message: "cleared",
		Layers:  []Layer{},
	}}, nil)

	d.Send(context.Background(), "clear the map")

	assert.Empty(t, s.Layers())
}

func TestSendNilLayersPreservesExisting(t *testing.T) {
	s := newTestStore()
	s.AddLayer(Layer{ID: "old", Type: LayerGeoJSON, Visible: true, Opacity: 1})
	d := NewDispatcher(s, &stubResponder{resp: &Response{Message: "just words"}}, nil)

	d.Send(context.Background(), "tell me something")

	assert.Equal(t, []string{"old"}, layerIDs(s.Layers()))
}

func TestSendPassesViewportBounds(t *testing.T) {
	s := newTestStore()
	stub := &stubResponder{resp: &Response{Message: "ok"}}
	d := NewDispatcher(s, stub, nil)
	d.BoundsFunc = func() *MapBounds {
		return &MapBounds{North: 55, South: 40, East: 87, West: 46}
	}

	d.Send(context.Background(), "what is here")

	require.NotNil(t, stub.bounds)
	assert.Equal(t, 55.0, stub.bounds.North)
	assert.Equal(t, 1, stub.calls)
}
