package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/backend"
	"github.com/joeblew999/plat-geochat/internal/render"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) DispatchCustomEvent(name string, detail any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, name)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// stalledSink blocks inside the write until released, like a browser that
// stopped draining its SSE connection.
type stalledSink struct {
	entered chan struct{}
	release chan struct{}
}

func (s *stalledSink) DispatchCustomEvent(name string, detail any) {
	s.entered <- struct{}{}
	<-s.release
}

func TestBroadcastStalledClientDoesNotBlockAttach(t *testing.T) {
	hub := newEventHub(zap.NewNop())
	stalled := &stalledSink{entered: make(chan struct{}, 1), release: make(chan struct{})}
	hub.attach(stalled)

	done := make(chan struct{})
	go func() {
		hub.ApplyPrimitives([]render.Primitive{{ID: "stations", Kind: "circle"}})
		close(done)
	}()

	select {
	case <-stalled.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never reached the stalled connection")
	}

	// with the write happening outside the hub lock, a new browser can
	// still join while the stalled one sits mid-write
	fresh := &recordingSink{}
	attached := make(chan struct{})
	go func() {
		hub.attach(fresh)
		close(attached)
	}()
	select {
	case <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("attach blocked behind a stalled broadcast")
	}

	// the late joiner got the primitives replay
	assert.Contains(t, fresh.names(), eventPrimitives)

	close(stalled.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast did not finish after the client drained")
	}
}

func TestEventStreamRendersBasemapOptions(t *testing.T) {
	srv := newTestServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	// a pre-cancelled context makes the stream emit its initial patches
	// and return instead of blocking on bus events
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="dark"`)
	assert.Contains(t, body, "Dark Mode")
	assert.Contains(t, body, "Satellite")
	assert.Contains(t, body, `id="connection-status"`)
}

func TestChatSignalsRoute(t *testing.T) {
	srv := newTestServer(t, echoBackend(backend.ChatResponse{
		Message: "two stations found",
		Status:  "success",
	}))

	w := doJSON(t, srv, http.MethodPost, "/ui/chat", `{"message":"show stations"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "datastar-patch-signals")

	msgs := srv.Store().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "show stations", msgs[1].Content)
	assert.Equal(t, "two stations found", msgs[2].Content)
}

func TestChatSignalsRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, echoBackend(backend.ChatResponse{}))

	// malformed signal body
	w := doJSON(t, srv, http.MethodPost, "/ui/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// blank message reports an error signal without dispatching
	w = doJSON(t, srv, http.MethodPost, "/ui/chat", `{"message":"   "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Type a message first")
	assert.Len(t, srv.Store().Messages(), 1)
}
