package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-geochat/internal/session"
)

func TestChannelDeliversDecodedMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		conn.WriteJSON(ChatResponse{
			Message:   "pushed update",
			Status:    "success",
			MapLayers: []WireLayer{{ID: "flood_zones", Type: "geojson"}},
		})
		// keep the socket open until the client leaves
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	got := make(chan *session.Response, 1)
	ch := NewChannel("ws"+strings.TrimPrefix(srv.URL, "http"), func(r *session.Response) {
		got <- r
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	select {
	case resp := <-got:
		assert.Equal(t, "pushed update", resp.Message)
		require.Len(t, resp.Layers, 1)
		assert.Equal(t, "flood_zones", resp.Layers[0].ID)
		assert.True(t, resp.Layers[0].Visible)
	case <-time.After(2 * time.Second):
		t.Fatal("no pushed message received")
	}
	assert.True(t, ch.Connected())
}

func TestChannelRunExhaustsDialAttempts(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws", nil, nil)
	ch.backoff = func(int) time.Duration { return time.Millisecond }

	done := make(chan error, 1)
	go func() { done <- ch.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "5 attempts exhausted")
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not give up after the dial budget")
	}
	assert.False(t, ch.Connected())
	assert.Error(t, ch.Send("hello"))
}

func TestChannelSendWhileDisconnected(t *testing.T) {
	ch := NewChannel("ws://127.0.0.1:1/ws", nil, nil)
	assert.False(t, ch.Connected())
	assert.Error(t, ch.Send("hello"))
}
