package session

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// FailureText is appended as a single generic assistant message when the
// backend cannot be reached or returns an unusable response.
const FailureText = "Connection error: the analysis service could not be " +
	"reached. Your layers and charts are unchanged — please try again."

// Responder answers chat queries. Implementations are the HTTP backend
// client and the local demo agent.
type Responder interface {
	Chat(ctx context.Context, query string, bounds *MapBounds) (*Response, error)
}

// Dispatcher orchestrates the sendMessage protocol against the store.
//
// Calls are serialized: a Send that arrives while another is in flight
// waits its turn, so layer-list and chart replacement never interleave
// between two responses. Manual store edits still run freely while a
// request is pending.
type Dispatcher struct {
	store  *Store
	client Responder
	logger *zap.Logger

	// BoundsFunc, when set, supplies the current viewport for each query.
	BoundsFunc func() *MapBounds

	inflight sync.Mutex
}

// NewDispatcher creates a dispatcher for store backed by client.
func NewDispatcher(store *Store, client Responder, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{store: store, client: client, logger: logger}
}

// Send runs one chat turn: append the user message, flag loading, query
// the backend, apply the response, and always clear loading. Failures
// surface as a chat-log entry; Send never returns an error to the caller
// for transport problems.
func (d *Dispatcher) Send(ctx context.Context, query string) {
	d.inflight.Lock()
	defer d.inflight.Unlock()

	d.store.AddMessage(ChatMessage{Role: RoleUser, Content: query})
	d.store.SetLoading(true)
	defer d.store.SetLoading(false)

	var bounds *MapBounds
	if d.BoundsFunc != nil {
		bounds = d.BoundsFunc()
	}

	resp, err := d.client.Chat(ctx, query, bounds)
	if err != nil {
		d.logger.Warn("chat request failed", zap.Error(err))
		d.store.AddMessage(ChatMessage{Role: RoleAssistant, Content: FailureText})
		return
	}
	if resp == nil || resp.Message == "" {
		// A response without the required message field is fatal to this
		// turn only; layers and chart already present stay untouched.
		d.logger.Warn("chat response missing message field")
		d.store.AddMessage(ChatMessage{Role: RoleAssistant, Content: FailureText})
		return
	}

	msg := ChatMessage{
		Role:    RoleAssistant,
		Content: resp.Message,
		Code:    resp.Code,
		Layers:  resp.Layers,
		Chart:   resp.Chart,
		Action:  resp.Action,
	}
	d.store.AddMessage(msg)

	if resp.Layers != nil {
		d.store.ReplaceLayers(resp.Layers)
		d.logger.Info("layer list replaced", zap.Int("count", len(resp.Layers)))
	}
	if resp.Chart != nil {
		d.store.SetChart(resp.Chart)
	}
	if resp.Action != nil {
		d.store.SetMapAction(*resp.Action)
	}
}
