package server

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/backend"
	"github.com/joeblew999/plat-geochat/internal/mapview"
	"github.com/joeblew999/plat-geochat/internal/session"
)

// Input/output types

type LayerIDInput struct {
	ID string `path:"id" doc:"Layer ID" example:"air_quality_stations"`
}

type OpacityInput struct {
	ID    string  `path:"id" doc:"Layer ID"`
	Value float64 `query:"value" minimum:"0" maximum:"1" doc:"Opacity, clamped to [0,1]"`
}

type ChatInput struct {
	Body struct {
		Message string `json:"message" minLength:"1" doc:"User chat message"`
	}
}

type MessagesOutput struct {
	Body []session.ChatMessage
}

type LayersOutput struct {
	Body []session.Layer
}

type ViewOutput struct {
	Body session.ViewState
}

type ViewInput struct {
	Body session.ViewStatePatch
}

type BasemapsOutput struct {
	Body struct {
		Basemaps []backend.Basemap `json:"basemaps"`
	}
}

type BasemapInput struct {
	ID string `path:"id" doc:"Basemap ID" example:"dark"`
}

type ClickInput struct {
	Body struct {
		Longitude  float64        `json:"lng"`
		Latitude   float64        `json:"lat"`
		Properties map[string]any `json:"properties"`
	}
}

type PopupOutput struct {
	Body struct {
		Kind       mapview.FeatureKind `json:"kind"`
		Position   []float64           `json:"position"`
		Properties map[string]any      `json:"properties"`
	}
}

type HealthBody struct {
	Status    string `json:"status" doc:"Health status" example:"ok"`
	Version   string `json:"version" doc:"API version" example:"1.0.0"`
	Connected bool   `json:"connected" doc:"Analysis backend reachability"`
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

// sessionHandler holds the REST handlers for session operations. Methods
// named Register* are auto-discovered by huma.AutoRegister.
type sessionHandler struct {
	store       *session.Store
	dispatcher  *session.Dispatcher
	client      *backend.Client
	popups      *mapview.Interaction
	maptilerKey string
	logger      *zap.Logger
}

type InfoBody struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Mode    string `json:"mode" doc:"Responder mode" example:"demo"`
}

// RegisterHealth registers health check and info routes.
func (h *sessionHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
	huma.Get(api, "/api/info", h.GetInfo, huma.OperationTags("health"))
}

func (h *sessionHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	mode := "demo"
	if h.client != nil {
		mode = "backend"
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:    "plat-geochat",
		Version: "0.1.0",
		Mode:    mode,
	}}, nil
}

func (h *sessionHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{
		Status:    "ok",
		Version:   "1.0.0",
		Connected: h.store.Connected(),
	}}, nil
}

// RegisterChat registers the chat routes.
func (h *sessionHandler) RegisterChat(api huma.API) {
	huma.Post(api, "/api/session/chat", h.PostChat, huma.OperationTags("chat"))
	huma.Get(api, "/api/session/messages", h.GetMessages, huma.OperationTags("chat"))
	huma.Post(api, "/api/session/chat/clear", h.ClearChat, huma.OperationTags("chat"))
}

// PostChat runs the full send protocol synchronously. Panel updates reach
// the browser through the SSE stream; the response body is just an ack.
func (h *sessionHandler) PostChat(ctx context.Context, input *ChatInput) (*struct{ Body MessageBody }, error) {
	h.dispatcher.Send(ctx, input.Body.Message)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "ok"}}, nil
}

func (h *sessionHandler) GetMessages(ctx context.Context, input *struct{}) (*MessagesOutput, error) {
	return &MessagesOutput{Body: h.store.Messages()}, nil
}

func (h *sessionHandler) ClearChat(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	h.store.ClearMessages()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "chat cleared"}}, nil
}

// RegisterLayers registers layer management routes.
func (h *sessionHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/session/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/session/layers/clear", h.ClearLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/session/layers/{id}/toggle", h.ToggleLayer, huma.OperationTags("layers"))
	huma.Post(api, "/api/session/layers/{id}/opacity", h.SetOpacity, huma.OperationTags("layers"))
	huma.Post(api, "/api/session/layers/{id}/remove", h.RemoveLayer, huma.OperationTags("layers"))
}

func (h *sessionHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	return &LayersOutput{Body: h.store.Layers()}, nil
}

func (h *sessionHandler) ClearLayers(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	h.store.ClearLayers()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "layers cleared"}}, nil
}

func (h *sessionHandler) ToggleLayer(ctx context.Context, input *LayerIDInput) (*struct{ Body MessageBody }, error) {
	if _, ok := h.store.Layer(input.ID); !ok {
		return nil, huma.Error404NotFound("no such layer: " + input.ID)
	}
	h.store.ToggleLayerVisibility(input.ID)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "toggled"}}, nil
}

func (h *sessionHandler) SetOpacity(ctx context.Context, input *OpacityInput) (*struct{ Body MessageBody }, error) {
	if _, ok := h.store.Layer(input.ID); !ok {
		return nil, huma.Error404NotFound("no such layer: " + input.ID)
	}
	h.store.SetLayerOpacity(input.ID, input.Value)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "opacity set"}}, nil
}

func (h *sessionHandler) RemoveLayer(ctx context.Context, input *LayerIDInput) (*struct{ Body MessageBody }, error) {
	if _, ok := h.store.Layer(input.ID); !ok {
		return nil, huma.Error404NotFound("no such layer: " + input.ID)
	}
	h.store.RemoveLayer(input.ID)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "removed"}}, nil
}

// RegisterView registers camera state routes.
func (h *sessionHandler) RegisterView(api huma.API) {
	huma.Get(api, "/api/session/view", h.GetView, huma.OperationTags("view"))
	huma.Post(api, "/api/session/view", h.PatchView, huma.OperationTags("view"))
	huma.Post(api, "/api/session/view/3d", h.Toggle3D, huma.OperationTags("view"))
}

func (h *sessionHandler) GetView(ctx context.Context, input *struct{}) (*ViewOutput, error) {
	return &ViewOutput{Body: h.store.View()}, nil
}

func (h *sessionHandler) PatchView(ctx context.Context, input *ViewInput) (*ViewOutput, error) {
	h.store.SetViewState(input.Body)
	return &ViewOutput{Body: h.store.View()}, nil
}

func (h *sessionHandler) Toggle3D(ctx context.Context, input *struct{}) (*ViewOutput, error) {
	h.store.Toggle3D()
	return &ViewOutput{Body: h.store.View()}, nil
}

// RegisterBasemaps registers basemap catalog and selection routes.
func (h *sessionHandler) RegisterBasemaps(api huma.API) {
	huma.Get(api, "/api/layers/basemaps", h.GetBasemaps, huma.OperationTags("basemaps"))
	huma.Post(api, "/api/session/basemap/{id}", h.SetBasemap, huma.OperationTags("basemaps"))
}

func (h *sessionHandler) GetBasemaps(ctx context.Context, input *struct{}) (*BasemapsOutput, error) {
	out := &BasemapsOutput{}
	out.Body.Basemaps = h.basemapCatalog(ctx)
	return out, nil
}

// basemapCatalog returns the backend's catalog, or the built-in styles when
// no backend is configured.
func (h *sessionHandler) basemapCatalog(ctx context.Context) []backend.Basemap {
	if h.client != nil {
		return h.client.Basemaps(ctx)
	}
	return backend.FallbackBasemaps(h.maptilerKey)
}

func (h *sessionHandler) SetBasemap(ctx context.Context, input *BasemapInput) (*struct{ Body MessageBody }, error) {
	h.store.SetBasemap(input.ID)
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "basemap set"}}, nil
}

// RegisterInteraction registers feature click/popup routes.
func (h *sessionHandler) RegisterInteraction(api huma.API) {
	huma.Post(api, "/api/session/click", h.PostClick, huma.OperationTags("interaction"))
	huma.Post(api, "/api/session/popup/close", h.ClosePopup, huma.OperationTags("interaction"))
}

func (h *sessionHandler) PostClick(ctx context.Context, input *ClickInput) (*PopupOutput, error) {
	popup := h.popups.Click(
		orb.Point{input.Body.Longitude, input.Body.Latitude},
		input.Body.Properties,
	)
	out := &PopupOutput{}
	out.Body.Kind = popup.Kind
	out.Body.Position = []float64{popup.Position[0], popup.Position[1]}
	out.Body.Properties = popup.Properties
	return out, nil
}

func (h *sessionHandler) ClosePopup(ctx context.Context, input *struct{}) (*struct{ Body MessageBody }, error) {
	h.popups.ClosePopup()
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "popup closed"}}, nil
}

// handleReport proxies a report download from the analysis backend. It is a
// plain mux handler so the PDF can stream through without Huma buffering.
func (h *sessionHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	if h.client == nil {
		http.Error(w, "report generation needs a remote backend", http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	var sections []string
	if raw := q.Get("sections"); raw != "" {
		sections = strings.Split(raw, ",")
	}
	body, filename, err := h.client.Report(r.Context(), backend.ReportOptions{
		Title:    q.Get("title"),
		Region:   q.Get("region"),
		Sections: sections,
	})
	if err != nil {
		h.logger.Warn("report download failed", zap.Error(err))
		http.Error(w, "report generation failed", http.StatusBadGateway)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", "application/pdf")
	if filename != "" {
		w.Header().Set("Content-Disposition", "attachment; filename=\""+filename+"\"")
	}
	io.Copy(w, body)
}
