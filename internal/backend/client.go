package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/session"
)

// requestTimeout is the transport's fixed deadline; there is no shorter
// client-driven timeout and no cancellation beyond the caller's context.
const requestTimeout = 60 * time.Second

// fallbackBasemaps is used when the catalog endpoint is unreachable.
var fallbackBasemaps = []Basemap{
	{
		ID:   "dark",
		Name: "Dark Mode",
		URL:  "https://basemaps.cartocdn.com/gl/dark-matter-gl-style/style.json",
		Type: "style",
	},
	{
		ID:          "satellite",
		Name:        "Satellite",
		URL:         "https://api.maptiler.com/tiles/satellite-v2/{z}/{x}/{y}.jpg",
		Type:        "raster",
		Attribution: "© MapTiler © OpenStreetMap contributors",
	},
}

// Client talks to the query-answering backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	// MaptilerKey authenticates the satellite fallback tiles when the
	// catalog endpoint is unreachable. Optional.
	MaptilerKey string
}

// NewClient creates a backend client for baseURL.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}
}

// Chat sends one query to the backend chat operation. Transport and
// decoding failures are returned as errors; the dispatcher turns them
// into a chat-log entry.
func (c *Client) Chat(ctx context.Context, query string, bounds *session.MapBounds) (*session.Response, error) {
	payload, err := json.Marshal(ChatRequest{Query: query, MapBounds: bounds})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat request: backend returned %s", res.Status)
	}

	var cr ChatResponse
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return decode(&cr, c.logger), nil
}

// Health probes the backend liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("build health request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health probe: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("health probe: backend returned %s", res.Status)
	}
	return nil
}

// Basemaps fetches the basemap catalog, falling back to the two built-in
// definitions when the backend cannot serve it.
func (c *Client) Basemaps(ctx context.Context) []Basemap {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/layers/basemaps", nil)
	if err != nil {
		return FallbackBasemaps(c.MaptilerKey)
	}
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("basemap catalog unreachable, using fallback", zap.Error(err))
		return FallbackBasemaps(c.MaptilerKey)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return FallbackBasemaps(c.MaptilerKey)
	}

	var body struct {
		Basemaps []Basemap `json:"basemaps"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || len(body.Basemaps) == 0 {
		return FallbackBasemaps(c.MaptilerKey)
	}
	return body.Basemaps
}

// FallbackBasemaps returns the built-in catalog used in demo mode. A
// non-empty maptilerKey is appended to the satellite tile URL; without one
// the unauthenticated URL is kept, which MapTiler rate-limits.
func FallbackBasemaps(maptilerKey string) []Basemap {
	out := make([]Basemap, len(fallbackBasemaps))
	copy(out, fallbackBasemaps)
	if maptilerKey != "" {
		for i := range out {
			if strings.Contains(out[i].URL, "api.maptiler.com") {
				out[i].URL += "?key=" + url.QueryEscape(maptilerKey)
			}
		}
	}
	return out
}

// ReportOptions select the contents of a generated report.
type ReportOptions struct {
	Title    string
	Region   string
	Sections []string
}

// Report requests a generated document and returns the binary stream plus
// the filename carried in the Content-Disposition header. The caller must
// close the reader.
func (c *Client) Report(ctx context.Context, opts ReportOptions) (io.ReadCloser, string, error) {
	q := url.Values{}
	if opts.Title != "" {
		q.Set("title", opts.Title)
	}
	if opts.Region != "" {
		q.Set("region", opts.Region)
	}
	for _, s := range opts.Sections {
		q.Add("section", s)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/report?"+q.Encode(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build report request: %w", err)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("report request: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, "", fmt.Errorf("report request: backend returned %s", res.Status)
	}

	filename := "report.pdf"
	if _, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition")); err == nil {
		if name := params["filename"]; name != "" {
			filename = name
		}
	}
	return res.Body, filename, nil
}
