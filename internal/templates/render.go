// Package templates handles HTML template rendering for Datastar SSE responses.
//
// Default panel fragments are embedded in the binary; a directory of *.html
// files can be supplied to override or extend them at startup.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"path/filepath"
	"sync"
)

//go:embed fragments/*.html
var defaultFragments embed.FS

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"pct": func(f float64) int {
		return int(f * 100)
	},
}

// Renderer manages HTML fragment templates.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer with the embedded default fragments. overrideDir may
// be empty; when set, *.html files there are parsed on top of the defaults and
// shadow same-named templates.
func New(overrideDir string) (*Renderer, error) {
	tmpl, err := parse(overrideDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse(overrideDir string) (*template.Template, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(defaultFragments, "fragments/*.html")
	if err != nil {
		return nil, err
	}
	if overrideDir != "" {
		pattern := filepath.Join(overrideDir, "*.html")
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			if tmpl, err = tmpl.ParseGlob(pattern); err != nil {
				return nil, err
			}
		}
	}
	return tmpl, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// MustRender renders a template and panics on error.
// Use only when you're certain the template exists.
func (r *Renderer) MustRender(name string, data any) string {
	s, err := r.Render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// Reload re-parses the defaults plus the override directory (useful for dev
// hot-reload).
func (r *Renderer) Reload(overrideDir string) error {
	tmpl, err := parse(overrideDir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
