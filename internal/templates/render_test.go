package templates

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-geochat/internal/session"
)

func TestEmbeddedFragments(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	html, err := r.Render("chat-message", session.ChatMessage{
		ID:        "m1",
		Role:      session.RoleAssistant,
		Content:   "Found 8 stations",
		Timestamp: time.Date(2026, 8, 30, 14, 5, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, html, "chat-message-assistant")
	assert.Contains(t, html, "Found 8 stations")
	assert.Contains(t, html, "14:05")

	html, err = r.Render("layer-card", session.Layer{
		ID: "stations", Type: session.LayerCircle, Visible: true, Opacity: 0.75,
	})
	require.NoError(t, err)
	assert.Contains(t, html, "stations")
	assert.Contains(t, html, `value="75"`)

	html, err = r.Render("connection-badge", map[string]any{"Connected": false})
	require.NoError(t, err)
	assert.Contains(t, html, "disconnected")
}

func TestOverrideDirShadowsDefaults(t *testing.T) {
	dir := t.TempDir()
	custom := `{{define "empty-state"}}<p class="custom">{{.Title}}</p>{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty-state.html"), []byte(custom), 0o644))

	r, err := New(dir)
	require.NoError(t, err)

	html, err := r.Render("empty-state", map[string]string{"Title": "Nothing"})
	require.NoError(t, err)
	assert.Contains(t, html, `class="custom"`)

	// non-overridden fragments still come from the embedded set
	_, err = r.Render("select-option", map[string]string{"Value": "dark", "Label": "Dark"})
	assert.NoError(t, err)
}

func TestMissingTemplateErrors(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	_, err = r.Render("does-not-exist", nil)
	assert.Error(t, err)
}
