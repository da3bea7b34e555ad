package mapview

import (
	"sync"

	"github.com/paulmach/orb"
)

// FeatureKind classifies a clicked map feature.
type FeatureKind string

const (
	FeatureGlacier FeatureKind = "glacier"
	FeatureRiver   FeatureKind = "river"
	FeatureLake    FeatureKind = "lake"
	FeatureCity    FeatureKind = "city"
	FeatureGeneric FeatureKind = "generic"
)

// Classify picks the feature kind by testing, in priority order, an
// explicit type field and then domain property presence.
func Classify(props map[string]any) FeatureKind {
	if t, ok := props["type"].(string); ok {
		switch FeatureKind(t) {
		case FeatureGlacier, FeatureRiver, FeatureLake, FeatureCity:
			return FeatureKind(t)
		}
	}
	if _, ok := props["glacier_type"]; ok {
		return FeatureGlacier
	}
	if _, ok := props["discharge"]; ok {
		return FeatureRiver
	}
	if _, ok := props["lake_type"]; ok {
		return FeatureLake
	}
	if _, ok := props["population"]; ok {
		return FeatureCity
	}
	return FeatureGeneric
}

// Popup is an open feature popup bound to the click coordinates and the
// feature's full property set.
type Popup struct {
	Kind       FeatureKind
	Position   orb.Point
	Properties map[string]any
}

// Interaction holds popup and hover tooltip state. The tooltip is an
// independent lightweight state (feature name only) and never opens a
// popup.
type Interaction struct {
	mu      sync.Mutex
	popup   *Popup
	tooltip string
}

// Click opens exactly one popup for the clicked feature, replacing any
// open one.
func (i *Interaction) Click(at orb.Point, props map[string]any) *Popup {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.popup = &Popup{Kind: Classify(props), Position: at, Properties: props}
	return i.popup
}

// Popup returns the open popup, or nil.
func (i *Interaction) Popup() *Popup {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.popup
}

// ClosePopup clears the popup state. Closing an already-closed popup is a
// no-op.
func (i *Interaction) ClosePopup() {
	i.mu.Lock()
	i.popup = nil
	i.mu.Unlock()
}

// Hover updates the tooltip with the hovered feature name.
func (i *Interaction) Hover(name string) {
	i.mu.Lock()
	i.tooltip = name
	i.mu.Unlock()
}

// ClearHover empties the tooltip.
func (i *Interaction) ClearHover() {
	i.mu.Lock()
	i.tooltip = ""
	i.mu.Unlock()
}

// Tooltip returns the hovered feature name, or empty.
func (i *Interaction) Tooltip() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tooltip
}
