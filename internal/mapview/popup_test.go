package mapview

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		props map[string]any
		want  FeatureKind
	}{
		{"explicit type wins", map[string]any{"type": "lake", "population": 120000}, FeatureLake},
		{"unrecognized explicit type falls through", map[string]any{"type": "volcano", "discharge": 42.0}, FeatureRiver},
		{"glacier property", map[string]any{"glacier_type": "valley"}, FeatureGlacier},
		{"glacier outranks discharge", map[string]any{"glacier_type": "valley", "discharge": 5.0}, FeatureGlacier},
		{"discharge means river", map[string]any{"discharge": 300.0}, FeatureRiver},
		{"lake type", map[string]any{"lake_type": "endorheic"}, FeatureLake},
		{"population means city", map[string]any{"population": 2000000}, FeatureCity},
		{"nothing known", map[string]any{"name": "somewhere"}, FeatureGeneric},
		{"empty props", map[string]any{}, FeatureGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.props))
		})
	}
}

func TestClickReplacesOpenPopup(t *testing.T) {
	var i Interaction

	first := i.Click(orb.Point{66, 43}, map[string]any{"glacier_type": "valley"})
	assert.Equal(t, FeatureGlacier, first.Kind)

	second := i.Click(orb.Point{71, 51}, map[string]any{"population": 1200000})
	assert.Equal(t, FeatureCity, second.Kind)

	open := i.Popup()
	require.NotNil(t, open)
	assert.Equal(t, orb.Point{71, 51}, open.Position)
}

func TestClosePopupIsIdempotent(t *testing.T) {
	var i Interaction
	i.Click(orb.Point{0, 0}, nil)

	i.ClosePopup()
	assert.Nil(t, i.Popup())
	i.ClosePopup()
	assert.Nil(t, i.Popup())
}

func TestHoverTooltip(t *testing.T) {
	var i Interaction

	i.Hover("Tuyuksu Glacier")
	assert.Equal(t, "Tuyuksu Glacier", i.Tooltip())
	// hover state is independent of the popup
	assert.Nil(t, i.Popup())

	i.ClearHover()
	assert.Empty(t, i.Tooltip())
}
