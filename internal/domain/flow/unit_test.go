package flow

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUnit(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want UnitValue
	}{
		{"bare number", 16.0, Px(16)},
		{"integer", 12, Px(12)},
		{"pixels suffix", "16px", Px(16)},
		{"rem", "2rem", Rem(2)},
		{"em", "1.5em", Em(1.5)},
		{"percent", "50%", Percent(50)},
		{"viewport height", "10vh", UnitValue{Kind: UnitViewportHeight, Magnitude: 10}},
		{"viewport width", " 25VW ", UnitValue{Kind: UnitViewportWidth, Magnitude: 25}},
		{"auto", "auto", Auto()},
		{"auto any case", "AUTO", Auto()},
		{"fill", "Fill", Fill()},
		{"plain numeric string", "12", Px(12)},
		{"negative", "-4px", Px(-4)},
		{"object percent", map[string]any{"value": 50.0, "unit": "%"}, Percent(50)},
		{"object long unit name", map[string]any{"value": 3.0, "unit": "pixels"}, Px(3)},
		{"object unknown unit is pixels", map[string]any{"value": 2.0, "unit": "furlongs"}, Px(2)},
		{"object without unit is pixels", map[string]any{"value": 8.0}, Px(8)},
		{"object fill needs no value", map[string]any{"unit": "fill"}, Fill()},
		{"object numeric string value", map[string]any{"value": "4", "unit": "rem"}, Rem(4)},
		{"object without value", map[string]any{"unit": "px"}, Auto()},
		{"object wins over suffix grammar", map[string]any{"value": 10.0, "unit": "vw"}, UnitValue{Kind: UnitViewportWidth, Magnitude: 10}},
		{"garbage string", "wide", Auto()},
		{"suffix without number", "px", Auto()},
		{"null", nil, Auto()},
		{"bool", true, Auto()},
		{"array", []any{1.0}, Auto()},
		{"nan", math.NaN(), Auto()},
		{"infinite string", "Infpx", Auto()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got := DecodeUnit(tt.raw)
				assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
			})
		})
	}
}

func TestUnitRoundTrip(t *testing.T) {
	values := []UnitValue{
		Px(16), Px(-2.5), Percent(50), Rem(2), Em(0.75),
		{Kind: UnitViewportWidth, Magnitude: 100},
		{Kind: UnitViewportHeight, Magnitude: 33.3},
		Auto(), Fill(),
	}
	for _, u := range values {
		t.Run(u.String(), func(t *testing.T) {
			data, err := json.Marshal(u)
			require.NoError(t, err)

			var back UnitValue
			require.NoError(t, json.Unmarshal(data, &back))
			assert.True(t, u.Equal(back), "%s -> %s -> %v", u, data, back)

			// The string grammar round-trips for every kind too.
			assert.True(t, u.Equal(DecodeUnit(u.String())), "string form %q", u.String())
		})
	}
}

func TestUnitMarshalShape(t *testing.T) {
	data, err := json.Marshal(Rem(2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":2,"unit":"rem"}`, string(data))

	data, err = json.Marshal(Fill())
	require.NoError(t, err)
	assert.JSONEq(t, `{"unit":"fill"}`, string(data))
}

func TestUnitResolve(t *testing.T) {
	ref := Reference{Container: 200, RootFontSize: 16, FontSize: 20, ViewportWidth: 400, ViewportHeight: 800}

	px, ok := Percent(50).Resolve(ref)
	require.True(t, ok)
	assert.Equal(t, 100.0, px)

	px, _ = Rem(2).Resolve(ref)
	assert.Equal(t, 32.0, px)
	px, _ = Em(2).Resolve(ref)
	assert.Equal(t, 40.0, px)
	px, _ = UnitValue{Kind: UnitViewportHeight, Magnitude: 10}.Resolve(ref)
	assert.Equal(t, 80.0, px)

	_, ok = Auto().Resolve(ref)
	assert.False(t, ok)
	_, ok = Fill().Resolve(ref)
	assert.False(t, ok)
}

func TestDecodeSpacing(t *testing.T) {
	s := DecodeSpacing(map[string]any{"top": "8px", "left": 4.0})
	assert.Equal(t, Spacing{Top: Px(8), Right: Px(0), Bottom: Px(0), Left: Px(4)}, s)

	s = DecodeSpacing(map[string]any{"vertical": "1rem", "horizontal": 12.0, "top": 2.0})
	assert.Equal(t, Spacing{Top: Px(2), Right: Px(12), Bottom: Rem(1), Left: Px(12)}, s)

	assert.Equal(t, Uniform(Px(10)), DecodeSpacing(10.0))
	assert.Equal(t, Uniform(Percent(5)), DecodeSpacing("5%"))
	assert.Equal(t, Uniform(Px(0)), DecodeSpacing(nil))
	assert.Equal(t, Uniform(Px(0)), DecodeSpacing(map[string]any{}))
}

func TestInsetsStackPaddingAndMargin(t *testing.T) {
	padding := Uniform(Px(8))
	margin := Spacing{Top: Px(4), Right: Percent(10), Bottom: Px(0), Left: Px(0)}

	e := Insets(&padding, &margin, Reference{Container: 100})
	assert.Equal(t, Edges{Top: 12, Right: 18, Bottom: 8, Left: 8}, e)
	assert.Equal(t, Edges{}, Insets(nil, nil, Reference{}))
}
