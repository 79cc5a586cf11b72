package relay

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", "R1", "R1", true},
		{"trimmed", "  Route 7  ", "Route 7", true},
		{"control chars stripped", "R\x001\x1f\x7f", "R1", true},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"control only", "\x01\x02\x03", "", false},
		{"unicode kept", "Línea Ñ", "Línea Ñ", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SanitizeName(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeNameTruncatesAt50(t *testing.T) {
	long := strings.Repeat("a", 60)
	got, ok := SanitizeName(long)
	require.True(t, ok)
	assert.Len(t, got, 50)

	// rune-based, not byte-based
	got, ok = SanitizeName(strings.Repeat("ñ", 60))
	require.True(t, ok)
	assert.Equal(t, 50, len([]rune(got)))
}

func TestValidLatLng(t *testing.T) {
	assert.True(t, ValidLatLng(0, 0))
	assert.True(t, ValidLatLng(-90, -180))
	assert.True(t, ValidLatLng(90, 180))
	assert.True(t, ValidLatLng(14.09, 121.02))

	assert.False(t, ValidLatLng(90.0001, 0))
	assert.False(t, ValidLatLng(-91, 0))
	assert.False(t, ValidLatLng(0, 180.5))
	assert.False(t, ValidLatLng(0, -200))
	assert.False(t, ValidLatLng(math.NaN(), 0))
	assert.False(t, ValidLatLng(0, math.Inf(1)))
}

func TestCoerceFloat(t *testing.T) {
	f, ok := coerceFloat(14.09)
	require.True(t, ok)
	assert.Equal(t, 14.09, f)

	f, ok = coerceFloat("121.02")
	require.True(t, ok)
	assert.Equal(t, 121.02, f)

	f, ok = coerceFloat(" -3.5 ")
	require.True(t, ok)
	assert.Equal(t, -3.5, f)

	f, ok = coerceFloat(json.Number("7"))
	require.True(t, ok)
	assert.Equal(t, 7.0, f)

	for _, v := range []any{"abc", "", nil, true, []any{1.0}, map[string]any{}} {
		_, ok := coerceFloat(v)
		assert.False(t, ok, "value %#v must fail coercion", v)
	}
}

func TestOptFloat(t *testing.T) {
	p := optFloat(42.0)
	require.NotNil(t, p)
	assert.Equal(t, 42.0, *p)

	assert.Nil(t, optFloat("42"))
	assert.Nil(t, optFloat(nil))
	assert.Nil(t, optFloat(math.NaN()))
}
