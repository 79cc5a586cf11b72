package relay

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const maxNameLen = 50

// SanitizeName trims whitespace, strips control characters and truncates to
// 50 characters. Returns false when nothing usable remains.
func SanitizeName(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()
	if s == "" {
		return "", false
	}
	if runes := []rune(s); len(runes) > maxNameLen {
		s = string(runes[:maxNameLen])
	}
	return s, true
}

// ValidLatLng reports whether the pair is a finite coordinate on Earth.
func ValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// coerceFloat converts a wire value to float64. Clients send coordinates
// either as JSON numbers or as strings; anything else fails coercion.
func coerceFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// optFloat passes an optional field through only when it arrived as a
// number. Strings are deliberately not coerced here; only lat/lng get that
// treatment.
func optFloat(v any) *float64 {
	if f, ok := v.(float64); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return &f
	}
	return nil
}
