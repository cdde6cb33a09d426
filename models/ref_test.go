package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMarker(t *testing.T) {
	tests := []struct {
		in   string
		kind string
		key  string
		ok   bool
	}{
		{Marker("Band", "Beta"), "Band", "Beta", true},
		{Marker("Location", `SO36, "Kreuzberg"`), "Location", `SO36, "Kreuzberg"`, true},
		{Marker("Genre", ""), "Genre", "", true},
		{Marker("Festival event", "abc"), "Festival event", "abc", true},
		{"Beta", "", "", false},
		{"ERROR: Band Beta not found", "", "", false},
		{"ERROR: Band \"Beta\"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, key, ok := ParseMarker(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.key, key)
		})
	}
}
