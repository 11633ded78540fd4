package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no query", "/api/me", "/api/me"},
		{"empty query", "/api/me?", "/api/me?"},
		{"harmless query", "/api/bookings?page=2", "/api/bookings?page=2"},
		{"token", "/api/stream?token=abc.def.ghi", "/api/stream?token=%5BREDACTED%5D"},
		{"token with others", "/api/stream?page=1&token=abc", "/api/stream?page=1&token=%5BREDACTED%5D"},
		{"csrf field", "/form?_csrf=xyz", "/form?_csrf=%5BREDACTED%5D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeURI(tt.in))
		})
	}
}

func TestSanitizeLogMessage(t *testing.T) {
	out := SanitizeLogMessage("login failed password=hunter2 token: abc&next=1")
	assert.NotContains(t, out, "hunter2")
	assert.NotContains(t, out, "abc")
	assert.Contains(t, out, "next=1")
}

func TestSanitizeMap(t *testing.T) {
	out := SanitizeMap(map[string]any{
		"Authorization": "Bearer x",
		"x-api-key":     "k",
		"path":          "/api/me",
	})
	assert.Equal(t, redactedPlaceholder, out["Authorization"])
	assert.Equal(t, redactedPlaceholder, out["x-api-key"])
	assert.Equal(t, "/api/me", out["path"])
}

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: FormatJSON, Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), `"service":"auth-gateway"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("bogus"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
}
