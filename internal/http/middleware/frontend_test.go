package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontendValidator(t *testing.T) {
	v := NewFrontendValidator(NewCORSPolicy(testCORSConfig()), "")

	tests := []struct {
		name    string
		marker  bool
		origin  string
		referer string
		allowed bool
	}{
		{"no marker", false, "", "", true},
		{"no marker foreign origin", false, "https://evil.com", "", true},
		{"marker with allowed origin", true, "https://app.example.org", "", true},
		{"marker with allowed referer", true, "", "https://shop.example.com/checkout?x=1", true},
		{"marker without origin", true, "", "", false},
		{"marker with foreign origin", true, "https://evil.com", "", false},
		{"marker with foreign referer", true, "", "https://evil.com/", false},
		{"marker with broken referer", true, "", "not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			if tt.marker {
				req.AddCookie(&http.Cookie{Name: DefaultFrontendCookieName, Value: "1"})
			}
			if tt.origin != "" {
				req.Header.Set(echo.HeaderOrigin, tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(req, rec)

			reached := false
			require.NoError(t, runPipeline(c, okHandler(&reached), v.Gate()))

			assert.Equal(t, tt.allowed, reached)
			if !tt.allowed {
				assert.Equal(t, http.StatusForbidden, rec.Code)
				body := decode(t, rec)
				assert.Equal(t, "FRONTEND_REJECTED", body["error"])
				assert.Equal(t, "Invalid frontend request", body["message"])
				assert.Equal(t, "/api/bookings", body["path"])
			}
		})
	}
}

func TestRefererOrigin(t *testing.T) {
	assert.Equal(t, "https://a.example.com", refererOrigin("https://a.example.com/path?q=1"))
	assert.Equal(t, "http://localhost:3000", refererOrigin("http://localhost:3000/"))
	assert.Empty(t, refererOrigin(""))
	assert.Empty(t, refererOrigin("/relative/path"))
}
