package middleware

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"auth-gateway/internal/gateway"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

func runPipeline(c echo.Context, handler echo.HandlerFunc, gates ...gateway.Gate) error {
	return gateway.New(gates...).Middleware()(handler)(c)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
