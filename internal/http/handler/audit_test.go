package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auth-gateway/internal/audit"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReader struct {
	filter audit.QueryFilter
	events []*audit.Event
	err    error
}

func (r *stubReader) Query(_ context.Context, filter audit.QueryFilter) ([]*audit.Event, error) {
	r.filter = filter
	return r.events, r.err
}

func auditRequest(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuditHandler_List(t *testing.T) {
	reader := &stubReader{events: []*audit.Event{{Gate: "csrf", Status: audit.StatusDenied}}}
	h := NewAuditHandler(reader)

	c, rec := auditRequest("/api/admin/audit?gate=csrf&actor_id=u1&ip=10.0.0.1&since=2026-01-01T00:00:00Z&limit=20&offset=40")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "csrf", reader.filter.Gate)
	assert.Equal(t, "u1", reader.filter.ActorID)
	assert.Equal(t, "10.0.0.1", reader.filter.IPAddress)
	require.NotNil(t, reader.filter.StartTime)
	assert.True(t, reader.filter.StartTime.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, reader.filter.EndTime)
	assert.Equal(t, 20, reader.filter.Limit)
	assert.Equal(t, 40, reader.filter.Offset)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "denied", data[0].(map[string]any)["status"])
}

func TestAuditHandler_InvalidParams(t *testing.T) {
	for _, target := range []string{
		"/api/admin/audit?since=yesterday",
		"/api/admin/audit?until=2026-13-01",
		"/api/admin/audit?limit=-1",
		"/api/admin/audit?limit=501",
		"/api/admin/audit?offset=x",
	} {
		reader := &stubReader{}
		c, rec := auditRequest(target)
		require.NoError(t, NewAuditHandler(reader).List(c), target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "BAD_REQUEST", target)
	}
}

func TestAuditHandler_ReaderFailure(t *testing.T) {
	h := NewAuditHandler(&stubReader{err: errors.New("connection refused")})

	c, _ := auditRequest("/api/admin/audit")
	err := h.List(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to query audit events")
}
