package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeout_SlowHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	h := Timeout(20 * time.Millisecond)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})

	require.NoError(t, h(c))
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "REQUEST_TIMEOUT", body["error"])
	assert.Equal(t, "Request timeout", body["message"])
}

func TestTimeout_CommittedResponseIsKept(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	h := Timeout(20 * time.Millisecond)(func(c echo.Context) error {
		if err := c.String(http.StatusAccepted, "partial"); err != nil {
			return err
		}
		<-c.Request().Context().Done()
		return nil
	})

	require.NoError(t, h(c))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestTimeout_FastHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	var deadline time.Time
	h := Timeout(0)(func(c echo.Context) error {
		deadline, _ = c.Request().Context().Deadline()
		return c.NoContent(http.StatusNoContent)
	})

	require.NoError(t, h(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.WithinDuration(t, time.Now().Add(DefaultRequestTimeout), deadline, 5*time.Second)
}

func TestTimeout_HandlerIgnoringContext(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	release := make(chan struct{})
	finished := make(chan error, 1)
	h := Timeout(50 * time.Millisecond)(func(c echo.Context) error {
		<-release
		err := c.String(http.StatusOK, "late")
		finished <- err
		return err
	})

	start := time.Now()
	require.NoError(t, h(c))
	assert.Less(t, time.Since(start), time.Second)

	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
	assert.Equal(t, http.StatusRequestTimeout, c.Response().Status)
	assert.True(t, c.Response().Committed)
	body := decode(t, rec)
	assert.Equal(t, "REQUEST_TIMEOUT", body["error"])

	close(release)
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("handler did not finish")
	}
	assert.NotContains(t, rec.Body.String(), "late")
	assert.Equal(t, http.StatusRequestTimeout, rec.Code)
}

func TestTimeout_HeadersSurviveHandlerError(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	h := Timeout(time.Second)(func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderVary, echo.HeaderOrigin)
		return echo.ErrNotFound
	})

	assert.ErrorIs(t, h(c), echo.ErrNotFound)
	assert.Equal(t, echo.HeaderOrigin, c.Response().Header().Get(echo.HeaderVary))
	assert.False(t, c.Response().Committed)
}

func TestTimeout_PanicReachesRecover(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	h := Timeout(time.Second)(func(c echo.Context) error {
		panic("boom")
	})

	assert.PanicsWithValue(t, "boom", func() { _ = h(c) })
}
