package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, false)
	var dbErr error
	r := gin.New()
	NewHealthHandler(env.boot, map[string]Probe{
		"backend": func(ctx context.Context) error { return dbErr },
		"redis":   nil,
	}).Register(r)

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	require.Equal(t, http.StatusOK, get("/health").Code)

	w := get("/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code, "identity not resolved yet")

	_, err := env.boot.Wait(context.Background())
	require.NoError(t, err)
	w = get("/ready")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Deps map[string]bool
	}
	decode(t, w, &body)
	require.NotContains(t, body.Deps, "redis")
	require.True(t, body.Deps["backend"])

	dbErr = errors.New("down")
	require.Equal(t, http.StatusServiceUnavailable, get("/ready").Code)
}
