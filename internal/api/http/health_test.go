package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	configured bool
	err        error
}

func (f fakeRemote) Mode() string {
	if f.configured {
		return "remote"
	}
	return "local-only"
}

func (f fakeRemote) RemoteConfigured() bool     { return f.configured }
func (f fakeRemote) Ping(context.Context) error { return f.err }

func check(t *testing.T, h *HealthHandler) HealthResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth_LocalOnly(t *testing.T) {
	resp := check(t, NewHealthHandler("schedule", "test", fakeRemote{}, nil))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "local-only", resp.Mode)
	assert.Equal(t, "disabled", resp.DB)
	assert.Equal(t, "disabled", resp.Redis)
	assert.Equal(t, "test", resp.Version)
}

func TestHealth_RemoteAndRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	resp := check(t, NewHealthHandler("schedule", "test", fakeRemote{configured: true}, client))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "remote", resp.Mode)
	assert.Equal(t, "up", resp.DB)
	assert.Equal(t, "up", resp.Redis)

	resp = check(t, NewHealthHandler("schedule", "test", fakeRemote{configured: true, err: errors.New("down")}, client))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.DB)
}
