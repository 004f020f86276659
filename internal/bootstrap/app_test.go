package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docinsight-backend/internal/shared/config"
)

func TestBuildFallsBackToMemoryInDev(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), config.Config{Env: "dev", LocalStoreDir: t.TempDir()})
	require.NoError(t, err)
	defer app.Close()

	assert.Nil(t, app.DB)
	assert.Nil(t, app.Assistant)
	assert.Equal(t, "local", app.Store.Provider())
	assert.NotNil(t, app.Router)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"memory"`)
}

func TestBuildRequiresDatabaseInProduction(t *testing.T) {
	_, err := Build(context.Background(), config.Config{Env: "production", LocalStoreDir: t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestBuildLLMWrapsProvider(t *testing.T) {
	client, err := BuildLLM(context.Background(), config.Config{LLMProvider: "none"})
	require.NoError(t, err)
	assert.Nil(t, client)

	client, err = BuildLLM(context.Background(), config.Config{LLMProvider: "openai", OpenAIAPIKey: "sk-test"})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "openai", client.Provider())

	_, err = BuildLLM(context.Background(), config.Config{LLMProvider: "openai"})
	assert.Error(t, err)
}

func TestRouterServesMetricsWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(context.Background(), config.Config{Env: "dev", LocalStoreDir: t.TempDir()})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_in_flight_requests")
}

func TestRouterRateLimitsUploadsSeparately(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Env:                   "dev",
		LocalStoreDir:         t.TempDir(),
		RateLimitDefaultRPS:   100,
		RateLimitDefaultBurst: 100,
		RateLimitUploadRPS:    0.001,
		RateLimitUploadBurst:  1,
	}
	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader(""))
		req.Header.Set("X-Guest-Id", "limited")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusBadRequest, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-Guest-Id", "limited")
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
