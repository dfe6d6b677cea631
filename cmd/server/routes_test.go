package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/azaan/internal/config"
	"github.com/Nixie-Tech-LLC/azaan/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/azaan/internal/notify"
	"github.com/Nixie-Tech-LLC/azaan/internal/praytime"
	"github.com/Nixie-Tech-LLC/azaan/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		JWTSecret:        "secret",
		Latitude:         19.0760,
		Longitude:        72.8777,
		Timezone:         "Asia/Kolkata",
		Method:           praytime.MethodMWL,
		Asr:              praytime.AsrStandard,
		HighLatitude:     praytime.HighLatitudeNone,
		StateBackend:     config.BackendBolt,
		StateFile:        filepath.Join(dir, "state.db"),
		AssetDir:         dir,
		AzaanAsset:       "azaan.wav",
		FallbackSchedule: "@every 15m",
		LockTTL:          time.Minute,
	}
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg := testConfig(t)
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.November, 3, 4, 30, 0, 0, time.UTC))

	store, err := InitState(context.Background(), cfg, clock)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc, err := service.New(service.Options{
		Geo:              cfg.Geo(),
		Platform:         notify.NewLocal(clock, true),
		Store:            store,
		Clock:            clock,
		Assets:           InitStorage(cfg),
		AssetName:        cfg.AzaanAsset,
		FallbackSchedule: cfg.FallbackSchedule,
		LockTTL:          cfg.LockTTL,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Init(context.Background()))
	t.Cleanup(func() { _ = svc.Shutdown(context.Background()) })

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, cfg, svc)
	return r
}

func TestRoutes(t *testing.T) {
	r := newTestRouter(t)
	token, err := middleware.GenerateJWT("operator", "secret")
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		auth   bool
		code   int
	}{
		{name: "health", method: http.MethodGet, path: "/health-check", code: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", code: http.StatusOK},
		{name: "today", method: http.MethodGet, path: "/api/prayers/today", code: http.StatusOK},
		{name: "next", method: http.MethodGet, path: "/api/prayers/next", code: http.StatusOK},
		{name: "by date", method: http.MethodGet, path: "/api/prayers/2024-12-25", code: http.StatusOK},
		{name: "alarms without token", method: http.MethodGet, path: "/api/alarms", code: http.StatusUnauthorized},
		{name: "alarms", method: http.MethodGet, path: "/api/alarms", auth: true, code: http.StatusOK},
		{name: "state", method: http.MethodGet, path: "/api/alarms/state", auth: true, code: http.StatusOK},
		{name: "rebuild", method: http.MethodPost, path: "/api/alarms/rebuild", auth: true, code: http.StatusOK},
		{name: "history without database", method: http.MethodGet, path: "/api/alarms/history", auth: true, code: http.StatusServiceUnavailable},
		{name: "play without audio", method: http.MethodPost, path: "/api/azaan/play", auth: true, code: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}
}

func TestStateEndpointReportsArmedDay(t *testing.T) {
	r := newTestRouter(t)
	token, err := middleware.GenerateJWT("operator", "secret")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/alarms/state", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			State  string `json:"state"`
			DayKey string `json:"dayKey"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "armed", body.Data.State)
	assert.Equal(t, "2024-11-03", body.Data.DayKey)
}
