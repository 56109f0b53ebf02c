package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"teamy/internal/api/health"
	"teamy/pkg/logger"
)

func TestRoutes(t *testing.T) {
	log := logger.NewNop()
	webhookHit := false
	webhook := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		webhookHit = true
		w.WriteHeader(http.StatusOK)
	})

	mux := newMux(ServerConfig{ServiceName: "teamy", Version: "1.0.0", TelegramWebhook: webhook}, health.New(log, "teamy", "1.0.0"), log)

	tests := []struct {
		path string
		code int
	}{
		{path: "/live", code: http.StatusOK},
		{path: "/ready", code: http.StatusOK},
		{path: "/metrics", code: http.StatusOK},
		{path: "/", code: http.StatusOK},
		{path: "/unknown", code: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	assert.True(t, webhookHit)
}

func TestRoutes_NoWebhook(t *testing.T) {
	log := logger.NewNop()
	mux := newMux(ServerConfig{}, health.New(log, "teamy", "dev"), log)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, WebhookPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
