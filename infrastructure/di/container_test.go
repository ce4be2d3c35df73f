package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relmap-backend/infrastructure/config"
)

func TestInitializeContainer(t *testing.T) {
	tests := []struct {
		name          string
		enableMetrics bool
		metricsStatus int
	}{
		{"metrics enabled", true, http.StatusOK},
		{"metrics disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.EnableMetrics = tt.enableMetrics

			c, err := InitializeContainer(context.Background(), cfg)
			require.NoError(t, err)
			defer func() { _ = c.Shutdown(context.Background()) }()

			rec := httptest.NewRecorder()
			c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = httptest.NewRecorder()
			c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			assert.Equal(t, tt.metricsStatus, rec.Code)

			rec = httptest.NewRecorder()
			c.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
			assert.Equal(t, http.StatusCreated, rec.Code)
			assert.Len(t, c.Sessions.IDs(), 1)
		})
	}
}

func TestProvideLoggerRejectsUnknownLevel(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "loud"
	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}
