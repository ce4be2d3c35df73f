package di

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"relmap-backend/application/services"
	"relmap-backend/infrastructure/config"
	"relmap-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config    *config.Config
	Logger    *zap.Logger
	Tracing   *observability.TracerProvider
	Collector *observability.Collector
	Sessions  *services.SessionRegistry
	Autosaver *services.Autosaver
	Handler   http.Handler
}

// Shutdown writes pending autosaves, closes every session and flushes telemetry
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Autosaver != nil {
		c.Autosaver.Flush()
	}
	c.Sessions.Close()
	err := c.Tracing.Shutdown(ctx)
	_ = c.Logger.Sync()
	return err
}
