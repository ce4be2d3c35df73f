package di

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"relmap-backend/application/ports"
	"relmap-backend/application/services"
	"relmap-backend/domain/events"
	"relmap-backend/infrastructure/config"
	"relmap-backend/infrastructure/persistence/autosave"
	"relmap-backend/infrastructure/persistence/snapshot"
	"relmap-backend/interfaces/http/rest"
	"relmap-backend/interfaces/http/rest/handlers"
	pkgerrors "relmap-backend/pkg/errors"
	"relmap-backend/pkg/observability"
)

const (
	serviceName = "relmap-api"
	// Version is reported by /health
	Version = "1.0.0"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// ProvideTracing starts the OTLP exporter when tracing is enabled. A nil
// provider means tracing is off.
func ProvideTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(ctx, serviceName, string(cfg.Environment), cfg.OTLPEndpoint)
}

// ProvideCollector creates the Prometheus collector
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("relmap")
}

// ProvideCodec creates the snapshot codec shared by every session
func ProvideCodec(cfg *config.Config, tp *observability.TracerProvider, logger *zap.Logger) *snapshot.Codec {
	return snapshot.NewCodec(
		snapshot.WithAppTag(cfg.AppTag),
		snapshot.WithStrictReferences(cfg.StrictReferences),
		snapshot.WithMaxBytes(cfg.MaxSnapshotBytes),
		snapshot.WithTracer(tp.Tracer()),
		snapshot.WithLogger(logger),
	)
}

// ProvideAutosaver creates the file-backed autosaver. A nil autosaver means
// autosave is off.
func ProvideAutosaver(cfg *config.Config, codec *snapshot.Codec, logger *zap.Logger) *services.Autosaver {
	if cfg.AutosaveDir == "" {
		return nil
	}
	return services.NewAutosaver(autosave.NewStore(cfg.AutosaveDir), codec, cfg.AutosaveDelay, logger)
}

// ProvideSessionRegistry creates the registry hosting the editor sessions
func ProvideSessionRegistry(
	cfg *config.Config,
	codec *snapshot.Codec,
	autosaver *services.Autosaver,
	collector *observability.Collector,
	logger *zap.Logger,
) *services.SessionRegistry {
	sc := services.SessionConfig{
		HistoryLimit: cfg.HistoryLimit,
		Codec:        codec,
		Logger:       logger,
	}
	var registry *services.SessionRegistry
	if cfg.EnableMetrics {
		sc.Metrics = collector
		registry = services.NewSessionRegistry(sc, collector, logger)
	} else {
		registry = services.NewSessionRegistry(sc, nil, logger)
	}
	registry.OnCreate(func(s *services.Session) {
		s.Subscribe(changeLogger(logger))
	})
	if autosaver != nil {
		registry.OnCreate(autosaver.Attach)
	}
	return registry
}

// changeLogger reports every committed change at debug level
func changeLogger(logger *zap.Logger) ports.ChangeListener {
	return func(sessionID string, changes []events.DomainEvent) {
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			return
		}
		for _, c := range changes {
			logger.Debug("document changed",
				zap.String("session", sessionID),
				zap.String("event", c.GetEventType()),
				zap.String("id", c.GetAggregateID()),
				zap.Int("revision", c.GetVersion()),
			)
		}
	}
}

// ProvideErrorHandler creates the JSON error handler
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideSessionHandler creates the session handler
func ProvideSessionHandler(
	cfg *config.Config,
	registry *services.SessionRegistry,
	codec *snapshot.Codec,
	autosaver *services.Autosaver,
	collector *observability.Collector,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.SessionHandler {
	var observer handlers.ImportObserver
	if cfg.EnableMetrics {
		observer = collector
	}
	return handlers.NewSessionHandler(registry, codec, autosaver, observer, errs, logger)
}

// ProvideRouter creates the router with metrics wired when enabled
func ProvideRouter(
	cfg *config.Config,
	sessions *handlers.SessionHandler,
	characters *handlers.CharacterHandler,
	relations *handlers.RelationHandler,
	sheets *handlers.SheetHandler,
	groups *handlers.GroupHandler,
	collector *observability.Collector,
	logger *zap.Logger,
) *rest.Router {
	rcfg := rest.RouterConfig{AllowedOrigins: cfg.AllowedOrigins, Version: Version}
	if !cfg.EnableMetrics {
		return rest.NewRouter(rcfg, sessions, characters, relations, sheets, groups, nil, nil, logger)
	}
	return rest.NewRouter(rcfg, sessions, characters, relations, sheets, groups, collector.Handler(), collector, logger)
}

// ProvideHTTPHandler builds the handler tree
func ProvideHTTPHandler(router *rest.Router) http.Handler {
	return router.Setup()
}
