//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"relmap-backend/infrastructure/config"
	"relmap-backend/interfaces/http/rest/handlers"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideTracing,
	ProvideCollector,
	ProvideCodec,
	ProvideAutosaver,
	ProvideSessionRegistry,
	ProvideErrorHandler,
	ProvideSessionHandler,
	handlers.NewCharacterHandler,
	handlers.NewRelationHandler,
	handlers.NewSheetHandler,
	handlers.NewGroupHandler,
	ProvideRouter,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
