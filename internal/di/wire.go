//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/handlers"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideStorage,
	ProvideMetrics,
	ProvideCloudWatchPublisher,
	ProvideTracer,
	ProvideNotifier,
	ProvidePublisher,
	ProvideImageUploads,
	ProvideServiceDeps,
	ProvideSprintService,
	ProvideCertificationService,
	ProvideStoreService,
	ProvideUserService,
	wire.Struct(new(handlers.Services), "*"),
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
