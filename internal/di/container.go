// Package di wires the application together with google/wire.
package di

import (
	"context"

	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/observability"
	"awsugmdu-backend/internal/service/sprint"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Collector
	Storage *Storage
	Sprints sprint.Service
	Handler *chi.Mux

	// CloudWatch is nil unless a namespace is configured.
	CloudWatch *observability.CloudWatchPublisher
	Tracer     *observability.Tracer
}

// FlushMetrics pushes counters to CloudWatch at the end of a Lambda
// invocation. Failures are logged by the publisher.
func (c *Container) FlushMetrics(ctx context.Context) {
	_ = c.CloudWatch.Flush(ctx)
}

// Shutdown flushes buffered logs.
func (c *Container) Shutdown() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
