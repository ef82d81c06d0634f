// Command sprint-status is a scheduled Lambda (EventBridge rule) that writes
// the derived status back to every sprint whose stored status is stale, so
// reads never have to.
package main

import (
	"context"
	"log"

	"awsugmdu-backend/internal/config"
	"awsugmdu-backend/internal/di"
	"awsugmdu-backend/internal/observability"
	"awsugmdu-backend/internal/service/sprint"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Result is returned to the scheduler for visibility in the invocation log.
type Result struct {
	Updated int `json:"updated"`
}

func newHandler(sprints sprint.Service, metrics *observability.CloudWatchPublisher, logger *zap.Logger) func(context.Context, events.CloudWatchEvent) (Result, error) {
	return func(ctx context.Context, event events.CloudWatchEvent) (Result, error) {
		defer func() { _ = metrics.Flush(ctx) }()

		updated, err := sprints.RefreshStatuses(ctx)
		if err != nil {
			logger.Error("Sprint status refresh failed", zap.String("eventID", event.ID), zap.Error(err))
			return Result{}, err
		}
		logger.Info("Sprint statuses refreshed", zap.String("eventID", event.ID), zap.Int("updated", updated))
		return Result{Updated: updated}, nil
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	container, err := di.InitializeContainer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Shutdown()

	lambda.Start(newHandler(container.Sprints, container.CloudWatch, container.Logger))
}
