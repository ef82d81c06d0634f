// Package service holds what the sprint, certification, store and user
// services share: the clock, the retry policy and the best-effort side
// effects that follow a successful write.
package service

import (
	"context"
	"time"

	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/observability"
	"awsugmdu-backend/internal/repository"

	"go.uber.org/zap"
)

// Deps carries the collaborators every service needs.
type Deps struct {
	Logger   *zap.Logger
	Metrics  *observability.Collector
	Notifier notify.Notifier
	Events   events.Publisher
	Effects  *notify.Dispatcher
	Tracer   *observability.Tracer
	Retry    repository.RetryPolicy
	Now      func() time.Time
}

// NewDeps wires a dispatcher that reports outcomes to metrics.
func NewDeps(logger *zap.Logger, metrics *observability.Collector, notifier notify.Notifier, publisher events.Publisher) Deps {
	return Deps{
		Logger:   logger,
		Metrics:  metrics,
		Notifier: notifier,
		Events:   publisher,
		Effects:  notify.NewDispatcher(logger, metrics.ObserveSideEffect),
		Retry:    repository.DefaultRetryPolicy,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// RetryFor returns the retry policy with conflicts counted under aggregate.
func (d Deps) RetryFor(aggregate string) repository.RetryPolicy {
	policy := d.Retry
	policy.OnConflict = d.Metrics.ObserveRetry(aggregate)
	return policy
}

// Email sends a best-effort notification.
func (d Deps) Email(ctx context.Context, name string, send func(ctx context.Context, n notify.Notifier) error) {
	d.Effects.Dispatch(ctx, "email."+name, func(ctx context.Context) error {
		return d.Tracer.Trace(ctx, "email."+name, func(ctx context.Context) error {
			return send(ctx, d.Notifier)
		})
	})
}

// Publish emits a best-effort domain event.
func (d Deps) Publish(ctx context.Context, eventType, aggregateID string, detail any) {
	event := events.Event{Type: eventType, AggregateID: aggregateID, Detail: detail, Time: d.Now()}
	d.Effects.Dispatch(ctx, "event."+eventType, func(ctx context.Context) error {
		return d.Tracer.Trace(ctx, "event."+eventType, func(ctx context.Context) error {
			return d.Events.Publish(ctx, event)
		})
	})
}
