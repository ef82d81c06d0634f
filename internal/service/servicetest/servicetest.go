// Package servicetest provides fakes shared by the service tests.
package servicetest

import (
	"context"
	"sync"
	"time"

	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/observability"
	"awsugmdu-backend/internal/repository"
	"awsugmdu-backend/internal/service"

	"go.uber.org/zap"
)

// Now is the fixed time service tests run at.
var Now = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

// Recorder captures sent emails and published events. Setting Err makes
// every call fail after being recorded.
type Recorder struct {
	mu     sync.Mutex
	Emails []string
	Events []events.Event
	Err    error

	LastOrder      notify.OrderEmail
	LastSubmission notify.SubmissionEmail
	LastSession    notify.SessionEmail
}

var (
	_ notify.Notifier  = (*Recorder)(nil)
	_ events.Publisher = (*Recorder)(nil)
)

func (r *Recorder) record(kind string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Emails = append(r.Emails, kind)
	return r.Err
}

func (r *Recorder) OrderCompleted(ctx context.Context, e notify.OrderEmail) error {
	r.LastOrder = e
	return r.record(string(notify.KindOrderCompleted))
}

func (r *Recorder) CodeDelivered(ctx context.Context, e notify.OrderEmail) error {
	r.LastOrder = e
	return r.record(string(notify.KindCodeDelivered))
}

func (r *Recorder) OrderReceived(ctx context.Context, e notify.OrderEmail) error {
	r.LastOrder = e
	return r.record(string(notify.KindOrderReceived))
}

func (r *Recorder) SubmissionReviewed(ctx context.Context, e notify.SubmissionEmail) error {
	r.LastSubmission = e
	return r.record(string(notify.KindSubmissionReviewed))
}

func (r *Recorder) SessionRegistered(ctx context.Context, e notify.SessionEmail) error {
	r.LastSession = e
	return r.record(string(notify.KindSessionRegistered))
}

func (r *Recorder) Publish(ctx context.Context, evs ...events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, evs...)
	return r.Err
}

// EventTypes lists the types of the published events in order.
func (r *Recorder) EventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		types = append(types, e.Type)
	}
	return types
}

// NewDeps returns service dependencies with a fixed clock, a millisecond
// retry backoff and rec as both notifier and publisher.
func NewDeps(rec *Recorder) service.Deps {
	deps := service.NewDeps(zap.NewNop(), observability.NewCollector("test"), rec, rec)
	deps.Retry = repository.RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}
	deps.Now = func() time.Time { return Now }
	return deps
}
