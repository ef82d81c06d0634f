package repository

import (
	"context"
	"time"

	appErrors "awsugmdu-backend/pkg/errors"
)

// RetryPolicy controls how Mutate and Retry react to version conflicts.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	// OnConflict is called before each retry.
	OnConflict func(id string, attempt int)
}

// DefaultRetryPolicy retries twice with 50ms and 100ms pauses.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 50 * time.Millisecond}

// Retry runs op until it succeeds, fails with something other than a
// CONFLICT, or the policy's attempts are used up. op must reload whatever it
// writes, since a conflict means its snapshot is stale.
func Retry(ctx context.Context, policy RetryPolicy, id string, op func() error) error {
	attempts := max(policy.Attempts, 1)

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil || !appErrors.IsConflict(err) || attempt == attempts-1 {
			return err
		}

		if policy.OnConflict != nil {
			policy.OnConflict(id, attempt+1)
		}
		delay := policy.BaseDelay * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Mutate applies fn to a freshly loaded aggregate and saves it with a version
// check. When another writer saved in between, the load-apply-save cycle is
// repeated so no concurrent change is lost. An error from fn aborts without
// writing. The saved aggregate is returned.
func Mutate[T any, PT AggregatePtr[T]](ctx context.Context, policy RetryPolicy, store AggregateStore[T], id string, fn func(PT) error) (PT, error) {
	var saved PT
	err := Retry(ctx, policy, id, func() error {
		item, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		agg := PT(item)
		if err := fn(agg); err != nil {
			return err
		}
		if err := store.Save(ctx, item); err != nil {
			return err
		}
		saved = agg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
