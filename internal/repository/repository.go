// Package repository defines the persistence contracts for aggregate
// documents. Implementations live in the ddb (DynamoDB) and memory packages.
package repository

import (
	"context"
	"time"

	"awsugmdu-backend/internal/domain"
	appErrors "awsugmdu-backend/pkg/errors"
)

// AggregatePtr constrains a type parameter to a pointer to an aggregate.
type AggregatePtr[T any] interface {
	*T
	domain.Aggregate
}

// Filter is an equality condition on a top-level attribute.
type Filter struct {
	Attribute string
	Value     string
}

// AggregateStore persists whole aggregate documents keyed by id.
//
// Save is conditional on the aggregate's current version and increments it
// on success; a concurrent writer causes a CONFLICT error. Create sets the
// version to 1 and fails with CONFLICT when the id already exists. Get and
// Delete return NOT_FOUND for unknown ids.
type AggregateStore[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, filters ...Filter) ([]*T, error)
	Create(ctx context.Context, item *T) error
	Save(ctx context.Context, item *T) error
	Delete(ctx context.Context, id string) error
}

type SprintStore = AggregateStore[domain.Sprint]
type GroupStore = AggregateStore[domain.CertificationGroup]
type ItemStore = AggregateStore[domain.StoreItem]
type OrderStore = AggregateStore[domain.Order]

// UserStore manages user profiles. Points are only changed through
// AdjustPoints or Transactions, so concurrent profile edits and point
// movements never overwrite each other. A credit to an unknown user creates
// the record; a debit requires an existing user with enough points.
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Upsert(ctx context.Context, id, email, name string, now time.Time) (*domain.User, error)
	AdjustPoints(ctx context.Context, id string, delta int, now time.Time) (*domain.User, error)
}

// Redemption is the all-or-nothing write set of a store redemption.
type Redemption struct {
	UserID string
	Cost   int
	Order  *domain.Order
	Item   *domain.StoreItem
	Now    time.Time
}

// CodeAssignment writes an order's code and the item it was taken from.
type CodeAssignment struct {
	Order *domain.Order
	Item  *domain.StoreItem
}

// Cancellation writes a cancelled order, refunds its points and, when Item is
// set, saves the item with its code or stock returned.
type Cancellation struct {
	Order  *domain.Order
	Refund int
	Item   *domain.StoreItem
	Now    time.Time
}

// SubmissionReview saves a reviewed sprint and credits the submitter.
type SubmissionReview struct {
	Sprint *domain.Sprint
	UserID string
	Credit int
	Now    time.Time
}

// Transactions groups the compound writes that must commit atomically.
// Saved aggregates have their versions advanced on success.
type Transactions interface {
	CommitRedemption(ctx context.Context, r Redemption) error
	CommitCodeAssignment(ctx context.Context, a CodeAssignment) error
	CommitCancellation(ctx context.Context, c Cancellation) error
	CommitSubmissionReview(ctx context.Context, r SubmissionReview) error
}

// ErrInsufficientPoints is returned when a debit would take a balance below zero.
var ErrInsufficientPoints = appErrors.NewValidation("insufficient points")
