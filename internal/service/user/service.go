// Package user manages member profiles. Balances are read here but only
// ever changed by the store and sprint services.
package user

import (
	"context"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository"
	svc "awsugmdu-backend/internal/service"
	appErrors "awsugmdu-backend/pkg/errors"
	"awsugmdu-backend/pkg/validation"

	"go.uber.org/zap"
)

// UpdateProfileInput is the editable part of a profile.
type UpdateProfileInput struct {
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"max=200"`
}

func (in UpdateProfileInput) Validate() error { return validation.Struct(in) }

type Service interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// UpdateProfile creates the user on first use and never touches points.
	UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.User, error)
}

type service struct {
	users repository.UserStore
	deps  svc.Deps
}

func NewService(users repository.UserStore, deps svc.Deps) Service {
	return &service{users: users, deps: deps}
}

func (s *service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, appErrors.NewValidation("user id is required")
	}
	return s.users.Get(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*domain.User, error) {
	if id == "" {
		return nil, appErrors.NewValidation("user id is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	u, err := s.users.Upsert(ctx, id, in.Email, in.Name, s.deps.Now())
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to save user profile")
	}
	s.deps.Logger.Info("User profile saved", zap.String("userId", id))
	return u, nil
}
