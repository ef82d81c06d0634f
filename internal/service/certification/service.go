// Package certification manages certification study groups: membership,
// the message board with its replies and likes, and scheduled sessions.
// Every operation rewrites the group document under a version check.
package certification

import (
	"context"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository"
	svc "awsugmdu-backend/internal/service"
	appErrors "awsugmdu-backend/pkg/errors"

	"go.uber.org/zap"
)

// Service defines the certification group operations.
type Service interface {
	ListGroups(ctx context.Context) ([]*domain.CertificationGroup, error)
	CreateGroup(ctx context.Context, in CreateGroupInput) (*domain.CertificationGroup, error)
	GetGroup(ctx context.Context, id string) (*domain.CertificationGroup, error)
	UpdateGroup(ctx context.Context, id string, in UpdateGroupInput) (*domain.CertificationGroup, error)
	DeleteGroup(ctx context.Context, id string) error

	Join(ctx context.Context, groupID string, in MemberInput) (*domain.CertificationGroup, error)
	Leave(ctx context.Context, groupID, userID string) (*domain.CertificationGroup, error)

	AddMessage(ctx context.Context, groupID string, in PostInput) (*domain.CertificationGroup, error)
	UpdateMessage(ctx context.Context, groupID, messageID string, in UpdateMessageInput) (*domain.CertificationGroup, error)
	DeleteMessage(ctx context.Context, groupID, messageID string) (*domain.CertificationGroup, error)
	ToggleMessageLike(ctx context.Context, groupID, messageID, userID string) (*domain.CertificationGroup, error)

	AddReply(ctx context.Context, groupID, messageID string, in PostInput) (*domain.CertificationGroup, error)
	UpdateReply(ctx context.Context, groupID, messageID, replyID string, in UpdateReplyInput) (*domain.CertificationGroup, error)
	DeleteReply(ctx context.Context, groupID, messageID, replyID string) (*domain.CertificationGroup, error)
	ToggleReplyLike(ctx context.Context, groupID, messageID, replyID, userID string) (*domain.CertificationGroup, error)

	AddSession(ctx context.Context, groupID string, in SessionInput) (*domain.CertificationGroup, error)
	UpdateSession(ctx context.Context, groupID, sessionID string, in UpdateSessionInput) (*domain.CertificationGroup, error)
	DeleteSession(ctx context.Context, groupID, sessionID string) (*domain.CertificationGroup, error)
}

type service struct {
	groups repository.GroupStore
	deps   svc.Deps
}

// NewService creates a certification group service.
func NewService(groups repository.GroupStore, deps svc.Deps) Service {
	return &service{groups: groups, deps: deps}
}

func (s *service) mutate(ctx context.Context, id string, fn func(*domain.CertificationGroup) error) (*domain.CertificationGroup, error) {
	return repository.Mutate(ctx, s.deps.RetryFor("certification_group"), s.groups, id, func(g *domain.CertificationGroup) error {
		g.Normalize()
		if err := fn(g); err != nil {
			return err
		}
		g.Touch(s.deps.Now())
		return nil
	})
}

// message finds a message or fails with NOT_FOUND.
func message(g *domain.CertificationGroup, id string) (*domain.GroupMessage, error) {
	if m := g.FindMessage(id); m != nil {
		return m, nil
	}
	return nil, appErrors.NewNotFound("Message not found")
}

func reply(m *domain.GroupMessage, id string) (*domain.GroupReply, error) {
	if r := m.FindReply(id); r != nil {
		return r, nil
	}
	return nil, appErrors.NewNotFound("Reply not found")
}

func (s *service) ListGroups(ctx context.Context) ([]*domain.CertificationGroup, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list certification groups")
	}
	for _, g := range groups {
		g.Normalize()
	}
	return groups, nil
}

// CreateGroup makes the creator the first owner and member.
func (s *service) CreateGroup(ctx context.Context, in CreateGroupInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	g := &domain.CertificationGroup{
		ID:            domain.NewID(domain.PrefixGroup, now),
		Name:          in.Name,
		Description:   in.Description,
		Level:         in.Level,
		Certification: in.Certification,
		Owners:        []string{in.CreatedBy},
		CreatedBy:     in.CreatedBy,
	}
	g.Normalize()
	g.AddMember(in.CreatedBy, in.UserName, now)
	g.Touch(now)

	if err := s.groups.Create(ctx, g); err != nil {
		return nil, appErrors.Wrap(err, "failed to create certification group")
	}
	s.deps.Logger.Info("Certification group created", zap.String("groupId", g.ID), zap.String("createdBy", in.CreatedBy))
	return g, nil
}

func (s *service) GetGroup(ctx context.Context, id string) (*domain.CertificationGroup, error) {
	g, err := s.groups.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	g.Normalize()
	return g, nil
}

func (s *service) UpdateGroup(ctx context.Context, id string, in UpdateGroupInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(g *domain.CertificationGroup) error {
		in.apply(g)
		return nil
	})
}

func (s *service) DeleteGroup(ctx context.Context, id string) error {
	if err := s.groups.Delete(ctx, id); err != nil {
		return err
	}
	s.deps.Logger.Info("Certification group deleted", zap.String("groupId", id))
	return nil
}

func (s *service) Join(ctx context.Context, groupID string, in MemberInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		if !g.AddMember(in.UserID, in.UserName, s.deps.Now()) {
			return appErrors.NewValidation("User is already a member of this group")
		}
		return nil
	})
}

func (s *service) Leave(ctx context.Context, groupID, userID string) (*domain.CertificationGroup, error) {
	if userID == "" {
		return nil, appErrors.NewValidation("userId is required")
	}
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		if g.IsOwner(userID) {
			return appErrors.NewValidation("Group owners cannot leave their own group")
		}
		if !g.RemoveMember(userID) {
			return appErrors.NewValidation("User is not a member of this group")
		}
		return nil
	})
}

func (s *service) AddMessage(ctx context.Context, groupID string, in PostInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()

	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		g.Messages = append(g.Messages, domain.GroupMessage{
			ID:        domain.NewID(domain.PrefixMessage, now),
			UserID:    in.UserID,
			UserName:  in.UserName,
			Content:   in.Content,
			Replies:   []domain.GroupReply{},
			Likes:     domain.Likes{LikedBy: []string{}},
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
}

func (s *service) UpdateMessage(ctx context.Context, groupID, messageID string, in UpdateMessageInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		m, err := message(g, messageID)
		if err != nil {
			return err
		}
		if in.Content != nil {
			m.Content = *in.Content
		}
		if in.IsPinned != nil {
			m.IsPinned = *in.IsPinned
		}
		m.UpdatedAt = s.deps.Now()
		return nil
	})
}

func (s *service) DeleteMessage(ctx context.Context, groupID, messageID string) (*domain.CertificationGroup, error) {
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		if !g.RemoveMessage(messageID) {
			return appErrors.NewNotFound("Message not found")
		}
		return nil
	})
}

func (s *service) ToggleMessageLike(ctx context.Context, groupID, messageID, userID string) (*domain.CertificationGroup, error) {
	if userID == "" {
		return nil, appErrors.NewValidation("userId is required")
	}
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		m, err := message(g, messageID)
		if err != nil {
			return err
		}
		m.ToggleLike(userID)
		return nil
	})
}

func (s *service) AddReply(ctx context.Context, groupID, messageID string, in PostInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()

	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		m, err := message(g, messageID)
		if err != nil {
			return err
		}
		m.Replies = append(m.Replies, domain.GroupReply{
			ID:        domain.NewID(domain.PrefixReply, now),
			UserID:    in.UserID,
			UserName:  in.UserName,
			Content:   in.Content,
			Likes:     domain.Likes{LikedBy: []string{}},
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
}

func (s *service) UpdateReply(ctx context.Context, groupID, messageID, replyID string, in UpdateReplyInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		m, err := message(g, messageID)
		if err != nil {
			return err
		}
		r, err := reply(m, replyID)
		if err != nil {
			return err
		}
		r.Content = in.Content
		r.UpdatedAt = s.deps.Now()
		return nil
	})
}

func (s *service) DeleteReply(ctx context.Context, groupID, messageID, replyID string) (*domain.CertificationGroup, error) {
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		m, err := message(g, messageID)
		if err != nil {
			return err
		}
		if !m.RemoveReply(replyID) {
			return appErrors.NewNotFound("Reply not found")
		}
		return nil
	})
}

func (s *service) ToggleReplyLike(ctx context.Context, groupID, messageID, replyID, userID string) (*domain.CertificationGroup, error) {
	if userID == "" {
		return nil, appErrors.NewValidation("userId is required")
	}
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		m, err := message(g, messageID)
		if err != nil {
			return err
		}
		r, err := reply(m, replyID)
		if err != nil {
			return err
		}
		r.ToggleLike(userID)
		return nil
	})
}

func (s *service) AddSession(ctx context.Context, groupID string, in SessionInput) (*domain.CertificationGroup, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()
	session := in.session(domain.NewID(domain.PrefixSession, now), now)

	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		g.ScheduledSessions = append(g.ScheduledSessions, session)
		return nil
	})
}

func (s *service) UpdateSession(ctx context.Context, groupID, sessionID string, in UpdateSessionInput) (*domain.CertificationGroup, error) {
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		session := g.FindSession(sessionID)
		if session == nil {
			return appErrors.NewNotFound("Session not found")
		}
		in.apply(session)
		return nil
	})
}

func (s *service) DeleteSession(ctx context.Context, groupID, sessionID string) (*domain.CertificationGroup, error) {
	return s.mutate(ctx, groupID, func(g *domain.CertificationGroup) error {
		if !g.RemoveSession(sessionID) {
			return appErrors.NewNotFound("Session not found")
		}
		return nil
	})
}
