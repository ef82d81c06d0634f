// Package sprint provides the business logic for community sprints: the
// sprint documents themselves, their sessions, submissions and forum.
package sprint

import (
	"context"
	"errors"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/repository"
	svc "awsugmdu-backend/internal/service"
	appErrors "awsugmdu-backend/pkg/errors"

	"go.uber.org/zap"
)

// Service defines the sprint operations.
type Service interface {
	// ListSprints returns every sprint with its status derived from the clock
	ListSprints(ctx context.Context) ([]*domain.Sprint, error)
	GetSprint(ctx context.Context, id string) (*domain.Sprint, error)
	CreateSprint(ctx context.Context, in CreateSprintInput) (*domain.Sprint, error)
	UpdateSprint(ctx context.Context, id string, in UpdateSprintInput) (*domain.Sprint, error)
	DeleteSprint(ctx context.Context, id string) error

	// Sessions
	AddSession(ctx context.Context, sprintID string, in SessionInput) (*domain.Sprint, error)
	UpdateSession(ctx context.Context, sprintID, sessionID string, in UpdateSessionInput) (*domain.Sprint, error)
	DeleteSession(ctx context.Context, sprintID, sessionID string) (*domain.Sprint, error)
	RegisterForSession(ctx context.Context, sprintID, sessionID, userID string) (*domain.Sprint, error)

	// Participation
	Register(ctx context.Context, sprintID, userID string) (*domain.Sprint, error)
	Submit(ctx context.Context, sprintID string, in SubmissionInput) (*domain.Sprint, error)
	ReviewSubmission(ctx context.Context, sprintID, submissionID string, in ReviewInput) (*domain.Sprint, error)

	// Forum
	ListForumPosts(ctx context.Context, sprintID string) ([]domain.ForumPost, error)
	CreateForumPost(ctx context.Context, sprintID string, in ForumPostInput) (*domain.Sprint, error)
	ReplyToForumPost(ctx context.Context, sprintID, postID string, in ForumReplyInput) (*domain.Sprint, error)
	ToggleForumPostLike(ctx context.Context, sprintID, postID, userID string) (*domain.Sprint, error)

	// RefreshStatuses writes back every sprint whose stored status is stale
	// and returns how many were updated.
	RefreshStatuses(ctx context.Context) (int, error)
}

// Options tunes the service.
type Options struct {
	// StatusWriteBack persists a derived status that differs from the stored
	// one when a sprint is read.
	StatusWriteBack bool
}

type service struct {
	sprints      repository.SprintStore
	users        repository.UserStore
	transactions repository.Transactions
	deps         svc.Deps
	opts         Options
}

// NewService creates a sprint service.
func NewService(
	sprints repository.SprintStore,
	users repository.UserStore,
	transactions repository.Transactions,
	deps svc.Deps,
	opts Options,
) Service {
	return &service{sprints: sprints, users: users, transactions: transactions, deps: deps, opts: opts}
}

// errUnchanged aborts a status write-back that turned out to be unnecessary.
var errUnchanged = errors.New("sprint status unchanged")

func (s *service) logger() *zap.Logger { return s.deps.Logger }

// mutate applies fn under a version check. A status the write moves along
// is announced like any other status change.
func (s *service) mutate(ctx context.Context, id string, fn func(*domain.Sprint) error) (*domain.Sprint, error) {
	var from domain.SprintStatus
	var changed bool
	sprint, err := repository.Mutate(ctx, s.deps.RetryFor("sprint"), s.sprints, id, func(sp *domain.Sprint) error {
		sp.Normalize()
		from = sp.Status
		if err := fn(sp); err != nil {
			return err
		}
		sp.RefreshStatus(s.deps.Now())
		changed = sp.Status != from
		sp.Touch(s.deps.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.statusChanged(ctx, id, from, sprint.Status)
	}
	return sprint, nil
}

func (s *service) statusChanged(ctx context.Context, id string, from, to domain.SprintStatus) {
	s.deps.Metrics.SprintStatusUpdates.Inc()
	s.logger().Info("Sprint status updated",
		zap.String("sprintId", id),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	s.deps.Publish(ctx, events.TypeSprintStatusChanged, id, map[string]string{
		"sprintId": id,
		"from":     string(from),
		"to":       string(to),
	})
}

func (s *service) ListSprints(ctx context.Context) ([]*domain.Sprint, error) {
	sprints, err := s.sprints.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, "failed to list sprints")
	}
	for i, sp := range sprints {
		sprints[i] = s.present(ctx, sp)
	}
	return sprints, nil
}

func (s *service) GetSprint(ctx context.Context, id string) (*domain.Sprint, error) {
	sp, err := s.sprints.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, sp), nil
}

// present derives the current status. When write-back is enabled and the
// stored status is stale, the derived one is persisted; a failed write is
// logged and the derived copy is still returned.
func (s *service) present(ctx context.Context, sp *domain.Sprint) *domain.Sprint {
	sp.Normalize()
	stored := sp.Status
	if !sp.RefreshStatus(s.deps.Now()) || !s.opts.StatusWriteBack {
		return sp
	}
	if saved, ok := s.writeBackStatus(ctx, sp.ID, stored); ok {
		return saved
	}
	return sp
}

func (s *service) writeBackStatus(ctx context.Context, id string, stored domain.SprintStatus) (*domain.Sprint, bool) {
	saved, err := repository.Mutate(ctx, s.deps.RetryFor("sprint"), s.sprints, id, func(sp *domain.Sprint) error {
		sp.Normalize()
		if !sp.RefreshStatus(s.deps.Now()) {
			return errUnchanged
		}
		sp.Touch(s.deps.Now())
		return nil
	})
	if err != nil {
		if !errors.Is(err, errUnchanged) {
			s.logger().Warn("Failed to write back sprint status", zap.String("sprintId", id), zap.Error(err))
		}
		return nil, false
	}

	s.statusChanged(ctx, id, stored, saved.Status)
	return saved, true
}

func (s *service) RefreshStatuses(ctx context.Context) (int, error) {
	sprints, err := s.sprints.List(ctx)
	if err != nil {
		return 0, appErrors.Wrap(err, "failed to list sprints")
	}

	updated := 0
	for _, sp := range sprints {
		stored := sp.Status
		if !sp.RefreshStatus(s.deps.Now()) {
			continue
		}
		if _, ok := s.writeBackStatus(ctx, sp.ID, stored); ok {
			updated++
		}
	}
	s.logger().Info("Sprint statuses refreshed", zap.Int("checked", len(sprints)), zap.Int("updated", updated))
	return updated, nil
}

func (s *service) CreateSprint(ctx context.Context, in CreateSprintInput) (*domain.Sprint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	sp := &domain.Sprint{
		ID:          domain.NewID(domain.PrefixSprint, now),
		Title:       in.Title,
		Theme:       in.Theme,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		GithubRepo:  in.GithubRepo,
		CreatedBy:   in.CreatedBy,
	}
	sp.Normalize()
	sp.RefreshStatus(now)
	sp.Touch(now)

	if err := s.sprints.Create(ctx, sp); err != nil {
		return nil, appErrors.Wrap(err, "failed to create sprint")
	}
	s.logger().Info("Sprint created", zap.String("sprintId", sp.ID), zap.String("status", string(sp.Status)))
	return sp, nil
}

func (s *service) UpdateSprint(ctx context.Context, id string, in UpdateSprintInput) (*domain.Sprint, error) {
	return s.mutate(ctx, id, func(sp *domain.Sprint) error {
		in.apply(sp)
		return validateWindow(sp.StartDate, sp.EndDate)
	})
}

func (s *service) DeleteSprint(ctx context.Context, id string) error {
	if err := s.sprints.Delete(ctx, id); err != nil {
		return err
	}
	s.logger().Info("Sprint deleted", zap.String("sprintId", id))
	return nil
}

func (s *service) AddSession(ctx context.Context, sprintID string, in SessionInput) (*domain.Sprint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()
	session := in.session(domain.NewID(domain.PrefixSession, now), now)

	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		sp.Sessions = append(sp.Sessions, session)
		return nil
	})
}

func (s *service) UpdateSession(ctx context.Context, sprintID, sessionID string, in UpdateSessionInput) (*domain.Sprint, error) {
	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		session := sp.FindSession(sessionID)
		if session == nil {
			return appErrors.NewNotFound("Session not found")
		}
		in.apply(session)
		return nil
	})
}

func (s *service) DeleteSession(ctx context.Context, sprintID, sessionID string) (*domain.Sprint, error) {
	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		if !sp.RemoveSession(sessionID) {
			return appErrors.NewNotFound("Session not found")
		}
		return nil
	})
}

func (s *service) RegisterForSession(ctx context.Context, sprintID, sessionID, userID string) (*domain.Sprint, error) {
	if userID == "" {
		return nil, appErrors.NewValidation("userId is required")
	}

	var session domain.Session
	sp, err := s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		found := sp.FindSession(sessionID)
		if found == nil {
			return appErrors.NewNotFound("Session not found")
		}
		if found.IsRegistered(userID) {
			return appErrors.NewValidation("User already registered for this session")
		}
		found.RegisteredUsers = append(found.RegisteredUsers, userID)
		session = *found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.deps.Email(ctx, "session_registered", func(ctx context.Context, n notify.Notifier) error {
		user, err := s.recipient(ctx, userID)
		if err != nil || user == nil {
			return err
		}
		return n.SessionRegistered(ctx, notify.SessionEmail{
			To:           user.Email,
			UserName:     user.Name,
			SprintTitle:  sp.Title,
			SessionTitle: session.Title,
			Date:         session.Date,
			Time:         session.Time,
			MeetingLink:  session.MeetingLink,
		})
	})
	return sp, nil
}

// recipient loads the user an email goes to. Unknown users have no address,
// so they are skipped rather than reported as failures.
func (s *service) recipient(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if appErrors.IsNotFound(err) {
		return nil, nil
	}
	return user, err
}

func (s *service) Register(ctx context.Context, sprintID, userID string) (*domain.Sprint, error) {
	if userID == "" {
		return nil, appErrors.NewValidation("userId is required")
	}
	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		sp.RefreshStatus(s.deps.Now())
		if sp.Status == domain.SprintCompleted {
			return appErrors.NewValidation("Cannot register for a completed sprint")
		}
		if !sp.Register(userID) {
			return appErrors.NewValidation("User already registered for this sprint")
		}
		return nil
	})
}

func (s *service) Submit(ctx context.Context, sprintID string, in SubmissionInput) (*domain.Sprint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()

	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		if !sp.IsRegistered(in.UserID) {
			return appErrors.NewValidation("User must register for the sprint before submitting")
		}
		if sp.SubmissionBy(in.UserID) != nil {
			return appErrors.NewValidation("User has already submitted to this sprint")
		}
		sp.Submissions = append(sp.Submissions, domain.Submission{
			ID:          domain.NewID(domain.PrefixSubmission, now),
			UserID:      in.UserID,
			UserName:    in.UserName,
			BlogURL:     in.BlogURL,
			RepoURL:     in.RepoURL,
			DemoURL:     in.DemoURL,
			Description: in.Description,
			Status:      domain.SubmissionPending,
			SubmittedAt: now,
		})
		return nil
	})
}

// ReviewSubmission records the review and credits the points of an approved
// submission in the same transaction. Only the difference to what was
// already credited is added, so repeated approvals never pay twice.
func (s *service) ReviewSubmission(ctx context.Context, sprintID, submissionID string, in ReviewInput) (*domain.Sprint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var (
		saved    *domain.Sprint
		reviewed domain.Submission
		credit   int
		from     domain.SprintStatus
	)
	err := repository.Retry(ctx, s.deps.RetryFor("sprint"), sprintID, func() error {
		sp, err := s.sprints.Get(ctx, sprintID)
		if err != nil {
			return err
		}
		sp.Normalize()
		from = sp.Status
		sub := sp.FindSubmission(submissionID)
		if sub == nil {
			return appErrors.NewNotFound("Submission not found")
		}

		now := s.deps.Now()
		sub.Status = in.Status
		sub.Points = in.Points
		sub.Feedback = in.Feedback
		sub.ReviewedAt = &now
		credit = sub.PendingCredit()
		sub.PointsCredited += credit
		reviewed = *sub
		sp.RefreshStatus(now)
		sp.Touch(now)

		if err := s.transactions.CommitSubmissionReview(ctx, repository.SubmissionReview{
			Sprint: sp,
			UserID: sub.UserID,
			Credit: credit,
			Now:    now,
		}); err != nil {
			return err
		}
		saved = sp
		return nil
	})
	if err != nil {
		return nil, err
	}

	if credit > 0 {
		s.deps.Metrics.PointsAwarded.Add(float64(credit))
	}
	if saved.Status != from {
		s.statusChanged(ctx, sprintID, from, saved.Status)
	}
	s.logger().Info("Submission reviewed",
		zap.String("sprintId", sprintID),
		zap.String("submissionId", submissionID),
		zap.String("status", string(reviewed.Status)),
		zap.Int("credited", credit),
	)

	s.deps.Publish(ctx, events.TypeSubmissionReviewed, sprintID, map[string]any{
		"sprintId":     sprintID,
		"submissionId": submissionID,
		"userId":       reviewed.UserID,
		"status":       reviewed.Status,
		"points":       reviewed.Points,
		"credited":     credit,
	})
	s.deps.Email(ctx, "submission_reviewed", func(ctx context.Context, n notify.Notifier) error {
		user, err := s.recipient(ctx, reviewed.UserID)
		if err != nil || user == nil {
			return err
		}
		return n.SubmissionReviewed(ctx, notify.SubmissionEmail{
			To:          user.Email,
			UserName:    user.Name,
			SprintTitle: saved.Title,
			Status:      reviewed.Status,
			Points:      reviewed.Points,
			Feedback:    reviewed.Feedback,
		})
	})
	return saved, nil
}

func (s *service) ListForumPosts(ctx context.Context, sprintID string) ([]domain.ForumPost, error) {
	sp, err := s.sprints.Get(ctx, sprintID)
	if err != nil {
		return nil, err
	}
	sp.Normalize()
	return sp.ForumPosts, nil
}

func (s *service) CreateForumPost(ctx context.Context, sprintID string, in ForumPostInput) (*domain.Sprint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()

	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		sp.ForumPosts = append(sp.ForumPosts, domain.ForumPost{
			ID:        domain.NewID(domain.PrefixPost, now),
			UserID:    in.UserID,
			UserName:  in.UserName,
			Title:     in.Title,
			Content:   in.Content,
			Replies:   []domain.ForumReply{},
			Likes:     domain.Likes{LikedBy: []string{}},
			CreatedAt: now,
		})
		return nil
	})
}

func (s *service) ReplyToForumPost(ctx context.Context, sprintID, postID string, in ForumReplyInput) (*domain.Sprint, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.deps.Now()

	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		post := sp.FindForumPost(postID)
		if post == nil {
			return appErrors.NewNotFound("Post not found")
		}
		post.Replies = append(post.Replies, domain.ForumReply{
			ID:        domain.NewID(domain.PrefixReply, now),
			UserID:    in.UserID,
			UserName:  in.UserName,
			Content:   in.Content,
			CreatedAt: now,
		})
		return nil
	})
}

func (s *service) ToggleForumPostLike(ctx context.Context, sprintID, postID, userID string) (*domain.Sprint, error) {
	if userID == "" {
		return nil, appErrors.NewValidation("userId is required")
	}
	return s.mutate(ctx, sprintID, func(sp *domain.Sprint) error {
		post := sp.FindForumPost(postID)
		if post == nil {
			return appErrors.NewNotFound("Post not found")
		}
		post.ToggleLike(userID)
		return nil
	})
}
