package sprint

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/events"
	"awsugmdu-backend/internal/notify"
	"awsugmdu-backend/internal/repository/memory"
	"awsugmdu-backend/internal/service/servicetest"
	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	rec     *servicetest.Recorder
	service Service
	ctx     context.Context
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	store := memory.New()
	rec := &servicetest.Recorder{}
	return &fixture{
		store:   store,
		rec:     rec,
		service: NewService(store.Sprints, store.Users, store, servicetest.NewDeps(rec), opts),
		ctx:     context.Background(),
	}
}

// seed stores a sprint as-is, bypassing the service.
func (f *fixture) seed(t *testing.T, sp *domain.Sprint) {
	t.Helper()
	sp.Normalize()
	require.NoError(t, f.store.Sprints.Create(f.ctx, sp))
}

func activeSprint() *domain.Sprint {
	return &domain.Sprint{
		ID:        "sprint-1",
		Title:     "Serverless June",
		StartDate: "2024-06-01",
		EndDate:   "2024-06-30",
		Status:    domain.SprintActive,
	}
}

func TestCreateSprint(t *testing.T) {
	f := newFixture(t, Options{})

	t.Run("DerivesStatus", func(t *testing.T) {
		sp, err := f.service.CreateSprint(f.ctx, CreateSprintInput{
			Title:     "Containers",
			StartDate: "2024-07-01",
			EndDate:   "2024-07-31",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SprintUpcoming, sp.Status)
		assert.Equal(t, 1, sp.Version)
		assert.Regexp(t, `^sprint-\d+-[0-9a-f]{6}$`, sp.ID)
		assert.Equal(t, []string{}, sp.RegisteredUsers)
	})

	t.Run("EndBeforeStart", func(t *testing.T) {
		_, err := f.service.CreateSprint(f.ctx, CreateSprintInput{
			Title:     "Backwards",
			StartDate: "2024-07-31T10:00:00Z",
			EndDate:   "2024-07-01T10:00:00Z",
		})
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("EndEqualsStart", func(t *testing.T) {
		_, err := f.service.CreateSprint(f.ctx, CreateSprintInput{
			Title:     "Zero length",
			StartDate: "2024-07-01T10:00:00Z",
			EndDate:   "2024-07-01T10:00:00Z",
		})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("MissingTitle", func(t *testing.T) {
		_, err := f.service.CreateSprint(f.ctx, CreateSprintInput{StartDate: "2024-07-01", EndDate: "2024-07-31"})
		require.Error(t, err)
		assert.Equal(t, "title is required", appErrors.Message(err))
	})
}

func TestGetSprint_StatusWriteBack(t *testing.T) {
	t.Run("PersistsDerivedStatus", func(t *testing.T) {
		f := newFixture(t, Options{StatusWriteBack: true})
		sp := activeSprint()
		sp.EndDate = "2024-06-10"
		f.seed(t, sp)

		got, err := f.service.GetSprint(f.ctx, "sprint-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SprintCompleted, got.Status)

		stored, err := f.store.Sprints.Get(f.ctx, "sprint-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SprintCompleted, stored.Status)
		assert.Equal(t, 2, stored.Version)
		assert.Equal(t, []string{events.TypeSprintStatusChanged}, f.rec.EventTypes())
	})

	t.Run("DisabledLeavesStoredStatus", func(t *testing.T) {
		f := newFixture(t, Options{})
		sp := activeSprint()
		sp.EndDate = "2024-06-10"
		f.seed(t, sp)

		got, err := f.service.GetSprint(f.ctx, "sprint-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SprintCompleted, got.Status)

		stored, _ := f.store.Sprints.Get(f.ctx, "sprint-1")
		assert.Equal(t, domain.SprintActive, stored.Status)
	})

	t.Run("FailedWriteStillReads", func(t *testing.T) {
		f := newFixture(t, Options{StatusWriteBack: true})
		sp := activeSprint()
		sp.StartDate = "2024-06-20"
		sp.EndDate = "2024-06-30"
		f.seed(t, sp)
		f.store.SetError("sprints.Save", errors.New("throttled"))

		got, err := f.service.GetSprint(f.ctx, "sprint-1")
		require.NoError(t, err)
		assert.Equal(t, domain.SprintUpcoming, got.Status)
		assert.Empty(t, f.rec.Events)
	})

	t.Run("NotFound", func(t *testing.T) {
		f := newFixture(t, Options{StatusWriteBack: true})
		_, err := f.service.GetSprint(f.ctx, "missing")
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestListSprints_CompletedAfterEndDate(t *testing.T) {
	f := newFixture(t, Options{StatusWriteBack: true})
	past := activeSprint()
	past.EndDate = "2024-06-14"
	f.seed(t, past)
	current := activeSprint()
	current.ID = "sprint-2"
	f.seed(t, current)

	sprints, err := f.service.ListSprints(f.ctx)
	require.NoError(t, err)
	require.Len(t, sprints, 2)
	assert.Equal(t, domain.SprintCompleted, sprints[0].Status)
	assert.Equal(t, domain.SprintActive, sprints[1].Status)

	stored, _ := f.store.Sprints.Get(f.ctx, "sprint-1")
	assert.Equal(t, domain.SprintCompleted, stored.Status)
}

func TestRefreshStatuses(t *testing.T) {
	f := newFixture(t, Options{})
	stale := activeSprint()
	stale.EndDate = "2024-06-01"
	f.seed(t, stale)
	fresh := activeSprint()
	fresh.ID = "sprint-2"
	f.seed(t, fresh)

	updated, err := f.service.RefreshStatuses(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	stored, _ := f.store.Sprints.Get(f.ctx, "sprint-1")
	assert.Equal(t, domain.SprintCompleted, stored.Status)

	updated, err = f.service.RefreshStatuses(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestUpdateSprint(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, activeSprint())

	title := "Serverless July"
	end := "2024-05-20"
	_, err := f.service.UpdateSprint(f.ctx, "sprint-1", UpdateSprintInput{EndDate: &end})
	require.Error(t, err)
	assert.True(t, appErrors.IsValidation(err))

	end = "2024-06-12"
	sp, err := f.service.UpdateSprint(f.ctx, "sprint-1", UpdateSprintInput{Title: &title, EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, title, sp.Title)
	assert.Equal(t, domain.SprintCompleted, sp.Status)
	assert.Equal(t, 2, sp.Version)
}

func TestDeleteSprint(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, activeSprint())

	require.NoError(t, f.service.DeleteSprint(f.ctx, "sprint-1"))
	_, err := f.service.GetSprint(f.ctx, "sprint-1")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestRegister(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, activeSprint())

	sp, err := f.service.Register(f.ctx, "sprint-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, sp.RegisteredUsers)
	assert.Equal(t, 1, sp.Participants)

	t.Run("Duplicate", func(t *testing.T) {
		_, err := f.service.Register(f.ctx, "sprint-1", "u1")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("CompletedSprint", func(t *testing.T) {
		done := activeSprint()
		done.ID = "sprint-old"
		done.StartDate = "2024-05-01"
		done.EndDate = "2024-05-31"
		f.seed(t, done)

		_, err := f.service.Register(f.ctx, "sprint-old", "u2")
		require.Error(t, err)
		assert.Equal(t, "Cannot register for a completed sprint", appErrors.Message(err))
	})

	t.Run("MissingUser", func(t *testing.T) {
		_, err := f.service.Register(f.ctx, "sprint-1", "")
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, Options{})
	sp := activeSprint()
	sp.RegisteredUsers = []string{"u1"}
	f.seed(t, sp)

	t.Run("NotRegistered", func(t *testing.T) {
		_, err := f.service.Submit(f.ctx, "sprint-1", SubmissionInput{UserID: "u2", BlogURL: "https://blog.example.com/post"})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("NeedsAURL", func(t *testing.T) {
		_, err := f.service.Submit(f.ctx, "sprint-1", SubmissionInput{UserID: "u1"})
		require.Error(t, err)
		assert.Equal(t, "blogUrl or repoUrl is required", appErrors.Message(err))
	})

	t.Run("OncePerUser", func(t *testing.T) {
		got, err := f.service.Submit(f.ctx, "sprint-1", SubmissionInput{UserID: "u1", RepoURL: "https://github.com/u1/demo"})
		require.NoError(t, err)
		require.Len(t, got.Submissions, 1)
		assert.Equal(t, domain.SubmissionPending, got.Submissions[0].Status)
		assert.Equal(t, servicetest.Now, got.Submissions[0].SubmittedAt)

		_, err = f.service.Submit(f.ctx, "sprint-1", SubmissionInput{UserID: "u1", RepoURL: "https://github.com/u1/other"})
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestReviewSubmission(t *testing.T) {
	f := newFixture(t, Options{})
	sp := activeSprint()
	sp.RegisteredUsers = []string{"u1"}
	sp.Submissions = []domain.Submission{{ID: "submission-1", UserID: "u1", Status: domain.SubmissionPending}}
	f.seed(t, sp)
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Name: "Uma"})

	points := func() int {
		u, err := f.store.Users.Get(f.ctx, "u1")
		require.NoError(t, err)
		return u.Points
	}

	approve := ReviewInput{Status: domain.SubmissionApproved, Points: 50, Feedback: "Great write-up"}
	got, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", approve)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionApproved, got.Submissions[0].Status)
	assert.Equal(t, 50, got.Submissions[0].PointsCredited)
	assert.Equal(t, 50, points())
	assert.Equal(t, "u1@example.com", f.rec.LastSubmission.To)

	t.Run("ApprovingTwiceCreditsOnce", func(t *testing.T) {
		_, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", approve)
		require.NoError(t, err)
		assert.Equal(t, 50, points())
	})

	t.Run("RejectKeepsBalance", func(t *testing.T) {
		_, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", ReviewInput{Status: domain.SubmissionRejected})
		require.NoError(t, err)
		assert.Equal(t, 50, points())

		_, err = f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", approve)
		require.NoError(t, err)
		assert.Equal(t, 50, points())
	})

	t.Run("RaisedAwardCreditsDifference", func(t *testing.T) {
		_, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", ReviewInput{Status: domain.SubmissionApproved, Points: 80})
		require.NoError(t, err)
		assert.Equal(t, 80, points())
	})

	t.Run("InvalidStatus", func(t *testing.T) {
		_, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", ReviewInput{Status: domain.SubmissionPending})
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("UnknownSubmission", func(t *testing.T) {
		_, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "nope", approve)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("FailedCommitCreditsNothing", func(t *testing.T) {
		f.store.SetError("store.CommitSubmissionReview", appErrors.NewInternal("ddb down", nil))
		defer f.store.ClearErrors()

		_, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", ReviewInput{Status: domain.SubmissionApproved, Points: 100})
		assert.True(t, appErrors.IsInternal(err))
		assert.Equal(t, 80, points())
	})
}

func TestSessions(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, activeSprint())
	f.store.Users.Put(domain.User{ID: "u1", Email: "u1@example.com", Name: "Uma"})

	sp, err := f.service.AddSession(f.ctx, "sprint-1", SessionInput{Title: "Kickoff", Date: "2024-06-16", MeetingLink: "https://meet.example.com/k"})
	require.NoError(t, err)
	require.Len(t, sp.Sessions, 1)
	sessionID := sp.Sessions[0].ID

	t.Run("Update", func(t *testing.T) {
		title := "Kickoff and Q&A"
		sp, err := f.service.UpdateSession(f.ctx, "sprint-1", sessionID, UpdateSessionInput{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, sp.Sessions[0].Title)
		assert.Equal(t, "2024-06-16", sp.Sessions[0].Date)

		_, err = f.service.UpdateSession(f.ctx, "sprint-1", "nope", UpdateSessionInput{Title: &title})
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("RegisterSendsConfirmation", func(t *testing.T) {
		sp, err := f.service.RegisterForSession(f.ctx, "sprint-1", sessionID, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1"}, sp.Sessions[0].RegisteredUsers)
		assert.Equal(t, []string{string(notify.KindSessionRegistered)}, f.rec.Emails)
		assert.Equal(t, "https://meet.example.com/k", f.rec.LastSession.MeetingLink)

		_, err = f.service.RegisterForSession(f.ctx, "sprint-1", sessionID, "u1")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("EmailFailureIsSwallowed", func(t *testing.T) {
		f.store.Users.Put(domain.User{ID: "u2", Email: "u2@example.com"})
		f.rec.Err = errors.New("ses throttled")
		defer func() { f.rec.Err = nil }()

		_, err := f.service.RegisterForSession(f.ctx, "sprint-1", sessionID, "u2")
		require.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		sp, err := f.service.DeleteSession(f.ctx, "sprint-1", sessionID)
		require.NoError(t, err)
		assert.Empty(t, sp.Sessions)

		_, err = f.service.DeleteSession(f.ctx, "sprint-1", sessionID)
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestForum(t *testing.T) {
	f := newFixture(t, Options{})
	f.seed(t, activeSprint())

	sp, err := f.service.CreateForumPost(f.ctx, "sprint-1", ForumPostInput{UserID: "u1", Title: "Stuck on IAM", Content: "Which policy?"})
	require.NoError(t, err)
	postID := sp.ForumPosts[0].ID

	_, err = f.service.ReplyToForumPost(f.ctx, "sprint-1", postID, ForumReplyInput{UserID: "u2", Content: "Try least privilege"})
	require.NoError(t, err)

	_, err = f.service.ReplyToForumPost(f.ctx, "sprint-1", "nope", ForumReplyInput{UserID: "u2", Content: "?"})
	assert.True(t, appErrors.IsNotFound(err))

	sp, err = f.service.ToggleForumPostLike(f.ctx, "sprint-1", postID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, sp.ForumPosts[0].Likes.Likes)

	sp, err = f.service.ToggleForumPostLike(f.ctx, "sprint-1", postID, "u2")
	require.NoError(t, err)
	assert.Equal(t, 0, sp.ForumPosts[0].Likes.Likes)
	assert.NotContains(t, sp.ForumPosts[0].LikedBy, "u2")

	posts, err := f.service.ListForumPosts(f.ctx, "sprint-1")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Len(t, posts[0].Replies, 1)
}

func TestStatusWriteBackMetrics(t *testing.T) {
	store := memory.New()
	rec := &servicetest.Recorder{}
	deps := servicetest.NewDeps(rec)
	svc := NewService(store.Sprints, store.Users, store, deps, Options{StatusWriteBack: true})

	sp := activeSprint()
	sp.EndDate = "2024-06-01"
	sp.Normalize()
	require.NoError(t, store.Sprints.Create(context.Background(), sp))

	_, err := svc.GetSprint(context.Background(), "sprint-1")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(deps.Metrics.SprintStatusUpdates))
}

func TestGetSprint_WriteBackOfLegacyDocument(t *testing.T) {
	f := newFixture(t, Options{StatusWriteBack: true})
	legacy := &domain.Sprint{ID: "sprint-legacy", StartDate: "2024-01-01", EndDate: "2024-01-31", Status: domain.SprintActive}
	require.NoError(t, f.store.Sprints.Create(f.ctx, legacy))

	got, err := f.service.GetSprint(f.ctx, "sprint-legacy")
	require.NoError(t, err)
	assert.Equal(t, domain.SprintCompleted, got.Status)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	for _, field := range []string{"sessions", "submissions", "registeredUsers", "forumPosts"} {
		assert.Contains(t, string(body), `"`+field+`":[]`)
	}
}

func TestMutationThatMovesStatus(t *testing.T) {
	store := memory.New()
	rec := &servicetest.Recorder{}
	deps := servicetest.NewDeps(rec)
	svc := NewService(store.Sprints, store.Users, store, deps, Options{})
	ctx := context.Background()

	sp := activeSprint()
	sp.Normalize()
	require.NoError(t, store.Sprints.Create(ctx, sp))

	t.Run("UnchangedStatusIsQuiet", func(t *testing.T) {
		title := "Serverless June, again"
		_, err := svc.UpdateSprint(ctx, "sprint-1", UpdateSprintInput{Title: &title})
		require.NoError(t, err)
		assert.Empty(t, rec.EventTypes())
		assert.Zero(t, testutil.ToFloat64(deps.Metrics.SprintStatusUpdates))
	})

	t.Run("MovedStatusIsAnnounced", func(t *testing.T) {
		end := "2024-06-12"
		updated, err := svc.UpdateSprint(ctx, "sprint-1", UpdateSprintInput{EndDate: &end})
		require.NoError(t, err)
		assert.Equal(t, domain.SprintCompleted, updated.Status)

		assert.Equal(t, []string{events.TypeSprintStatusChanged}, rec.EventTypes())
		assert.Equal(t, 1.0, testutil.ToFloat64(deps.Metrics.SprintStatusUpdates))
		assert.Equal(t, map[string]string{"sprintId": "sprint-1", "from": "active", "to": "completed"}, rec.Events[0].Detail)
	})
}

func TestReviewSubmission_AnnouncesStatusMove(t *testing.T) {
	f := newFixture(t, Options{})
	sp := activeSprint()
	sp.EndDate = "2024-06-10"
	sp.RegisteredUsers = []string{"u1"}
	sp.Submissions = []domain.Submission{{ID: "submission-1", UserID: "u1", Status: domain.SubmissionPending}}
	f.seed(t, sp)

	got, err := f.service.ReviewSubmission(f.ctx, "sprint-1", "submission-1", ReviewInput{Status: domain.SubmissionApproved, Points: 10})
	require.NoError(t, err)
	assert.Equal(t, domain.SprintCompleted, got.Status)
	assert.Contains(t, f.rec.EventTypes(), events.TypeSprintStatusChanged)
	assert.Contains(t, f.rec.EventTypes(), events.TypeSubmissionReviewed)
}
