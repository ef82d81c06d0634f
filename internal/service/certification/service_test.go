package certification

import (
	"context"
	"testing"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/internal/repository/memory"
	"awsugmdu-backend/internal/service/servicetest"
	appErrors "awsugmdu-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewService(store.Groups, servicetest.NewDeps(&servicetest.Recorder{})), store
}

func createGroup(t *testing.T, s Service) *domain.CertificationGroup {
	t.Helper()
	g, err := s.CreateGroup(context.Background(), CreateGroupInput{
		Name:      "SAA-C03 study circle",
		Level:     domain.LevelAssociate,
		CreatedBy: "owner",
		UserName:  "Olivia",
	})
	require.NoError(t, err)
	return g
}

func TestCreateGroup(t *testing.T) {
	s, _ := newService(t)

	g := createGroup(t, s)
	assert.Equal(t, []string{"owner"}, g.Owners)
	require.Len(t, g.Members, 1)
	assert.Equal(t, "owner", g.Members[0].UserID)
	assert.Equal(t, servicetest.Now, g.Members[0].JoinedAt)
	assert.Equal(t, 1, g.Version)

	t.Run("InvalidLevel", func(t *testing.T) {
		_, err := s.CreateGroup(context.Background(), CreateGroupInput{Name: "x", Level: "Expert", CreatedBy: "owner"})
		require.Error(t, err)
		assert.Contains(t, appErrors.Message(err), "level must be one of")
	})
}

func TestUpdateAndDeleteGroup(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	g := createGroup(t, s)

	level := domain.LevelProfessional
	updated, err := s.UpdateGroup(ctx, g.ID, UpdateGroupInput{Level: &level})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelProfessional, updated.Level)
	assert.Equal(t, "SAA-C03 study circle", updated.Name)

	empty := ""
	_, err = s.UpdateGroup(ctx, g.ID, UpdateGroupInput{Name: &empty})
	assert.True(t, appErrors.IsValidation(err))

	require.NoError(t, s.DeleteGroup(ctx, g.ID))
	_, err = s.GetGroup(ctx, g.ID)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestJoinAndLeave(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	g := createGroup(t, s)

	joined, err := s.Join(ctx, g.ID, MemberInput{UserID: "u1", UserName: "Uma"})
	require.NoError(t, err)
	assert.Len(t, joined.Members, 2)

	t.Run("JoinTwice", func(t *testing.T) {
		_, err := s.Join(ctx, g.ID, MemberInput{UserID: "u1"})
		require.Error(t, err)
		assert.True(t, appErrors.IsValidation(err))

		current, err := s.GetGroup(ctx, g.ID)
		require.NoError(t, err)
		assert.Len(t, current.Members, 2)
	})

	t.Run("OwnerCannotLeave", func(t *testing.T) {
		_, err := s.Leave(ctx, g.ID, "owner")
		require.Error(t, err)
		assert.Equal(t, "Group owners cannot leave their own group", appErrors.Message(err))
	})

	t.Run("MemberLeaves", func(t *testing.T) {
		left, err := s.Leave(ctx, g.ID, "u1")
		require.NoError(t, err)
		assert.Len(t, left.Members, 1)

		_, err = s.Leave(ctx, g.ID, "u1")
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		_, err := s.Join(ctx, "group-missing", MemberInput{UserID: "u1"})
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	g := createGroup(t, s)

	g, err := s.AddMessage(ctx, g.ID, PostInput{UserID: "u1", Content: "Who is taking the exam in July?"})
	require.NoError(t, err)
	require.Len(t, g.Messages, 1)
	msgID := g.Messages[0].ID

	t.Run("LikeTwiceRestoresCount", func(t *testing.T) {
		liked, err := s.ToggleMessageLike(ctx, g.ID, msgID, "u2")
		require.NoError(t, err)
		assert.Equal(t, 1, liked.Messages[0].Likes.Likes)
		assert.Equal(t, []string{"u2"}, liked.Messages[0].LikedBy)

		unliked, err := s.ToggleMessageLike(ctx, g.ID, msgID, "u2")
		require.NoError(t, err)
		assert.Equal(t, 0, unliked.Messages[0].Likes.Likes)
		assert.NotContains(t, unliked.Messages[0].LikedBy, "u2")
	})

	t.Run("EditAndPin", func(t *testing.T) {
		pinned := true
		edited, err := s.UpdateMessage(ctx, g.ID, msgID, UpdateMessageInput{IsPinned: &pinned})
		require.NoError(t, err)
		assert.True(t, edited.Messages[0].IsPinned)
		assert.Equal(t, "Who is taking the exam in July?", edited.Messages[0].Content)

		content := "Who is taking the exam in August?"
		edited, err = s.UpdateMessage(ctx, g.ID, msgID, UpdateMessageInput{Content: &content})
		require.NoError(t, err)
		assert.Equal(t, content, edited.Messages[0].Content)
		assert.True(t, edited.Messages[0].IsPinned)
	})

	t.Run("Replies", func(t *testing.T) {
		withReply, err := s.AddReply(ctx, g.ID, msgID, PostInput{UserID: "u2", Content: "Me!"})
		require.NoError(t, err)
		require.Len(t, withReply.Messages[0].Replies, 1)
		replyID := withReply.Messages[0].Replies[0].ID

		liked, err := s.ToggleReplyLike(ctx, g.ID, msgID, replyID, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, liked.Messages[0].Replies[0].Likes.Likes)

		edited, err := s.UpdateReply(ctx, g.ID, msgID, replyID, UpdateReplyInput{Content: "Me too"})
		require.NoError(t, err)
		assert.Equal(t, "Me too", edited.Messages[0].Replies[0].Content)

		_, err = s.UpdateReply(ctx, g.ID, msgID, "reply-missing", UpdateReplyInput{Content: "?"})
		assert.True(t, appErrors.IsNotFound(err))

		deleted, err := s.DeleteReply(ctx, g.ID, msgID, replyID)
		require.NoError(t, err)
		assert.Empty(t, deleted.Messages[0].Replies)
	})

	t.Run("UnknownMessage", func(t *testing.T) {
		_, err := s.ToggleMessageLike(ctx, g.ID, "msg-missing", "u1")
		assert.True(t, appErrors.IsNotFound(err))
		_, err = s.AddReply(ctx, g.ID, "msg-missing", PostInput{UserID: "u1", Content: "hi"})
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("Delete", func(t *testing.T) {
		deleted, err := s.DeleteMessage(ctx, g.ID, msgID)
		require.NoError(t, err)
		assert.Empty(t, deleted.Messages)

		_, err = s.DeleteMessage(ctx, g.ID, msgID)
		assert.True(t, appErrors.IsNotFound(err))
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	g := createGroup(t, s)

	_, err := s.AddSession(ctx, g.ID, SessionInput{Title: "Networking deep dive"})
	assert.True(t, appErrors.IsValidation(err))

	g, err = s.AddSession(ctx, g.ID, SessionInput{Title: "Networking deep dive", Date: "2024-06-20", Time: "18:00"})
	require.NoError(t, err)
	require.Len(t, g.ScheduledSessions, 1)
	sessionID := g.ScheduledSessions[0].ID

	link := "https://meet.example.com/vpc"
	g, err = s.UpdateSession(ctx, g.ID, sessionID, UpdateSessionInput{MeetingLink: &link})
	require.NoError(t, err)
	assert.Equal(t, link, g.ScheduledSessions[0].MeetingLink)
	assert.Equal(t, "18:00", g.ScheduledSessions[0].Time)

	g, err = s.DeleteSession(ctx, g.ID, sessionID)
	require.NoError(t, err)
	assert.Empty(t, g.ScheduledSessions)

	_, err = s.UpdateSession(ctx, g.ID, sessionID, UpdateSessionInput{MeetingLink: &link})
	assert.True(t, appErrors.IsNotFound(err))
}

func TestStoreFailure(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)
	g := createGroup(t, s)
	store.SetError("groups.Save", appErrors.NewInternal("ddb down", nil))

	_, err := s.Join(ctx, g.ID, MemberInput{UserID: "u1"})
	assert.True(t, appErrors.IsInternal(err))

	store.SetError("groups.List", appErrors.NewInternal("ddb down", nil))
	_, err = s.ListGroups(ctx)
	assert.True(t, appErrors.IsInternal(err))
}
