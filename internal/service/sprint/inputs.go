package sprint

import (
	"time"

	"awsugmdu-backend/internal/domain"
	appErrors "awsugmdu-backend/pkg/errors"
	"awsugmdu-backend/pkg/validation"
)

type CreateSprintInput struct {
	Title       string `json:"title" validate:"required"`
	Theme       string `json:"theme"`
	Description string `json:"description"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	GithubRepo  string `json:"githubRepo"`
	CreatedBy   string `json:"createdBy"`
}

func (in CreateSprintInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	return validateWindow(in.StartDate, in.EndDate)
}

// validateWindow requires parseable dates with the end strictly after the start.
func validateWindow(startDate, endDate string) error {
	candidate := domain.Sprint{StartDate: startDate, EndDate: endDate}
	start, end, err := candidate.Window()
	if err != nil {
		return appErrors.NewValidation(err.Error())
	}
	if !end.After(start) {
		return appErrors.NewValidation("endDate must be after startDate")
	}
	return nil
}

// UpdateSprintInput changes only the fields that are set.
type UpdateSprintInput struct {
	Title       *string `json:"title"`
	Theme       *string `json:"theme"`
	Description *string `json:"description"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	GithubRepo  *string `json:"githubRepo"`
}

func (in UpdateSprintInput) apply(sp *domain.Sprint) {
	set(&sp.Title, in.Title)
	set(&sp.Theme, in.Theme)
	set(&sp.Description, in.Description)
	set(&sp.StartDate, in.StartDate)
	set(&sp.EndDate, in.EndDate)
	set(&sp.GithubRepo, in.GithubRepo)
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

type SessionInput struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description"`
	Date         string `json:"date" validate:"required"`
	Time         string `json:"time"`
	Duration     string `json:"duration"`
	HostID       string `json:"hostId"`
	HostName     string `json:"hostName"`
	MeetingLink  string `json:"meetingLink"`
	RecordingURL string `json:"recordingUrl"`
}

func (in SessionInput) Validate() error { return validation.Struct(in) }

func (in SessionInput) session(id string, now time.Time) domain.Session {
	return domain.Session{
		ID:              id,
		Title:           in.Title,
		Description:     in.Description,
		Date:            in.Date,
		Time:            in.Time,
		Duration:        in.Duration,
		HostID:          in.HostID,
		HostName:        in.HostName,
		MeetingLink:     in.MeetingLink,
		RecordingURL:    in.RecordingURL,
		RegisteredUsers: []string{},
		CreatedAt:       now,
	}
}

type UpdateSessionInput struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Date         *string `json:"date"`
	Time         *string `json:"time"`
	Duration     *string `json:"duration"`
	HostID       *string `json:"hostId"`
	HostName     *string `json:"hostName"`
	MeetingLink  *string `json:"meetingLink"`
	RecordingURL *string `json:"recordingUrl"`
}

func (in UpdateSessionInput) apply(s *domain.Session) {
	set(&s.Title, in.Title)
	set(&s.Description, in.Description)
	set(&s.Date, in.Date)
	set(&s.Time, in.Time)
	set(&s.Duration, in.Duration)
	set(&s.HostID, in.HostID)
	set(&s.HostName, in.HostName)
	set(&s.MeetingLink, in.MeetingLink)
	set(&s.RecordingURL, in.RecordingURL)
}

type SubmissionInput struct {
	UserID      string `json:"userId" validate:"required"`
	UserName    string `json:"userName"`
	BlogURL     string `json:"blogUrl" validate:"omitempty,url"`
	RepoURL     string `json:"repoUrl" validate:"omitempty,url"`
	DemoURL     string `json:"demoUrl" validate:"omitempty,url"`
	Description string `json:"description"`
}

func (in SubmissionInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.BlogURL == "" && in.RepoURL == "" {
		return appErrors.NewValidation("blogUrl or repoUrl is required")
	}
	return nil
}

type ReviewInput struct {
	Status   domain.SubmissionStatus `json:"status" validate:"required,oneof=approved rejected"`
	Points   int                     `json:"points" validate:"gte=0"`
	Feedback string                  `json:"feedback"`
}

func (in ReviewInput) Validate() error { return validation.Struct(in) }

type ForumPostInput struct {
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
	Title    string `json:"title"`
	Content  string `json:"content" validate:"required"`
}

func (in ForumPostInput) Validate() error { return validation.Struct(in) }

type ForumReplyInput struct {
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
	Content  string `json:"content" validate:"required"`
}

func (in ForumReplyInput) Validate() error { return validation.Struct(in) }
