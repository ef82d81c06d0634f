package domain

import (
	"fmt"
	"time"
)

// SprintStatus is derived from the sprint window, never set by clients.
type SprintStatus string

const (
	SprintUpcoming  SprintStatus = "upcoming"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// SubmissionStatus tracks the review state of a sprint submission.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Sprint is a time-boxed community challenge.
type Sprint struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Theme           string       `json:"theme"`
	Description     string       `json:"description"`
	StartDate       string       `json:"startDate"`
	EndDate         string       `json:"endDate"`
	Status          SprintStatus `json:"status"`
	Participants    int          `json:"participants"`
	Sessions        []Session    `json:"sessions"`
	Submissions     []Submission `json:"submissions"`
	RegisteredUsers []string     `json:"registeredUsers"`
	ForumPosts      []ForumPost  `json:"forumPosts"`
	GithubRepo      string       `json:"githubRepo,omitempty"`
	CreatedBy       string       `json:"createdBy,omitempty"`
	Record
}

func (s *Sprint) AggregateID() string { return s.ID }

// Session is a live session scheduled inside a sprint.
type Session struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	Date            string    `json:"date"`
	Time            string    `json:"time,omitempty"`
	Duration        string    `json:"duration,omitempty"`
	HostID          string    `json:"hostId,omitempty"`
	HostName        string    `json:"hostName,omitempty"`
	MeetingLink     string    `json:"meetingLink,omitempty"`
	RecordingURL    string    `json:"recordingUrl,omitempty"`
	RegisteredUsers []string  `json:"registeredUsers"`
	CreatedAt       time.Time `json:"createdAt"`
}

// IsRegistered reports whether userID has registered for the session.
func (s *Session) IsRegistered(userID string) bool { return contains(s.RegisteredUsers, userID) }

// Submission is a participant's entry for a sprint.
type Submission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	UserName    string           `json:"userName,omitempty"`
	BlogURL     string           `json:"blogUrl,omitempty"`
	RepoURL     string           `json:"repoUrl,omitempty"`
	DemoURL     string           `json:"demoUrl,omitempty"`
	Description string           `json:"description,omitempty"`
	Status      SubmissionStatus `json:"status"`
	Points      int              `json:"points"`
	Feedback    string           `json:"feedback,omitempty"`
	// PointsCredited is what has already been added to the submitter's
	// balance for this entry.
	PointsCredited int        `json:"pointsCredited"`
	SubmittedAt    time.Time  `json:"submittedAt"`
	ReviewedAt     *time.Time `json:"reviewedAt,omitempty"`
}

// PendingCredit is the amount still owed to the submitter: the awarded
// points of an approved entry minus what was already credited.
func (s *Submission) PendingCredit() int {
	if s.Status != SubmissionApproved || s.Points <= s.PointsCredited {
		return 0
	}
	return s.Points - s.PointsCredited
}

// ForumPost is a discussion thread in a sprint forum.
type ForumPost struct {
	ID       string       `json:"id"`
	UserID   string       `json:"userId"`
	UserName string       `json:"userName,omitempty"`
	Title    string       `json:"title,omitempty"`
	Content  string       `json:"content"`
	Replies  []ForumReply `json:"replies"`
	Likes
	CreatedAt time.Time `json:"createdAt"`
}

// ForumReply answers a forum post.
type ForumReply struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeriveSprintStatus maps the current time onto the sprint window.
func DeriveSprintStatus(now, start, end time.Time) SprintStatus {
	switch {
	case now.Before(start):
		return SprintUpcoming
	case now.After(end):
		return SprintCompleted
	default:
		return SprintActive
	}
}

// Window returns the sprint's start and end instants. A date-only end date
// covers that whole day.
func (s *Sprint) Window() (time.Time, time.Time, error) {
	start, _, err := ParseDate(s.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate: %w", err)
	}
	end, dateOnly, err := ParseDate(s.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate: %w", err)
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Millisecond)
	}
	return start, end, nil
}

// RefreshStatus recomputes Status and Participants and reports whether the
// stored status changed. A sprint with an unparseable window keeps its status.
func (s *Sprint) RefreshStatus(now time.Time) bool {
	s.Participants = len(s.RegisteredUsers)
	start, end, err := s.Window()
	if err != nil {
		return false
	}
	derived := DeriveSprintStatus(now, start, end)
	if derived == s.Status {
		return false
	}
	s.Status = derived
	return true
}

// Normalize replaces nil collections with empty ones so documents serialize
// as [] rather than null.
func (s *Sprint) Normalize() {
	if s.Sessions == nil {
		s.Sessions = []Session{}
	}
	for i := range s.Sessions {
		if s.Sessions[i].RegisteredUsers == nil {
			s.Sessions[i].RegisteredUsers = []string{}
		}
	}
	if s.Submissions == nil {
		s.Submissions = []Submission{}
	}
	if s.RegisteredUsers == nil {
		s.RegisteredUsers = []string{}
	}
	if s.ForumPosts == nil {
		s.ForumPosts = []ForumPost{}
	}
	for i := range s.ForumPosts {
		if s.ForumPosts[i].Replies == nil {
			s.ForumPosts[i].Replies = []ForumReply{}
		}
		s.ForumPosts[i].normalize()
	}
	s.Participants = len(s.RegisteredUsers)
}

// IsRegistered reports whether userID is registered for the sprint.
func (s *Sprint) IsRegistered(userID string) bool { return contains(s.RegisteredUsers, userID) }

// Register appends userID to the participants; false if already present.
func (s *Sprint) Register(userID string) bool {
	if s.IsRegistered(userID) {
		return false
	}
	s.RegisteredUsers = append(s.RegisteredUsers, userID)
	s.Participants = len(s.RegisteredUsers)
	return true
}

func (s *Sprint) FindSession(id string) *Session {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			return &s.Sessions[i]
		}
	}
	return nil
}

// RemoveSession deletes the session with the given id.
func (s *Sprint) RemoveSession(id string) bool {
	for i := range s.Sessions {
		if s.Sessions[i].ID == id {
			s.Sessions = append(s.Sessions[:i:i], s.Sessions[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Sprint) FindSubmission(id string) *Submission {
	for i := range s.Submissions {
		if s.Submissions[i].ID == id {
			return &s.Submissions[i]
		}
	}
	return nil
}

// SubmissionBy returns the submission made by userID, if any.
func (s *Sprint) SubmissionBy(userID string) *Submission {
	for i := range s.Submissions {
		if s.Submissions[i].UserID == userID {
			return &s.Submissions[i]
		}
	}
	return nil
}

func (s *Sprint) FindForumPost(id string) *ForumPost {
	for i := range s.ForumPosts {
		if s.ForumPosts[i].ID == id {
			return &s.ForumPosts[i]
		}
	}
	return nil
}
