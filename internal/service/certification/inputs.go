package certification

import (
	"time"

	"awsugmdu-backend/internal/domain"
	"awsugmdu-backend/pkg/validation"
)

type CreateGroupInput struct {
	Name          string                    `json:"name" validate:"required"`
	Description   string                    `json:"description"`
	Level         domain.CertificationLevel `json:"level" validate:"required,oneof=Foundational Associate Professional Specialty"`
	Certification string                    `json:"certification"`
	CreatedBy     string                    `json:"createdBy" validate:"required"`
	UserName      string                    `json:"userName"`
}

func (in CreateGroupInput) Validate() error { return validation.Struct(in) }

// UpdateGroupInput changes only the fields that are set. Membership and
// board content have their own operations.
type UpdateGroupInput struct {
	Name          *string                    `json:"name" validate:"omitnil,min=1"`
	Description   *string                    `json:"description"`
	Level         *domain.CertificationLevel `json:"level" validate:"omitnil,oneof=Foundational Associate Professional Specialty"`
	Certification *string                    `json:"certification"`
}

func (in UpdateGroupInput) Validate() error { return validation.Struct(in) }

func (in UpdateGroupInput) apply(g *domain.CertificationGroup) {
	set(&g.Name, in.Name)
	set(&g.Description, in.Description)
	set(&g.Certification, in.Certification)
	if in.Level != nil {
		g.Level = *in.Level
	}
}

func set(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

type MemberInput struct {
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
}

func (in MemberInput) Validate() error { return validation.Struct(in) }

// PostInput is the body of a new message or reply.
type PostInput struct {
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName"`
	Content  string `json:"content" validate:"required"`
}

func (in PostInput) Validate() error { return validation.Struct(in) }

type UpdateMessageInput struct {
	Content  *string `json:"content" validate:"omitnil,min=1"`
	IsPinned *bool   `json:"isPinned"`
}

func (in UpdateMessageInput) Validate() error { return validation.Struct(in) }

type UpdateReplyInput struct {
	Content string `json:"content" validate:"required"`
}

func (in UpdateReplyInput) Validate() error { return validation.Struct(in) }

type SessionInput struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time"`
	Duration    string `json:"duration"`
	MeetingLink string `json:"meetingLink"`
	HostID      string `json:"hostId"`
	HostName    string `json:"hostName"`
}

func (in SessionInput) Validate() error { return validation.Struct(in) }

func (in SessionInput) session(id string, now time.Time) domain.GroupSession {
	return domain.GroupSession{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Date:        in.Date,
		Time:        in.Time,
		Duration:    in.Duration,
		MeetingLink: in.MeetingLink,
		HostID:      in.HostID,
		HostName:    in.HostName,
		CreatedAt:   now,
	}
}

type UpdateSessionInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Time        *string `json:"time"`
	Duration    *string `json:"duration"`
	MeetingLink *string `json:"meetingLink"`
	HostID      *string `json:"hostId"`
	HostName    *string `json:"hostName"`
}

func (in UpdateSessionInput) apply(s *domain.GroupSession) {
	set(&s.Title, in.Title)
	set(&s.Description, in.Description)
	set(&s.Date, in.Date)
	set(&s.Time, in.Time)
	set(&s.Duration, in.Duration)
	set(&s.MeetingLink, in.MeetingLink)
	set(&s.HostID, in.HostID)
	set(&s.HostName, in.HostName)
}
