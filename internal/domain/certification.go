package domain

import "time"

// CertificationLevel is the AWS certification tier a study group targets.
type CertificationLevel string

const (
	LevelFoundational CertificationLevel = "Foundational"
	LevelAssociate    CertificationLevel = "Associate"
	LevelProfessional CertificationLevel = "Professional"
	LevelSpecialty    CertificationLevel = "Specialty"
)

// CertificationGroup is a study group with its members, sessions and
// message board embedded in one document.
type CertificationGroup struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Description       string             `json:"description,omitempty"`
	Level             CertificationLevel `json:"level"`
	Certification     string             `json:"certification,omitempty"`
	Members           []GroupMember      `json:"members"`
	Owners            []string           `json:"owners"`
	ScheduledSessions []GroupSession     `json:"scheduledSessions"`
	Messages          []GroupMessage     `json:"messages"`
	CreatedBy         string             `json:"createdBy"`
	Record
}

func (g *CertificationGroup) AggregateID() string { return g.ID }

type GroupMember struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName,omitempty"`
	JoinedAt time.Time `json:"joinedAt"`
}

// GroupSession is a study session scheduled by a group.
type GroupSession struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        string    `json:"date"`
	Time        string    `json:"time,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	MeetingLink string    `json:"meetingLink,omitempty"`
	HostID      string    `json:"hostId,omitempty"`
	HostName    string    `json:"hostName,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GroupMessage is a post on the group's message board.
type GroupMessage struct {
	ID       string       `json:"id"`
	UserID   string       `json:"userId"`
	UserName string       `json:"userName,omitempty"`
	Content  string       `json:"content"`
	Replies  []GroupReply `json:"replies"`
	IsPinned bool         `json:"isPinned"`
	Likes
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type GroupReply struct {
	ID       string `json:"id"`
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
	Content  string `json:"content"`
	Likes
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ValidLevel reports whether level is one of the four certification tiers.
func ValidLevel(level CertificationLevel) bool {
	switch level {
	case LevelFoundational, LevelAssociate, LevelProfessional, LevelSpecialty:
		return true
	}
	return false
}

func (g *CertificationGroup) Normalize() {
	if g.Members == nil {
		g.Members = []GroupMember{}
	}
	if g.Owners == nil {
		g.Owners = []string{}
	}
	if g.ScheduledSessions == nil {
		g.ScheduledSessions = []GroupSession{}
	}
	if g.Messages == nil {
		g.Messages = []GroupMessage{}
	}
	for i := range g.Messages {
		m := &g.Messages[i]
		if m.Replies == nil {
			m.Replies = []GroupReply{}
		}
		m.normalize()
		for j := range m.Replies {
			m.Replies[j].normalize()
		}
	}
}

func (g *CertificationGroup) IsMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (g *CertificationGroup) IsOwner(userID string) bool { return contains(g.Owners, userID) }

// AddMember appends a member; false if the user already belongs to the group.
func (g *CertificationGroup) AddMember(userID, userName string, now time.Time) bool {
	if g.IsMember(userID) {
		return false
	}
	g.Members = append(g.Members, GroupMember{UserID: userID, UserName: userName, JoinedAt: now})
	return true
}

// RemoveMember drops userID from the member list.
func (g *CertificationGroup) RemoveMember(userID string) bool {
	for i, m := range g.Members {
		if m.UserID == userID {
			g.Members = append(g.Members[:i:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}

func (g *CertificationGroup) FindMessage(id string) *GroupMessage {
	for i := range g.Messages {
		if g.Messages[i].ID == id {
			return &g.Messages[i]
		}
	}
	return nil
}

func (g *CertificationGroup) RemoveMessage(id string) bool {
	for i := range g.Messages {
		if g.Messages[i].ID == id {
			g.Messages = append(g.Messages[:i:i], g.Messages[i+1:]...)
			return true
		}
	}
	return false
}

func (g *CertificationGroup) FindSession(id string) *GroupSession {
	for i := range g.ScheduledSessions {
		if g.ScheduledSessions[i].ID == id {
			return &g.ScheduledSessions[i]
		}
	}
	return nil
}

func (g *CertificationGroup) RemoveSession(id string) bool {
	for i := range g.ScheduledSessions {
		if g.ScheduledSessions[i].ID == id {
			g.ScheduledSessions = append(g.ScheduledSessions[:i:i], g.ScheduledSessions[i+1:]...)
			return true
		}
	}
	return false
}

func (m *GroupMessage) FindReply(id string) *GroupReply {
	for i := range m.Replies {
		if m.Replies[i].ID == id {
			return &m.Replies[i]
		}
	}
	return nil
}

func (m *GroupMessage) RemoveReply(id string) bool {
	for i := range m.Replies {
		if m.Replies[i].ID == id {
			m.Replies = append(m.Replies[:i:i], m.Replies[i+1:]...)
			return true
		}
	}
	return false
}
