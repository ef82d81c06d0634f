package domain

// User is the platform profile that holds a points balance. Points only move
// through atomic adjustments, never through whole-document saves.
type User struct {
	ID     string `json:"id"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
	Points int    `json:"points"`
	Record
}

func (u *User) AggregateID() string { return u.ID }
