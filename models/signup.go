package models

import "time"

// Signup is one participant on an event roster. Unique per (event, user).
type Signup struct {
	EventID  int       `json:"event_id" db:"event_id"`
	UserID   int64     `json:"user_id" db:"user_id"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}
