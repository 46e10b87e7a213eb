package models

// TeamMembership assigns one user to one numbered team of an event.
// Team numbers start at 1 and are contiguous. The whole set is rewritten
// in bulk at signup close, never patched incrementally.
type TeamMembership struct {
	EventID    int   `json:"event_id" db:"event_id"`
	TeamNumber int   `json:"team_number" db:"team_number"`
	UserID     int64 `json:"user_id" db:"user_id"`
}

// TeamStanding is one leaderboard row: approved full-tile submissions
// counted per team.
type TeamStanding struct {
	TeamNumber int `json:"team_number"`
	Count      int `json:"count"`
}
