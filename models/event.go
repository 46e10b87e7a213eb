package models

import "time"

// EventStatus represents event lifecycle states, matching the ENUM-like
// status column in the DB.
type EventStatus string

const (
	StatusSetup        EventStatus = "setup"
	StatusSignupOpen   EventStatus = "signup_open"
	StatusSignupClosed EventStatus = "signup_closed"
	StatusRunning      EventStatus = "running"
	StatusEnded        EventStatus = "ended"
)

// IsTerminal reports whether no further engine transitions apply.
func (s EventStatus) IsTerminal() bool {
	return s == StatusEnded
}

// TeamMode selects the team-partitioning strategy. Only random is
// implemented; the other values are accepted and behave identically.
type TeamMode string

const (
	TeamModeRandom    TeamMode = "random"
	TeamModeCaptains  TeamMode = "captains"
	TeamModePreferred TeamMode = "preferred"
)

// RevealTrigger is the lifecycle point at which the board asset is published.
type RevealTrigger string

const (
	RevealOnCreate      RevealTrigger = "signup_created"
	RevealOnSignupClose RevealTrigger = "signups_close"
	RevealOnStart       RevealTrigger = "bingo_start"
)

// ApprovalPolicy controls how submissions are finalized. PolicyNonTeammate
// is reserved: it is stored as given but admission is checked exactly like
// PolicyModerator.
type ApprovalPolicy string

const (
	PolicyNone        ApprovalPolicy = "none"
	PolicyModerator   ApprovalPolicy = "admin"
	PolicyNonTeammate ApprovalPolicy = "nonteammate"
)

// Event is one run of the contest, scoped to one group. Exactly one
// non-terminal event exists per group at a time.
type Event struct {
	ID                   int            `json:"id" db:"id"`
	GroupID              int64          `json:"group_id" db:"group_id"`
	Name                 string         `json:"name" db:"name"`
	GameMode             string         `json:"game_mode" db:"game_mode"`
	TeamSize             int            `json:"team_size" db:"team_size"`
	TeamMode             TeamMode       `json:"team_mode" db:"team_mode"`
	NotifyRoleID         *int64         `json:"notify_role_id,omitempty" db:"notify_role_id"`
	StartAt              time.Time      `json:"start_at" db:"start_at"`
	EndAt                *time.Time     `json:"end_at,omitempty" db:"end_at"`
	SignupCloseAt        time.Time      `json:"signup_close_at" db:"signup_close_at"`
	RevealBoard          RevealTrigger  `json:"reveal_board" db:"reveal_board"`
	ApprovalPolicy       ApprovalPolicy `json:"approval_policy" db:"approval_policy"`
	ApprovalsRequired    int            `json:"approvals_required" db:"approvals_required"`
	Status               EventStatus    `json:"status" db:"status"`
	SignupMessageID      *int64         `json:"signup_message_id,omitempty" db:"signup_message_id"`
	LeaderboardMessageID *int64         `json:"leaderboard_message_id,omitempty" db:"leaderboard_message_id"`
	BoardImageKey        *string        `json:"-" db:"board_image_key"`
	CreatedBy            int64          `json:"created_by" db:"created_by"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
}
