package models

// GroupConfig holds the channel wiring for one group. One row per group,
// written by the setup wizard and never deleted by the engine.
type GroupConfig struct {
	GroupID                int64 `json:"group_id" db:"group_id"`
	SignupChannelID        int64 `json:"signup_channel_id" db:"signup_channel_id"`
	SubmissionsChannelID   int64 `json:"submissions_channel_id" db:"submissions_channel_id"`
	AnnouncementsChannelID int64 `json:"announcements_channel_id" db:"announcements_channel_id"`
	BoardChannelID         int64 `json:"board_channel_id" db:"board_channel_id"`
}
