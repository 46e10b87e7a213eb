package models

import "time"

// SubmissionKind distinguishes progress screenshots from completed tiles.
// Only full_tile submissions count toward the leaderboard.
type SubmissionKind string

const (
	KindProgress SubmissionKind = "progress"
	KindFullTile SubmissionKind = "full_tile"
)

// SubmissionStatus is monotonic: pending moves to approved or rejected and
// never back.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// Submission is one piece of content posted by a participant.
// ApprovalsRequired is snapshotted from the event at creation so later
// policy edits cannot affect in-flight submissions.
type Submission struct {
	ID                int              `json:"id" db:"id"`
	EventID           int              `json:"event_id" db:"event_id"`
	UserID            int64            `json:"user_id" db:"user_id"`
	Description       string           `json:"description" db:"description"`
	Kind              SubmissionKind   `json:"kind" db:"kind"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	MessageID         int64            `json:"message_id" db:"message_id"`
	AttachmentKey     string           `json:"-" db:"attachment_key"`
	Status            SubmissionStatus `json:"status" db:"status"`
	ApprovalsRequired int              `json:"approvals_required" db:"approvals_required"`
}
