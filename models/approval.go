package models

import "time"

// Approval is one distinct approver's vote on a submission. Unique per
// (submission, user); duplicates are no-ops at the storage layer.
type Approval struct {
	SubmissionID int       `json:"submission_id" db:"submission_id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ApprovedAt   time.Time `json:"approved_at" db:"approved_at"`
}
