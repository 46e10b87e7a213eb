package services

import "errors"

// Shared errors used across services and the HTTP mapping.
var (
	// Lookup failures surfaced to the caller as user-visible messages.
	ErrGroupNotConfigured = errors.New("group is not configured, run setup first")
	ErrNoActiveEvent      = errors.New("no active event found for this group")
	ErrEventNotFound      = errors.New("event not found")

	// Validation and business rules.
	ErrValidationFailed      = errors.New("validation failed")
	ErrActiveEventExists     = errors.New("an active event already exists for this group")
	ErrAttachmentRequired    = errors.New("an attachment is required for a submission")
	ErrInvalidTeamSize       = errors.New("team size must be between 0 and 200")
	ErrInvalidApprovalsCount = errors.New("approvals required must be between 1 and 20")
	ErrInvalidEventTimes     = errors.New("event end time must be after start time")

	// Setup wizard flow control.
	ErrWizardNotActive     = errors.New("no setup wizard in progress for this group")
	ErrWizardAlreadyActive = errors.New("a setup wizard is already in progress for this group")
	ErrWizardExpired       = errors.New("setup wizard timed out, start again")
	ErrWizardWrongUser     = errors.New("setup wizard is owned by another user")
	ErrSetupForbidden      = errors.New("group management capability required")
)
