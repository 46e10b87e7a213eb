package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/clantools/bingo-system/models"
)

var (
	channelMentionRe = regexp.MustCompile(`^<#!?(\d+)>$`)
	roleMentionRe    = regexp.MustCompile(`^<@&(\d+)>$`)
)

// eventDateTimeLayout is the operator-facing input format; the timezone is
// collected separately and applied on parse.
const eventDateTimeLayout = "2006-01-02 15:04"

func parseChannelMention(text string) (int64, bool) {
	m := channelMentionRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseRoleMention returns (nil, true) for the explicit "none" answers.
func parseRoleMention(text string) (*int64, bool) {
	t := strings.TrimSpace(text)
	switch strings.ToLower(t) {
	case "none", "no", "n/a":
		return nil, true
	}
	m := roleMentionRe.FindStringSubmatch(t)
	if m == nil {
		return nil, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, false
	}
	return &id, true
}

func parseBoundedInt(text string, minValue, maxValue int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	if v < minValue || v > maxValue {
		return 0, false
	}
	return v, true
}

// parseEventDateTime interprets "YYYY-MM-DD HH:MM" in the given location
// and normalizes to UTC.
func parseEventDateTime(text string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(eventDateTimeLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse datetime %q: %w", text, err)
	}
	return t.UTC(), nil
}

func validateEventTimes(start, signupClose time.Time, end *time.Time) error {
	if start.IsZero() || signupClose.IsZero() {
		return fmt.Errorf("%w: start and signup-close times are required", ErrValidationFailed)
	}
	if signupClose.After(start) {
		return fmt.Errorf("%w: signup close (%s) cannot be after start (%s)",
			ErrValidationFailed, signupClose.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	if end != nil && !start.Before(*end) {
		return ErrInvalidEventTimes
	}
	return nil
}

// isValidStatusTransition gates forward-only lifecycle moves. running→ended
// is valid at the schema level but no engine rule triggers it; the entry is
// the extension point for an explicit end-of-event trigger.
func isValidStatusTransition(current, next models.EventStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.EventStatus][]models.EventStatus{
		models.StatusSetup:        {models.StatusSignupOpen},
		models.StatusSignupOpen:   {models.StatusSignupClosed, models.StatusRunning},
		models.StatusSignupClosed: {models.StatusRunning},
		models.StatusRunning:      {models.StatusEnded},
		models.StatusEnded:        {},
	}
	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return true
		}
	}
	return false
}

func mention(userID int64) string {
	return fmt.Sprintf("<@%d>", userID)
}
