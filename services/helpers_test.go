package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clantools/bingo-system/models"
)

func TestParseChannelMention(t *testing.T) {
	id, ok := parseChannelMention("<#123456789012345678>")
	require.True(t, ok)
	assert.Equal(t, int64(123456789012345678), id)

	_, ok = parseChannelMention("#general")
	assert.False(t, ok)

	_, ok = parseChannelMention("<#abc>")
	assert.False(t, ok)
}

func TestParseRoleMention(t *testing.T) {
	id, ok := parseRoleMention("<@&987654321>")
	require.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, int64(987654321), *id)

	for _, none := range []string{"none", "No", "n/a"} {
		id, ok := parseRoleMention(none)
		require.True(t, ok, none)
		assert.Nil(t, id)
	}

	_, ok = parseRoleMention("@everyone")
	assert.False(t, ok)
}

func TestParseEventDateTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 19:00 EST is 00:00 UTC the next day.
	got, err := parseEventDateTime("2026-01-17 19:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC), got)

	_, err = parseEventDateTime("17/01/2026 19:00", loc)
	assert.Error(t, err)
}

func TestValidateEventTimes(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	close := start.Add(-2 * time.Hour)

	assert.NoError(t, validateEventTimes(start, close, nil))

	end := start.Add(48 * time.Hour)
	assert.NoError(t, validateEventTimes(start, close, &end))

	badEnd := start.Add(-time.Minute)
	assert.ErrorIs(t, validateEventTimes(start, close, &badEnd), ErrInvalidEventTimes)

	assert.ErrorIs(t, validateEventTimes(start, start.Add(time.Hour), nil), ErrValidationFailed)
}

func TestIsValidStatusTransition(t *testing.T) {
	valid := []struct{ from, to models.EventStatus }{
		{models.StatusSetup, models.StatusSignupOpen},
		{models.StatusSignupOpen, models.StatusSignupClosed},
		{models.StatusSignupOpen, models.StatusRunning},
		{models.StatusSignupClosed, models.StatusRunning},
		{models.StatusRunning, models.StatusEnded},
		{models.StatusRunning, models.StatusRunning},
	}
	for _, tc := range valid {
		assert.True(t, isValidStatusTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	invalid := []struct{ from, to models.EventStatus }{
		{models.StatusSignupClosed, models.StatusSignupOpen},
		{models.StatusRunning, models.StatusSignupOpen},
		{models.StatusEnded, models.StatusRunning},
		{models.StatusSetup, models.StatusRunning},
	}
	for _, tc := range invalid {
		assert.False(t, isValidStatusTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestParseBoundedInt(t *testing.T) {
	v, ok := parseBoundedInt(" 42 ", 0, 200)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = parseBoundedInt("201", 0, 200)
	assert.False(t, ok)

	_, ok = parseBoundedInt("-1", 0, 200)
	assert.False(t, ok)

	_, ok = parseBoundedInt("two", 0, 200)
	assert.False(t, ok)
}
