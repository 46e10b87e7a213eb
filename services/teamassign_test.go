package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionTeams(t *testing.T) {
	ordered := []int64{10, 20, 30, 40, 50}

	t.Run("size zero puts everyone on one team", func(t *testing.T) {
		teams := partitionTeams(ordered, 0)
		require.Len(t, teams, 1)
		assert.Equal(t, ordered, teams[1])
	})

	t.Run("size one makes solo teams in order", func(t *testing.T) {
		teams := partitionTeams(ordered, 1)
		require.Len(t, teams, 5)
		for i, id := range ordered {
			assert.Equal(t, []int64{id}, teams[i+1])
		}
	})

	t.Run("consecutive chunks with remainder kept", func(t *testing.T) {
		teams := partitionTeams(ordered, 2)
		require.Len(t, teams, 3)
		assert.Equal(t, []int64{10, 20}, teams[1])
		assert.Equal(t, []int64{30, 40}, teams[2])
		assert.Equal(t, []int64{50}, teams[3])
	})

	t.Run("empty roster yields no teams", func(t *testing.T) {
		assert.Empty(t, partitionTeams(nil, 3))
	})
}

func TestAssignTeamsProperties(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))

	participants := make([]int64, 23)
	for i := range participants {
		participants[i] = int64(1000 + i)
	}

	teams := AssignTeams(rnd, participants, 4)

	// ceil(23/4) = 6 teams, numbered contiguously from 1.
	require.Len(t, teams, 6)
	seen := make(map[int64]bool)
	for n := 1; n <= 6; n++ {
		members, ok := teams[n]
		require.True(t, ok, "team %d missing", n)
		if n < 6 {
			assert.Len(t, members, 4)
		} else {
			assert.Len(t, members, 3)
		}
		for _, id := range members {
			assert.False(t, seen[id], "participant %d assigned twice", id)
			seen[id] = true
		}
	}
	assert.Len(t, seen, len(participants))
}

func TestAssignTeamsDoesNotMutateInput(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	participants := []int64{1, 2, 3, 4, 5, 6}
	original := append([]int64(nil), participants...)

	AssignTeams(rnd, participants, 2)

	assert.Equal(t, original, participants)
}
