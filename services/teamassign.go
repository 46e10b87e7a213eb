package services

import "math/rand"

// AssignTeams partitions participants into numbered teams. The participant
// order is shuffled with the caller-provided source, then split according
// to the team-size policy:
//
//	teamSize == 0: everyone on team 1
//	teamSize == 1: one solo team per participant, numbered in shuffle order
//	teamSize >= 2: consecutive chunks of teamSize; the final team keeps the
//	               remainder, it is never dropped or merged
//
// Only random selection is implemented; captains/preferred modes fall back
// to the same partition.
func AssignTeams(r *rand.Rand, participants []int64, teamSize int) map[int][]int64 {
	shuffled := make([]int64, len(participants))
	copy(shuffled, participants)
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return partitionTeams(shuffled, teamSize)
}

// partitionTeams splits an already-ordered participant list. Team numbers
// are contiguous from 1.
func partitionTeams(ordered []int64, teamSize int) map[int][]int64 {
	teams := make(map[int][]int64)
	if len(ordered) == 0 {
		return teams
	}

	switch {
	case teamSize <= 0:
		teams[1] = ordered
	case teamSize == 1:
		for i, id := range ordered {
			teams[i+1] = []int64{id}
		}
	default:
		for i, id := range ordered {
			n := i/teamSize + 1
			teams[n] = append(teams[n], id)
		}
	}
	return teams
}
