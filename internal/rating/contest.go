package rating

import (
	"math"
	"sort"
)

// Standing is one participant's final contest result.
type Standing struct {
	UserID             string
	Rating             int
	ContestGamesPlayed int
	Score              int
}

// ContestKFactor picks the contest K. Provisional accounts move fastest,
// high-rated accounts slowest.
func ContestKFactor(rating, contestGamesPlayed int) int {
	switch {
	case contestGamesPlayed < NewUserGames:
		return 40
	case rating < 1400:
		return 32
	case rating < 1800:
		return 24
	case rating < 2200:
		return 16
	default:
		return 8
	}
}

// ExpectedRank returns the expected final rank for the player at index i
// of ratings: one plus the summed head-to-head expected scores against
// every other participant.
func ExpectedRank(i int, ratings []int) float64 {
	expected := 1.0
	for j, r := range ratings {
		if j == i {
			continue
		}
		expected += ExpectedScore(ratings[i], r)
	}
	return expected
}

// ContestChanges ranks standings by score (descending, stable) and
// applies the contest formula to every participant. Ranks are 1..n with
// ties kept in input order. The returned map is keyed by userId.
func ContestChanges(standings []Standing) map[string]Change {
	ranked := make([]Standing, len(standings))
	copy(ranked, standings)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	ratings := make([]int, len(ranked))
	for i, s := range ranked {
		ratings[i] = s.Rating
	}

	changes := make(map[string]Change, len(ranked))
	for i, p := range ranked {
		expected := ExpectedRank(i, ratings)
		actual := float64(i + 1)
		factor := (expected - actual) / expected

		k := ContestKFactor(p.Rating, p.ContestGamesPlayed)
		delta := clamp(int(math.Round(float64(k)*factor)), -MaxContestDelta, MaxContestDelta)
		if p.ContestGamesPlayed < NewUserGames && delta > 0 {
			delta = int(math.Round(float64(delta) * NewUserBonus))
		}

		newRating := clamp(p.Rating+delta, ContestMinRating, ContestMaxRating)
		changes[p.UserID] = Change{
			OldRating:    p.Rating,
			NewRating:    newRating,
			RatingChange: newRating - p.Rating,
		}
	}
	return changes
}
