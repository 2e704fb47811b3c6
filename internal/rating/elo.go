// Package rating implements the Elo math for duels and contests.
// Everything here is pure and deterministic; callers own persistence.
package rating

import "math"

// Rating bounds and adjustment caps.
const (
	MinRating = 100
	MaxRating = 4000

	MaxDuelDelta = 50

	ContestMinRating = 0
	ContestMaxRating = 4000
	MaxContestDelta  = 100

	// Accounts with fewer contest games get the provisional bonus.
	NewUserGames = 6
	NewUserBonus = 1.2
)

// Outcome is the actual score S from one player's perspective.
type Outcome float64

const (
	Win  Outcome = 1
	Draw Outcome = 0.5
	Loss Outcome = 0
)

// Player carries the inputs the duel formula needs.
type Player struct {
	UserID      string
	Rating      int
	GamesPlayed int
}

// Change records one player's rating movement.
type Change struct {
	OldRating    int `json:"oldRating"`
	NewRating    int `json:"newRating"`
	RatingChange int `json:"ratingChange"`
}

// ExpectedScore returns the Elo probability that a player rated rating
// beats an opponent rated opponent.
func ExpectedScore(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

// KFactor picks the duel K by account maturity and strength. The
// provisional rule wins over the high-rating rule.
func KFactor(rating, gamesPlayed int) int {
	switch {
	case gamesPlayed < 30 || rating < 1200:
		return 40
	case rating >= 2000:
		return 10
	default:
		return 20
	}
}

// DuelDelta returns the rating change for one player, clamped to
// ±MaxDuelDelta.
func DuelDelta(rating, opponent, gamesPlayed int, s Outcome) int {
	k := KFactor(rating, gamesPlayed)
	e := ExpectedScore(rating, opponent)
	delta := int(math.Round(float64(k) * (float64(s) - e)))
	return clamp(delta, -MaxDuelDelta, MaxDuelDelta)
}

// Duel computes both players' changes for a finished duel. outcomeA is
// A's actual score; B receives the complement.
func Duel(a, b Player, outcomeA Outcome) (Change, Change) {
	deltaA := DuelDelta(a.Rating, b.Rating, a.GamesPlayed, outcomeA)
	deltaB := DuelDelta(b.Rating, a.Rating, b.GamesPlayed, 1-outcomeA)
	return applyDuel(a, deltaA), applyDuel(b, deltaB)
}

func applyDuel(p Player, delta int) Change {
	newRating := clamp(p.Rating+delta, MinRating, MaxRating)
	return Change{
		OldRating:    p.Rating,
		NewRating:    newRating,
		RatingChange: newRating - p.Rating,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
