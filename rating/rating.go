// Package rating holds the ELO and SPA point arithmetic applied when
// challenges and tournaments finish.
package rating

import "math"

const (
	// KFactor is the maximum ELO swing of a single match.
	KFactor   = 32
	deviation = 400.0
)

// Expected is the probability that a player rated a beats a player rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/deviation))
}

// Elo returns the new ratings of the winner and the loser. The winner's
// gain equals the loser's loss.
func Elo(winner, loser int) (newWinner, newLoser int) {
	delta := int(math.Round(KFactor * (1 - Expected(winner, loser))))
	return winner + delta, loser - delta
}

// ChallengeSpa returns the SPA change for the winner and the loser of a
// stake challenge. The loser never drops below zero.
func ChallengeSpa(stake, loserBalance int) (winnerGain, loserLoss int) {
	if stake <= 0 {
		return 0, 0
	}
	loss := stake / 2
	if loss > loserBalance {
		loss = max(loserBalance, 0)
	}
	return stake, loss
}

// placementPoints are SPA points by final tournament position.
var placementPoints = map[int]int{
	1: 1000,
	2: 700,
	3: 500,
	4: 400,
}

// PlacementSpa returns the SPA awarded for finishing at place, 0 outside
// the top four.
func PlacementSpa(place int) int {
	return placementPoints[place]
}
