// Package handicap computes the rack bonus granted to the weaker player of a
// SABO stake challenge.
package handicap

import (
	"fmt"

	"github.com/Dosada05/sabo-arena/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// MaxRankGap is the largest ordinal distance allowed between the two
	// players: two main ranks, each with its "+" sub-rank.
	MaxRankGap = 4

	stakeBase = 200
	stakeStep = 25
)

func init() {
	// The divisor stakeBase - gap*stakeStep must stay positive for every
	// allowed gap.
	if stakeBase-MaxRankGap*stakeStep <= 0 {
		panic(fmt.Sprintf("handicap: divisor is not positive for MaxRankGap=%d", MaxRankGap))
	}
}

// Result is never persisted; callers store the outcome of the match instead.
type Result struct {
	RankDifference     int    `json:"rank_difference"`
	HandicapChallenger int    `json:"handicap_challenger"`
	HandicapOpponent   int    `json:"handicap_opponent"`
	IsValid            bool   `json:"is_valid"`
	Explanation        string `json:"explanation"`
}

// DefaultLanguage is used by Calculate for the explanation text.
var DefaultLanguage = language.Vietnamese

// Calculate returns the handicap for a challenge between challenger and
// opponent at the given stake, explained in DefaultLanguage.
func Calculate(challenger, opponent models.Rank, stakeAmount int) Result {
	return CalculateIn(DefaultLanguage, challenger, opponent, stakeAmount)
}

// CalculateIn is Calculate with the explanation rendered for tag.
// Problems are reported through IsValid, never as an error.
func CalculateIn(tag language.Tag, challenger, opponent models.Rank, stakeAmount int) Result {
	p := message.NewPrinter(tag)

	if !challenger.IsValid() || !opponent.IsValid() {
		return Result{Explanation: p.Sprintf(msgUnknownRank)}
	}

	diff := opponent.Ordinal() - challenger.Ordinal()
	gap := abs(diff)

	if gap > MaxRankGap {
		return Result{
			RankDifference: diff,
			Explanation:    p.Sprintf(msgGapTooLarge, gap, MaxRankGap),
		}
	}

	res := Result{RankDifference: diff, IsValid: true}
	if diff == 0 {
		res.Explanation = p.Sprintf(msgEqualRanks)
		return res
	}

	bonus := Amount(gap, stakeAmount)
	switch {
	case bonus == 0:
		res.Explanation = p.Sprintf(msgStakeTooLow, gap, stakeAmount)
	case diff > 0:
		res.HandicapChallenger = bonus
		res.Explanation = p.Sprintf(msgChallengerBonus, bonus, gap, stakeAmount)
	default:
		res.HandicapOpponent = bonus
		res.Explanation = p.Sprintf(msgOpponentBonus, bonus, gap, stakeAmount)
	}
	return res
}

// Amount is the bonus for a rank gap at a stake: the stake converted at a
// rate that improves with the gap, capped at the gap itself.
func Amount(gap, stakeAmount int) int {
	gap = abs(gap)
	if gap == 0 || gap > MaxRankGap {
		return 0
	}
	bonus := stakeAmount / (stakeBase - gap*stakeStep)
	if bonus < 0 {
		return 0
	}
	return min(gap, bonus)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
