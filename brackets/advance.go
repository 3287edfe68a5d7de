package brackets

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Dosada05/sabo-arena/models"
)

var (
	ErrSlotNotFound   = errors.New("bracket slot not found")
	ErrSlotNotReady   = errors.New("bracket slot does not have both players yet")
	ErrSlotCompleted  = errors.New("bracket slot is already completed")
	ErrInvalidWinner  = errors.New("winner is not a player of this slot")
	ErrBrokenTemplate = errors.New("bracket slots do not form a complete template")
)

// Advance records winnerID as the winner of the slot with matchNumber and
// moves players into the slots that depend on it: the winner into the next
// round (or the final), semifinal losers into the bronze match. It returns
// every slot it modified, the decided slot first.
func Advance(slots []*MatchSlot, matchNumber, winnerID int) ([]*MatchSlot, error) {
	var slot *MatchSlot
	for _, s := range slots {
		if s.MatchNumber == matchNumber {
			slot = s
			break
		}
	}
	if slot == nil {
		return nil, fmt.Errorf("%w: match %d", ErrSlotNotFound, matchNumber)
	}
	if slot.Status == models.MatchCompleted {
		return nil, fmt.Errorf("%w: match %d", ErrSlotCompleted, matchNumber)
	}
	if !slot.Ready() {
		return nil, fmt.Errorf("%w: match %d", ErrSlotNotReady, matchNumber)
	}

	var loserID int
	switch winnerID {
	case *slot.Player1ID:
		loserID = *slot.Player2ID
	case *slot.Player2ID:
		loserID = *slot.Player1ID
	default:
		return nil, fmt.Errorf("%w: player %d in match %d", ErrInvalidWinner, winnerID, matchNumber)
	}

	w := winnerID
	slot.WinnerID = &w
	slot.Status = models.MatchCompleted
	changed := []*MatchSlot{slot}

	if slot.Kind != models.MatchKindMain {
		return changed, nil
	}

	rounds, final, bronze := index(slots)
	if final == nil || bronze == nil || len(rounds) == 0 {
		return nil, ErrBrokenTemplate
	}

	lastMain := len(rounds)
	pos := positionInRound(rounds[slot.Round], slot)
	if pos < 0 {
		return nil, ErrBrokenTemplate
	}

	if slot.Round == lastMain {
		place(final, pos, winnerID)
		place(bronze, pos, loserID)
		return append(changed, final, bronze), nil
	}

	nextRound := rounds[slot.Round+1]
	if pos/2 >= len(nextRound) {
		return nil, ErrBrokenTemplate
	}
	target := nextRound[pos/2]
	place(target, pos, winnerID)
	return append(changed, target), nil
}

// Champion returns the winner of the final, if it has been played.
func Champion(slots []*MatchSlot) *int {
	for _, s := range slots {
		if s.Kind == models.MatchKindFinal {
			return s.WinnerID
		}
	}
	return nil
}

// Loser returns the player of a completed slot who did not win.
func (s *MatchSlot) Loser() *int {
	if s.WinnerID == nil || !s.Ready() {
		return nil
	}
	if *s.WinnerID == *s.Player1ID {
		return s.Player2ID
	}
	return s.Player1ID
}

func place(target *MatchSlot, pos, playerID int) {
	id := playerID
	if pos%2 == 0 {
		target.Player1ID = &id
	} else {
		target.Player2ID = &id
	}
	if target.Ready() && target.Status == models.MatchPending {
		target.Status = models.MatchScheduled
	}
}

// index groups the main slots by round (1-based keys) ordered by match
// number, and picks out the final and bronze slots.
func index(slots []*MatchSlot) (map[int][]*MatchSlot, *MatchSlot, *MatchSlot) {
	rounds := make(map[int][]*MatchSlot)
	var final, bronze *MatchSlot
	for _, s := range slots {
		switch s.Kind {
		case models.MatchKindFinal:
			final = s
		case models.MatchKindBronze:
			bronze = s
		default:
			rounds[s.Round] = append(rounds[s.Round], s)
		}
	}
	for _, r := range rounds {
		sort.Slice(r, func(i, j int) bool { return r[i].MatchNumber < r[j].MatchNumber })
	}
	return rounds, final, bronze
}

func positionInRound(round []*MatchSlot, slot *MatchSlot) int {
	for i, s := range round {
		if s == slot {
			return i
		}
	}
	return -1
}
