package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/Dosada05/sabo-arena/models"
)

// DefaultBracketSize is the classic 16 player club bracket.
const DefaultBracketSize = 16

var ErrInvalidBracketSize = errors.New("bracket size must be a power of two between 4 and 64")

// MatchSlot is one position of the elimination tree. Player fields stay nil
// until a prior match decides who plays there.
type MatchSlot struct {
	Round       int                `json:"round"`
	MatchNumber int                `json:"match_number"`
	Kind        models.MatchKind   `json:"kind"`
	Player1ID   *int               `json:"player1_id"`
	Player2ID   *int               `json:"player2_id"`
	WinnerID    *int               `json:"winner_id"`
	Status      models.MatchStatus `json:"status"`
}

// Ready reports whether both players are known.
func (s *MatchSlot) Ready() bool {
	return s.Player1ID != nil && s.Player2ID != nil
}

// TemplateGenerator builds the fixed slot skeleton of a single elimination
// bracket with a third place match.
type TemplateGenerator struct {
	size int
}

func NewTemplateGenerator(size int) (*TemplateGenerator, error) {
	if !ValidBracketSize(size) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBracketSize, size)
	}
	return &TemplateGenerator{size: size}, nil
}

func ValidBracketSize(size int) bool {
	return size >= 4 && size <= 64 && bits.OnesCount(uint(size)) == 1
}

func (g *TemplateGenerator) GetName() string {
	return "SingleEliminationTemplate"
}

func (g *TemplateGenerator) Size() int {
	return g.size
}

// Rounds is the number of rounds, counting the round that holds the bronze
// match and the final.
func (g *TemplateGenerator) Rounds() int {
	return bits.Len(uint(g.size)) - 1
}

func (g *TemplateGenerator) GenerateBracket(_ context.Context, params GenerateBracketParams) ([]*MatchSlot, error) {
	return g.Generate(params.PlayerIDs), nil
}

// Generate pairs players[0] with players[1], players[2] with players[3] and
// so on, in the order given. Missing players leave nil references in the
// trailing first round slots and players beyond the bracket size are
// ignored. All later slots start empty.
func (g *TemplateGenerator) Generate(players []int) []*MatchSlot {
	slots := make([]*MatchSlot, 0, g.size)
	number := 0
	next := func(round int, kind models.MatchKind) *MatchSlot {
		number++
		s := &MatchSlot{Round: round, MatchNumber: number, Kind: kind, Status: models.MatchPending}
		slots = append(slots, s)
		return s
	}

	playerAt := func(i int) *int {
		if i >= len(players) {
			return nil
		}
		id := players[i]
		return &id
	}

	for i := 0; i < g.size/2; i++ {
		s := next(1, models.MatchKindMain)
		s.Player1ID = playerAt(2 * i)
		s.Player2ID = playerAt(2*i + 1)
		if s.Ready() {
			s.Status = models.MatchScheduled
		}
	}

	last := g.Rounds()
	for round, count := 2, g.size/4; round < last; round, count = round+1, count/2 {
		for i := 0; i < count; i++ {
			next(round, models.MatchKindMain)
		}
	}

	next(last, models.MatchKindBronze)
	next(last, models.MatchKindFinal)

	return slots
}
