package brackets

import (
	"context"

	"github.com/Dosada05/sabo-arena/models"
)

type GenerateBracketParams struct {
	Tournament *models.Tournament
	// PlayerIDs in pairing order.
	PlayerIDs []int
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*MatchSlot, error)

	GetName() string
}
