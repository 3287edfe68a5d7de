package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/sabo-arena/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func players(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = 100 + i
	}
	return ids
}

func slotsByRound(slots []*MatchSlot) map[int][]*MatchSlot {
	out := make(map[int][]*MatchSlot)
	for _, s := range slots {
		out[s.Round] = append(out[s.Round], s)
	}
	return out
}

func TestGenerate_FullSixteen(t *testing.T) {
	g, err := NewTemplateGenerator(DefaultBracketSize)
	require.NoError(t, err)

	slots := g.Generate(players(16))
	require.Len(t, slots, 16)

	byRound := slotsByRound(slots)
	assert.Len(t, byRound[1], 8)
	assert.Len(t, byRound[2], 4)
	assert.Len(t, byRound[3], 2)
	assert.Len(t, byRound[4], 2)

	for i, s := range byRound[1] {
		require.NotNil(t, s.Player1ID)
		require.NotNil(t, s.Player2ID)
		assert.Equal(t, 100+2*i, *s.Player1ID)
		assert.Equal(t, 100+2*i+1, *s.Player2ID)
		assert.Equal(t, models.MatchScheduled, s.Status)
	}
	for _, round := range []int{2, 3, 4} {
		for _, s := range byRound[round] {
			assert.Nil(t, s.Player1ID)
			assert.Nil(t, s.Player2ID)
			assert.Nil(t, s.WinnerID)
			assert.Equal(t, models.MatchPending, s.Status)
		}
	}

	assert.Equal(t, models.MatchKindBronze, slots[14].Kind)
	assert.Equal(t, models.MatchKindFinal, slots[15].Kind)
}

func TestGenerate_NumbersAreGlobal(t *testing.T) {
	g, err := NewTemplateGenerator(16)
	require.NoError(t, err)

	for i, s := range g.Generate(players(16)) {
		assert.Equal(t, i+1, s.MatchNumber)
	}
}

func TestGenerate_FewerPlayersLeavesNilSlots(t *testing.T) {
	g, err := NewTemplateGenerator(16)
	require.NoError(t, err)

	slots := g.Generate(players(11))
	require.Len(t, slots, 16)

	// players 0..9 fill five slots, player 10 sits alone in the sixth
	for _, s := range slots[:5] {
		assert.True(t, s.Ready())
	}
	require.NotNil(t, slots[5].Player1ID)
	assert.Equal(t, 110, *slots[5].Player1ID)
	assert.Nil(t, slots[5].Player2ID)
	assert.Equal(t, models.MatchPending, slots[5].Status)
	for _, s := range slots[6:8] {
		assert.Nil(t, s.Player1ID)
		assert.Nil(t, s.Player2ID)
	}
}

func TestGenerate_ExtraPlayersIgnored(t *testing.T) {
	g, err := NewTemplateGenerator(4)
	require.NoError(t, err)

	slots := g.Generate(players(7))
	require.Len(t, slots, 4)
	assert.Equal(t, 103, *slots[1].Player2ID)
	assert.Equal(t, models.MatchKindBronze, slots[2].Kind)
	assert.Equal(t, 2, slots[2].Round)
}

func TestGenerate_PreservesInputOrder(t *testing.T) {
	g, err := NewTemplateGenerator(4)
	require.NoError(t, err)

	slots := g.Generate([]int{9, 3, 7, 1})
	assert.Equal(t, 9, *slots[0].Player1ID)
	assert.Equal(t, 3, *slots[0].Player2ID)
	assert.Equal(t, 7, *slots[1].Player1ID)
	assert.Equal(t, 1, *slots[1].Player2ID)
}

func TestGenerateBracket_Interface(t *testing.T) {
	g, err := NewTemplateGenerator(8)
	require.NoError(t, err)

	var gen BracketGenerator = g
	slots, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{PlayerIDs: players(8)})
	require.NoError(t, err)
	assert.Len(t, slots, 8)
	assert.Equal(t, 3, g.Rounds())
}

func TestNewTemplateGenerator_InvalidSize(t *testing.T) {
	for _, size := range []int{0, 2, 3, 12, 128} {
		_, err := NewTemplateGenerator(size)
		assert.ErrorIs(t, err, ErrInvalidBracketSize, "size %d", size)
	}
}
