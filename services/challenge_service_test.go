package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/repositories"
)

type challengeFixture struct {
	svc        *challengeService
	users      *fakeUserRepo
	challenges *fakeChallengeRepo
	ratings    *fakeRatingRepo
	notifier   *recordingNotifier
	clock      time.Time
}

func newChallengeFixture(t *testing.T, users ...*models.User) *challengeFixture {
	t.Helper()
	f := &challengeFixture{
		users:      newFakeUserRepo(users...),
		challenges: newFakeChallengeRepo(),
		ratings:    &fakeRatingRepo{},
		notifier:   &recordingNotifier{},
		clock:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := NewChallengeService(f.challenges, f.users, f.ratings, &fakeTransactor{}, f.notifier, 72*time.Hour, discardLogger())
	f.svc = svc.(*challengeService)
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func TestRaceToForStake(t *testing.T) {
	for i, stake := range StakeTiers {
		raceTo, ok := RaceToForStake(stake)
		require.True(t, ok)
		assert.Equal(t, 8+i, raceTo)
	}
	_, ok := RaceToForStake(250)
	assert.False(t, ok)
}

func TestChallengeService_CreateAppliesHandicap(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankH, 1000, 500))

	c, err := f.svc.Create(context.Background(), 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 300})
	require.NoError(t, err)
	assert.Equal(t, models.ChallengePending, c.Status)
	assert.Equal(t, 10, c.RaceTo)
	assert.Equal(t, 3, c.HandicapChallenger)
	assert.Equal(t, 0, c.HandicapOpponent)
	assert.Equal(t, f.clock.Add(72*time.Hour), c.ExpiresAt)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, brackets.UserRoom(2), f.notifier.sent[0].Room)
	assert.Equal(t, brackets.MessageChallengeCreated, f.notifier.sent[0].Type)
}

func TestChallengeService_CreateRejections(t *testing.T) {
	unranked := player(4, "dung", models.RankK, 1000, 0)
	unranked.VerifiedRank = nil
	banned := player(5, "em", models.RankK, 1000, 0)
	banned.Status = models.UserStatusBanned

	f := newChallengeFixture(t,
		player(1, "anh", models.RankK, 1000, 0),
		player(3, "cuong", models.RankG, 1000, 0),
		unranked, banned,
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   CreateChallengeInput
		wantErr error
	}{
		{"self", CreateChallengeInput{OpponentID: 1, StakeAmount: 100}, ErrChallengeSelf},
		{"stake not a tier", CreateChallengeInput{OpponentID: 3, StakeAmount: 250}, ErrInvalidStake},
		{"gap too large", CreateChallengeInput{OpponentID: 3, StakeAmount: 600}, ErrRankGapTooLarge},
		{"opponent unranked", CreateChallengeInput{OpponentID: 4, StakeAmount: 100}, ErrRankRequired},
		{"opponent banned", CreateChallengeInput{OpponentID: 5, StakeAmount: 100}, ErrUserBanned},
		{"opponent missing", CreateChallengeInput{OpponentID: 99, StakeAmount: 100}, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, 1, tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Empty(t, f.challenges.challenges)
}

func TestChallengeService_AcceptDeclineCancel(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankK, 1000, 0))
	ctx := context.Background()

	c, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 100})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, 1, c.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation, "challenger cannot accept")

	_, err = f.svc.Cancel(ctx, 2, c.ID)
	assert.ErrorIs(t, err, ErrForbiddenOperation, "opponent cannot cancel")

	accepted, err := f.svc.Accept(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeAccepted, accepted.Status)

	_, err = f.svc.Decline(ctx, 2, c.ID)
	assert.ErrorIs(t, err, ErrChallengeNotPending)
	_, err = f.svc.Cancel(ctx, 1, c.ID)
	assert.ErrorIs(t, err, ErrChallengeNotPending)

	second, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 100})
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(ctx, 1, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeCancelled, cancelled.Status)
}

func TestChallengeService_AcceptAfterExpiry(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankK, 1000, 0))
	ctx := context.Background()

	c, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 100})
	require.NoError(t, err)

	f.clock = f.clock.Add(73 * time.Hour)
	_, err = f.svc.Accept(ctx, 2, c.ID)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	stored, err := f.svc.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeExpired, stored.Status)
}

func TestChallengeService_SubmitScoreSettlesRatings(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankH, 1000, 500))
	ctx := context.Background()

	c, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 300})
	require.NoError(t, err)
	_, err = f.svc.SubmitScore(ctx, 1, c.ID, SubmitScoreInput{ChallengerScore: 7, OpponentScore: 9})
	assert.ErrorIs(t, err, ErrChallengeNotActive, "pending challenges cannot be scored")

	_, err = f.svc.Accept(ctx, 2, c.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitScore(ctx, 3, c.ID, SubmitScoreInput{ChallengerScore: 7, OpponentScore: 9})
	assert.ErrorIs(t, err, ErrForbiddenOperation)

	// 7 racks plus a handicap of 3 reaches the race to 10
	done, err := f.svc.SubmitScore(ctx, 2, c.ID, SubmitScoreInput{ChallengerScore: 7, OpponentScore: 9})
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeCompleted, done.Status)
	require.NotNil(t, done.WinnerID)
	assert.Equal(t, 1, *done.WinnerID)

	winner, loser := f.users.get(1), f.users.get(2)
	assert.Equal(t, 1016, winner.Elo)
	assert.Equal(t, 984, loser.Elo)
	assert.Equal(t, 300, winner.SpaPoints)
	assert.Equal(t, 350, loser.SpaPoints)

	require.Len(t, f.ratings.elo, 2)
	assert.Equal(t, 16, f.ratings.elo[0].EloChange)
	assert.Equal(t, -16, f.ratings.elo[1].EloChange)
	require.Len(t, f.ratings.spa, 2)
	assert.Equal(t, models.SpaChallengeWin, f.ratings.spa[0].Reason)
	assert.Equal(t, -150, f.ratings.spa[1].Amount)

	_, err = f.svc.SubmitScore(ctx, 1, c.ID, SubmitScoreInput{ChallengerScore: 7, OpponentScore: 9})
	assert.ErrorIs(t, err, ErrChallengeNotActive, "a completed challenge cannot be scored twice")
}

// commitFirstTransactor applies a change another request committed just
// before this transaction got hold of the rows.
type commitFirstTransactor struct {
	fakeTransactor
	before func()
}

func (f *commitFirstTransactor) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if f.before != nil {
		f.before()
		f.before = nil
	}
	return f.fakeTransactor.WithinTx(ctx, fn)
}

func TestChallengeService_SubmitScoreUsesLockedRatings(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankH, 1000, 500))
	ctx := context.Background()

	c, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 300})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, 2, c.ID)
	require.NoError(t, err)

	// another challenge of player 2 settles first
	f.svc.transactor = &commitFirstTransactor{before: func() {
		f.users.mu.Lock()
		defer f.users.mu.Unlock()
		f.users.users[2].Elo = 1200
		f.users.users[2].SpaPoints = 100
	}}

	_, err = f.svc.SubmitScore(ctx, 2, c.ID, SubmitScoreInput{ChallengerScore: 7, OpponentScore: 9})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, f.users.locked, "both players locked, lowest id first")
	assert.Equal(t, 1024, f.users.get(1).Elo)
	assert.Equal(t, 1176, f.users.get(2).Elo)
	assert.Equal(t, 300, f.users.get(1).SpaPoints)
	assert.Equal(t, 0, f.users.get(2).SpaPoints, "loss capped at the balance read under lock")

	require.Len(t, f.ratings.elo, 2)
	assert.Equal(t, 1200, f.ratings.elo[1].EloBefore)
	assert.Equal(t, -24, f.ratings.elo[1].EloChange)
	require.Len(t, f.ratings.spa, 2)
	assert.Equal(t, -100, f.ratings.spa[1].Amount)
}

func TestChallengeService_LoserWithoutSpaKeepsZero(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankK, 1000, 0))
	ctx := context.Background()

	c, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 100})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, 2, c.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitScore(ctx, 1, c.ID, SubmitScoreInput{ChallengerScore: 3, OpponentScore: 8})
	require.NoError(t, err)

	assert.Equal(t, 100, f.users.get(2).SpaPoints)
	assert.Equal(t, 0, f.users.get(1).SpaPoints)
	assert.Len(t, f.ratings.spa, 1, "no ledger entry for a zero loss")
}

func TestResolveWinner(t *testing.T) {
	c := &models.Challenge{ChallengerID: 1, OpponentID: 2, RaceTo: 10, HandicapChallenger: 2}

	tests := []struct {
		name       string
		input      SubmitScoreInput
		wantWinner int
		wantErr    bool
	}{
		{"challenger with handicap", SubmitScoreInput{ChallengerScore: 8, OpponentScore: 9}, 1, false},
		{"opponent clean", SubmitScoreInput{ChallengerScore: 7, OpponentScore: 10}, 2, false},
		{"nobody finished", SubmitScoreInput{ChallengerScore: 5, OpponentScore: 6}, 0, true},
		{"both finished", SubmitScoreInput{ChallengerScore: 8, OpponentScore: 10}, 0, true},
		{"overshoot", SubmitScoreInput{ChallengerScore: 9, OpponentScore: 3}, 0, true},
		{"negative", SubmitScoreInput{ChallengerScore: -1, OpponentScore: 10}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, err := ResolveWinner(c, tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScore)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWinner, winner)
		})
	}
}

func TestChallengeService_ExpireStale(t *testing.T) {
	f := newChallengeFixture(t, player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankK, 1000, 0))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, 1, CreateChallengeInput{OpponentID: 2, StakeAmount: 100})
	require.NoError(t, err)

	n, err := f.svc.ExpireStale(ctx, f.clock.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	n, err = f.svc.ExpireStale(ctx, f.clock.Add(72*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestChallengeService_PreviewHandicap(t *testing.T) {
	f := newChallengeFixture(t)

	res, err := f.svc.PreviewHandicap(language.English, "k", "H", 300)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, 4, res.RankDifference)
	assert.Equal(t, 3, res.HandicapChallenger)

	_, err = f.svc.PreviewHandicap(language.English, "Z", "H", 300)
	assert.ErrorIs(t, err, ErrInvalidRank)
	_, err = f.svc.PreviewHandicap(language.English, "K", "H", 0)
	assert.ErrorIs(t, err, ErrValidationFailed)
}
