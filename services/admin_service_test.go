package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/sabo-arena/db"
	"github.com/Dosada05/sabo-arena/models"
)

type fakeMigrator struct {
	version int64
	upErr   error
}

func (m *fakeMigrator) Up(context.Context) (int64, error) {
	if m.upErr != nil {
		return 0, m.upErr
	}
	m.version = 4
	return m.version, nil
}

func (m *fakeMigrator) Status(context.Context) (*db.MigrationStatus, error) {
	return &db.MigrationStatus{CurrentVersion: m.version, LatestVersion: 4, Pending: int(4 - m.version)}, nil
}

type adminFixture struct {
	svc       AdminService
	users     *fakeUserRepo
	penalties *fakePenaltyRepo
	ratings   *fakeRatingRepo
	migrator  *fakeMigrator
}

func newAdminFixture(users ...*models.User) *adminFixture {
	f := &adminFixture{
		users:     newFakeUserRepo(users...),
		penalties: newFakePenaltyRepo(),
		ratings:   &fakeRatingRepo{},
		migrator:  &fakeMigrator{version: 2},
	}
	f.svc = NewAdminService(f.users, f.penalties, f.ratings, &fakeTransactor{}, f.migrator, newFakeUploader(), &recordingNotifier{}, discardLogger())
	return f
}

var longAppeal = strings.Repeat("Tôi không vi phạm luật. ", 3)

func TestAdminService_BanAndUnban(t *testing.T) {
	f := newAdminFixture(player(1, "anh", models.RankK, 1000, 0))
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.BanUser(ctx, admin, 1, " "), ErrValidationFailed)
	assert.ErrorIs(t, f.svc.BanUser(ctx, Actor{UserID: 1, Role: models.RoleAdmin}, 1, "x"), ErrForbiddenOperation)
	assert.ErrorIs(t, f.svc.BanUser(ctx, admin, 42, "cheating"), ErrUserNotFound)

	require.NoError(t, f.svc.BanUser(ctx, admin, 1, "cheating"))
	assert.True(t, f.users.get(1).IsBanned())
	assert.Equal(t, "cheating", *f.users.get(1).BanReason)

	require.NoError(t, f.svc.UnbanUser(ctx, admin, 1))
	assert.False(t, f.users.get(1).IsBanned())
	assert.Nil(t, f.users.get(1).BanReason)
}

func TestAdminService_PenaltyAppealRevokedRefunds(t *testing.T) {
	f := newAdminFixture(player(1, "anh", models.RankK, 1000, 120))
	ctx := context.Background()

	penalty, err := f.svc.IssuePenalty(ctx, admin, IssuePenaltyInput{UserID: 1, SpaDeducted: 200, Reason: "no-show"})
	require.NoError(t, err)
	assert.Equal(t, 120, penalty.SpaDeducted, "deduction is capped at the balance")
	assert.Equal(t, []int{1}, f.users.locked, "balance read under lock")
	assert.Equal(t, 0, f.users.get(1).SpaPoints)

	_, err = f.svc.AppealPenalty(ctx, 1, penalty.ID, "too short")
	assert.ErrorIs(t, err, ErrAppealTooShort)
	_, err = f.svc.AppealPenalty(ctx, 2, penalty.ID, longAppeal)
	assert.ErrorIs(t, err, ErrForbiddenOperation)
	_, err = f.svc.ResolveAppeal(ctx, admin, penalty.ID, true)
	assert.ErrorIs(t, err, ErrPenaltyNotAppealed)

	appealed, err := f.svc.AppealPenalty(ctx, 1, penalty.ID, longAppeal)
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyAppealed, appealed.Status)

	_, err = f.svc.AppealPenalty(ctx, 1, penalty.ID, longAppeal)
	assert.ErrorIs(t, err, ErrPenaltyNotActive)

	open, err := f.svc.ListOpenAppeals(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	resolved, err := f.svc.ResolveAppeal(ctx, admin, penalty.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyRevoked, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, 120, f.users.get(1).SpaPoints)

	require.Len(t, f.ratings.spa, 2)
	assert.Equal(t, models.SpaPenalty, f.ratings.spa[0].Reason)
	assert.Equal(t, models.SpaPenaltyRefund, f.ratings.spa[1].Reason)
}

func TestAdminService_PenaltyAppealUpheld(t *testing.T) {
	f := newAdminFixture(player(1, "anh", models.RankK, 1000, 500))
	ctx := context.Background()

	penalty, err := f.svc.IssuePenalty(ctx, admin, IssuePenaltyInput{UserID: 1, SpaDeducted: 100, Reason: "conduct"})
	require.NoError(t, err)
	_, err = f.svc.AppealPenalty(ctx, 1, penalty.ID, longAppeal)
	require.NoError(t, err)

	resolved, err := f.svc.ResolveAppeal(ctx, admin, penalty.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.PenaltyUpheld, resolved.Status)
	assert.Equal(t, 400, f.users.get(1).SpaPoints)
}

func TestAdminService_AppealLengthCountsCharacters(t *testing.T) {
	f := newAdminFixture(player(1, "anh", models.RankK, 1000, 0))
	ctx := context.Background()
	penalty, err := f.svc.IssuePenalty(ctx, admin, IssuePenaltyInput{UserID: 1, Reason: "late"})
	require.NoError(t, err)

	// 49 multi-byte characters are more than 50 bytes but still too short
	_, err = f.svc.AppealPenalty(ctx, 1, penalty.ID, strings.Repeat("ư", 49))
	assert.ErrorIs(t, err, ErrAppealTooShort)
	_, err = f.svc.AppealPenalty(ctx, 1, penalty.ID, strings.Repeat("ư", 50))
	assert.NoError(t, err)
}

func TestAdminService_Migrations(t *testing.T) {
	f := newAdminFixture()
	ctx := context.Background()

	status, err := f.svc.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Pending)

	status, err = f.svc.RunMigrations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, status.CurrentVersion)
	assert.Zero(t, status.Pending)

	f.migrator.upErr = errors.New("boom")
	_, err = f.svc.RunMigrations(ctx)
	assert.Error(t, err)
}

func TestAdminService_ListUsers(t *testing.T) {
	f := newAdminFixture(player(1, "anh", models.RankK, 1000, 0), player(2, "binh", models.RankH, 1000, 0))

	resp, err := f.svc.ListUsers(context.Background(), models.UserFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, 10, resp.Limit)
	for _, u := range resp.Users {
		assert.Empty(t, u.PasswordHash)
	}
}
