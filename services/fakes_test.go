package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/repositories"
	"github.com/Dosada05/sabo-arena/storage"
)

var (
	_ repositories.UserRepository        = (*fakeUserRepo)(nil)
	_ repositories.RatingRepository      = (*fakeRatingRepo)(nil)
	_ repositories.ChallengeRepository   = (*fakeChallengeRepo)(nil)
	_ repositories.TournamentRepository  = (*fakeTournamentRepo)(nil)
	_ repositories.MatchRepository       = (*fakeMatchRepo)(nil)
	_ repositories.PenaltyRepository     = (*fakePenaltyRepo)(nil)
	_ repositories.RankRequestRepository = (*fakeRankRepo)(nil)
	_ storage.FileUploader               = (*fakeUploader)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTransactor struct{ calls int }

func (f *fakeTransactor) WithinTx(_ context.Context, fn func(exec repositories.SQLExecutor) error) error {
	f.calls++
	return fn(nil)
}

type broadcast struct {
	Room    string
	Type    string
	Payload interface{}
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []broadcast
}

func (n *recordingNotifier) BroadcastToRoom(room, msgType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, broadcast{room, msgType, payload})
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, b := range n.sent {
		out[i] = b.Type
	}
	return out
}

type fakeUploader struct {
	objects map[string]string
	deleted []string
	failing error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string]string{}}
}

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, r io.Reader) (*storage.UploadResult, error) {
	if u.failing != nil {
		return nil, u.failing
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	u.objects[key] = string(data)
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(_ context.Context, key string) error {
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int]*models.User
	nextID int
	locked []int
}

func newFakeUserRepo(users ...*models.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int]*models.User{}, nextID: 1}
	for _, u := range users {
		cp := *u
		r.users[u.ID] = &cp
		if u.ID >= r.nextID {
			r.nextID = u.ID + 1
		}
	}
	return r
}

func (r *fakeUserRepo) get(id int) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return repositories.ErrUserEmailConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetForUpdate(ctx context.Context, _ repositories.SQLExecutor, id int) (*models.User, error) {
	r.mu.Lock()
	r.locked = append(r.locked, id)
	r.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[user.ID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.DisplayName, u.Phone, u.ClubName, u.Bio, u.AvatarKey = user.DisplayName, user.Phone, user.ClubName, user.Bio, user.AvatarKey
	return nil
}

func (r *fakeUserRepo) SetStatus(_ context.Context, id int, status models.UserStatus, reason *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Status, u.BanReason = status, reason
	return nil
}

func (r *fakeUserRepo) SetVerifiedRank(_ context.Context, _ repositories.SQLExecutor, id int, rank models.Rank) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.VerifiedRank = &rank
	return nil
}

func (r *fakeUserRepo) UpdateElo(_ context.Context, _ repositories.SQLExecutor, id int, elo int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Elo = elo
	return nil
}

func (r *fakeUserRepo) AdjustSpa(_ context.Context, _ repositories.SQLExecutor, id int, delta int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return 0, repositories.ErrUserNotFound
	}
	u.SpaPoints = max(u.SpaPoints+delta, 0)
	return u.SpaPoints, nil
}

func (r *fakeUserRepo) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		if filter.Status != nil && u.Status != *filter.Status {
			continue
		}
		if filter.Rank != nil && (u.VerifiedRank == nil || *u.VerifiedRank != *filter.Rank) {
			continue
		}
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeUserRepo) Leaderboard(_ context.Context, order models.LeaderboardOrder, limit, offset int) ([]models.User, error) {
	users, _, _ := r.List(context.Background(), models.UserFilter{})
	sort.SliceStable(users, func(i, j int) bool {
		if order == models.LeaderboardBySpa {
			return users[i].SpaPoints > users[j].SpaPoints
		}
		return users[i].Elo > users[j].Elo
	})
	return users, nil
}

func (r *fakeUserRepo) Count(_ context.Context, status *models.UserStatus) (int, error) {
	_, n, _ := r.List(context.Background(), models.UserFilter{Status: status})
	return n, nil
}

type fakeRatingRepo struct {
	mu  sync.Mutex
	elo []models.EloHistory
	spa []models.SpaTransaction
}

func (r *fakeRatingRepo) AddEloHistory(_ context.Context, _ repositories.SQLExecutor, h *models.EloHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h.ID = len(r.elo) + 1
	r.elo = append(r.elo, *h)
	return nil
}

func (r *fakeRatingRepo) AddSpaTransaction(_ context.Context, _ repositories.SQLExecutor, t *models.SpaTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = len(r.spa) + 1
	r.spa = append(r.spa, *t)
	return nil
}

func (r *fakeRatingRepo) ListEloHistory(_ context.Context, userID int, _ int) ([]models.EloHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EloHistory
	for _, h := range r.elo {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeRatingRepo) ListSpaTransactions(_ context.Context, userID int, _ int) ([]models.SpaTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.SpaTransaction
	for _, t := range r.spa {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeChallengeRepo struct {
	mu         sync.Mutex
	challenges map[int]*models.Challenge
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{challenges: map[int]*models.Challenge{}}
}

func (r *fakeChallengeRepo) Create(_ context.Context, c *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = len(r.challenges) + 1
	c.CreatedAt = time.Now()
	cp := *c
	r.challenges[c.ID] = &cp
	return nil
}

func (r *fakeChallengeRepo) GetByID(_ context.Context, id int) (*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok {
		return nil, repositories.ErrChallengeNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChallengeRepo) List(_ context.Context, filter models.ChallengeFilter) ([]*models.Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Challenge
	for _, c := range r.challenges {
		if filter.UserID != nil && !c.IsParticipant(*filter.UserID) {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeChallengeRepo) TransitionStatus(_ context.Context, id int, from, to models.ChallengeStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.challenges[id]
	if !ok || c.Status != from {
		return repositories.ErrChallengeStatusChanged
	}
	c.Status = to
	return nil
}

func (r *fakeChallengeRepo) Complete(_ context.Context, _ repositories.SQLExecutor, c *models.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.challenges[c.ID]
	if !ok || stored.Status != models.ChallengeAccepted {
		return repositories.ErrChallengeStatusChanged
	}
	cp := *c
	cp.Status = models.ChallengeCompleted
	r.challenges[c.ID] = &cp
	return nil
}

func (r *fakeChallengeRepo) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.challenges {
		if c.Status == models.ChallengePending && !c.ExpiresAt.After(now) {
			c.Status = models.ChallengeExpired
			n++
		}
	}
	return n, nil
}

func (r *fakeChallengeRepo) Count(_ context.Context, status *models.ChallengeStatus) (int, error) {
	list, _ := r.List(context.Background(), models.ChallengeFilter{Status: status})
	return len(list), nil
}

type fakeTournamentRepo struct {
	mu            sync.Mutex
	tournaments   map[int]*models.Tournament
	registrations []models.Registration
	takenSlugs    map[string]bool
}

func newFakeTournamentRepo(ts ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: map[int]*models.Tournament{}, takenSlugs: map[string]bool{}}
	for _, t := range ts {
		cp := *t
		r.tournaments[t.ID] = &cp
	}
	return r
}

func (r *fakeTournamentRepo) Create(_ context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.takenSlugs[t.Slug] {
		return repositories.ErrTournamentSlugConflict
	}
	r.takenSlugs[t.Slug] = true
	t.ID = len(r.tournaments) + 1
	cp := *t
	r.tournaments[t.ID] = &cp
	return nil
}

func (r *fakeTournamentRepo) GetByID(_ context.Context, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) List(_ context.Context, filter models.TournamentFilter) ([]*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Tournament
	for _, t := range r.tournaments {
		if filter.Status == nil || t.Status == *filter.Status {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

func (r *fakeTournamentRepo) SetWinner(_ context.Context, _ repositories.SQLExecutor, id int, winnerID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.WinnerID = &winnerID
	return nil
}

func (r *fakeTournamentRepo) SetLogo(_ context.Context, id int, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.LogoKey = &key
	return nil
}

func (r *fakeTournamentRepo) OpenDueRegistrations(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tournaments {
		if t.Status == models.TournamentUpcoming && !t.RegistrationStart.After(now) {
			t.Status = models.TournamentRegistration
			n++
		}
	}
	return n, nil
}

func (r *fakeTournamentRepo) Count(_ context.Context, status *models.TournamentStatus) (int, error) {
	list, _ := r.List(context.Background(), models.TournamentFilter{Status: status})
	return len(list), nil
}

func (r *fakeTournamentRepo) AddRegistration(_ context.Context, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.registrations {
		if existing.TournamentID == reg.TournamentID && existing.UserID == reg.UserID {
			if existing.Status == models.RegistrationActive {
				return repositories.ErrRegistrationConflict
			}
			r.registrations = append(r.registrations[:i], r.registrations[i+1:]...)
			break
		}
	}
	reg.ID = len(r.registrations) + 1
	reg.Status = models.RegistrationActive
	r.registrations = append(r.registrations, *reg)
	return nil
}

func (r *fakeTournamentRepo) WithdrawRegistration(_ context.Context, tournamentID, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.registrations {
		reg := &r.registrations[i]
		if reg.TournamentID == tournamentID && reg.UserID == userID && reg.Status == models.RegistrationActive {
			reg.Status = models.RegistrationWithdrawn
			return nil
		}
	}
	return repositories.ErrRegistrationNotFound
}

func (r *fakeTournamentRepo) ListRegistrations(_ context.Context, tournamentID int) ([]models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Registration
	for _, reg := range r.registrations {
		if reg.TournamentID == tournamentID && reg.Status == models.RegistrationActive {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (r *fakeTournamentRepo) CountRegistrations(ctx context.Context, tournamentID int) (int, error) {
	regs, _ := r.ListRegistrations(ctx, tournamentID)
	return len(regs), nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	matches map[int][]*models.Match
	locks   int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: map[int][]*models.Match{}}
}

func (r *fakeMatchRepo) CreateBatch(_ context.Context, _ repositories.SQLExecutor, matches []*models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range matches {
		if len(r.matches[m.TournamentID]) > 0 && m.MatchNumber == 1 {
			return repositories.ErrBracketExists
		}
		m.ID = m.TournamentID*1000 + m.MatchNumber
		cp := *m
		r.matches[m.TournamentID] = append(r.matches[m.TournamentID], &cp)
	}
	return nil
}

func (r *fakeMatchRepo) ListByTournament(_ context.Context, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Match, 0, len(r.matches[tournamentID]))
	for _, m := range r.matches[tournamentID] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeMatchRepo) LockByTournament(ctx context.Context, _ repositories.SQLExecutor, tournamentID int) ([]*models.Match, error) {
	r.mu.Lock()
	r.locks++
	r.mu.Unlock()
	return r.ListByTournament(ctx, tournamentID)
}

func (r *fakeMatchRepo) Update(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, stored := range r.matches[m.TournamentID] {
		if stored.ID == m.ID {
			if stored.Status == models.MatchCompleted {
				return repositories.ErrMatchDecided
			}
			cp := *m
			r.matches[m.TournamentID][i] = &cp
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

type fakePenaltyRepo struct {
	mu        sync.Mutex
	penalties map[int]*models.Penalty
}

func newFakePenaltyRepo() *fakePenaltyRepo {
	return &fakePenaltyRepo{penalties: map[int]*models.Penalty{}}
}

func (r *fakePenaltyRepo) Create(_ context.Context, _ repositories.SQLExecutor, p *models.Penalty) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = len(r.penalties) + 1
	cp := *p
	r.penalties[p.ID] = &cp
	return nil
}

func (r *fakePenaltyRepo) GetByID(_ context.Context, id int) (*models.Penalty, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.penalties[id]
	if !ok {
		return nil, repositories.ErrPenaltyNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePenaltyRepo) ListByUser(_ context.Context, userID int) ([]*models.Penalty, error) {
	return r.filter(func(p *models.Penalty) bool { return p.UserID == userID }), nil
}

func (r *fakePenaltyRepo) ListByStatus(_ context.Context, status models.PenaltyStatus) ([]*models.Penalty, error) {
	return r.filter(func(p *models.Penalty) bool { return p.Status == status }), nil
}

func (r *fakePenaltyRepo) UpdateStatus(_ context.Context, _ repositories.SQLExecutor, p *models.Penalty, expected models.PenaltyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.penalties[p.ID]
	if !ok || stored.Status != expected {
		return repositories.ErrPenaltyNotFound
	}
	cp := *p
	r.penalties[p.ID] = &cp
	return nil
}

func (r *fakePenaltyRepo) CountByStatus(_ context.Context, status models.PenaltyStatus) (int, error) {
	list, _ := r.ListByStatus(context.Background(), status)
	return len(list), nil
}

func (r *fakePenaltyRepo) filter(keep func(*models.Penalty) bool) []*models.Penalty {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Penalty
	for _, p := range r.penalties {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out
}

type fakeRankRepo struct {
	mu       sync.Mutex
	requests map[int]*models.RankRequest
}

func newFakeRankRepo() *fakeRankRepo {
	return &fakeRankRepo{requests: map[int]*models.RankRequest{}}
}

func (r *fakeRankRepo) Create(_ context.Context, req *models.RankRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.UserID == req.UserID && existing.Status == models.RankRequestPending {
			return repositories.ErrRankRequestPending
		}
	}
	req.ID = len(r.requests) + 1
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRankRepo) GetByID(_ context.Context, id int) (*models.RankRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, repositories.ErrRankRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRankRepo) ListByStatus(_ context.Context, status models.RankRequestStatus, _, _ int) ([]*models.RankRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RankRequest
	for _, req := range r.requests {
		if req.Status == status {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRankRepo) ListByUser(_ context.Context, userID int) ([]*models.RankRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.RankRequest
	for _, req := range r.requests {
		if req.UserID == userID {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRankRepo) Review(_ context.Context, _ repositories.SQLExecutor, req *models.RankRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.requests[req.ID]
	if !ok || stored.Status != models.RankRequestPending {
		return repositories.ErrRankRequestNotFound
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRankRepo) CountByStatus(ctx context.Context, status models.RankRequestStatus) (int, error) {
	list, _ := r.ListByStatus(ctx, status, 0, 0)
	return len(list), nil
}

func rankPtr(r models.Rank) *models.Rank {
	return &r
}

func player(id int, name string, rank models.Rank, elo, spa int) *models.User {
	return &models.User{
		ID:           id,
		Email:        name + "@sabo.vn",
		DisplayName:  name,
		Role:         models.RolePlayer,
		Status:       models.UserStatusActive,
		VerifiedRank: rankPtr(rank),
		Elo:          elo,
		SpaPoints:    spa,
	}
}
