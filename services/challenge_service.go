package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/text/language"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/handicap"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/rating"
	"github.com/Dosada05/sabo-arena/repositories"
)

// StakeTiers are the SPA amounts a challenge can be played for.
var StakeTiers = []int{100, 200, 300, 400, 500, 600}

// RaceToForStake returns the race length for a stake tier: 8 racks at 100,
// one more per tier up to 13 at 600. ok is false for other amounts.
func RaceToForStake(stake int) (raceTo int, ok bool) {
	for i, tier := range StakeTiers {
		if tier == stake {
			return 8 + i, true
		}
	}
	return 0, false
}

type ChallengeService interface {
	Create(ctx context.Context, challengerID int, input CreateChallengeInput) (*models.Challenge, error)
	GetByID(ctx context.Context, id int) (*models.Challenge, error)
	List(ctx context.Context, filter models.ChallengeFilter) ([]*models.Challenge, error)
	Accept(ctx context.Context, userID, challengeID int) (*models.Challenge, error)
	Decline(ctx context.Context, userID, challengeID int) (*models.Challenge, error)
	Cancel(ctx context.Context, userID, challengeID int) (*models.Challenge, error)
	SubmitScore(ctx context.Context, userID, challengeID int, input SubmitScoreInput) (*models.Challenge, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	PreviewHandicap(tag language.Tag, challengerRank, opponentRank string, stake int) (handicap.Result, error)
}

type CreateChallengeInput struct {
	OpponentID  int     `json:"opponent_id"`
	StakeAmount int     `json:"stake_amount"`
	Message     *string `json:"message,omitempty"`
}

// SubmitScoreInput holds the racks each side actually won, before handicap.
type SubmitScoreInput struct {
	ChallengerScore int `json:"challenger_score"`
	OpponentScore   int `json:"opponent_score"`
}

type challengeService struct {
	challengeRepo repositories.ChallengeRepository
	userRepo      repositories.UserRepository
	ratingRepo    repositories.RatingRepository
	transactor    repositories.Transactor
	notifier      Notifier
	ttl           time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

func NewChallengeService(
	challengeRepo repositories.ChallengeRepository,
	userRepo repositories.UserRepository,
	ratingRepo repositories.RatingRepository,
	transactor repositories.Transactor,
	notifier Notifier,
	ttl time.Duration,
	logger *slog.Logger,
) ChallengeService {
	return &challengeService{
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
		ratingRepo:    ratingRepo,
		transactor:    transactor,
		notifier:      notifierOrNoop(notifier),
		ttl:           ttl,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *challengeService) loadPlayer(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	if user.IsBanned() {
		return nil, fmt.Errorf("%w: user %d", ErrUserBanned, id)
	}
	if user.VerifiedRank == nil {
		return nil, fmt.Errorf("%w: user %d", ErrRankRequired, id)
	}
	return user, nil
}

func (s *challengeService) Create(ctx context.Context, challengerID int, input CreateChallengeInput) (*models.Challenge, error) {
	if challengerID == input.OpponentID {
		return nil, ErrChallengeSelf
	}
	raceTo, ok := RaceToForStake(input.StakeAmount)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStake, input.StakeAmount)
	}

	challenger, err := s.loadPlayer(ctx, challengerID)
	if err != nil {
		return nil, err
	}
	opponent, err := s.loadPlayer(ctx, input.OpponentID)
	if err != nil {
		return nil, err
	}

	hc := handicap.Calculate(*challenger.VerifiedRank, *opponent.VerifiedRank, input.StakeAmount)
	if !hc.IsValid {
		return nil, fmt.Errorf("%w: %s", ErrRankGapTooLarge, hc.Explanation)
	}

	now := s.now().UTC()
	challenge := &models.Challenge{
		ChallengerID:       challenger.ID,
		OpponentID:         opponent.ID,
		ChallengerRank:     *challenger.VerifiedRank,
		OpponentRank:       *opponent.VerifiedRank,
		StakeAmount:        input.StakeAmount,
		RaceTo:             raceTo,
		HandicapChallenger: hc.HandicapChallenger,
		HandicapOpponent:   hc.HandicapOpponent,
		Message:            input.Message,
		Status:             models.ChallengePending,
		ExpiresAt:          now.Add(s.ttl),
	}
	if err := s.challengeRepo.Create(ctx, challenge); err != nil {
		if errors.Is(err, repositories.ErrChallengePlayerInvalid) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	s.logger.InfoContext(ctx, "Challenge created",
		slog.Int("challenge_id", challenge.ID),
		slog.Int("challenger_id", challenge.ChallengerID),
		slog.Int("opponent_id", challenge.OpponentID),
		slog.Int("stake", challenge.StakeAmount))
	s.notifier.BroadcastToRoom(brackets.UserRoom(challenge.OpponentID), brackets.MessageChallengeCreated, challenge)
	return challenge, nil
}

func (s *challengeService) GetByID(ctx context.Context, id int) (*models.Challenge, error) {
	challenge, err := s.challengeRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeNotFound) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}
	return challenge, nil
}

func (s *challengeService) List(ctx context.Context, filter models.ChallengeFilter) ([]*models.Challenge, error) {
	challenges, err := s.challengeRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return challenges, nil
}

func (s *challengeService) Accept(ctx context.Context, userID, challengeID int) (*models.Challenge, error) {
	return s.respond(ctx, userID, challengeID, models.ChallengeAccepted)
}

func (s *challengeService) Decline(ctx context.Context, userID, challengeID int) (*models.Challenge, error) {
	return s.respond(ctx, userID, challengeID, models.ChallengeDeclined)
}

// respond lets the opponent accept or decline a pending challenge. A
// challenge found past its expiry is expired on the spot.
func (s *challengeService) respond(ctx context.Context, userID, challengeID int, to models.ChallengeStatus) (*models.Challenge, error) {
	challenge, err := s.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.OpponentID != userID {
		return nil, ErrForbiddenOperation
	}
	if challenge.Status != models.ChallengePending {
		return nil, ErrChallengeNotPending
	}
	if !s.now().Before(challenge.ExpiresAt) {
		if err := s.challengeRepo.TransitionStatus(ctx, challengeID, models.ChallengePending, models.ChallengeExpired); err != nil &&
			!errors.Is(err, repositories.ErrChallengeStatusChanged) {
			s.logger.WarnContext(ctx, "Failed to expire challenge", slog.Int("challenge_id", challengeID), slog.Any("error", err))
		}
		return nil, ErrChallengeExpired
	}
	if to == models.ChallengeAccepted {
		// ranks may have been re-verified since the challenge was issued
		if _, err := s.loadPlayer(ctx, userID); err != nil {
			return nil, err
		}
	}

	if err := s.transition(ctx, challenge, models.ChallengePending, to); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *challengeService) Cancel(ctx context.Context, userID, challengeID int) (*models.Challenge, error) {
	challenge, err := s.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.ChallengerID != userID {
		return nil, ErrForbiddenOperation
	}
	if challenge.Status != models.ChallengePending {
		return nil, ErrChallengeNotPending
	}
	if err := s.transition(ctx, challenge, models.ChallengePending, models.ChallengeCancelled); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (s *challengeService) transition(ctx context.Context, challenge *models.Challenge, from, to models.ChallengeStatus) error {
	if err := s.challengeRepo.TransitionStatus(ctx, challenge.ID, from, to); err != nil {
		if errors.Is(err, repositories.ErrChallengeStatusChanged) {
			return ErrChallengeNotPending
		}
		return fmt.Errorf("failed to update challenge %d: %w", challenge.ID, err)
	}
	challenge.Status = to
	s.logger.InfoContext(ctx, "Challenge status changed",
		slog.Int("challenge_id", challenge.ID), slog.String("status", string(to)))
	s.broadcast(challenge)
	return nil
}

func (s *challengeService) broadcast(challenge *models.Challenge) {
	s.notifier.BroadcastToRoom(brackets.UserRoom(challenge.ChallengerID), brackets.MessageChallengeUpdated, challenge)
	s.notifier.BroadcastToRoom(brackets.UserRoom(challenge.OpponentID), brackets.MessageChallengeUpdated, challenge)
}

// ResolveWinner applies each side's handicap to the racks won and decides
// the winner. Exactly one adjusted score must reach raceTo.
func ResolveWinner(c *models.Challenge, input SubmitScoreInput) (winnerID int, err error) {
	if input.ChallengerScore < 0 || input.OpponentScore < 0 {
		return 0, fmt.Errorf("%w: scores cannot be negative", ErrInvalidScore)
	}
	challenger := input.ChallengerScore + c.HandicapChallenger
	opponent := input.OpponentScore + c.HandicapOpponent

	switch {
	case challenger == c.RaceTo && opponent < c.RaceTo:
		return c.ChallengerID, nil
	case opponent == c.RaceTo && challenger < c.RaceTo:
		return c.OpponentID, nil
	default:
		return 0, fmt.Errorf("%w: adjusted %d-%d, race to %d", ErrInvalidScore, challenger, opponent, c.RaceTo)
	}
}

// SubmitScore completes an accepted challenge. The result, both ELO
// updates with history and the SPA transfer are written in one transaction,
// computed from player rows locked inside it.
func (s *challengeService) SubmitScore(ctx context.Context, userID, challengeID int, input SubmitScoreInput) (*models.Challenge, error) {
	challenge, err := s.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsParticipant(userID) {
		return nil, ErrForbiddenOperation
	}
	if challenge.Status != models.ChallengeAccepted {
		return nil, ErrChallengeNotActive
	}

	winnerID, err := ResolveWinner(challenge, input)
	if err != nil {
		return nil, err
	}
	loserID := challenge.ChallengerID
	if winnerID == challenge.ChallengerID {
		loserID = challenge.OpponentID
	}

	now := s.now().UTC()
	challenge.ChallengerScore = intPtr(input.ChallengerScore)
	challenge.OpponentScore = intPtr(input.OpponentScore)
	challenge.WinnerID = intPtr(winnerID)
	challenge.CompletedAt = &now

	var (
		winner, loser             *models.User
		newWinnerElo, newLoserElo int
		spaGain, spaLoss          int
	)
	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.challengeRepo.Complete(ctx, exec, challenge); err != nil {
			return err
		}
		locked, err := s.lockPlayers(ctx, exec, winnerID, loserID)
		if err != nil {
			return err
		}
		winner, loser = locked[winnerID], locked[loserID]
		newWinnerElo, newLoserElo = rating.Elo(winner.Elo, loser.Elo)
		spaGain, spaLoss = rating.ChallengeSpa(challenge.StakeAmount, loser.SpaPoints)

		for _, change := range []struct {
			user     *models.User
			opponent int
			newElo   int
		}{
			{winner, loserID, newWinnerElo},
			{loser, winnerID, newLoserElo},
		} {
			if err := s.userRepo.UpdateElo(ctx, exec, change.user.ID, change.newElo); err != nil {
				return err
			}
			if err := s.ratingRepo.AddEloHistory(ctx, exec, &models.EloHistory{
				UserID:      change.user.ID,
				ChallengeID: intPtr(challenge.ID),
				OpponentID:  intPtr(change.opponent),
				EloBefore:   change.user.Elo,
				EloAfter:    change.newElo,
				EloChange:   change.newElo - change.user.Elo,
			}); err != nil {
				return err
			}
		}

		if _, err := s.userRepo.AdjustSpa(ctx, exec, winnerID, spaGain); err != nil {
			return err
		}
		if err := s.ratingRepo.AddSpaTransaction(ctx, exec, &models.SpaTransaction{
			UserID: winnerID, Amount: spaGain, Reason: models.SpaChallengeWin, ReferenceID: intPtr(challenge.ID),
		}); err != nil {
			return err
		}
		if spaLoss > 0 {
			if _, err := s.userRepo.AdjustSpa(ctx, exec, loserID, -spaLoss); err != nil {
				return err
			}
			if err := s.ratingRepo.AddSpaTransaction(ctx, exec, &models.SpaTransaction{
				UserID: loserID, Amount: -spaLoss, Reason: models.SpaChallengeLoss, ReferenceID: intPtr(challenge.ID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrChallengeStatusChanged) {
			return nil, ErrChallengeNotActive
		}
		return nil, fmt.Errorf("failed to complete challenge %d: %w", challengeID, err)
	}

	challenge.Status = models.ChallengeCompleted
	s.logger.InfoContext(ctx, "Challenge completed",
		slog.Int("challenge_id", challenge.ID),
		slog.Int("winner_id", winnerID),
		slog.Int("elo_delta", newWinnerElo-winner.Elo),
		slog.Int("spa_gain", spaGain),
		slog.Int("spa_loss", spaLoss))
	s.broadcast(challenge)
	return challenge, nil
}

// lockPlayers reads both players with their rows locked, lowest id first so
// two completions sharing a player cannot deadlock.
func (s *challengeService) lockPlayers(ctx context.Context, exec repositories.SQLExecutor, ids ...int) (map[int]*models.User, error) {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	users := make(map[int]*models.User, len(ids))
	for _, id := range ids {
		u, err := s.userRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load player %d: %w", id, err)
		}
		users[id] = u
	}
	return users, nil
}

func (s *challengeService) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.challengeRepo.ExpirePending(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire challenges: %w", err)
	}
	return n, nil
}

// PreviewHandicap runs the calculator without creating anything. The stake
// need not be a tier so the UI can show the effect of any amount.
func (s *challengeService) PreviewHandicap(tag language.Tag, challengerRank, opponentRank string, stake int) (handicap.Result, error) {
	ch, err := models.ParseRank(challengerRank)
	if err != nil {
		return handicap.Result{}, fmt.Errorf("%w: %v", ErrInvalidRank, err)
	}
	op, err := models.ParseRank(opponentRank)
	if err != nil {
		return handicap.Result{}, fmt.Errorf("%w: %v", ErrInvalidRank, err)
	}
	if stake <= 0 {
		return handicap.Result{}, fmt.Errorf("%w: stake must be positive", ErrValidationFailed)
	}
	return handicap.CalculateIn(tag, ch, op, stake), nil
}
