package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/rating"
	"github.com/Dosada05/sabo-arena/repositories"
	"github.com/Dosada05/sabo-arena/storage"
)

const (
	DefaultTournamentRaceTo = 7
	logoPrefix              = "tournament-logos"
	maxSlugAttempts         = 5
)

var allowedBracketSizes = map[int]bool{4: true, 8: true, 16: true, 32: true}

type TournamentService interface {
	Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error)
	UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error)
	UploadLogo(ctx context.Context, actor Actor, id int, file *FileInput) (*models.Tournament, error)
	Register(ctx context.Context, userID, tournamentID int) (*models.Registration, error)
	Withdraw(ctx context.Context, userID, tournamentID int) error
	GenerateBracket(ctx context.Context, actor Actor, tournamentID int) ([]*models.Match, error)
	ReportResult(ctx context.Context, actor Actor, tournamentID int, input ReportResultInput) ([]*models.Match, error)
	OpenDueRegistrations(ctx context.Context, now time.Time) (int64, error)
}

type CreateTournamentInput struct {
	Name              string    `json:"name"`
	Description       *string   `json:"description,omitempty"`
	BracketSize       int       `json:"bracket_size"`
	RaceTo            int       `json:"race_to"`
	EntryFee          int       `json:"entry_fee"`
	PrizePool         int       `json:"prize_pool"`
	Venue             *string   `json:"venue,omitempty"`
	RegistrationStart time.Time `json:"registration_start"`
	RegistrationEnd   time.Time `json:"registration_end"`
	StartDate         time.Time `json:"start_date"`
}

type ReportResultInput struct {
	MatchNumber  int  `json:"match_number"`
	WinnerID     int  `json:"winner_id"`
	Player1Score *int `json:"player1_score,omitempty"`
	Player2Score *int `json:"player2_score,omitempty"`
}

type tournamentService struct {
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	userRepo       repositories.UserRepository
	ratingRepo     repositories.RatingRepository
	transactor     repositories.Transactor
	uploader       storage.FileUploader
	notifier       Notifier
	logger         *slog.Logger
	now            func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	userRepo repositories.UserRepository,
	ratingRepo repositories.RatingRepository,
	transactor repositories.Transactor,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		userRepo:       userRepo,
		ratingRepo:     ratingRepo,
		transactor:     transactor,
		uploader:       uploader,
		notifier:       notifierOrNoop(notifier),
		logger:         logger,
		now:            time.Now,
	}
}

func (s *tournamentService) Create(ctx context.Context, actor Actor, input CreateTournamentInput) (*models.Tournament, error) {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleOrganizer {
		return nil, ErrForbiddenOperation
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if input.BracketSize == 0 {
		input.BracketSize = brackets.DefaultBracketSize
	}
	if !allowedBracketSizes[input.BracketSize] {
		return nil, ErrTournamentInvalidSize
	}
	if input.RaceTo == 0 {
		input.RaceTo = DefaultTournamentRaceTo
	}
	if input.RaceTo < 0 || input.EntryFee < 0 || input.PrizePool < 0 {
		return nil, fmt.Errorf("%w: race to, entry fee and prize pool cannot be negative", ErrValidationFailed)
	}
	if input.RegistrationStart.IsZero() || input.RegistrationEnd.IsZero() || input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: registration window and start date are required", ErrValidationFailed)
	}
	if !input.RegistrationStart.Before(input.RegistrationEnd) || input.RegistrationEnd.After(input.StartDate) {
		return nil, ErrTournamentInvalidDateRange
	}

	status := models.TournamentUpcoming
	if !s.now().Before(input.RegistrationStart) {
		status = models.TournamentRegistration
	}

	tournament := &models.Tournament{
		Name:              name,
		Description:       input.Description,
		OrganizerID:       actor.UserID,
		BracketSize:       input.BracketSize,
		RaceTo:            input.RaceTo,
		EntryFee:          input.EntryFee,
		PrizePool:         input.PrizePool,
		Venue:             input.Venue,
		RegistrationStart: input.RegistrationStart,
		RegistrationEnd:   input.RegistrationEnd,
		StartDate:         input.StartDate,
		Status:            status,
	}

	base := slug.Make(name)
	if base == "" {
		base = "tournament"
	}
	for attempt := 1; ; attempt++ {
		tournament.Slug = base
		if attempt > 1 {
			tournament.Slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		err := s.tournamentRepo.Create(ctx, tournament)
		if err == nil {
			break
		}
		if errors.Is(err, repositories.ErrTournamentSlugConflict) {
			if attempt < maxSlugAttempts {
				continue
			}
			return nil, ErrTournamentSlugConflict
		}
		if errors.Is(err, repositories.ErrTournamentOrganizerInvalid) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	s.logger.InfoContext(ctx, "Tournament created",
		slog.Int("tournament_id", tournament.ID), slog.String("slug", tournament.Slug), slog.Int("organizer_id", actor.UserID))
	return tournament, nil
}

func (s *tournamentService) getTournament(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament %d: %w", id, err)
	}
	return tournament, nil
}

// GetByID loads the tournament with its registrations and bracket.
func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	var (
		tournament    *models.Tournament
		registrations []models.Registration
		matches       []*models.Match
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.getTournament(gCtx, id)
		tournament = t
		return err
	})
	g.Go(func() error {
		regs, err := s.tournamentRepo.ListRegistrations(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load registrations for tournament %d: %w", id, err)
		}
		registrations = regs
		return nil
	})
	g.Go(func() error {
		ms, err := s.matchRepo.ListByTournament(gCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load matches for tournament %d: %w", id, err)
		}
		matches = ms
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range registrations {
		populateUserDetailsFunc(registrations[i].User, s.uploader)
	}
	tournament.Registrations = registrations
	tournament.Matches = make([]models.Match, len(matches))
	for i, m := range matches {
		tournament.Matches[i] = *m
	}
	populateTournamentLogoURLFunc(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context, filter models.TournamentFilter) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for _, t := range tournaments {
		populateTournamentLogoURLFunc(t, s.uploader)
	}
	return tournaments, nil
}

// UpdateStatus applies a manual transition. Ongoing is only reachable
// through bracket generation and completed through the final result.
func (s *tournamentService) UpdateStatus(ctx context.Context, actor Actor, id int, status models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}
	if status == models.TournamentOngoing || status == models.TournamentCompleted {
		return nil, ErrTournamentInvalidStatusTransition
	}
	if !isValidStatusTransition(tournament.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTournamentInvalidStatusTransition, tournament.Status, status)
	}
	if tournament.Status == status {
		return tournament, nil
	}

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.tournamentRepo.UpdateStatus(ctx, exec, id, status)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update tournament %d status: %w", id, err)
	}
	tournament.Status = status
	s.logger.InfoContext(ctx, "Tournament status updated", slog.Int("tournament_id", id), slog.String("status", string(status)))
	return tournament, nil
}

func (s *tournamentService) UploadLogo(ctx context.Context, actor Actor, id int, file *FileInput) (*models.Tournament, error) {
	ext, err := file.validate()
	if err != nil {
		return nil, err
	}
	tournament, err := s.getTournament(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}

	key := storage.NewObjectKey(fmt.Sprintf("%s/%d", logoPrefix, id), "logo"+ext)
	if _, err := s.uploader.Upload(ctx, key, file.ContentType, file.Reader); err != nil {
		return nil, fmt.Errorf("failed to upload tournament logo: %w", err)
	}
	if err := s.tournamentRepo.SetLogo(ctx, id, key); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to clean up tournament logo", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save tournament logo: %w", err)
	}
	if tournament.LogoKey != nil && *tournament.LogoKey != "" {
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete previous tournament logo", slog.String("key", *tournament.LogoKey), slog.Any("error", err))
		}
	}
	tournament.LogoKey = &key
	populateTournamentLogoURLFunc(tournament, s.uploader)
	return tournament, nil
}

func (s *tournamentService) Register(ctx context.Context, userID, tournamentID int) (*models.Registration, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentRegistration || s.now().After(tournament.RegistrationEnd) {
		return nil, ErrRegistrationNotOpen
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	if user.IsBanned() {
		return nil, ErrUserBanned
	}

	count, err := s.tournamentRepo.CountRegistrations(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to count registrations: %w", err)
	}
	if count >= tournament.BracketSize {
		return nil, ErrTournamentFull
	}

	reg := &models.Registration{TournamentID: tournamentID, UserID: userID}
	if err := s.tournamentRepo.AddRegistration(ctx, reg); err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationConflict):
			return nil, ErrRegistrationConflict
		case errors.Is(err, repositories.ErrTournamentNotFound):
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to register for tournament %d: %w", tournamentID, err)
	}

	s.logger.InfoContext(ctx, "Player registered", slog.Int("tournament_id", tournamentID), slog.Int("user_id", userID))
	return reg, nil
}

func (s *tournamentService) Withdraw(ctx context.Context, userID, tournamentID int) error {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentRegistration {
		return ErrRegistrationNotOpen
	}
	if err := s.tournamentRepo.WithdrawRegistration(ctx, tournamentID, userID); err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationMissing
		}
		return fmt.Errorf("failed to withdraw from tournament %d: %w", tournamentID, err)
	}
	return nil
}

// GenerateBracket seats registered players in registration order and
// moves the tournament to ongoing. Every slot of the bracket must be taken.
func (s *tournamentService) GenerateBracket(ctx context.Context, actor Actor, tournamentID int) ([]*models.Match, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentRegistration {
		return nil, fmt.Errorf("%w: tournament is %s", ErrTournamentInvalidStatusTransition, tournament.Status)
	}

	registrations, err := s.tournamentRepo.ListRegistrations(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}
	playerIDs := make([]int, len(registrations))
	for i, r := range registrations {
		playerIDs[i] = r.UserID
	}

	generator, err := brackets.NewTemplateGenerator(tournament.BracketSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTournamentInvalidSize, err)
	}
	// A round-1 slot with a single player could never be decided.
	if len(playerIDs) < generator.Size() {
		return nil, fmt.Errorf("%w: %d of %d registered", ErrBracketNotFull, len(playerIDs), generator.Size())
	}
	slots, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{Tournament: tournament, PlayerIDs: playerIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to generate bracket: %w", err)
	}
	if len(playerIDs) > generator.Size() {
		s.logger.WarnContext(ctx, "More registrations than bracket slots, extras not seated",
			slog.Int("tournament_id", tournamentID), slog.Int("registered", len(playerIDs)), slog.Int("size", generator.Size()))
	}

	matches := make([]*models.Match, len(slots))
	for i, slot := range slots {
		matches[i] = &models.Match{
			TournamentID: tournamentID,
			Round:        slot.Round,
			MatchNumber:  slot.MatchNumber,
			Kind:         slot.Kind,
			Player1ID:    slot.Player1ID,
			Player2ID:    slot.Player2ID,
			Status:       slot.Status,
		}
	}

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.matchRepo.CreateBatch(ctx, exec, matches); err != nil {
			return err
		}
		return s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentOngoing)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrBracketExists) {
			return nil, ErrBracketAlreadyGenerated
		}
		return nil, fmt.Errorf("failed to save bracket for tournament %d: %w", tournamentID, err)
	}

	s.logger.InfoContext(ctx, "Bracket generated",
		slog.Int("tournament_id", tournamentID), slog.String("generator", generator.GetName()), slog.Int("players", len(playerIDs)))
	s.notifier.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.MessageBracketGenerated, matches)
	return matches, nil
}

// ReportResult decides one match and advances its players. The bracket is
// read with its rows locked, so concurrent reports are applied one after
// the other. When both the final and the bronze match are decided the
// tournament is completed and placement SPA is awarded, all in the same
// transaction.
func (s *tournamentService) ReportResult(ctx context.Context, actor Actor, tournamentID int, input ReportResultInput) ([]*models.Match, error) {
	tournament, err := s.getTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if !canManageTournament(actor, tournament) {
		return nil, ErrForbiddenOperation
	}
	if tournament.Status != models.TournamentOngoing {
		return nil, fmt.Errorf("%w: tournament is %s", ErrTournamentInvalidStatusTransition, tournament.Status)
	}

	var (
		updated   []*models.Match
		standings []int
		ruleErr   error
	)
	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		matches, err := s.matchRepo.LockByTournament(ctx, exec, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to load matches: %w", err)
		}
		slots, byNumber := matchesToSlots(matches)

		target, ok := byNumber[input.MatchNumber]
		if !ok {
			ruleErr = ErrMatchNotFound
			return ruleErr
		}
		if ruleErr = validateReportedScore(target, tournament.RaceTo, input); ruleErr != nil {
			return ruleErr
		}

		changed, err := brackets.Advance(slots, input.MatchNumber, input.WinnerID)
		if err != nil {
			if ruleErr = advanceError(err); ruleErr != nil {
				return ruleErr
			}
			return fmt.Errorf("failed to advance bracket: %w", err)
		}

		target.Player1Score = input.Player1Score
		target.Player2Score = input.Player2Score
		updated = make([]*models.Match, 0, len(changed))
		for _, slot := range changed {
			m := byNumber[slot.MatchNumber]
			m.Player1ID = slot.Player1ID
			m.Player2ID = slot.Player2ID
			m.WinnerID = slot.WinnerID
			m.Status = slot.Status
			if err := s.matchRepo.Update(ctx, exec, m); err != nil {
				if errors.Is(err, repositories.ErrMatchDecided) {
					ruleErr = ErrMatchAlreadyCompleted
					return ruleErr
				}
				return err
			}
			updated = append(updated, m)
		}

		standings = finalStandings(slots)
		if standings == nil {
			return nil
		}
		if err := s.tournamentRepo.SetWinner(ctx, exec, tournamentID, standings[0]); err != nil {
			return err
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.TournamentCompleted); err != nil {
			return err
		}
		for i, userID := range standings {
			points := rating.PlacementSpa(i + 1)
			if points == 0 {
				continue
			}
			if _, err := s.userRepo.AdjustSpa(ctx, exec, userID, points); err != nil {
				return err
			}
			if err := s.ratingRepo.AddSpaTransaction(ctx, exec, &models.SpaTransaction{
				UserID: userID, Amount: points, Reason: models.SpaTournamentPlace, ReferenceID: intPtr(tournamentID),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if ruleErr != nil {
		return nil, ruleErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save result for tournament %d: %w", tournamentID, err)
	}

	s.logger.InfoContext(ctx, "Match result reported",
		slog.Int("tournament_id", tournamentID), slog.Int("match_number", input.MatchNumber), slog.Int("winner_id", input.WinnerID))
	s.notifier.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.MessageMatchUpdated, updated)

	if standings != nil {
		tournament.Status = models.TournamentCompleted
		tournament.WinnerID = intPtr(standings[0])
		s.logger.InfoContext(ctx, "Tournament completed", slog.Int("tournament_id", tournamentID), slog.Int("winner_id", standings[0]))
		s.notifier.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.MessageTournamentCompleted, tournament)
	}
	return updated, nil
}

func (s *tournamentService) OpenDueRegistrations(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.tournamentRepo.OpenDueRegistrations(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to open registrations: %w", err)
	}
	return n, nil
}

// advanceError maps bracket rule violations to service errors, nil for
// anything else.
func advanceError(err error) error {
	switch {
	case errors.Is(err, brackets.ErrSlotNotFound):
		return ErrMatchNotFound
	case errors.Is(err, brackets.ErrSlotNotReady):
		return ErrMatchNotReady
	case errors.Is(err, brackets.ErrSlotCompleted):
		return ErrMatchAlreadyCompleted
	case errors.Is(err, brackets.ErrInvalidWinner):
		return ErrInvalidMatchWinner
	}
	return nil
}

func matchesToSlots(matches []*models.Match) ([]*brackets.MatchSlot, map[int]*models.Match) {
	slots := make([]*brackets.MatchSlot, len(matches))
	byNumber := make(map[int]*models.Match, len(matches))
	for i, m := range matches {
		slots[i] = &brackets.MatchSlot{
			Round:       m.Round,
			MatchNumber: m.MatchNumber,
			Kind:        m.Kind,
			Player1ID:   m.Player1ID,
			Player2ID:   m.Player2ID,
			WinnerID:    m.WinnerID,
			Status:      m.Status,
		}
		byNumber[m.MatchNumber] = m
	}
	return slots, byNumber
}

// validateReportedScore checks optional scores: both or neither, and the
// winner's score must be the race length while the loser's stays below it.
func validateReportedScore(m *models.Match, raceTo int, input ReportResultInput) error {
	if input.Player1Score == nil && input.Player2Score == nil {
		return nil
	}
	if input.Player1Score == nil || input.Player2Score == nil {
		return fmt.Errorf("%w: both scores are required", ErrInvalidScore)
	}
	p1, p2 := *input.Player1Score, *input.Player2Score
	if p1 < 0 || p2 < 0 {
		return fmt.Errorf("%w: scores cannot be negative", ErrInvalidScore)
	}
	winnerScore, loserScore := p1, p2
	if m.Player2ID != nil && *m.Player2ID == input.WinnerID {
		winnerScore, loserScore = p2, p1
	}
	if winnerScore != raceTo || loserScore >= raceTo {
		return fmt.Errorf("%w: %d-%d in a race to %d", ErrInvalidScore, p1, p2, raceTo)
	}
	return nil
}

// finalStandings returns champion, runner-up, third and fourth once both
// the final and the bronze match are completed, nil before that.
func finalStandings(slots []*brackets.MatchSlot) []int {
	var final, bronze *brackets.MatchSlot
	for _, s := range slots {
		switch s.Kind {
		case models.MatchKindFinal:
			final = s
		case models.MatchKindBronze:
			bronze = s
		}
	}
	if final == nil || bronze == nil || final.Status != models.MatchCompleted || bronze.Status != models.MatchCompleted {
		return nil
	}
	return []int{*final.WinnerID, *final.Loser(), *bronze.WinnerID, *bronze.Loser()}
}
