package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/db"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/repositories"
	"github.com/Dosada05/sabo-arena/storage"
)

// MinAppealLength is counted in characters, not bytes.
const MinAppealLength = 50

// Migrator is satisfied by *db.Migrator.
type Migrator interface {
	Up(ctx context.Context) (int64, error)
	Status(ctx context.Context) (*db.MigrationStatus, error)
}

type AdminService interface {
	ListUsers(ctx context.Context, filter models.UserFilter) (*models.UserListResponse, error)
	BanUser(ctx context.Context, actor Actor, userID int, reason string) error
	UnbanUser(ctx context.Context, actor Actor, userID int) error
	IssuePenalty(ctx context.Context, actor Actor, input IssuePenaltyInput) (*models.Penalty, error)
	ListPenalties(ctx context.Context, userID int) ([]*models.Penalty, error)
	ListOpenAppeals(ctx context.Context) ([]*models.Penalty, error)
	AppealPenalty(ctx context.Context, userID, penaltyID int, text string) (*models.Penalty, error)
	ResolveAppeal(ctx context.Context, actor Actor, penaltyID int, accept bool) (*models.Penalty, error)
	RunMigrations(ctx context.Context) (*db.MigrationStatus, error)
	MigrationStatus(ctx context.Context) (*db.MigrationStatus, error)
}

type IssuePenaltyInput struct {
	UserID      int    `json:"user_id"`
	SpaDeducted int    `json:"spa_deducted"`
	Reason      string `json:"reason"`
}

type adminService struct {
	userRepo    repositories.UserRepository
	penaltyRepo repositories.PenaltyRepository
	ratingRepo  repositories.RatingRepository
	transactor  repositories.Transactor
	migrator    Migrator
	uploader    storage.FileUploader
	notifier    Notifier
	logger      *slog.Logger
}

func NewAdminService(
	userRepo repositories.UserRepository,
	penaltyRepo repositories.PenaltyRepository,
	ratingRepo repositories.RatingRepository,
	transactor repositories.Transactor,
	migrator Migrator,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) AdminService {
	return &adminService{
		userRepo:    userRepo,
		penaltyRepo: penaltyRepo,
		ratingRepo:  ratingRepo,
		transactor:  transactor,
		migrator:    migrator,
		uploader:    uploader,
		notifier:    notifierOrNoop(notifier),
		logger:      logger,
	}
}

func (s *adminService) ListUsers(ctx context.Context, filter models.UserFilter) (*models.UserListResponse, error) {
	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for i := range users {
		populateUserDetailsFunc(&users[i], s.uploader)
	}
	return &models.UserListResponse{
		Users:      users,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

func (s *adminService) BanUser(ctx context.Context, actor Actor, userID int, reason string) error {
	if actor.UserID == userID {
		return fmt.Errorf("%w: cannot ban yourself", ErrForbiddenOperation)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("%w: ban reason is required", ErrValidationFailed)
	}
	if err := s.userRepo.SetStatus(ctx, userID, models.UserStatusBanned, &reason); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to ban user %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "User banned", slog.Int("user_id", userID), slog.Int("admin_id", actor.UserID), slog.String("reason", reason))
	return nil
}

func (s *adminService) UnbanUser(ctx context.Context, actor Actor, userID int) error {
	if err := s.userRepo.SetStatus(ctx, userID, models.UserStatusActive, nil); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to unban user %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "User unbanned", slog.Int("user_id", userID), slog.Int("admin_id", actor.UserID))
	return nil
}

// IssuePenalty records the penalty and deducts SPA in one transaction. The
// deduction is capped at the player's balance and the penalty stores what
// was actually taken so that a revoked appeal refunds exactly that.
func (s *adminService) IssuePenalty(ctx context.Context, actor Actor, input IssuePenaltyInput) (*models.Penalty, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: penalty reason is required", ErrValidationFailed)
	}
	if input.SpaDeducted < 0 {
		return nil, fmt.Errorf("%w: spa deduction cannot be negative", ErrValidationFailed)
	}

	penalty := &models.Penalty{
		UserID:   input.UserID,
		IssuedBy: actor.UserID,
		Reason:   reason,
		Status:   models.PenaltyActive,
	}

	// Capped at the balance read under lock.
	err := s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		user, err := s.userRepo.GetForUpdate(ctx, exec, input.UserID)
		if err != nil {
			return err
		}
		penalty.SpaDeducted = min(input.SpaDeducted, user.SpaPoints)
		if err := s.penaltyRepo.Create(ctx, exec, penalty); err != nil {
			return err
		}
		if penalty.SpaDeducted == 0 {
			return nil
		}
		if _, err := s.userRepo.AdjustSpa(ctx, exec, penalty.UserID, -penalty.SpaDeducted); err != nil {
			return err
		}
		return s.ratingRepo.AddSpaTransaction(ctx, exec, &models.SpaTransaction{
			UserID: penalty.UserID, Amount: -penalty.SpaDeducted, Reason: models.SpaPenalty, ReferenceID: intPtr(penalty.ID),
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to issue penalty: %w", err)
	}

	s.logger.InfoContext(ctx, "Penalty issued",
		slog.Int("penalty_id", penalty.ID), slog.Int("user_id", penalty.UserID), slog.Int("spa_deducted", penalty.SpaDeducted))
	s.notifier.BroadcastToRoom(brackets.UserRoom(penalty.UserID), brackets.MessagePenaltyIssued, penalty)
	return penalty, nil
}

func (s *adminService) ListPenalties(ctx context.Context, userID int) ([]*models.Penalty, error) {
	penalties, err := s.penaltyRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list penalties: %w", err)
	}
	return penalties, nil
}

func (s *adminService) ListOpenAppeals(ctx context.Context) ([]*models.Penalty, error) {
	penalties, err := s.penaltyRepo.ListByStatus(ctx, models.PenaltyAppealed)
	if err != nil {
		return nil, fmt.Errorf("failed to list appeals: %w", err)
	}
	return penalties, nil
}

func (s *adminService) getPenalty(ctx context.Context, id int) (*models.Penalty, error) {
	penalty, err := s.penaltyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrPenaltyNotFound) {
			return nil, ErrPenaltyNotFound
		}
		return nil, fmt.Errorf("failed to get penalty %d: %w", id, err)
	}
	return penalty, nil
}

func (s *adminService) AppealPenalty(ctx context.Context, userID, penaltyID int, text string) (*models.Penalty, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < MinAppealLength {
		return nil, ErrAppealTooShort
	}
	penalty, err := s.getPenalty(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	if penalty.UserID != userID {
		return nil, ErrForbiddenOperation
	}
	if penalty.Status != models.PenaltyActive {
		return nil, ErrPenaltyNotActive
	}

	penalty.AppealText = &text
	penalty.Status = models.PenaltyAppealed
	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.penaltyRepo.UpdateStatus(ctx, exec, penalty, models.PenaltyActive)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPenaltyNotFound) {
			return nil, ErrPenaltyNotActive
		}
		return nil, fmt.Errorf("failed to appeal penalty %d: %w", penaltyID, err)
	}
	return penalty, nil
}

// ResolveAppeal upholds or revokes an appealed penalty. Revoking refunds the
// deducted SPA.
func (s *adminService) ResolveAppeal(ctx context.Context, actor Actor, penaltyID int, accept bool) (*models.Penalty, error) {
	penalty, err := s.getPenalty(ctx, penaltyID)
	if err != nil {
		return nil, err
	}
	if penalty.Status != models.PenaltyAppealed {
		return nil, ErrPenaltyNotAppealed
	}

	now := time.Now().UTC()
	penalty.ResolvedAt = &now
	penalty.Status = models.PenaltyUpheld
	if accept {
		penalty.Status = models.PenaltyRevoked
	}

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.penaltyRepo.UpdateStatus(ctx, exec, penalty, models.PenaltyAppealed); err != nil {
			return err
		}
		if !accept || penalty.SpaDeducted == 0 {
			return nil
		}
		if _, err := s.userRepo.AdjustSpa(ctx, exec, penalty.UserID, penalty.SpaDeducted); err != nil {
			return err
		}
		return s.ratingRepo.AddSpaTransaction(ctx, exec, &models.SpaTransaction{
			UserID: penalty.UserID, Amount: penalty.SpaDeducted, Reason: models.SpaPenaltyRefund, ReferenceID: intPtr(penalty.ID),
		})
	})
	if err != nil {
		if errors.Is(err, repositories.ErrPenaltyNotFound) {
			return nil, ErrPenaltyNotAppealed
		}
		return nil, fmt.Errorf("failed to resolve appeal %d: %w", penaltyID, err)
	}

	s.logger.InfoContext(ctx, "Penalty appeal resolved",
		slog.Int("penalty_id", penalty.ID), slog.Int("admin_id", actor.UserID), slog.String("status", string(penalty.Status)))
	return penalty, nil
}

func (s *adminService) RunMigrations(ctx context.Context) (*db.MigrationStatus, error) {
	version, err := s.migrator.Up(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Migrations applied", slog.Int64("version", version))
	return s.migrator.Status(ctx)
}

func (s *adminService) MigrationStatus(ctx context.Context) (*db.MigrationStatus, error) {
	return s.migrator.Status(ctx)
}
