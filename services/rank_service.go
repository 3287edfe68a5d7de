package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/sabo-arena/brackets"
	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/repositories"
	"github.com/Dosada05/sabo-arena/storage"
)

const evidencePrefix = "rank-evidence"

type RankService interface {
	SubmitRequest(ctx context.Context, userID int, input RankRequestInput, evidence *FileInput) (*models.RankRequest, error)
	ListMyRequests(ctx context.Context, userID int) ([]*models.RankRequest, error)
	ListPending(ctx context.Context, limit, offset int) ([]*models.RankRequest, error)
	Approve(ctx context.Context, reviewerID, requestID int) (*models.RankRequest, error)
	Reject(ctx context.Context, reviewerID, requestID int, reason string) (*models.RankRequest, error)
}

type RankRequestInput struct {
	RequestedRank string  `json:"requested_rank"`
	Note          *string `json:"note,omitempty"`
}

type rankService struct {
	rankRepo   repositories.RankRequestRepository
	userRepo   repositories.UserRepository
	transactor repositories.Transactor
	uploader   storage.FileUploader
	notifier   Notifier
	logger     *slog.Logger
}

func NewRankService(
	rankRepo repositories.RankRequestRepository,
	userRepo repositories.UserRepository,
	transactor repositories.Transactor,
	uploader storage.FileUploader,
	notifier Notifier,
	logger *slog.Logger,
) RankService {
	return &rankService{
		rankRepo:   rankRepo,
		userRepo:   userRepo,
		transactor: transactor,
		uploader:   uploader,
		notifier:   notifierOrNoop(notifier),
		logger:     logger,
	}
}

func (s *rankService) SubmitRequest(ctx context.Context, userID int, input RankRequestInput, evidence *FileInput) (*models.RankRequest, error) {
	rank, err := models.ParseRank(input.RequestedRank)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRank, err)
	}
	if evidence == nil {
		return nil, ErrEvidenceRequired
	}
	ext, err := evidence.validate()
	if err != nil {
		return nil, err
	}

	key := storage.NewObjectKey(fmt.Sprintf("%s/%d", evidencePrefix, userID), "evidence"+ext)
	if _, err := s.uploader.Upload(ctx, key, evidence.ContentType, evidence.Reader); err != nil {
		return nil, fmt.Errorf("failed to upload rank evidence: %w", err)
	}

	req := &models.RankRequest{
		UserID:        userID,
		RequestedRank: rank,
		EvidenceKey:   key,
		Note:          input.Note,
		Status:        models.RankRequestPending,
	}
	if err := s.rankRepo.Create(ctx, req); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to clean up rank evidence", slog.String("key", key), slog.Any("error", delErr))
		}
		switch {
		case errors.Is(err, repositories.ErrRankRequestPending):
			return nil, ErrRankRequestPending
		case errors.Is(err, repositories.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create rank request: %w", err)
	}

	s.logger.InfoContext(ctx, "Rank request submitted",
		slog.Int("request_id", req.ID), slog.Int("user_id", userID), slog.String("rank", rank.String()))
	populateRankRequestURLFunc(req, s.uploader)
	return req, nil
}

func (s *rankService) ListMyRequests(ctx context.Context, userID int) ([]*models.RankRequest, error) {
	requests, err := s.rankRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rank requests: %w", err)
	}
	for _, r := range requests {
		populateRankRequestURLFunc(r, s.uploader)
	}
	return requests, nil
}

func (s *rankService) ListPending(ctx context.Context, limit, offset int) ([]*models.RankRequest, error) {
	requests, err := s.rankRepo.ListByStatus(ctx, models.RankRequestPending, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending rank requests: %w", err)
	}
	for _, r := range requests {
		populateRankRequestURLFunc(r, s.uploader)
	}
	return requests, nil
}

// Approve marks the request approved and sets the user's verified rank in
// the same transaction.
func (s *rankService) Approve(ctx context.Context, reviewerID, requestID int) (*models.RankRequest, error) {
	req, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req.Status = models.RankRequestApproved
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.rankRepo.Review(ctx, exec, req); err != nil {
			return err
		}
		return s.userRepo.SetVerifiedRank(ctx, exec, req.UserID, req.RequestedRank)
	})
	if err != nil {
		return nil, s.mapReviewError(err)
	}

	s.logger.InfoContext(ctx, "Rank request approved",
		slog.Int("request_id", req.ID), slog.Int("user_id", req.UserID), slog.Int("reviewer_id", reviewerID))
	s.notifier.BroadcastToRoom(brackets.UserRoom(req.UserID), brackets.MessageRankReviewed, req)
	populateRankRequestURLFunc(req, s.uploader)
	return req, nil
}

func (s *rankService) Reject(ctx context.Context, reviewerID, requestID int, reason string) (*models.RankRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reject reason is required", ErrValidationFailed)
	}
	req, err := s.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	req.Status = models.RankRequestRejected
	req.ReviewerID = &reviewerID
	req.ReviewedAt = &now
	req.RejectReason = &reason

	err = s.transactor.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		return s.rankRepo.Review(ctx, exec, req)
	})
	if err != nil {
		return nil, s.mapReviewError(err)
	}

	s.notifier.BroadcastToRoom(brackets.UserRoom(req.UserID), brackets.MessageRankReviewed, req)
	populateRankRequestURLFunc(req, s.uploader)
	return req, nil
}

func (s *rankService) pendingRequest(ctx context.Context, requestID int) (*models.RankRequest, error) {
	req, err := s.rankRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repositories.ErrRankRequestNotFound) {
			return nil, ErrRankRequestNotFound
		}
		return nil, fmt.Errorf("failed to get rank request %d: %w", requestID, err)
	}
	if req.Status != models.RankRequestPending {
		return nil, ErrRequestNotPending
	}
	return req, nil
}

func (s *rankService) mapReviewError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrRankRequestNotFound):
		return ErrRequestNotPending
	case errors.Is(err, repositories.ErrUserNotFound):
		return ErrUserNotFound
	}
	return fmt.Errorf("failed to review rank request: %w", err)
}
