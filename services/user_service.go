package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/Dosada05/sabo-arena/models"
	"github.com/Dosada05/sabo-arena/repositories"
	"github.com/Dosada05/sabo-arena/storage"
)

const (
	avatarPrefix        = "avatars"
	searchCandidatePool = 100
)

type UserService interface {
	GetProfile(ctx context.Context, id int) (*models.User, error)
	UpdateProfile(ctx context.Context, id int, input UpdateProfileInput) (*models.User, error)
	UploadAvatar(ctx context.Context, id int, file *FileInput) (*models.User, error)
	SearchPlayers(ctx context.Context, query string, rank *models.Rank, limit int) ([]models.User, error)
	Leaderboard(ctx context.Context, order models.LeaderboardOrder, limit, offset int) ([]models.User, error)
	EloHistory(ctx context.Context, id int, limit int) ([]models.EloHistory, error)
	SpaHistory(ctx context.Context, id int, limit int) ([]models.SpaTransaction, error)
}

type UpdateProfileInput struct {
	DisplayName *string `json:"display_name"`
	Phone       *string `json:"phone"`
	ClubName    *string `json:"club_name"`
	Bio         *string `json:"bio"`
}

type userService struct {
	userRepo   repositories.UserRepository
	ratingRepo repositories.RatingRepository
	uploader   storage.FileUploader
	logger     *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	ratingRepo repositories.RatingRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) UserService {
	return &userService{
		userRepo:   userRepo,
		ratingRepo: ratingRepo,
		uploader:   uploader,
		logger:     logger,
	}
}

func (s *userService) getUser(ctx context.Context, id int) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

func (s *userService) GetProfile(ctx context.Context, id int) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	populateUserDetailsFunc(user, s.uploader)
	return user, nil
}

func (s *userService) UpdateProfile(ctx context.Context, id int, input UpdateProfileInput) (*models.User, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, fmt.Errorf("%w: display name cannot be empty", ErrValidationFailed)
		}
		user.DisplayName = name
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.ClubName != nil {
		user.ClubName = input.ClubName
	}
	if input.Bio != nil {
		user.Bio = input.Bio
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}
	populateUserDetailsFunc(user, s.uploader)
	return user, nil
}

// UploadAvatar stores the image and swaps the user's avatar key. The old
// object is removed best effort.
func (s *userService) UploadAvatar(ctx context.Context, id int, file *FileInput) (*models.User, error) {
	ext, err := file.validate()
	if err != nil {
		return nil, err
	}
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.NewObjectKey(fmt.Sprintf("%s/%d", avatarPrefix, id), "avatar"+ext)
	if _, err := s.uploader.Upload(ctx, key, file.ContentType, file.Reader); err != nil {
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}

	oldKey := user.AvatarKey
	user.AvatarKey = &key
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		if delErr := s.uploader.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "Failed to clean up uploaded avatar", slog.String("key", key), slog.Any("error", delErr))
		}
		return nil, fmt.Errorf("failed to save avatar for user %d: %w", id, err)
	}
	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete previous avatar", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	populateUserDetailsFunc(user, s.uploader)
	return user, nil
}

// SearchPlayers ranks active players by fuzzy match of query against their
// display name. An empty query returns the candidates in id order.
func (s *userService) SearchPlayers(ctx context.Context, query string, rank *models.Rank, limit int) ([]models.User, error) {
	if rank != nil && !rank.IsValid() {
		return nil, ErrInvalidRank
	}
	active := models.UserStatusActive
	candidates, _, err := s.userRepo.List(ctx, models.UserFilter{Status: &active, Rank: rank, Limit: searchCandidatePool})
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	if limit <= 0 || limit > searchCandidatePool {
		limit = 20
	}

	query = strings.TrimSpace(query)
	var result []models.User
	if query == "" {
		result = candidates
	} else {
		names := make([]string, len(candidates))
		for i, u := range candidates {
			names[i] = u.DisplayName
		}
		ranks := fuzzy.RankFindNormalizedFold(query, names)
		sort.Stable(ranks)
		result = make([]models.User, 0, len(ranks))
		for _, r := range ranks {
			result = append(result, candidates[r.OriginalIndex])
		}
	}

	if len(result) > limit {
		result = result[:limit]
	}
	for i := range result {
		populateUserDetailsFunc(&result[i], s.uploader)
	}
	return result, nil
}

func (s *userService) Leaderboard(ctx context.Context, order models.LeaderboardOrder, limit, offset int) ([]models.User, error) {
	switch order {
	case models.LeaderboardByElo, models.LeaderboardBySpa:
	case "":
		order = models.LeaderboardByElo
	default:
		return nil, fmt.Errorf("%w: unknown leaderboard order %q", ErrValidationFailed, order)
	}
	users, err := s.userRepo.Leaderboard(ctx, order, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	for i := range users {
		populateUserDetailsFunc(&users[i], s.uploader)
		users[i].Email = ""
		users[i].Phone = nil
	}
	return users, nil
}

func (s *userService) EloHistory(ctx context.Context, id int, limit int) ([]models.EloHistory, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return nil, err
	}
	history, err := s.ratingRepo.ListEloHistory(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load elo history for user %d: %w", id, err)
	}
	return history, nil
}

func (s *userService) SpaHistory(ctx context.Context, id int, limit int) ([]models.SpaTransaction, error) {
	if _, err := s.getUser(ctx, id); err != nil {
		return nil, err
	}
	txs, err := s.ratingRepo.ListSpaTransactions(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load spa history for user %d: %w", id, err)
	}
	return txs, nil
}
