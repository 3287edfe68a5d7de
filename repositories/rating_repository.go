package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Dosada05/sabo-arena/models"
)

// RatingRepository stores the ELO history and the SPA ledger.
type RatingRepository interface {
	AddEloHistory(ctx context.Context, exec SQLExecutor, h *models.EloHistory) error
	AddSpaTransaction(ctx context.Context, exec SQLExecutor, t *models.SpaTransaction) error
	ListEloHistory(ctx context.Context, userID int, limit int) ([]models.EloHistory, error)
	ListSpaTransactions(ctx context.Context, userID int, limit int) ([]models.SpaTransaction, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) AddEloHistory(ctx context.Context, exec SQLExecutor, h *models.EloHistory) error {
	query := `
		INSERT INTO elo_history (user_id, challenge_id, opponent_id, elo_before, elo_after, elo_change)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		h.UserID, h.ChallengeID, h.OpponentID, h.EloBefore, h.EloAfter, h.EloChange,
	).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert elo history for user %d: %w", h.UserID, err)
	}
	return nil
}

func (r *postgresRatingRepository) AddSpaTransaction(ctx context.Context, exec SQLExecutor, t *models.SpaTransaction) error {
	query := `
		INSERT INTO spa_transactions (user_id, amount, reason, reference_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query, t.UserID, t.Amount, t.Reason, t.ReferenceID).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert spa transaction for user %d: %w", t.UserID, err)
	}
	return nil
}

func (r *postgresRatingRepository) ListEloHistory(ctx context.Context, userID int, limit int) ([]models.EloHistory, error) {
	limit, _ = normalizePage(limit, 0)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, challenge_id, opponent_id, elo_before, elo_after, elo_change, created_at
		FROM elo_history WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query elo history: %w", err)
	}
	defer rows.Close()

	history := make([]models.EloHistory, 0)
	for rows.Next() {
		var h models.EloHistory
		if err := rows.Scan(&h.ID, &h.UserID, &h.ChallengeID, &h.OpponentID, &h.EloBefore, &h.EloAfter, &h.EloChange, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan elo history row: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *postgresRatingRepository) ListSpaTransactions(ctx context.Context, userID int, limit int) ([]models.SpaTransaction, error) {
	limit, _ = normalizePage(limit, 0)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount, reason, reference_id, created_at
		FROM spa_transactions WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query spa transactions: %w", err)
	}
	defer rows.Close()

	txs := make([]models.SpaTransaction, 0)
	for rows.Next() {
		var t models.SpaTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Reason, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan spa transaction row: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
