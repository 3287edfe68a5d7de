package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/sabo-arena/models"
)

var (
	ErrRankRequestNotFound = errors.New("rank request not found")
	ErrRankRequestPending  = errors.New("user already has a pending rank request")
)

type RankRequestRepository interface {
	Create(ctx context.Context, req *models.RankRequest) error
	GetByID(ctx context.Context, id int) (*models.RankRequest, error)
	ListByStatus(ctx context.Context, status models.RankRequestStatus, limit, offset int) ([]*models.RankRequest, error)
	ListByUser(ctx context.Context, userID int) ([]*models.RankRequest, error)
	// Review stores the decision only if the request is still pending.
	Review(ctx context.Context, exec SQLExecutor, req *models.RankRequest) error
	CountByStatus(ctx context.Context, status models.RankRequestStatus) (int, error)
}

type postgresRankRequestRepository struct {
	db *sql.DB
}

func NewPostgresRankRequestRepository(db *sql.DB) RankRequestRepository {
	return &postgresRankRequestRepository{db: db}
}

const rankRequestColumns = `id, user_id, requested_rank, evidence_key, note, status, reviewer_id,
	reject_reason, created_at, reviewed_at`

func scanRankRequest(row interface{ Scan(...interface{}) error }) (*models.RankRequest, error) {
	var req models.RankRequest
	err := row.Scan(
		&req.ID, &req.UserID, &req.RequestedRank, &req.EvidenceKey, &req.Note, &req.Status,
		&req.ReviewerID, &req.RejectReason, &req.CreatedAt, &req.ReviewedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *postgresRankRequestRepository) Create(ctx context.Context, req *models.RankRequest) error {
	query := `
		INSERT INTO rank_requests (user_id, requested_rank, evidence_key, note, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		req.UserID, req.RequestedRank, req.EvidenceKey, req.Note, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "rank_requests_one_pending_idx" {
			return ErrRankRequestPending
		}
		if code, _, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create rank request: %w", err)
	}
	return nil
}

func (r *postgresRankRequestRepository) GetByID(ctx context.Context, id int) (*models.RankRequest, error) {
	req, err := scanRankRequest(r.db.QueryRowContext(ctx,
		`SELECT `+rankRequestColumns+` FROM rank_requests WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRankRequestNotFound
		}
		return nil, fmt.Errorf("failed to scan rank request %d: %w", id, err)
	}
	return req, nil
}

func (r *postgresRankRequestRepository) ListByStatus(ctx context.Context, status models.RankRequestStatus, limit, offset int) ([]*models.RankRequest, error) {
	limit, offset = normalizePage(limit, offset)
	return r.query(ctx,
		`SELECT `+rankRequestColumns+` FROM rank_requests WHERE status = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`,
		status, limit, offset)
}

func (r *postgresRankRequestRepository) ListByUser(ctx context.Context, userID int) ([]*models.RankRequest, error) {
	return r.query(ctx,
		`SELECT `+rankRequestColumns+` FROM rank_requests WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRankRequestRepository) Review(ctx context.Context, exec SQLExecutor, req *models.RankRequest) error {
	query := `
		UPDATE rank_requests SET status = $1, reviewer_id = $2, reject_reason = $3, reviewed_at = $4
		WHERE id = $5 AND status = 'pending'`

	result, err := exec.ExecContext(ctx, query, req.Status, req.ReviewerID, req.RejectReason, req.ReviewedAt, req.ID)
	if err != nil {
		return fmt.Errorf("failed to review rank request %d: %w", req.ID, err)
	}
	return checkAffectedRows(result, ErrRankRequestNotFound)
}

func (r *postgresRankRequestRepository) CountByStatus(ctx context.Context, status models.RankRequestStatus) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rank_requests WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rank requests: %w", err)
	}
	return count, nil
}

func (r *postgresRankRequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.RankRequest, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rank requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.RankRequest, 0)
	for rows.Next() {
		req, err := scanRankRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rank request row: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}
