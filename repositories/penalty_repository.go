package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/sabo-arena/models"
)

var ErrPenaltyNotFound = errors.New("penalty not found")

type PenaltyRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Penalty) error
	GetByID(ctx context.Context, id int) (*models.Penalty, error)
	ListByUser(ctx context.Context, userID int) ([]*models.Penalty, error)
	ListByStatus(ctx context.Context, status models.PenaltyStatus) ([]*models.Penalty, error)
	// UpdateStatus stores appeal text, status and resolution time when the
	// penalty is still in expected.
	UpdateStatus(ctx context.Context, exec SQLExecutor, p *models.Penalty, expected models.PenaltyStatus) error
	CountByStatus(ctx context.Context, status models.PenaltyStatus) (int, error)
}

type postgresPenaltyRepository struct {
	db *sql.DB
}

func NewPostgresPenaltyRepository(db *sql.DB) PenaltyRepository {
	return &postgresPenaltyRepository{db: db}
}

const penaltyColumns = `id, user_id, issued_by, spa_deducted, reason, appeal_text, status, created_at, resolved_at`

func scanPenalty(row interface{ Scan(...interface{}) error }) (*models.Penalty, error) {
	var p models.Penalty
	if err := row.Scan(&p.ID, &p.UserID, &p.IssuedBy, &p.SpaDeducted, &p.Reason, &p.AppealText, &p.Status, &p.CreatedAt, &p.ResolvedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresPenaltyRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Penalty) error {
	err := exec.QueryRowContext(ctx, `
		INSERT INTO penalties (user_id, issued_by, spa_deducted, reason, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		p.UserID, p.IssuedBy, p.SpaDeducted, p.Reason, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		if code, _, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create penalty: %w", err)
	}
	return nil
}

func (r *postgresPenaltyRepository) GetByID(ctx context.Context, id int) (*models.Penalty, error) {
	p, err := scanPenalty(r.db.QueryRowContext(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPenaltyNotFound
		}
		return nil, fmt.Errorf("failed to scan penalty %d: %w", id, err)
	}
	return p, nil
}

func (r *postgresPenaltyRepository) ListByUser(ctx context.Context, userID int) ([]*models.Penalty, error) {
	return r.query(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresPenaltyRepository) ListByStatus(ctx context.Context, status models.PenaltyStatus) ([]*models.Penalty, error) {
	return r.query(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE status = $1 ORDER BY created_at ASC`, status)
}

func (r *postgresPenaltyRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, p *models.Penalty, expected models.PenaltyStatus) error {
	result, err := exec.ExecContext(ctx, `
		UPDATE penalties SET appeal_text = $1, status = $2, resolved_at = $3
		WHERE id = $4 AND status = $5`,
		p.AppealText, p.Status, p.ResolvedAt, p.ID, expected)
	if err != nil {
		return fmt.Errorf("failed to update penalty %d: %w", p.ID, err)
	}
	return checkAffectedRows(result, ErrPenaltyNotFound)
}

func (r *postgresPenaltyRepository) CountByStatus(ctx context.Context, status models.PenaltyStatus) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM penalties WHERE status = $1`, status).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count penalties: %w", err)
	}
	return count, nil
}

func (r *postgresPenaltyRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Penalty, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query penalties: %w", err)
	}
	defer rows.Close()

	penalties := make([]*models.Penalty, 0)
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan penalty row: %w", err)
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}
