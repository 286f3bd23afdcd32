package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"code404/api/internal/models"
)

type DecisionRepository struct {
	pool *pgxpool.Pool
}

func NewDecisionRepository(pool *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{pool: pool}
}

func (r *DecisionRepository) Create(ctx context.Context, decision models.AdminDecision) error {
	const query = `
		INSERT INTO admin_decisions (id, request_id, decision, acted_by, acted_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		decision.ID,
		decision.RequestID,
		decision.Decision,
		decision.ActedBy,
	)
	return err
}

func (r *DecisionRepository) ListByRequest(ctx context.Context, requestID string) ([]models.AdminDecision, error) {
	const query = `
		SELECT id, request_id, decision, acted_by, acted_at
		FROM admin_decisions
		WHERE request_id = $1
		ORDER BY acted_at DESC
	`
	rows, err := r.pool.Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []models.AdminDecision
	for rows.Next() {
		var d models.AdminDecision
		if err := rows.Scan(&d.ID, &d.RequestID, &d.Decision, &d.ActedBy, &d.ActedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}
