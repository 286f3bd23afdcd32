package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"code404/api/internal/models"
)

var ErrScheduleNotFound = errors.New("schedule not found")

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Create(ctx context.Context, schedule models.NotificationSchedule) error {
	raw, err := json.Marshal(schedule.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	const query = `
		INSERT INTO webpush_schedules (id, send_at, payload, audience, status, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err = r.pool.Exec(ctx, query,
		schedule.ID,
		schedule.SendAt,
		raw,
		schedule.Audience,
		models.ScheduleStatusPending,
	)
	return err
}

// ListDue returns pending schedules whose send time has passed.
func (r *ScheduleRepository) ListDue(ctx context.Context, now time.Time) ([]models.NotificationSchedule, error) {
	const query = `
		SELECT id, send_at, payload, audience, status, error, tried_at, created_at
		FROM webpush_schedules
		WHERE status = $1 AND send_at <= $2
		ORDER BY send_at
	`
	rows, err := r.pool.Query(ctx, query, models.ScheduleStatusPending, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.NotificationSchedule
	for rows.Next() {
		var (
			schedule models.NotificationSchedule
			raw      []byte
		)
		if err := rows.Scan(
			&schedule.ID,
			&schedule.SendAt,
			&raw,
			&schedule.Audience,
			&schedule.Status,
			&schedule.Error,
			&schedule.TriedAt,
			&schedule.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &schedule.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload %s: %w", schedule.ID, err)
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

func (r *ScheduleRepository) MarkSent(ctx context.Context, id string) error {
	const query = `
		UPDATE webpush_schedules
		SET status = $2, error = NULL, tried_at = NOW()
		WHERE id = $1
	`
	return r.markStatus(ctx, query, id, models.ScheduleStatusSent)
}

func (r *ScheduleRepository) MarkFailed(ctx context.Context, id string, cause string) error {
	const query = `
		UPDATE webpush_schedules
		SET status = $2, error = $3, tried_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, models.ScheduleStatusFailed, cause)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}

// ResetPending puts a schedule back into the pending state so the dispatcher
// picks it up again. Used by the admin retry endpoint.
func (r *ScheduleRepository) ResetPending(ctx context.Context, id string) error {
	const query = `
		UPDATE webpush_schedules
		SET status = $2, error = NULL, tried_at = NULL
		WHERE id = $1
	`
	return r.markStatus(ctx, query, id, models.ScheduleStatusPending)
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (models.NotificationSchedule, error) {
	const query = `
		SELECT id, send_at, payload, audience, status, error, tried_at, created_at
		FROM webpush_schedules
		WHERE id = $1
	`
	var (
		schedule models.NotificationSchedule
		raw      []byte
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&schedule.ID,
		&schedule.SendAt,
		&raw,
		&schedule.Audience,
		&schedule.Status,
		&schedule.Error,
		&schedule.TriedAt,
		&schedule.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NotificationSchedule{}, ErrScheduleNotFound
		}
		return models.NotificationSchedule{}, err
	}
	if err := json.Unmarshal(raw, &schedule.Payload); err != nil {
		return models.NotificationSchedule{}, fmt.Errorf("unmarshal payload %s: %w", schedule.ID, err)
	}
	return schedule, nil
}

func (r *ScheduleRepository) markStatus(ctx context.Context, query string, id string, status models.ScheduleStatus) error {
	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}
