package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"code404/api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository stores club calendar sessions (meetings), not auth
// sessions; those are stateless JWT cookies.
type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) Create(ctx context.Context, session models.ClubSession) error {
	const query = `
		INSERT INTO club_sessions (id, title, date, status)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.Title,
		session.Date,
		session.Status,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (models.ClubSession, error) {
	const query = `
		SELECT id, title, date, status, archived_at
		FROM club_sessions WHERE id = $1
	`
	var session models.ClubSession
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.Title,
		&session.Date,
		&session.Status,
		&session.ArchivedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ClubSession{}, ErrSessionNotFound
		}
		return models.ClubSession{}, err
	}
	return session, nil
}

// ListUpcoming returns scheduled sessions from today onward.
func (r *SessionRepository) ListUpcoming(ctx context.Context, from time.Time) ([]models.ClubSession, error) {
	const query = `
		SELECT id, title, date, status, archived_at
		FROM club_sessions
		WHERE status = $1 AND date >= $2
		ORDER BY date
	`
	rows, err := r.pool.Query(ctx, query, models.ClubSessionStatusScheduled, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ClubSession
	for rows.Next() {
		var session models.ClubSession
		if err := rows.Scan(
			&session.ID,
			&session.Title,
			&session.Date,
			&session.Status,
			&session.ArchivedAt,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// ArchivePast marks sessions older than the cutoff as archived so they drop
// out of listings without manual intervention.
func (r *SessionRepository) ArchivePast(ctx context.Context, before time.Time) (int64, error) {
	const query = `
		UPDATE club_sessions
		SET status = $1, archived_at = NOW()
		WHERE status = $2 AND date < $3
	`
	cmd, err := r.pool.Exec(ctx, query,
		models.ClubSessionStatusArchived,
		models.ClubSessionStatusScheduled,
		before,
	)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
