package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"code404/api/internal/models"
)

var ErrMemberNotFound = errors.New("member not found")

type MemberRepository struct {
	pool *pgxpool.Pool
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

const memberColumns = `
	id, username, email, password_hash, name, role, avatar_url,
	points, badges, github, portfolio, credentials_updated_at, created_at, updated_at
`

func (r *MemberRepository) Create(ctx context.Context, member models.Member) error {
	const query = `
		INSERT INTO members (
			id, username, email, password_hash, name, role, avatar_url,
			points, badges, github, portfolio, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		member.ID,
		strings.ToLower(member.Username),
		member.Email,
		member.PasswordHash,
		member.Name,
		member.Role,
		member.AvatarURL,
		member.Points,
		member.Badges,
		member.Github,
		member.Portfolio,
	)
	return err
}

// FindByUsername looks a member up by the normalized (lowercase) username.
func (r *MemberRepository) FindByUsername(ctx context.Context, username string) (models.Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM members WHERE username = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, strings.ToLower(username)))
}

func (r *MemberRepository) GetByID(ctx context.Context, id string) (models.Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM members WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *MemberRepository) List(ctx context.Context) ([]models.Member, error) {
	const query = `
		SELECT ` + memberColumns + `
		FROM members ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		member, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

// UpdateCredentials replaces a member's login pair after regeneration.
func (r *MemberRepository) UpdateCredentials(ctx context.Context, id string, username string, passwordHash []byte) error {
	const query = `
		UPDATE members
		SET username = $2, password_hash = $3, credentials_updated_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, strings.ToLower(username), passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) UpdateAvatarURL(ctx context.Context, id string, avatarURL string) error {
	const query = `
		UPDATE members SET avatar_url = $2, updated_at = NOW() WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query, id, avatarURL)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) scanOne(row pgx.Row) (models.Member, error) {
	var member models.Member
	if err := row.Scan(
		&member.ID,
		&member.Username,
		&member.Email,
		&member.PasswordHash,
		&member.Name,
		&member.Role,
		&member.AvatarURL,
		&member.Points,
		&member.Badges,
		&member.Github,
		&member.Portfolio,
		&member.CredentialsUpdatedAt,
		&member.CreatedAt,
		&member.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Member{}, ErrMemberNotFound
		}
		return models.Member{}, err
	}
	return member, nil
}
