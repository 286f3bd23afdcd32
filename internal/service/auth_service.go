package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"code404/api/internal/config"
	"code404/api/internal/models"
	"code404/api/internal/repository"
	"code404/api/internal/security"
)

var (
	// ErrInvalidCredentials is the single user-visible login failure. It
	// covers both unknown usernames and wrong passwords so responses never
	// leak which one happened.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrAdminPasswordNotSet = errors.New("admin password is not configured")
)

// MemberStore is the slice of the member repository the auth service needs.
type MemberStore interface {
	FindByUsername(ctx context.Context, username string) (models.Member, error)
	GetByID(ctx context.Context, id string) (models.Member, error)
	List(ctx context.Context) ([]models.Member, error)
	UpdateCredentials(ctx context.Context, id string, username string, passwordHash []byte) error
}

// CredentialMailer delivers freshly generated credentials to a member.
type CredentialMailer interface {
	SendCredentials(ctx context.Context, to, name, username, password string) error
}

type AuthService struct {
	members MemberStore
	mailer  CredentialMailer
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewAuthService(members MemberStore, mailer CredentialMailer, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		members: members,
		mailer:  mailer,
		cfg:     cfg,
		log:     log,
	}
}

// Login checks a username/password pair and, on success, returns the member
// together with a signed session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.Member, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || password == "" {
		return models.Member{}, "", ErrInvalidCredentials
	}

	member, err := s.members.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return models.Member{}, "", ErrInvalidCredentials
		}
		return models.Member{}, "", err
	}

	if !security.ComparePassword(password, member.PasswordHash) {
		return models.Member{}, "", ErrInvalidCredentials
	}

	token, err := security.GenerateUserToken(
		s.cfg.Security.JWTSecret,
		member.ID,
		member.Email,
		string(member.Role),
		member.Name,
		s.cfg.Security.UserTokenTTL,
	)
	if err != nil {
		return models.Member{}, "", err
	}

	return member, token, nil
}

// AdminLogin exchanges the bootstrap admin password for a short-lived admin
// token. Absence of the configured password is a server misconfiguration,
// not a bad credential.
func (s *AuthService) AdminLogin(password string) (string, error) {
	if s.cfg.Security.AdminPassword == "" {
		return "", ErrAdminPasswordNotSet
	}
	if !security.SecureCompare(password, s.cfg.Security.AdminPassword) {
		return "", ErrInvalidCredentials
	}

	return security.GenerateAdminToken(
		s.cfg.Security.JWTSecret,
		string(models.MemberRoleAdmin),
		s.cfg.Security.AdminTokenTTL,
	)
}

// CredentialIssue reports the outcome of regenerating one member's login.
// Password is the plaintext handed back to the administrator once; it is
// never stored.
type CredentialIssue struct {
	MemberID   string `json:"memberId"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

// RegenerateCredentials rotates every member's username/password pair.
// Usernames derive from the first name; collisions get a numeric suffix.
func (s *AuthService) RegenerateCredentials(ctx context.Context, sendEmails bool) ([]CredentialIssue, error) {
	members, err := s.members.List(ctx)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]int, len(members))
	issues := make([]CredentialIssue, 0, len(members))

	for _, member := range members {
		username := usernameFor(member.Name, taken)

		password, err := security.GenerateSecurePassword(12)
		if err != nil {
			return nil, fmt.Errorf("generate password for %s: %w", member.ID, err)
		}

		hash, err := security.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password for %s: %w", member.ID, err)
		}

		if err := s.members.UpdateCredentials(ctx, member.ID, username, hash); err != nil {
			return nil, fmt.Errorf("update credentials for %s: %w", member.ID, err)
		}

		issue := CredentialIssue{
			MemberID: member.ID,
			Name:     member.Name,
			Email:    member.Email,
			Username: username,
			Password: password,
		}

		if sendEmails && member.Email != "" {
			if s.mailer == nil {
				issue.EmailError = "mail transport not configured"
			} else if err := s.mailer.SendCredentials(ctx, member.Email, member.Name, username, password); err != nil {
				s.log.Warn().Err(err).Str("member_id", member.ID).Msg("credentials mail failed")
				issue.EmailError = err.Error()
			} else {
				issue.EmailSent = true
			}
		}

		issues = append(issues, issue)
	}

	return issues, nil
}

// usernameFor lowercases the first name, strips everything but [a-z0-9] and
// uniquifies with a counter suffix.
func usernameFor(name string, taken map[string]int) string {
	first := ""
	if fields := strings.Fields(name); len(fields) > 0 {
		first = strings.ToLower(fields[0])
	}
	var b strings.Builder
	for _, r := range first {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	base := b.String()
	if base == "" {
		base = "member"
	}

	taken[base]++
	if taken[base] == 1 {
		return base
	}
	return fmt.Sprintf("%s%d", base, taken[base])
}
