package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"code404/api/internal/config"
	"code404/api/internal/models"
	"code404/api/internal/security"
)

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTSecret:     "test-secret",
			UserTokenTTL:  7 * 24 * time.Hour,
			AdminTokenTTL: 24 * time.Hour,
			AdminPassword: "bootstrap-admin-pass",
		},
	}
}

func memberWithPassword(t *testing.T, id, username, name, role, password string) models.Member {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	return models.Member{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		Name:         name,
		Role:         models.MemberRole(role),
		PasswordHash: hash,
	}
}

func TestLogin_Success(t *testing.T) {
	t.Parallel()

	members := &fakeMemberStore{members: []models.Member{
		memberWithPassword(t, "m-1", "ada", "Ada Lovelace", "student", "pass-word-1"),
	}}
	svc := NewAuthService(members, nil, testConfig(), zerolog.Nop())

	member, token, err := svc.Login(context.Background(), "  Ada ", "pass-word-1")
	require.NoError(t, err)
	require.Equal(t, "m-1", member.ID)

	claims, err := security.ParseUserToken(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, "m-1", claims.UserID)
	require.Equal(t, "student", claims.Role)
	require.Equal(t, "Ada Lovelace", claims.Name)
}

// Unknown usernames and wrong passwords are indistinguishable to the caller.
func TestLogin_GenericFailure(t *testing.T) {
	t.Parallel()

	members := &fakeMemberStore{members: []models.Member{
		memberWithPassword(t, "m-1", "ada", "Ada Lovelace", "student", "pass-word-1"),
	}}
	svc := NewAuthService(members, nil, testConfig(), zerolog.Nop())
	ctx := context.Background()

	_, _, errUnknown := svc.Login(ctx, "nobody", "whatever")
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)

	_, _, errWrongPass := svc.Login(ctx, "ada", "wrong")
	require.ErrorIs(t, errWrongPass, ErrInvalidCredentials)

	require.Equal(t, errUnknown, errWrongPass)
}

func TestAdminLogin(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(&fakeMemberStore{}, nil, testConfig(), zerolog.Nop())

	token, err := svc.AdminLogin("bootstrap-admin-pass")
	require.NoError(t, err)

	claims, err := security.ParseAdminToken(token, "test-secret")
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)

	_, err = svc.AdminLogin("wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLogin_UnsetPasswordIsConfigError(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security.AdminPassword = ""
	svc := NewAuthService(&fakeMemberStore{}, nil, cfg, zerolog.Nop())

	_, err := svc.AdminLogin("anything")
	require.ErrorIs(t, err, ErrAdminPasswordNotSet)
}

func TestRegenerateCredentials(t *testing.T) {
	t.Parallel()

	members := &fakeMemberStore{members: []models.Member{
		memberWithPassword(t, "m-1", "old1", "Ada Lovelace", "student", "x"),
		memberWithPassword(t, "m-2", "old2", "Ada Byron", "student", "x"),
		memberWithPassword(t, "m-3", "old3", "Grace Hopper", "mentor", "x"),
	}}
	mailer := &fakeMailer{}
	svc := NewAuthService(members, mailer, testConfig(), zerolog.Nop())

	issues, err := svc.RegenerateCredentials(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, issues, 3)

	// First names collide; the second Ada gets a suffix.
	require.Equal(t, "ada", issues[0].Username)
	require.Equal(t, "ada2", issues[1].Username)
	require.Equal(t, "grace", issues[2].Username)

	for i, issue := range issues {
		require.Len(t, issue.Password, 12)
		require.True(t, issue.EmailSent, "issue %d", i)

		// The stored hash matches the issued plaintext and the old
		// password no longer works.
		member, err := members.GetByID(context.Background(), issue.MemberID)
		require.NoError(t, err)
		require.True(t, security.ComparePassword(issue.Password, member.PasswordHash))
		require.False(t, security.ComparePassword("x", member.PasswordHash))
	}

	require.Len(t, mailer.sent, 3)
}

func TestRegenerateCredentials_MailFailureIsPerMember(t *testing.T) {
	t.Parallel()

	members := &fakeMemberStore{members: []models.Member{
		memberWithPassword(t, "m-1", "old1", "Ada Lovelace", "student", "x"),
		memberWithPassword(t, "m-2", "old2", "Grace Hopper", "mentor", "x"),
	}}
	mailer := &fakeMailer{fail: map[string]bool{"old1@example.com": true}}
	svc := NewAuthService(members, mailer, testConfig(), zerolog.Nop())

	issues, err := svc.RegenerateCredentials(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	require.False(t, issues[0].EmailSent)
	require.NotEmpty(t, issues[0].EmailError)
	require.True(t, issues[1].EmailSent)
}

func TestRegenerateCredentials_NoEmails(t *testing.T) {
	t.Parallel()

	members := &fakeMemberStore{members: []models.Member{
		memberWithPassword(t, "m-1", "old1", "Ada Lovelace", "student", "x"),
	}}
	mailer := &fakeMailer{}
	svc := NewAuthService(members, mailer, testConfig(), zerolog.Nop())

	issues, err := svc.RegenerateCredentials(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.False(t, issues[0].EmailSent)
	require.Empty(t, mailer.sent)
}
