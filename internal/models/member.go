package models

import "time"

type MemberRole string

const (
	MemberRoleStudent MemberRole = "student"
	MemberRoleMentor  MemberRole = "mentor"
	MemberRoleAdmin   MemberRole = "admin"
)

// IsPrivileged reports whether the role may act on admin surfaces.
func (r MemberRole) IsPrivileged() bool {
	return r == MemberRoleAdmin || r == MemberRoleMentor
}

type Member struct {
	ID                   string
	Username             string
	Email                string
	PasswordHash         []byte
	Name                 string
	Role                 MemberRole
	AvatarURL            *string
	Points               int
	Badges               int
	Github               *string
	Portfolio            *string
	CredentialsUpdatedAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
