package models

import (
	"time"

	"bloodbank/pkg/domain"
)

// User is a login account. Usernames compare case-insensitively.
type User struct {
	ID           domain.UserID
	Username     string
	Email        string
	PasswordHash string
	IsSuperuser  bool
	CreatedAt    time.Time
}

// Credential binds a user to the single role chosen at registration.
type Credential struct {
	UserID domain.UserID
	Role   domain.Role
}

// Account is a user joined with its credential.
type Account struct {
	User *User
	Role domain.Role
}

// Session is a live login. The role is the one selected at login.
type Session struct {
	ID        domain.SessionID `json:"id"`
	UserID    domain.UserID    `json:"user_id"`
	Username  string           `json:"username"`
	Email     string           `json:"email"`
	Role      domain.Role      `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *Session) Principal() *domain.Principal {
	return &domain.Principal{
		UserID:   s.UserID,
		Username: s.Username,
		Email:    s.Email,
		Role:     s.Role,
	}
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	Principal   *domain.Principal
}
