package handler

import (
	"time"

	"bloodbank/internal/identity/models"
	"bloodbank/pkg/domain"
)

type UserResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type RegisterResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AccountResponse struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type UserListResponse struct {
	Role  string            `json:"role"`
	Users []AccountResponse `json:"users"`
	Total int               `json:"total"`
}

func toUserResponse(p *domain.Principal) UserResponse {
	return UserResponse{
		UserID:   p.UserID.String(),
		Username: p.Username,
		Email:    p.Email,
		Role:     string(p.Role),
	}
}

func toUserListResponse(role domain.Role, accounts []*models.Account) UserListResponse {
	users := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		users = append(users, AccountResponse{
			UserID:    a.User.ID.String(),
			Username:  a.User.Username,
			Email:     a.User.Email,
			CreatedAt: a.User.CreatedAt,
		})
	}
	return UserListResponse{Role: string(role), Users: users, Total: len(users)}
}
