package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role роль пользователя панели
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleAdmin     Role = "admin"
	RoleAssistant Role = "assistant"
	RoleStudent   Role = "student"
)

// Valid проверяет, известна ли роль
func (r Role) Valid() bool {
	switch r {
	case RoleDeveloper, RoleAdmin, RoleAssistant, RoleStudent:
		return true
	}
	return false
}

// Privileged может отменять подписку
func (r Role) Privileged() bool {
	return r == RoleDeveloper
}

// BypassesSubscription роли, которые входят без действующей подписки:
// разработчик и сам студент.
func (r Role) BypassesSubscription() bool {
	return r == RoleDeveloper || r == RoleStudent
}

// User учетная запись
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest тело запроса на вход
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResult успешный вход
type LoginResult struct {
	Token        string       `json:"token"`
	ExpiresAt    time.Time    `json:"expires_at"`
	User         User         `json:"user"`
	Subscription Subscription `json:"subscription"`
}
