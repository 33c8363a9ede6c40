package users

import (
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/google/uuid"
)

// ProfileDTO is the transport shape that omits credentials.
type ProfileDTO struct {
	UID         uuid.UUID      `json:"uid"`
	Email       string         `json:"email"`
	DisplayName string         `json:"displayName"`
	Role        enums.UserRole `json:"role"`
	OrderCount  int            `json:"orderCount"`
	LastLoginAt *time.Time     `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	DisplayName  string
	Role         enums.UserRole
}

func FromModel(u *models.User) *ProfileDTO {
	if u == nil {
		return nil
	}
	return &ProfileDTO{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		OrderCount:  u.OrderCount,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if !role.IsValid() {
		role = enums.UserRoleCustomer
	}
	displayName := strings.TrimSpace(c.DisplayName)
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if displayName == "" {
		displayName, _, _ = strings.Cut(email, "@")
	}
	return &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: c.PasswordHash,
		DisplayName:  displayName,
		Role:         role,
	}
}
