package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/vistore-backend/internal/repo"
	"github.com/angelmondragon/vistore-backend/pkg/db"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	repo.Base
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// Create inserts a new user and returns the persisted model. A taken email is
// a conflict.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.DB(ctx).Create(user).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "email already registered")
		}
		return nil, repo.Unavailable(err, "create user")
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email, ignoring case.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.DB(ctx).Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).Take(&user).Error
	if err != nil {
		return nil, notFoundOr(err, "load user")
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, notFoundOr(err, "load user")
	}
	return &user, nil
}

// RecordLogin stamps last_login_at. Unknown ids are ignored.
func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	return repo.Unavailable(err, "record login")
}

// IncrementOrderCount adds by to the user's order count atomically. Unknown
// ids are ignored.
func (r *Repository) IncrementOrderCount(ctx context.Context, id uuid.UUID, by int) error {
	err := r.DB(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("order_count", gorm.Expr("order_count + ?", by)).Error
	return repo.Unavailable(err, "increment order count")
}

// CountByRole counts accounts holding role.
func (r *Repository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := r.DB(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, repo.Unavailable(err, "count users")
	}
	return n, nil
}

func notFoundOr(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
	}
	return repo.Unavailable(err, message)
}
