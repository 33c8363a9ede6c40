package users

import (
	"context"

	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/google/uuid"
)

type profileStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Service serves the signed-in shopper's profile.
type Service interface {
	Profile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error)
}

type service struct {
	repo profileStore
}

func NewService(store profileStore) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "users repository is required")
	}
	return &service{repo: store}, nil
}

func (s *service) Profile(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}
