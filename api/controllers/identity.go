package controllers

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/vistore-backend/api/middleware"
)

// CallerID returns the signed-in user's id, or uuid.Nil for anonymous
// shoppers and malformed context values.
func CallerID(ctx context.Context) uuid.UUID {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
