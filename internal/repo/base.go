// Package repo holds the gorm plumbing shared by the storefront repositories.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
)

// Base is embedded by every repository that talks to the primary database.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the connection to ctx so cancellation reaches the driver.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Unavailable wraps a storage failure so it surfaces as a dependency error.
func Unavailable(err error, message string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

// TakeOne runs query into a fresh T. A missing row is reported through found
// rather than as an error.
func TakeOne[T any](query *gorm.DB, message string) (T, bool, error) {
	var out, zero T
	err := query.Take(&out).Error
	switch {
	case err == nil:
		return out, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return zero, false, nil
	}
	return zero, false, Unavailable(err, message)
}
