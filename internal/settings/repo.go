package settings

import (
	"context"

	"github.com/angelmondragon/vistore-backend/internal/repo"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads and writes the store-wide settings row.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// Get loads the global settings; found is false until an admin saves them.
func (r *Repository) Get(ctx context.Context) (models.Settings, bool, error) {
	return repo.TakeOne[models.Settings](r.DB(ctx).Where("id = ?", models.GlobalSettingsID), "load settings")
}

// Save upserts the global settings row.
func (r *Repository) Save(ctx context.Context, s *models.Settings) error {
	s.ID = models.GlobalSettingsID
	err := r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"free_shipping_threshold", "currency", "updated_at"}),
	}).Create(s).Error
	return repo.Unavailable(err, "save settings")
}
