package settings

import (
	"context"

	"github.com/angelmondragon/vistore-backend/pkg/changefeed"
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// Service manages store-wide settings.
type Service interface {
	Get(ctx context.Context) (SettingsDTO, error)
	Save(ctx context.Context, req UpdateSettingsRequest) (SettingsDTO, error)
	QuoteShipping(ctx context.Context, subtotal decimal.Decimal) ShippingQuote
}

type settingsStore interface {
	Get(ctx context.Context) (models.Settings, bool, error)
	Save(ctx context.Context, s *models.Settings) error
}

type service struct {
	repo      settingsStore
	publisher changefeed.Publisher
	logg      *logger.Logger
}

func NewService(store settingsStore, publisher changefeed.Publisher, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "settings repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger is required")
	}
	return &service{repo: store, publisher: publisher, logg: logg}, nil
}

// Get returns the saved settings, or the defaults when none were saved.
func (s *service) Get(ctx context.Context) (SettingsDTO, error) {
	row, found, err := s.repo.Get(ctx)
	if err != nil {
		return SettingsDTO{}, err
	}
	if !found {
		return defaults(), nil
	}
	return fromModel(row), nil
}

// Save applies the provided fields on top of the current settings.
func (s *service) Save(ctx context.Context, req UpdateSettingsRequest) (SettingsDTO, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return SettingsDTO{}, err
	}
	if req.FreeShippingThreshold != nil {
		if req.FreeShippingThreshold.IsNegative() {
			return SettingsDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "free shipping threshold cannot be negative")
		}
		current.FreeShippingThreshold = *req.FreeShippingThreshold
	}
	if req.Currency != nil {
		currency, err := enums.ParseCurrency(*req.Currency)
		if err != nil {
			return SettingsDTO{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
		}
		current.Currency = currency
	}

	row := &models.Settings{
		FreeShippingThreshold: current.FreeShippingThreshold,
		Currency:              current.Currency,
	}
	if err := s.repo.Save(ctx, row); err != nil {
		return SettingsDTO{}, err
	}
	if s.publisher != nil {
		ev := changefeed.Event{Collection: changefeed.CollectionSettings, ID: models.GlobalSettingsID, Op: changefeed.OpUpdate}
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logg.WarnErr(ctx, "failed to publish settings change", err)
		}
	}
	return current, nil
}

// QuoteShipping compares a cart subtotal with the free-shipping threshold.
// Unreadable settings fall back to the defaults.
func (s *service) QuoteShipping(ctx context.Context, subtotal decimal.Decimal) ShippingQuote {
	current, err := s.Get(ctx)
	if err != nil {
		s.logg.WarnErr(ctx, "settings unavailable, using defaults", err)
		current = defaults()
	}
	remaining := current.FreeShippingThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return ShippingQuote{
		Threshold: current.FreeShippingThreshold,
		Eligible:  subtotal.GreaterThanOrEqual(current.FreeShippingThreshold),
		Remaining: remaining,
		Currency:  current.Currency,
	}
}
