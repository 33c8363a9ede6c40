package settings

import (
	"github.com/angelmondragon/vistore-backend/pkg/db/models"
	"github.com/angelmondragon/vistore-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// DefaultFreeShippingThreshold applies until an admin saves settings.
var DefaultFreeShippingThreshold = decimal.NewFromInt(50)

// SettingsDTO is the settings/global document.
type SettingsDTO struct {
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	Currency              enums.Currency  `json:"currency"`
}

func defaults() SettingsDTO {
	return SettingsDTO{FreeShippingThreshold: DefaultFreeShippingThreshold, Currency: enums.CurrencyUSD}
}

func fromModel(s models.Settings) SettingsDTO {
	out := defaults()
	if !s.FreeShippingThreshold.IsNegative() {
		out.FreeShippingThreshold = s.FreeShippingThreshold
	}
	if s.Currency.IsValid() {
		out.Currency = s.Currency
	}
	return out
}

// UpdateSettingsRequest is the admin settings form.
type UpdateSettingsRequest struct {
	FreeShippingThreshold *decimal.Decimal `json:"freeShippingThreshold"`
	Currency              *string          `json:"currency" validate:"omitempty,len=3"`
}

// ShippingQuote tells the shopper how far the cart is from free shipping.
type ShippingQuote struct {
	Threshold decimal.Decimal `json:"threshold"`
	Eligible  bool            `json:"eligible"`
	Remaining decimal.Decimal `json:"remaining"`
	Currency  enums.Currency  `json:"currency"`
}
