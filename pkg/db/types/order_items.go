package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderItem is one purchased product, frozen at order time.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Qty       int             `json:"qty"`
}

// Subtotal returns price * qty.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// OrderItems is stored as a JSON array (jsonb on postgres, text on sqlite).
type OrderItems []OrderItem

func (a *OrderItems) Scan(src any) error {
	if src == nil {
		*a = OrderItems{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("OrderItems: unsupported Scan type %T", src)
	}
	if len(raw) == 0 {
		*a = OrderItems{}
		return nil
	}

	var out []OrderItem
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("OrderItems: decode: %w", err)
	}
	if out == nil {
		out = []OrderItem{}
	}
	*a = OrderItems(out)
	return nil
}

func (a OrderItems) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]OrderItem(a))
	if err != nil {
		return nil, fmt.Errorf("OrderItems: encode: %w", err)
	}
	return string(b), nil
}

// Total sums every item subtotal.
func (a OrderItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range a {
		total = total.Add(item.Subtotal())
	}
	return total
}
