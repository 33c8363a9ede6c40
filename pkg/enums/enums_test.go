package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	got, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, got)

	got, err = ParseOrderStatus(" Cancelled ")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, got)

	_, err = ParseOrderStatus("lost")
	assert.Error(t, err)
}

func TestOrderStatusOrDefault(t *testing.T) {
	assert.Equal(t, OrderStatusPending, OrderStatus("").OrDefault())
	assert.Equal(t, OrderStatusDelivered, OrderStatusDelivered.OrDefault())
	assert.False(t, OrderStatus("").IsValid())
}

func TestParseUserRole(t *testing.T) {
	got, err := ParseUserRole("admin")
	require.NoError(t, err)
	assert.Equal(t, UserRoleAdmin, got)

	_, err = ParseUserRole("Admin")
	assert.Error(t, err)
}

func TestParseCurrency(t *testing.T) {
	got, err := ParseCurrency("eur")
	require.NoError(t, err)
	assert.Equal(t, CurrencyEUR, got)

	_, err = ParseCurrency("BTC")
	assert.Error(t, err)
}

func TestParseProductSort(t *testing.T) {
	got, err := ParseProductSort("")
	require.NoError(t, err)
	assert.Equal(t, ProductSortFeatured, got)

	got, err = ParseProductSort("price-desc")
	require.NoError(t, err)
	assert.Equal(t, ProductSortPriceDesc, got)

	got, err = ParseProductSort("price-low")
	require.NoError(t, err)
	assert.Equal(t, ProductSortPriceAsc, got)

	_, err = ParseProductSort("cheapest")
	assert.Error(t, err)
}
