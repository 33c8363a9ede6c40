package dbtypes

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderItemsScan(t *testing.T) {
	var items OrderItems
	require.NoError(t, items.Scan(`[{"productId":"1","name":"Headphones","price":99.99,"qty":1,"extra":true}]`))
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0].ProductID)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("99.99")))

	require.NoError(t, items.Scan(nil))
	assert.Empty(t, items)
	assert.NotNil(t, items)

	require.NoError(t, items.Scan([]byte("null")))
	assert.NotNil(t, items)

	assert.Error(t, items.Scan(42))
	assert.Error(t, items.Scan("{"))
}

func TestOrderItemsValue(t *testing.T) {
	v, err := OrderItems(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = OrderItems{{ProductID: "2", Name: "Watch", Price: decimal.RequireFromString("199.99"), Qty: 2}}.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"productId":"2","name":"Watch","price":"199.99","qty":2}]`, v.(string))
}

func TestOrderItemsTotal(t *testing.T) {
	items := OrderItems{
		{Price: decimal.RequireFromString("10.00"), Qty: 2},
		{Price: decimal.RequireFromString("5.50"), Qty: 1},
	}
	assert.True(t, items.Total().Equal(decimal.RequireFromString("25.50")))
}
