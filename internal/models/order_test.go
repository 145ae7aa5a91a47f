package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestOrderItemUpgradesLegacyPrice(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"product_id":   "p1",
		"product_name": "Jollof tray",
		"quantity":     3,
		"price":        2500.0,
	})
	require.NoError(t, err)

	var item OrderItem
	require.NoError(t, bson.Unmarshal(raw, &item))

	assert.Equal(t, 2500.0, item.UnitPrice)
	assert.Equal(t, 7500.0, item.TotalPrice)
	assert.Equal(t, OrderItemSchemaVersion, item.SchemaVersion)
}

func TestOrderItemKeepsCurrentPrices(t *testing.T) {
	raw, err := bson.Marshal(OrderItem{
		ProductID:     "p1",
		UnitPrice:     100,
		Quantity:      2,
		TotalPrice:    200,
		SchemaVersion: OrderItemSchemaVersion,
	})
	require.NoError(t, err)

	var item OrderItem
	require.NoError(t, bson.Unmarshal(raw, &item))
	assert.Equal(t, 100.0, item.UnitPrice)
	assert.Equal(t, 200.0, item.TotalPrice)
}

func TestCheckTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusProcessing, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusShipped, true},
		{StatusPending, StatusShipped, false},
		{StatusProcessing, StatusCancelled, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusCancelled, StatusPending, false},
	}
	for _, tc := range cases {
		err := CheckTransition(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
			continue
		}
		assert.True(t, errors.Is(err, ErrInvalidTransition), "%s -> %s", tc.from, tc.to)
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, ok := ParseOrderStatus("shipped")
	assert.True(t, ok)
	assert.Equal(t, StatusShipped, s)

	_, ok = ParseOrderStatus("Shipped")
	assert.False(t, ok)
	assert.True(t, StatusDelivered.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}
