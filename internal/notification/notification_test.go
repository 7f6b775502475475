package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/order-ledger/internal/domain/order"
)

func TestNewOrderCreated_MapsOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o := &order.Order{
		ID:            "o1",
		OrderNumber:   "ORD-2025-1-AAAAA",
		CustomerEmail: "jo@example.com",
		CustomerName:  "Jo Smith",
		Total:         50,
		Currency:      "USD",
		Items: []order.Item{
			{Name: "Tee", Quantity: 2, UnitPrice: 25, TotalPrice: 50},
		},
		CreatedAt: now,
	}

	msg := NewOrderCreated(o)

	assert.Equal(t, TypeOrderCreated, msg.Type)
	assert.Equal(t, "o1", msg.OrderID)
	assert.Equal(t, "ORD-2025-1-AAAAA", msg.OrderNumber)
	assert.Equal(t, "jo@example.com", msg.CustomerEmail)
	require.Len(t, msg.Items, 1)
	assert.Equal(t, "Tee", msg.Items[0].Name)
	assert.Equal(t, 25.0, msg.Items[0].UnitPrice)

	emailItems := msg.EmailItems()
	require.Len(t, emailItems, 1)
	assert.Equal(t, 2, emailItems[0].Quantity)
}
