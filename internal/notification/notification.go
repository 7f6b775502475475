package notification

import (
	"context"
	"time"

	"github.com/example/order-ledger/internal/domain/order"
	"github.com/example/order-ledger/internal/email"
	"github.com/example/order-ledger/internal/kafka"
)

// TypeOrderCreated identifies the message published after an order commits.
const TypeOrderCreated = "order.created"

// OrderCreated is the wire message consumed by the notifier process.
type OrderCreated struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerName  string    `json:"customerName"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
	Items         []Item    `json:"items"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Item carries what the confirmation email needs per line.
type Item struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

// NewOrderCreated builds the wire message from a committed order.
func NewOrderCreated(o *order.Order) OrderCreated {
	items := make([]Item, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, Item{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return OrderCreated{
		Type:          TypeOrderCreated,
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerEmail: o.CustomerEmail,
		CustomerName:  o.CustomerName,
		Total:         o.Total,
		Currency:      o.Currency,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

// EmailItems converts the wire items for the email template.
func (m OrderCreated) EmailItems() []email.OrderItem {
	items := make([]email.OrderItem, 0, len(m.Items))
	for _, it := range m.Items {
		items = append(items, email.OrderItem{
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return items
}

// Dispatcher implements the creation service's Notifier. With a Kafka
// producer configured it publishes the order-created message for the
// notifier process; otherwise it sends the confirmation email directly.
type Dispatcher struct {
	producer *kafka.Producer
	email    *email.Service
}

func NewDispatcher(producer *kafka.Producer, emailSvc *email.Service) *Dispatcher {
	return &Dispatcher{producer: producer, email: emailSvc}
}

func (d *Dispatcher) NotifyOrderCreated(ctx context.Context, o *order.Order) error {
	msg := NewOrderCreated(o)

	if d.producer != nil {
		return d.producer.Publish(ctx, o.ID, msg)
	}
	if d.email != nil {
		return d.email.SendOrderConfirmation(
			msg.CustomerEmail, msg.OrderNumber, msg.Total, msg.Currency, msg.EmailItems())
	}
	return nil
}
