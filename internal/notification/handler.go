package notification

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/email"
)

// Handler is the consumer side of the notification pipeline: it filters
// order-created messages off the topic and sends confirmation emails.
type Handler struct {
	emailService *email.Service
	logger       *zap.Logger
}

func NewHandler(emailSvc *email.Service, logger *zap.Logger) *Handler {
	return &Handler{
		emailService: emailSvc,
		logger:       logger,
	}
}

// HandleMessage processes one message from Kafka.
func (h *Handler) HandleMessage(ctx context.Context, key, value []byte) error {
	var msg OrderCreated
	if err := json.Unmarshal(value, &msg); err != nil {
		h.logger.Error("failed to unmarshal notification message", zap.Error(err))
		return err
	}

	if msg.Type != TypeOrderCreated {
		return nil
	}

	if msg.CustomerEmail == "" {
		h.logger.Warn("order-created message without customer email",
			zap.String("orderId", msg.OrderID))
		return nil
	}

	if err := h.emailService.SendOrderConfirmation(
		msg.CustomerEmail, msg.OrderNumber, msg.Total, msg.Currency, msg.EmailItems(),
	); err != nil {
		h.logger.Error("failed to send order confirmation",
			zap.String("orderId", msg.OrderID),
			zap.String("customerEmail", msg.CustomerEmail),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("order confirmation sent",
		zap.String("orderId", msg.OrderID),
		zap.String("orderNumber", msg.OrderNumber),
	)
	return nil
}
