package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/domain/order"
	"github.com/example/order-ledger/internal/store"
)

// Notifier dispatches the order confirmation after commit. Failures are the
// notifier's problem: creation never reports them to its caller.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, o *order.Order) error
}

// ReservationCache is the optional fast-path duplicate check in front of the
// store's unique constraint (Redis SetNX in production).
type ReservationCache interface {
	Reserve(ctx context.Context, txID string) (bool, error)
	Release(ctx context.Context, txID string) error
}

const notifyTimeout = 30 * time.Second

// CreationService is the single entry point for "payment succeeded" events:
// it validates the checkout payload, enforces transaction-id idempotency,
// builds the canonical order, commits it, and fires the confirmation.
type CreationService struct {
	store        store.OrderStore
	factory      *order.Factory
	reservations ReservationCache
	notifier     Notifier
	logger       *zap.Logger
}

type CreationOption func(*CreationService)

// WithReservationCache installs the duplicate fast path.
func WithReservationCache(cache ReservationCache) CreationOption {
	return func(s *CreationService) { s.reservations = cache }
}

// WithNotifier installs the post-commit confirmation dispatcher.
func WithNotifier(n Notifier) CreationOption {
	return func(s *CreationService) { s.notifier = n }
}

func NewCreationService(st store.OrderStore, factory *order.Factory, logger *zap.Logger, opts ...CreationOption) *CreationService {
	s := &CreationService{
		store:   st,
		factory: factory,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create records exactly one order per confirmed payment transaction.
// A duplicate transaction id fails with *store.DuplicateTransactionError
// carrying the existing order's id.
func (s *CreationService) Create(ctx context.Context, payload order.CheckoutPayload) (*order.Order, error) {
	if err := validateCheckout(payload); err != nil {
		return nil, err
	}

	reserved, err := s.reserve(ctx, payload.TransactionID)
	if err != nil {
		return nil, err
	}

	o := s.factory.New(payload)

	if err := s.store.Insert(ctx, o); err != nil {
		var dup *store.DuplicateTransactionError
		if errors.As(err, &dup) {
			return nil, dup
		}
		// Free the reservation so a retry of this transaction can succeed.
		if reserved {
			s.release(payload.TransactionID)
		}
		return nil, fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("orderId", o.ID),
		zap.String("orderNumber", o.OrderNumber),
		zap.String("transactionId", o.TransactionID),
	)

	s.dispatchNotification(o)

	return o, nil
}

// reserve runs the cache fast path. A held reservation with a visible order
// is reported as a duplicate immediately; a held reservation without one
// (insert still in flight, or stale after a crash) falls through to the
// store's unique constraint, which stays the source of truth. Cache errors
// are logged and ignored.
func (s *CreationService) reserve(ctx context.Context, txID string) (bool, error) {
	if s.reservations == nil {
		return false, nil
	}

	ok, err := s.reservations.Reserve(ctx, txID)
	if err != nil {
		s.logger.Warn("idempotency cache unavailable, relying on store constraint",
			zap.String("transactionId", txID), zap.Error(err))
		return false, nil
	}
	if ok {
		return true, nil
	}

	existing, err := s.store.FindByTransactionID(ctx, txID)
	if err == nil {
		return false, &store.DuplicateTransactionError{
			TransactionID:   txID,
			ExistingOrderID: existing.ID,
		}
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("idempotency lookup: %w", err)
	}
	return false, nil
}

func (s *CreationService) release(txID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.reservations.Release(ctx, txID); err != nil {
		s.logger.Warn("failed to release idempotency reservation",
			zap.String("transactionId", txID), zap.Error(err))
	}
}

// dispatchNotification fires the confirmation without blocking the caller.
// The order is already committed; a failed notification is logged and
// swallowed, never rolled back or surfaced.
func (s *CreationService) dispatchNotification(o *order.Order) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyOrderCreated(ctx, o); err != nil {
			s.logger.Warn("order confirmation dispatch failed",
				zap.String("orderId", o.ID),
				zap.String("customerEmail", o.CustomerEmail),
				zap.Error(err),
			)
		}
	}()
}
