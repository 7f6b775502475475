package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/order-ledger/internal/domain/order"
)

var ErrNotFound = errors.New("order not found")

// DuplicateTransactionError reports that an order already exists for a
// payment transaction id. It carries the pre-existing order's id so the
// caller can reconcile instead of silently succeeding.
type DuplicateTransactionError struct {
	TransactionID   string
	ExistingOrderID string
}

func (e *DuplicateTransactionError) Error() string {
	return fmt.Sprintf("order already exists for transaction %s (order %s)",
		e.TransactionID, e.ExistingOrderID)
}

// OrderStore is the only component touching persistent order state.
//
// Insert is atomic with respect to the transaction-id uniqueness check: two
// concurrent inserts for the same transaction id must result in exactly one
// stored order, with the loser receiving a *DuplicateTransactionError.
type OrderStore interface {
	Insert(ctx context.Context, o *order.Order) error
	Get(ctx context.Context, id string) (*order.Order, error)
	FindByTransactionID(ctx context.Context, txID string) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	List(ctx context.Context) ([]*order.Order, error)
}
