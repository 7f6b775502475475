package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/order-ledger/internal/domain/order"
)

func testOrder(id, txID string) *order.Order {
	return &order.Order{
		ID:            id,
		OrderNumber:   "ORD-2025-1-AAAAA",
		TransactionID: txID,
		Status:        order.StatusPaid,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestMemoryStore_InsertAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testOrder("o1", "tx_1")))

	got, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)
	assert.Equal(t, "tx_1", got.TransactionID)
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Insert_DuplicateTransaction(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testOrder("o1", "tx_1")))

	err := s.Insert(ctx, testOrder("o2", "tx_1"))
	var dup *DuplicateTransactionError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "tx_1", dup.TransactionID)
	assert.Equal(t, "o1", dup.ExistingOrderID)

	// The losing order was not stored.
	_, err = s.Get(ctx, "o2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_FindByTransactionID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testOrder("o1", "tx_1")))

	got, err := s.FindByTransactionID(ctx, "tx_1")
	require.NoError(t, err)
	assert.Equal(t, "o1", got.ID)

	_, err = s.FindByTransactionID(ctx, "tx_2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	o := testOrder("o1", "tx_1")
	require.NoError(t, s.Insert(ctx, o))

	o.Status = order.StatusShipped
	require.NoError(t, s.Update(ctx, o))

	got, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, got.Status)
}

func TestMemoryStore_Update_NotFound(t *testing.T) {
	s := NewMemoryStore()

	err := s.Update(context.Background(), testOrder("ghost", "tx_x"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_List_SortedByCreation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		o := testOrder(fmt.Sprintf("o%d", i), fmt.Sprintf("tx_%d", i))
		o.CreatedAt = base.Add(time.Duration(2-i) * time.Minute)
		require.NoError(t, s.Insert(ctx, o))
	}

	orders, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, "o0", orders[2].ID)
}

func TestMemoryStore_ReadsAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	o := testOrder("o1", "tx_1")
	o.EventTimeline = []order.Event{{ID: "evt-1", Type: order.EventCreated}}
	require.NoError(t, s.Insert(ctx, o))

	got, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	got.EventTimeline = append(got.EventTimeline, order.Event{ID: "evt-rogue"})
	got.Status = order.StatusCancelled

	fresh, err := s.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, fresh.EventTimeline, 1)
	assert.Equal(t, order.StatusPaid, fresh.Status)
}

func TestMemoryStore_ConcurrentInsert_SameTransaction(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.Insert(ctx, testOrder(fmt.Sprintf("o%d", i), "tx_shared"))
		}()
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		var dup *DuplicateTransactionError
		if assert.ErrorAs(t, err, &dup) {
			duplicates++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, duplicates)

	orders, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
