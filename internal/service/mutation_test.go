package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/domain/order"
	"github.com/example/order-ledger/internal/store"
)

func newMutationFixture(t *testing.T) (*MutationService, *store.MemoryStore, *order.Order) {
	t.Helper()
	st := store.NewMemoryStore()
	creation := NewCreationService(st, order.NewFactory(), zap.NewNop())
	o, err := creation.Create(context.Background(), validPayload("tx_mut"))
	require.NoError(t, err)

	var seq int
	svc := NewMutationService(st, zap.NewNop(),
		WithMutationIDs(
			func() string { seq++; return fmt.Sprintf("ent-%d", seq) },
			func() string { seq++; return fmt.Sprintf("evt-%d", seq) },
		),
	)
	return svc, st, o
}

// ============================================
// Patch Tests
// ============================================

func TestPatch_AllowedFields(t *testing.T) {
	svc, _, o := newMutationFixture(t)
	ctx := context.Background()

	updated, err := svc.Patch(ctx, o.ID, map[string]any{
		"trackingNumber":    "1Z999",
		"carrier":           "UPS",
		"fulfillmentStatus": "processing",
	})

	require.NoError(t, err)
	assert.Equal(t, "1Z999", updated.TrackingNumber)
	assert.Equal(t, "UPS", updated.Carrier)
	assert.Equal(t, order.FulfillmentProcessing, updated.FulfillmentStatus)

	last := updated.EventTimeline[len(updated.EventTimeline)-1]
	assert.Equal(t, order.EventUpdated, last.Type)
	assert.Equal(t, []string{"carrier", "fulfillmentStatus", "trackingNumber"},
		last.Data["fields"])
}

func TestPatch_ForbiddenFields_Rejected(t *testing.T) {
	svc, st, o := newMutationFixture(t)
	ctx := context.Background()

	_, err := svc.Patch(ctx, o.ID, map[string]any{
		"transactionId": "tx_evil",
		"total":         0.01,
		"carrier":       "UPS",
	})

	var forbidden *ForbiddenFieldError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, []string{"total", "transactionId"}, forbidden.Fields)

	// Whole patch rejected: nothing changed, including the allowed key.
	fresh, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "tx_mut", fresh.TransactionID)
	assert.Equal(t, 50.0, fresh.Total)
	assert.Empty(t, fresh.Carrier)
}

func TestPatch_InvalidStatusValue(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	_, err := svc.Patch(context.Background(), o.ID, map[string]any{
		"status": "teleported",
	})
	assert.Error(t, err)
}

func TestPatch_ShippingDetailsSubFields(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	updated, err := svc.Patch(context.Background(), o.ID, map[string]any{
		"shippingDetails": map[string]any{"city": "Shelbyville", "phone": "555-0100"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Shelbyville", updated.ShippingDetails.City)
	assert.Equal(t, "555-0100", updated.ShippingDetails.Phone)
	// Untouched sub-fields survive.
	assert.Equal(t, "1 Main St", updated.ShippingDetails.Address)
}

func TestPatch_EmptyBody_NoOp(t *testing.T) {
	svc, st, o := newMutationFixture(t)
	ctx := context.Background()

	updated, err := svc.Patch(ctx, o.ID, map[string]any{})
	require.NoError(t, err)

	// No-op request leaves the audit trail and updatedAt untouched.
	assert.Len(t, updated.EventTimeline, len(o.EventTimeline))
	assert.True(t, updated.UpdatedAt.Equal(o.UpdatedAt))

	fresh, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.EventTimeline, len(o.EventTimeline))

	updated, err = svc.Patch(ctx, o.ID, nil)
	require.NoError(t, err)
	assert.Len(t, updated.EventTimeline, len(o.EventTimeline))
}

func TestPatch_NotFound(t *testing.T) {
	svc, _, _ := newMutationFixture(t)

	_, err := svc.Patch(context.Background(), "ghost", map[string]any{"carrier": "UPS"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ============================================
// Cancel Tests
// ============================================

func TestCancel_SetsBothAxes(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	cancelled, err := svc.Cancel(context.Background(), o.ID)

	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, cancelled.Status)
	assert.Equal(t, order.FulfillmentCancelled, cancelled.FulfillmentStatus)

	require.Len(t, cancelled.EventTimeline, 3)
	assert.Equal(t, order.EventCancelled, cancelled.EventTimeline[2].Type)
}

func TestCancel_Idempotent(t *testing.T) {
	svc, _, o := newMutationFixture(t)
	ctx := context.Background()

	first, err := svc.Cancel(ctx, o.ID)
	require.NoError(t, err)

	second, err := svc.Cancel(ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, len(first.EventTimeline), len(second.EventTimeline))
}

func TestCancel_NotFound(t *testing.T) {
	svc, _, _ := newMutationFixture(t)

	_, err := svc.Cancel(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ============================================
// Append Operation Tests
// ============================================

func TestAddNote(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	updated, err := svc.AddNote(context.Background(), o.ID, "call customer", "owner")

	require.NoError(t, err)
	require.Len(t, updated.OwnerNotes, 1)
	assert.Equal(t, "call customer", updated.OwnerNotes[0].Content)
	assert.Equal(t, order.EventNoteAdded,
		updated.EventTimeline[len(updated.EventTimeline)-1].Type)
}

func TestAddShipment_AdvancesFulfillment(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	updated, err := svc.AddShipment(context.Background(), o.ID, "UPS", "1Z999")

	require.NoError(t, err)
	require.Len(t, updated.Shipments, 1)
	assert.Equal(t, "1Z999", updated.TrackingNumber)
	assert.Equal(t, order.FulfillmentShipped, updated.FulfillmentStatus)
	assert.Equal(t, order.StatusShipped, updated.Status)
	assert.Equal(t, order.EventShipmentAdded,
		updated.EventTimeline[len(updated.EventTimeline)-1].Type)
}

func TestAddRefund_Partial(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	updated, err := svc.AddRefund(context.Background(), o.ID, 20, "damaged item")

	require.NoError(t, err)
	require.Len(t, updated.Refunds, 1)
	assert.Equal(t, order.PaymentPartiallyRefunded, updated.PaymentStatus)
	assert.Equal(t, order.StatusPaid, updated.Status)

	last := updated.PaymentTimeline[len(updated.PaymentTimeline)-1]
	assert.Equal(t, order.PaymentEventRefund, last.Type)
	assert.Equal(t, 20.0, last.Amount)
}

func TestAddRefund_FullCoverage(t *testing.T) {
	svc, _, o := newMutationFixture(t)
	ctx := context.Background()

	_, err := svc.AddRefund(ctx, o.ID, 20, "")
	require.NoError(t, err)

	updated, err := svc.AddRefund(ctx, o.ID, 30, "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusRefunded, updated.Status)
	assert.Equal(t, order.PaymentRefunded, updated.PaymentStatus)
	assert.Equal(t, 50.0, updated.RefundedAmount())
}

func TestAddRefund_RejectsNonPositiveAmount(t *testing.T) {
	svc, _, o := newMutationFixture(t)

	_, err := svc.AddRefund(context.Background(), o.ID, 0, "")
	assert.Error(t, err)
}

// ============================================
// Concurrency Tests
// ============================================

// slowGetStore widens the window between load and write so unserialized
// read-modify-write sequences would interleave and lose updates.
type slowGetStore struct {
	store.OrderStore
}

func (s *slowGetStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.OrderStore.Get(ctx, id)
	time.Sleep(10 * time.Millisecond)
	return o, err
}

func TestConcurrentMutations_NoLostUpdates(t *testing.T) {
	st := store.NewMemoryStore()
	creation := NewCreationService(st, order.NewFactory(), zap.NewNop())
	o, err := creation.Create(context.Background(), validPayload("tx_conc"))
	require.NoError(t, err)

	svc := NewMutationService(&slowGetStore{OrderStore: st}, zap.NewNop())
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.AddNote(ctx, o.ID, fmt.Sprintf("note %d", i), "owner")
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	fresh, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.OwnerNotes, n)
	// Creation seeded two events; every note appended exactly one more.
	assert.Len(t, fresh.EventTimeline, 2+n)
}

func TestConcurrentMutations_MixedOperations(t *testing.T) {
	st := store.NewMemoryStore()
	creation := NewCreationService(st, order.NewFactory(), zap.NewNop())
	o, err := creation.Create(context.Background(), validPayload("tx_mixed"))
	require.NoError(t, err)

	svc := NewMutationService(&slowGetStore{OrderStore: st}, zap.NewNop())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, err := svc.AddNote(ctx, o.ID, "check stock", "owner")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.AddShipment(ctx, o.ID, "UPS", "1Z999")
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := svc.AddRefund(ctx, o.ID, 10, "late")
		assert.NoError(t, err)
	}()
	wg.Wait()

	fresh, err := st.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, fresh.OwnerNotes, 1)
	assert.Len(t, fresh.Shipments, 1)
	assert.Len(t, fresh.Refunds, 1)
	assert.Len(t, fresh.EventTimeline, 5)
}

func TestMutations_RefreshUpdatedAt(t *testing.T) {
	st := store.NewMemoryStore()
	creation := NewCreationService(st, order.NewFactory(), zap.NewNop())
	o, err := creation.Create(context.Background(), validPayload("tx_ts"))
	require.NoError(t, err)

	later := o.UpdatedAt.Add(time.Hour)
	svc := NewMutationService(st, zap.NewNop(),
		WithMutationClock(func() time.Time { return later }))

	updated, err := svc.AddNote(context.Background(), o.ID, "note", "")
	require.NoError(t, err)
	assert.Equal(t, later, updated.UpdatedAt)
}
