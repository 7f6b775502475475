package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/example/order-ledger/internal/domain/order"
	"github.com/example/order-ledger/internal/store"
)

// patchableFields is the explicit allow-list of mutable order fields.
// Identity (id, orderNumber, transactionId), money (total, currency, items),
// and the append-only collections are never patchable.
var patchableFields = map[string]bool{
	"status":            true,
	"paymentStatus":     true,
	"fulfillmentStatus": true,
	"trackingNumber":    true,
	"carrier":           true,
	"paymentMethod":     true,
	"shippingDetails":   true,
}

// MutationService performs every post-creation order change. Callers are
// expected to have passed the authorization gate already; every mutation
// appends to the audit timeline and refreshes updatedAt.
//
// Each load-mutate-update sequence runs inside a per-order critical section
// so concurrent mutations on the same order serialize instead of losing one
// another's writes.
type MutationService struct {
	store  store.OrderStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
	evtID  func() string
	locks  sync.Map // order id -> *sync.Mutex
}

type MutationOption func(*MutationService)

// WithMutationClock fixes the service's time source.
func WithMutationClock(now func() time.Time) MutationOption {
	return func(s *MutationService) { s.now = now }
}

// WithMutationIDs fixes the entity and event id sources.
func WithMutationIDs(newID, evtID func() string) MutationOption {
	return func(s *MutationService) {
		s.newID = newID
		s.evtID = evtID
	}
}

func NewMutationService(st store.OrderStore, logger *zap.Logger, opts ...MutationOption) *MutationService {
	s := &MutationService{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
		evtID:  func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MutationService) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.store.Get(ctx, id)
}

func (s *MutationService) List(ctx context.Context) ([]*order.Order, error) {
	return s.store.List(ctx)
}

// lockOrder acquires the per-order mutex, creating it on first use.
func (s *MutationService) lockOrder(id string) func() {
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// mutate runs fn on a freshly loaded order inside the order's critical
// section and persists the result. fn returns false to skip the write for
// no-op mutations.
func (s *MutationService) mutate(ctx context.Context, id string, fn func(o *order.Order) (bool, error)) (*order.Order, error) {
	unlock := s.lockOrder(id)
	defer unlock()

	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changed, err := fn(o)
	if err != nil {
		return nil, err
	}
	if !changed {
		return o, nil
	}

	if err := s.store.Update(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Patch merges the supplied fields into the order. Keys outside the
// allow-list fail the whole patch with a *ForbiddenFieldError naming them.
// An empty patch is a no-op: nothing is written and no audit event appended.
func (s *MutationService) Patch(ctx context.Context, id string, fields map[string]any) (*order.Order, error) {
	var forbidden []string
	for key := range fields {
		if !patchableFields[key] {
			forbidden = append(forbidden, key)
		}
	}
	if len(forbidden) > 0 {
		sort.Strings(forbidden)
		return nil, &ForbiddenFieldError{Fields: forbidden}
	}

	return s.mutate(ctx, id, func(o *order.Order) (bool, error) {
		if len(fields) == 0 {
			return false, nil
		}

		var changed []string
		for key, value := range fields {
			if err := applyPatchField(o, key, value); err != nil {
				return false, err
			}
			changed = append(changed, key)
		}
		sort.Strings(changed)

		now := s.now()
		o.AppendEvent(s.evtID(), order.EventUpdated,
			fmt.Sprintf("Order updated: %s", strings.Join(changed, ", ")),
			map[string]any{"fields": changed}, now)
		o.UpdatedAt = now
		return true, nil
	})
}

func applyPatchField(o *order.Order, key string, value any) error {
	switch key {
	case "status":
		str, ok := value.(string)
		if !ok || !order.ValidStatus(str) {
			return fmt.Errorf("invalid status %q", value)
		}
		o.Status = order.Status(str)
	case "paymentStatus":
		str, ok := value.(string)
		if !ok || !order.ValidPaymentStatus(str) {
			return fmt.Errorf("invalid paymentStatus %q", value)
		}
		o.PaymentStatus = order.PaymentStatus(str)
	case "fulfillmentStatus":
		str, ok := value.(string)
		if !ok || !order.ValidFulfillmentStatus(str) {
			return fmt.Errorf("invalid fulfillmentStatus %q", value)
		}
		o.FulfillmentStatus = order.FulfillmentStatus(str)
	case "trackingNumber":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("trackingNumber must be a string")
		}
		o.TrackingNumber = str
	case "carrier":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("carrier must be a string")
		}
		o.Carrier = str
	case "paymentMethod":
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("paymentMethod must be a string")
		}
		o.PaymentMethod = str
	case "shippingDetails":
		sub, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("shippingDetails must be an object")
		}
		applyAddressPatch(&o.ShippingDetails, sub)
	}
	return nil
}

// applyAddressPatch merges non-empty sub-fields only; absent keys keep their
// current value.
func applyAddressPatch(addr *order.Address, fields map[string]any) {
	set := func(dst *string, key string) {
		if v, ok := fields[key].(string); ok && v != "" {
			*dst = v
		}
	}
	set(&addr.FirstName, "firstName")
	set(&addr.LastName, "lastName")
	set(&addr.Address, "address")
	set(&addr.City, "city")
	set(&addr.State, "state")
	set(&addr.ZipCode, "zipCode")
	set(&addr.Country, "country")
	set(&addr.Phone, "phone")
}

// Cancel is the soft delete: it forces status and fulfillmentStatus into
// cancelled together. Cancelling an already-cancelled order is a no-op
// success and does not duplicate the cancelled event.
func (s *MutationService) Cancel(ctx context.Context, id string) (*order.Order, error) {
	return s.mutate(ctx, id, func(o *order.Order) (bool, error) {
		if o.Status == order.StatusCancelled {
			return false, nil
		}

		if o.Status == order.StatusDelivered {
			// Nothing blocks this transition today; flag it for ops.
			s.logger.Warn("cancelling a delivered order", zap.String("orderId", o.ID))
		}

		now := s.now()
		o.Status = order.StatusCancelled
		o.FulfillmentStatus = order.FulfillmentCancelled
		o.AppendEvent(s.evtID(), order.EventCancelled, "Order cancelled", nil, now)
		o.UpdatedAt = now
		return true, nil
	})
}

// AddNote appends an owner note.
func (s *MutationService) AddNote(ctx context.Context, id, content, author string) (*order.Order, error) {
	return s.mutate(ctx, id, func(o *order.Order) (bool, error) {
		now := s.now()
		note := order.Note{
			ID:        s.newID(),
			Author:    author,
			Content:   content,
			CreatedAt: now,
		}
		o.OwnerNotes = append(o.OwnerNotes, note)
		o.AppendEvent(s.evtID(), order.EventNoteAdded, "Note added",
			map[string]any{"noteId": note.ID}, now)
		o.UpdatedAt = now
		return true, nil
	})
}

// AddShipment records a package handed to a carrier and advances the
// fulfillment axis to shipped. The lifecycle axis follows when the order was
// still in paid or processing.
func (s *MutationService) AddShipment(ctx context.Context, id string, carrier, trackingNumber string) (*order.Order, error) {
	return s.mutate(ctx, id, func(o *order.Order) (bool, error) {
		now := s.now()
		shipment := order.Shipment{
			ID:             s.newID(),
			Carrier:        carrier,
			TrackingNumber: trackingNumber,
			CreatedAt:      now,
		}
		o.Shipments = append(o.Shipments, shipment)
		o.Carrier = carrier
		o.TrackingNumber = trackingNumber
		o.FulfillmentStatus = order.FulfillmentShipped
		if o.Status == order.StatusPaid || o.Status == order.StatusProcessing {
			o.Status = order.StatusShipped
		}
		o.AppendEvent(s.evtID(), order.EventShipmentAdded,
			fmt.Sprintf("Shipment via %s (%s)", carrier, trackingNumber),
			map[string]any{"shipmentId": shipment.ID}, now)
		o.UpdatedAt = now
		return true, nil
	})
}

// AddRefund issues a refund. A cumulative refund covering the full total
// moves both status and paymentStatus to refunded; anything less marks the
// payment partially refunded. A matching entry lands on the payment timeline.
func (s *MutationService) AddRefund(ctx context.Context, id string, amount float64, reason string) (*order.Order, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("refund amount must be positive")
	}

	return s.mutate(ctx, id, func(o *order.Order) (bool, error) {
		now := s.now()
		refund := order.Refund{
			ID:        s.newID(),
			Amount:    amount,
			Reason:    reason,
			CreatedAt: now,
		}
		o.Refunds = append(o.Refunds, refund)

		if o.RefundedAmount() >= o.Total {
			o.Status = order.StatusRefunded
			o.PaymentStatus = order.PaymentRefunded
		} else {
			o.PaymentStatus = order.PaymentPartiallyRefunded
		}

		o.PaymentTimeline = append(o.PaymentTimeline, order.PaymentEvent{
			ID:        s.evtID(),
			Type:      order.PaymentEventRefund,
			Status:    order.PaymentEventSucceeded,
			Amount:    amount,
			CreatedAt: now,
		})
		o.AppendEvent(s.evtID(), order.EventRefundIssued,
			fmt.Sprintf("Refund issued: %.2f %s", amount, o.Currency),
			map[string]any{"refundId": refund.ID, "amount": amount}, now)
		o.UpdatedAt = now
		return true, nil
	})
}
