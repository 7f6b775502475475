package order

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{4}-\d+-[A-Z0-9]{5}$`)

func testPayload() CheckoutPayload {
	return CheckoutPayload{
		CustomerEmail: "jo@example.com",
		CustomerName:  "Jo Smith",
		ShippingDetails: Address{
			FirstName: "Jo",
			LastName:  "Smith",
			Address:   "1 Main St",
			City:      "Springfield",
			ZipCode:   "12345",
			Country:   "US",
		},
		Items: []CheckoutItem{
			{ID: "p1", Name: "Tee", Price: 25, Quantity: 2, SelectedSize: "M"},
		},
		Total:           50,
		PaymentProvider: "stripe",
		TransactionID:   "tx_1",
		PaymentIntentID: "pi_123",
	}
}

func fixedFactory(now time.Time) *Factory {
	var evtSeq int
	return NewFactory(
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { return "order-id-1" }),
		WithEventIDGenerator(func() string {
			evtSeq++
			return fmt.Sprintf("evt-%d", evtSeq)
		}),
		WithNumberSuffix(func() string { return "AB12C" }),
	)
}

// ============================================
// Construction Tests
// ============================================

func TestFactory_New_SeedsPaidOrder(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := fixedFactory(now)

	o := f.New(testPayload())

	assert.Equal(t, "order-id-1", o.ID)
	assert.Equal(t, StatusPaid, o.Status)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
	assert.Equal(t, FulfillmentPending, o.FulfillmentStatus)
	assert.Equal(t, "stripe", o.PaymentProvider)
	assert.Equal(t, "tx_1", o.TransactionID)
	assert.Equal(t, now, o.CreatedAt)
	assert.Equal(t, now, o.UpdatedAt)
	assert.True(t, o.Metadata.Verified)
	assert.Equal(t, "pi_123", o.Metadata.PaymentIntentID)
}

func TestFactory_New_OrderNumberFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := fixedFactory(now)

	o := f.New(testPayload())

	assert.Equal(t, fmt.Sprintf("ORD-2025-%d-AB12C", now.UnixMilli()), o.OrderNumber)
	assert.Regexp(t, orderNumberPattern, o.OrderNumber)
}

func TestFactory_New_RandomNumberFormat(t *testing.T) {
	f := NewFactory()

	for i := 0; i < 20; i++ {
		o := f.New(testPayload())
		assert.Regexp(t, orderNumberPattern, o.OrderNumber)
	}
}

func TestFactory_New_ItemTotals(t *testing.T) {
	f := NewFactory()
	p := testPayload()
	p.Items = []CheckoutItem{
		{ID: "p1", Name: "Tee", Price: 25, Quantity: 2, SelectedSize: "M"},
		{ID: "p2", Name: "Cap", Price: 9.5, Quantity: 3},
	}

	o := f.New(p)

	require.Len(t, o.Items, 2)
	for _, item := range o.Items {
		assert.Equal(t, item.UnitPrice*float64(item.Quantity), item.TotalPrice)
	}
	assert.Equal(t, 50.0, o.Items[0].TotalPrice)
	assert.Equal(t, 28.5, o.Items[1].TotalPrice)
}

func TestFactory_New_DerivesSKU(t *testing.T) {
	f := NewFactory()
	p := testPayload()
	p.Items = []CheckoutItem{
		{ID: "p1", Name: "Classic Tee", Price: 25, Quantity: 1, SelectedSize: "m"},
		{ID: "p2", Name: "Cap", Price: 10, Quantity: 1, SKU: "CAP-001"},
	}

	o := f.New(p)

	assert.Equal(t, "CLASSIC-TEE-M", o.Items[0].SKU)
	assert.Equal(t, "CAP-001", o.Items[1].SKU)
}

func TestFactory_New_SeedsTimelines(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := fixedFactory(now)

	o := f.New(testPayload())

	require.Len(t, o.EventTimeline, 2)
	assert.Equal(t, EventCreated, o.EventTimeline[0].Type)
	assert.Equal(t, EventPaid, o.EventTimeline[1].Type)
	assert.Equal(t, "tx_1", o.EventTimeline[1].Data["transactionId"])

	require.Len(t, o.PaymentTimeline, 1)
	assert.Equal(t, PaymentEventCapture, o.PaymentTimeline[0].Type)
	assert.Equal(t, PaymentEventSucceeded, o.PaymentTimeline[0].Status)
	assert.Equal(t, 50.0, o.PaymentTimeline[0].Amount)
}

func TestFactory_New_BillingDefaultsToShipping(t *testing.T) {
	f := NewFactory()
	p := testPayload()

	o := f.New(p)
	assert.Equal(t, p.ShippingDetails, o.BillingDetails)

	billing := Address{FirstName: "Pat", LastName: "Lee", Address: "2 Oak Ave",
		City: "Shelbyville", ZipCode: "54321", Country: "US"}
	p.BillingDetails = &billing
	o = f.New(p)
	assert.Equal(t, billing, o.BillingDetails)
}

func TestFactory_New_DefaultCurrency(t *testing.T) {
	f := NewFactory()

	o := f.New(testPayload())
	assert.Equal(t, "USD", o.Currency)

	p := testPayload()
	p.Currency = "EUR"
	o = f.New(p)
	assert.Equal(t, "EUR", o.Currency)
}

// ============================================
// Timeline Tests
// ============================================

func TestOrder_AppendEvent_ClampsTimestamps(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := fixedFactory(now)
	o := f.New(testPayload())

	o.AppendEvent("evt-x", EventUpdated, "", nil, now.Add(-time.Hour))

	require.Len(t, o.EventTimeline, 3)
	for i := 1; i < len(o.EventTimeline); i++ {
		assert.False(t, o.EventTimeline[i].CreatedAt.Before(o.EventTimeline[i-1].CreatedAt))
	}
}

func TestOrder_RefundedAmount(t *testing.T) {
	o := &Order{Refunds: []Refund{{Amount: 10}, {Amount: 5.5}}}
	assert.Equal(t, 15.5, o.RefundedAmount())
}
