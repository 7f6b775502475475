package order

import "time"

// Status is the order lifecycle axis.
type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// PaymentStatus tracks the money axis independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// FulfillmentStatus tracks shipping/delivery progress.
type FulfillmentStatus string

const (
	FulfillmentPending    FulfillmentStatus = "pending"
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
	FulfillmentCancelled  FulfillmentStatus = "cancelled"
)

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// ValidFulfillmentStatus reports whether s is a known fulfillment status.
func ValidFulfillmentStatus(s string) bool {
	switch FulfillmentStatus(s) {
	case FulfillmentPending, FulfillmentProcessing, FulfillmentShipped,
		FulfillmentDelivered, FulfillmentCancelled:
		return true
	}
	return false
}

// Address is a shipping or billing address snapshot.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state,omitempty"`
	ZipCode   string `json:"zipCode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

// Item is one order line. TotalPrice is always UnitPrice * Quantity.
type Item struct {
	ProductID     string  `json:"productId"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	UnitPrice     float64 `json:"unitPrice"`
	Quantity      int     `json:"quantity"`
	SelectedSize  string  `json:"selectedSize,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty"`
	Image         string  `json:"image,omitempty"`
	TotalPrice    float64 `json:"totalPrice"`
}

// Adjustment is a discount or tax line applied to the order total.
type Adjustment struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// Refund records money returned to the customer. Entries are immutable once
// persisted.
type Refund struct {
	ID        string    `json:"id"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Shipment records a package handed to a carrier.
type Shipment struct {
	ID             string    `json:"id"`
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"trackingNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Note is an internal annotation by the shop owner.
type Note struct {
	ID        string    `json:"id"`
	Author    string    `json:"author,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// PaymentEvent is one entry in the payment timeline (capture, refund).
type PaymentEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is one entry in the audit timeline. The timeline is append-only;
// entries are never edited or removed and timestamps never decrease.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Metadata carries provider passthrough fields and the verification stamp.
type Metadata struct {
	PaymentIntentID string    `json:"paymentIntentId,omitempty"`
	PayPalOrderID   string    `json:"paypalOrderId,omitempty"`
	Verified        bool      `json:"verified"`
	VerifiedAt      time.Time `json:"verifiedAt"`
}

// Order is the aggregate record for one payment-confirmed purchase.
// ID, OrderNumber, and TransactionID are assigned at creation and never
// change; TransactionID is unique across all orders ever created.
type Order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`

	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	LoginMethod   string `json:"loginMethod,omitempty"`
	UserID        string `json:"userId,omitempty"`

	Total    float64 `json:"total"`
	Currency string  `json:"currency"`

	Status            Status            `json:"status"`
	PaymentStatus     PaymentStatus     `json:"paymentStatus"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillmentStatus"`

	ShippingDetails Address `json:"shippingDetails"`
	BillingDetails  Address `json:"billingDetails"`

	PaymentMethod   string `json:"paymentMethod,omitempty"`
	PaymentProvider string `json:"paymentProvider"`
	TransactionID   string `json:"transactionId"`

	TrackingNumber string `json:"trackingNumber,omitempty"`
	Carrier        string `json:"carrier,omitempty"`

	Items           []Item         `json:"items"`
	Discounts       []Adjustment   `json:"discounts,omitempty"`
	Taxes           []Adjustment   `json:"taxes,omitempty"`
	Refunds         []Refund       `json:"refunds,omitempty"`
	Shipments       []Shipment     `json:"shipments,omitempty"`
	OwnerNotes      []Note         `json:"ownerNotes,omitempty"`
	PaymentTimeline []PaymentEvent `json:"paymentTimeline"`
	EventTimeline   []Event        `json:"eventTimeline"`

	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppendEvent records a new audit entry at the given time. Event timestamps
// must not go backwards, so at is clamped to the last entry's time.
func (o *Order) AppendEvent(id, eventType, message string, data map[string]any, at time.Time) {
	if n := len(o.EventTimeline); n > 0 && at.Before(o.EventTimeline[n-1].CreatedAt) {
		at = o.EventTimeline[n-1].CreatedAt
	}
	o.EventTimeline = append(o.EventTimeline, Event{
		ID:        id,
		Type:      eventType,
		Message:   message,
		Data:      data,
		CreatedAt: at,
	})
}

// RefundedAmount sums all issued refunds.
func (o *Order) RefundedAmount() float64 {
	var sum float64
	for _, r := range o.Refunds {
		sum += r.Amount
	}
	return sum
}
