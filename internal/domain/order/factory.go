package order

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// CheckoutPayload is the validated input to order construction: the result of
// a checkout whose payment the provider has already confirmed.
type CheckoutPayload struct {
	CustomerEmail   string         `json:"customerEmail"`
	CustomerName    string         `json:"customerName"`
	LoginMethod     string         `json:"loginMethod,omitempty"`
	UserID          string         `json:"userId,omitempty"`
	ShippingDetails Address        `json:"shippingDetails"`
	BillingDetails  *Address       `json:"billingDetails,omitempty"`
	Items           []CheckoutItem `json:"items"`
	Total           float64        `json:"total"`
	Currency        string         `json:"currency,omitempty"`
	PaymentProvider string         `json:"paymentProvider"`
	TransactionID   string         `json:"transactionId"`
	PaymentMethod   string         `json:"paymentMethod,omitempty"`
	PaymentIntentID string         `json:"paymentIntentId,omitempty"`
	PayPalOrderID   string         `json:"paypalOrderId,omitempty"`
}

// CheckoutItem is one line of the checkout cart.
type CheckoutItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Quantity      int     `json:"quantity"`
	SKU           string  `json:"sku,omitempty"`
	SelectedSize  string  `json:"selectedSize,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty"`
	Image         string  `json:"image,omitempty"`
}

const (
	defaultCurrency = "USD"

	numberSuffixLen     = 5
	numberSuffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Factory builds canonical orders from checkout payloads. Construction is
// pure apart from the injected time and id sources, so tests can pin them.
type Factory struct {
	now      func() time.Time
	newID    func() string
	newEvtID func() string
	suffix   func() string
}

// FactoryOption overrides one of the factory's generators.
type FactoryOption func(*Factory)

// WithClock fixes the factory's time source.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) { f.now = now }
}

// WithIDGenerator fixes the order id source.
func WithIDGenerator(gen func() string) FactoryOption {
	return func(f *Factory) { f.newID = gen }
}

// WithEventIDGenerator fixes the timeline entry id source.
func WithEventIDGenerator(gen func() string) FactoryOption {
	return func(f *Factory) { f.newEvtID = gen }
}

// WithNumberSuffix fixes the order number's random suffix.
func WithNumberSuffix(gen func() string) FactoryOption {
	return func(f *Factory) { f.suffix = gen }
}

func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		newEvtID: func() string { return ulid.Make().String() },
		suffix:   randomSuffix,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New converts a validated checkout payload into a canonical order record.
// The factory is only invoked after payment confirmation, so the order is
// born paid: status and paymentStatus start at paid, fulfillment at pending,
// and the timelines carry the capture plus created/paid audit entries.
func (f *Factory) New(p CheckoutPayload) *Order {
	now := f.now()

	items := make([]Item, 0, len(p.Items))
	for _, ci := range p.Items {
		items = append(items, Item{
			ProductID:     ci.ID,
			Name:          ci.Name,
			SKU:           itemSKU(ci),
			UnitPrice:     ci.Price,
			Quantity:      ci.Quantity,
			SelectedSize:  ci.SelectedSize,
			SelectedColor: ci.SelectedColor,
			Image:         ci.Image,
			TotalPrice:    ci.Price * float64(ci.Quantity),
		})
	}

	billing := p.ShippingDetails
	if p.BillingDetails != nil {
		billing = *p.BillingDetails
	}

	currency := p.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	o := &Order{
		ID:          f.newID(),
		OrderNumber: f.orderNumber(now),

		CustomerEmail: p.CustomerEmail,
		CustomerName:  p.CustomerName,
		LoginMethod:   p.LoginMethod,
		UserID:        p.UserID,

		Total:    p.Total,
		Currency: currency,

		Status:            StatusPaid,
		PaymentStatus:     PaymentPaid,
		FulfillmentStatus: FulfillmentPending,

		ShippingDetails: p.ShippingDetails,
		BillingDetails:  billing,

		PaymentMethod:   p.PaymentMethod,
		PaymentProvider: p.PaymentProvider,
		TransactionID:   p.TransactionID,

		Items: items,
		PaymentTimeline: []PaymentEvent{{
			ID:        f.newEvtID(),
			Type:      PaymentEventCapture,
			Status:    PaymentEventSucceeded,
			Amount:    p.Total,
			CreatedAt: now,
		}},

		Metadata: Metadata{
			PaymentIntentID: p.PaymentIntentID,
			PayPalOrderID:   p.PayPalOrderID,
			Verified:        true,
			VerifiedAt:      now,
		},

		CreatedAt: now,
		UpdatedAt: now,
	}

	o.AppendEvent(f.newEvtID(), EventCreated, "Order created", nil, now)
	o.AppendEvent(f.newEvtID(), EventPaid,
		fmt.Sprintf("Payment captured via %s", p.PaymentProvider),
		map[string]any{"transactionId": p.TransactionID}, now)

	return o
}

// NewEventID returns an id for a timeline entry appended after creation.
func (f *Factory) NewEventID() string { return f.newEvtID() }

// orderNumber builds the human-facing number:
// ORD-<year>-<epoch millis>-<5 uppercase alphanumerics>.
func (f *Factory) orderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%d-%s", now.Year(), now.UnixMilli(), f.suffix())
}

func randomSuffix() string {
	buf := make([]byte, numberSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = numberSuffixCharset[int(b)%len(numberSuffixCharset)]
	}
	return string(buf)
}

// itemSKU derives a SKU from the product name and size when the checkout
// does not carry one.
func itemSKU(ci CheckoutItem) string {
	if ci.SKU != "" {
		return ci.SKU
	}
	sku := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(ci.Name), " ", "-"))
	if ci.SelectedSize != "" {
		sku += "-" + strings.ToUpper(ci.SelectedSize)
	}
	return sku
}
