package service

import "github.com/example/order-ledger/internal/domain/order"

// validateCheckout enforces the creation preconditions in order: top-level
// required fields, the payment-verification guard, then shipping fields.
// Field failures enumerate every missing name, not just the first. Absent
// payment proof is its own error kind, not a missing-field entry: without a
// provider and transaction id there is no confirmed payment to record.
func validateCheckout(p order.CheckoutPayload) error {
	var missing []string
	if p.CustomerEmail == "" {
		missing = append(missing, "customerEmail")
	}
	if p.CustomerName == "" {
		missing = append(missing, "customerName")
	}
	if len(p.Items) == 0 {
		missing = append(missing, "items")
	}
	if p.Total <= 0 {
		missing = append(missing, "total")
	}
	if p.ShippingDetails == (order.Address{}) {
		missing = append(missing, "shippingDetails")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}

	// Orders are only recorded after payment confirmation.
	if p.PaymentProvider == "" || p.TransactionID == "" {
		return ErrPaymentDataMissing
	}

	var shipping []string
	sd := p.ShippingDetails
	if sd.FirstName == "" {
		shipping = append(shipping, "firstName")
	}
	if sd.LastName == "" {
		shipping = append(shipping, "lastName")
	}
	if sd.Address == "" {
		shipping = append(shipping, "address")
	}
	if sd.City == "" {
		shipping = append(shipping, "city")
	}
	if sd.ZipCode == "" {
		shipping = append(shipping, "zipCode")
	}
	if sd.Country == "" {
		shipping = append(shipping, "country")
	}
	if len(shipping) > 0 {
		return &ValidationError{Fields: shipping, Shipping: true}
	}

	return nil
}
