package order

// Audit timeline event types.
const (
	EventCreated       = "created"
	EventPaid          = "paid"
	EventUpdated       = "updated"
	EventCancelled     = "cancelled"
	EventNoteAdded     = "note_added"
	EventShipmentAdded = "shipment_added"
	EventRefundIssued  = "refund_issued"
)

// Payment timeline entry types and statuses.
const (
	PaymentEventCapture = "capture"
	PaymentEventRefund  = "refund"

	PaymentEventSucceeded = "succeeded"
)
