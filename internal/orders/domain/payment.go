package domain

// PaymentStatus mirrors the processor's payment intent status.
type PaymentStatus string

const (
	PaymentRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentRequiresConfirmation  PaymentStatus = "requires_confirmation"
	PaymentRequiresAction        PaymentStatus = "requires_action"
	PaymentProcessing            PaymentStatus = "processing"
	PaymentRequiresCapture       PaymentStatus = "requires_capture"
	PaymentSucceeded             PaymentStatus = "succeeded"
	PaymentCanceled              PaymentStatus = "canceled"
	PaymentFailed                PaymentStatus = "failed"
)

const DefaultCurrency = "usd"

// Payment is the local cache of one processor authorization. The processor
// stays authoritative for amounts; this record holds the last known state.
type Payment struct {
	ID                  string        `json:"id"`
	GatewayIntentID     string        `json:"gateway_intent_id"`
	AmountReceivedCents int64         `json:"amount_received_cents"`
	Currency            string        `json:"currency"`
	Status              PaymentStatus `json:"status"`
	Audit
}

// Captured reports whether funds were actually charged.
func (p Payment) Captured() bool {
	return p.Status == PaymentSucceeded
}

// Cancelable reports whether the intent can still be voided: anything short
// of a capture or a terminal state.
func (p Payment) Cancelable() bool {
	switch p.Status {
	case PaymentSucceeded, PaymentCanceled, PaymentFailed:
		return false
	default:
		return true
	}
}
