// Package payments defines the payment processor boundary.
package payments

import "context"

// Payment is the processor-neutral view of a payment.
type Payment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	ReceiptURL  string `json:"receiptUrl,omitempty"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Completed reports whether the payment finished successfully.
func (p *Payment) Completed() bool {
	return p != nil && p.Status == "COMPLETED"
}

// CardError is a decline or card-level rejection from the processor. It is a
// caller mistake (bad card, insufficient funds), not a service fault, and maps
// to a 400 rather than a 500.
type CardError struct {
	Code   string
	Detail string
}

func (e *CardError) Error() string {
	if e.Detail != "" {
		return "payment declined: " + e.Detail
	}
	return "payment declined: " + e.Code
}

// Client charges cards and looks up payment state.
type Client interface {
	// CreatePayment charges the tokenized card. A declined card returns a
	// *CardError; transport and configuration faults return ordinary errors.
	CreatePayment(ctx context.Context, sourceToken string, amountCents int64, currency, note string) (*Payment, error)

	// GetPayment fetches the current state of a payment by id.
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}
