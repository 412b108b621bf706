package services

import "context"

// CaptureOutcome is the result of a capture attempt as far as this service
// can tell.
type CaptureOutcome string

const (
	// CaptureCaptured means the gateway confirmed the funds were captured.
	CaptureCaptured CaptureOutcome = "CAPTURED"
	// CaptureDeclined means the gateway answered and did not capture.
	CaptureDeclined CaptureOutcome = "DECLINED"
	// CaptureIndeterminate means the gateway could not be reached or its
	// answer could not be read. The order may or may not be captured.
	CaptureIndeterminate CaptureOutcome = "INDETERMINATE"
)

// Succeeded reports whether the capture is confirmed.
func (o CaptureOutcome) Succeeded() bool {
	return o == CaptureCaptured
}

// Gateway is a payment provider able to create and capture orders.
type Gateway interface {
	// Name labels responses, e.g. "PayPal".
	Name() string
	// CreateOrder registers an order with the provider and returns its id.
	CreateOrder(ctx context.Context, amount float64, currency, description string) (string, error)
	// CapturePayment settles a previously created order. The error is set
	// only together with CaptureIndeterminate.
	CapturePayment(ctx context.Context, orderID string) (CaptureOutcome, error)
}
