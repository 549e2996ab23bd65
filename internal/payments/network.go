package payments

import (
	"context"

	"github.com/google/uuid"
)

// Network is the connector to external payment rails. ACH, wire, card, and
// RTP submissions are integration points: the processor calls out through
// this seam and the stub implementation approves everything.
type Network interface {
	Submit(ctx context.Context, method string, p *PaymentInstruction) (NetworkReceipt, error)
}

// NetworkReceipt is the simulated response from a payment rail.
type NetworkReceipt struct {
	Reference string
	Status    string
}

// StubNetwork simulates successful rail submissions.
type StubNetwork struct{}

// Submit approves the payment with a synthetic rail reference.
func (StubNetwork) Submit(_ context.Context, _ string, _ *PaymentInstruction) (NetworkReceipt, error) {
	return NetworkReceipt{Reference: uuid.NewString(), Status: "accepted"}, nil
}
