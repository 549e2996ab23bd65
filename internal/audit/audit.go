package audit

import (
	"context"
	"log/slog"
)

// Event kinds emitted by the engines.
const (
	KindTransactionPosted   = "transaction_posted"
	KindTransactionReversed = "transaction_reversed"
	KindAccountOpened       = "account_opened"
	KindAccountClosed       = "account_closed"
	KindPaymentExecuted     = "payment_executed"
	KindLoanDisbursed       = "loan_disbursed"
	KindTradeExecuted       = "trade_executed"
)

// Event describes one auditable action on a domain entity.
type Event struct {
	Kind      string
	Entity    string
	Reference string
	Detail    string
}

// Recorder receives audit events from the engines. The durable audit trail
// lives outside this core; recorders forward events to it.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Emit records an event on a possibly nil recorder, dropping the error.
// Audit delivery never blocks or fails a money movement.
func Emit(ctx context.Context, r Recorder, event Event) {
	if r == nil {
		return
	}
	_ = r.Record(ctx, event)
}

// LoggerRecorder writes audit events to the structured logger.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder constructs a logging audit recorder.
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	return &LoggerRecorder{logger: logger}
}

// Record writes the event to the structured logger.
func (r *LoggerRecorder) Record(_ context.Context, event Event) error {
	if r == nil || r.logger == nil {
		return nil
	}
	r.logger.Info("audit event",
		"kind", event.Kind, "entity", event.Entity,
		"reference", event.Reference, "detail", event.Detail)
	return nil
}
