package domain

import "context"

// EventBus hands raw webhook events from the intake handler to the
// pipeline. Publishing happens strictly after the webhook acknowledgment
// has been written.
type EventBus interface {
	Publish(evt InboundEvent)
	Subscribe() <-chan InboundEvent
	Close()
}

// Generator produces a conversational reply for approved message text.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// Deliverer sends a generated reply back to the sender. It never returns
// an error: every failure mode is folded into the outcome value.
type Deliverer interface {
	Send(ctx context.Context, recipientID, text string) DeliveryOutcome
}

// OutcomeRecorder persists per-event results for observability. Recording
// is best-effort; the pipeline ignores recorder failures.
type OutcomeRecorder interface {
	Record(ctx context.Context, eventID string, msg *ParsedMessage, outcome DeliveryOutcome) error
}
