package domain

import "time"

// ParsedMessage is the canonical record extracted from one webhook event.
// It is only ever constructed fully valid: SenderID and MessageID are
// non-empty or parsing yields no message at all.
type ParsedMessage struct {
	SenderID       string
	Text           *string // nil means the event carried no text payload
	HasAttachments bool
	Timestamp      int64 // origin-reported, 0 when absent
	MessageID      string
}

// HasText reports whether the event carried a non-absent text payload.
// An empty string is still text; only nil counts as absent.
func (m *ParsedMessage) HasText() bool {
	return m != nil && m.Text != nil
}

// InboundEvent is one raw webhook delivery queued for processing. The
// payload is kept opaque until the pipeline parses it.
type InboundEvent struct {
	ID         string // correlation id, assigned at intake
	ReceivedAt time.Time
	Payload    []byte
}

// DeliveryOutcome is the terminal result of one send attempt sequence.
// It is logged and recorded, never acted on further.
type DeliveryOutcome struct {
	Delivered         bool
	ExternalMessageID string
	Error             string
}
