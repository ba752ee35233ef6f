package domain

// RejectReason names the first eligibility rule that failed. Rules are
// evaluated in a fixed order, so the reason is deterministic for a given
// message.
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonInvalidEvent  RejectReason = "invalid_event"
	ReasonNoText        RejectReason = "no_text"
	ReasonHasAttachment RejectReason = "has_attachment"
	ReasonSelfMessage   RejectReason = "self_message"
)

// Decision is the outcome of the eligibility filter for one message.
type Decision struct {
	Reply  bool
	Reason RejectReason
}
