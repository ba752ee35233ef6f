package filter

import "chikabot/internal/domain"

// Filter decides whether a parsed message warrants an automated reply.
// It is pure: the self id is fixed at construction and the decision
// depends only on the message.
type Filter struct {
	selfID string
}

// New creates a filter for the given bot account id.
func New(selfID string) *Filter {
	return &Filter{selfID: selfID}
}

// Decide evaluates the eligibility rules in fixed order, short-circuiting
// on the first failure. The order matters for the recorded reason, not
// for the final boolean.
func (f *Filter) Decide(msg *domain.ParsedMessage) domain.Decision {
	if msg == nil {
		return reject(domain.ReasonInvalidEvent)
	}
	if !msg.HasText() {
		return reject(domain.ReasonNoText)
	}
	if msg.HasAttachments {
		return reject(domain.ReasonHasAttachment)
	}
	// Without this rule the bot would reply to its own replies forever.
	if msg.SenderID == f.selfID {
		return reject(domain.ReasonSelfMessage)
	}
	return domain.Decision{Reply: true}
}

func reject(reason domain.RejectReason) domain.Decision {
	return domain.Decision{Reply: false, Reason: reason}
}
