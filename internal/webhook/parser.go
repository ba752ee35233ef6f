package webhook

import (
	"encoding/json"

	"chikabot/internal/domain"
)

// fieldMessages is the change-field discriminator for message events.
const fieldMessages = "messages"

// Parse normalizes a raw webhook payload into a ParsedMessage. The second
// return value is false for everything that is not a processable message:
// malformed bodies, empty entry lists, non-message notifications (reads,
// delivery receipts, postbacks), and changes for other fields. None of
// these are errors — they are expected, frequent outcomes.
func Parse(payload []byte) (*domain.ParsedMessage, bool) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, false
	}
	if len(env.Entry) == 0 {
		return nil, false
	}

	// Only the first entry is processed; additional entries in the same
	// delivery are ignored.
	entry := env.Entry[0]

	if len(entry.Messaging) > 0 {
		return fromMessaging(entry.Messaging[0])
	}
	if len(entry.Changes) > 0 {
		return fromChange(entry.Changes[0])
	}
	return nil, false
}

// fromMessaging extracts from the direct messaging list shape. An edited
// message is folded into the same view, with the edited text as current.
func fromMessaging(item MessagingItem) (*domain.ParsedMessage, bool) {
	msg := item.Message
	if msg == nil && item.MessageEdit != nil {
		msg = &Message{
			MID:  item.MessageEdit.MID,
			Text: item.MessageEdit.Text,
		}
	}
	if msg == nil {
		// Read/delivery/postback or something newer we don't know about.
		return nil, false
	}
	return build(item.Sender.ID, msg, item.Timestamp)
}

// fromChange extracts from the field-change shape.
func fromChange(ch Change) (*domain.ParsedMessage, bool) {
	if ch.Field != fieldMessages {
		return nil, false
	}
	if ch.Value.Message == nil {
		return nil, false
	}
	return build(ch.Value.Sender.ID, ch.Value.Message, int64(ch.Value.Timestamp))
}

// build enforces the all-or-nothing invariant: sender and message ids must
// both be present or no ParsedMessage exists at all. Missing text and
// attachments still yield a valid message.
func build(senderID string, msg *Message, timestamp int64) (*domain.ParsedMessage, bool) {
	if senderID == "" || msg.MID == "" {
		return nil, false
	}
	return &domain.ParsedMessage{
		SenderID:       senderID,
		Text:           msg.Text,
		HasAttachments: len(msg.Attachments) > 0,
		Timestamp:      timestamp,
		MessageID:      msg.MID,
	}, true
}
