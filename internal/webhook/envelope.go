package webhook

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Envelope mirrors the platform's webhook callback body. The same logical
// message event arrives in one of two shapes: an older direct messaging
// list (Entry.Messaging) and a newer field-change notification
// (Entry.Changes with Field == "messages").
type Envelope struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one batched notification. Platforms may batch several entries
// per call; only the first is processed.
type Entry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Messaging []MessagingItem `json:"messaging"`
	Changes   []Change        `json:"changes"`
}

// MessagingItem is one event in the direct messaging list. Exactly one of
// the sub-objects is populated; anything without Message or MessageEdit
// (reads, delivery receipts, postbacks) is not a message event.
type MessagingItem struct {
	Sender      Party        `json:"sender"`
	Recipient   Party        `json:"recipient"`
	Timestamp   int64        `json:"timestamp"`
	Message     *Message     `json:"message"`
	MessageEdit *MessageEdit `json:"message_edit"`
	Read        *Receipt     `json:"read"`
	Delivery    *Receipt     `json:"delivery"`
	Postback    *Postback    `json:"postback"`
}

// Change is one field-change notification.
type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue carries the message for field == "messages" changes. The
// platform sends timestamps as numbers or numeric strings depending on the
// API version, hence FlexInt64.
type ChangeValue struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp FlexInt64 `json:"timestamp"`
	Message   *Message  `json:"message"`
}

type Party struct {
	ID string `json:"id"`
}

// Message is the message sub-object. Text is a pointer so "no text field"
// stays distinguishable from an empty text.
type Message struct {
	MID         string       `json:"mid"`
	Text        *string      `json:"text"`
	Attachments []Attachment `json:"attachments"`
	IsEcho      bool         `json:"is_echo"`
}

// MessageEdit is the edited-message sub-variant of the messaging list
// shape. The edited text replaces the original.
type MessageEdit struct {
	MID     string  `json:"mid"`
	Text    *string `json:"text"`
	NumEdit int     `json:"num_edit"`
}

type Attachment struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Receipt struct {
	MID  string   `json:"mid"`
	MIDs []string `json:"mids"`
}

type Postback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// FlexInt64 accepts a JSON number or a numeric string.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Tolerate garbage: an unreadable timestamp never invalidates
		// an otherwise well-formed message.
		*f = 0
		return nil
	}
	*f = FlexInt64(n)
	return nil
}
