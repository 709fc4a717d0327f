// Package chat is the transport-neutral shape of inbound events and
// outbound messages exchanged with the messaging platform.
package chat

import "context"

// Event is one inbound update: either a text message or a button press
type Event struct {
	ChatID   int64
	UserID   int64
	UserName string
	Text     string

	// Set for button presses
	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the event is a button press
func (e Event) IsCallback() bool {
	return e.CallbackID != "" || e.CallbackData != ""
}

// Button is an inline button attached to a message
type Button struct {
	Label string
	Data  string
}

// Message is an outbound message. Buttons are rendered inline, one per
// row. Keyboard replaces the chat's reply keyboard when non-nil.
type Message struct {
	ChatID   int64
	Text     string
	Buttons  []Button
	Keyboard [][]string
}

// Sender delivers messages to chats
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// CallbackAnswerer acknowledges button presses so the client stops its
// loading indicator. Optional for senders.
type CallbackAnswerer interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
