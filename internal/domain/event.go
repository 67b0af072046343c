package domain

// Event types pushed to connected clients.
const (
	EventNewMessage = "newMessage"
	EventTyping     = "typing"
	EventStopTyping = "stopTyping"
	EventError      = "error"
)

// Event is the envelope for everything sent over the live channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// TypingPayload is the payload for typing and stopTyping events.
type TypingPayload struct {
	SenderID   string   `json:"sender_id"`
	SenderName string   `json:"sender_name,omitempty"`
	ChatKind   ChatKind `json:"chat_kind"`
	ChatKey    string   `json:"chat_key"`
}

// ErrorPayload goes back to the originating client only.
type ErrorPayload struct {
	Message string `json:"message"`
}
