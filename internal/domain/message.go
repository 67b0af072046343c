package domain

import "time"

// ChatKind distinguishes one-to-one chats from the shared global room.
type ChatKind string

const (
	ChatDirect    ChatKind = "direct"
	ChatBroadcast ChatKind = "broadcast"
)

func (k ChatKind) Valid() bool {
	return k == ChatDirect || k == ChatBroadcast
}

// Message is the persisted chat message. Immutable after insert except for
// the read flag.
type Message struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	ChatKey    string    `bson:"chat_key" json:"chat_key"`
	ChatKind   ChatKind  `bson:"chat_kind" json:"chat_kind"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	ReceiverID string    `bson:"receiver_id,omitempty" json:"receiver_id,omitempty"`
	Content    string    `bson:"content" json:"content"`
	Read       bool      `bson:"read" json:"read"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
