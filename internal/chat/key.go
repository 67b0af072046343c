package chat

import (
	"fmt"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

// BroadcastKey is the single well-known key shared by every user.
const BroadcastKey = "global"

// ResolveKey derives the canonical chat key for a conversation. Direct keys
// are order-independent: the pair is sorted before concatenation so (A,B) and
// (B,A) map to the same conversation.
func ResolveKey(kind domain.ChatKind, selfID, otherID string) (string, error) {
	switch kind {
	case domain.ChatBroadcast:
		return BroadcastKey, nil
	case domain.ChatDirect:
		if otherID == "" || otherID == selfID {
			return "", domain.ErrInvalidChat
		}
		lo, hi := selfID, otherID
		if lo > hi {
			lo, hi = hi, lo
		}
		return fmt.Sprintf("dm:%s:%s", lo, hi), nil
	default:
		return "", fmt.Errorf("%w: unknown chat kind %q", domain.ErrInvalidChat, kind)
	}
}
