package domain

import (
	"fmt"
	"strings"
	"time"
)

// placeholderPrefix marks locally generated message ids that the server has
// not confirmed yet.
const placeholderPrefix = "temp_"

type MessageSender struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type ChatMessage struct {
	ID        string        `json:"id"`
	RoomID    string        `json:"roomId"`
	Text      string        `json:"text"`
	SenderID  string        `json:"senderId"`
	Sender    MessageSender `json:"sender"`
	ClientKey string        `json:"clientKey,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
}

// IsPlaceholder reports whether the message is an optimistic local entry
// awaiting server confirmation.
func (m *ChatMessage) IsPlaceholder() bool {
	return strings.HasPrefix(m.ID, placeholderPrefix)
}

// PlaceholderID builds a locally unique temporary message id.
func PlaceholderID(now time.Time) string {
	return fmt.Sprintf("%s%d", placeholderPrefix, now.UnixNano())
}
