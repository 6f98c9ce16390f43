package chat

import (
	"testing"
	"time"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func srv(id, text, senderID, clientKey string) domain.ChatMessage {
	return domain.ChatMessage{ID: id, Text: text, SenderID: senderID, ClientKey: clientKey}
}

func ph(text, senderID, clientKey string, expires time.Time) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        domain.PlaceholderID(time.Now()),
		Text:      text,
		SenderID:  senderID,
		ClientKey: clientKey,
		ExpiresAt: expires,
	}
}

func ids(msgs []domain.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestMerge(t *testing.T) {
	now := time.Now()
	live := now.Add(time.Hour)
	dead := now.Add(-time.Hour)

	tests := []struct {
		name   string
		server []domain.ChatMessage
		local  []domain.ChatMessage
		want   int
		check  func(t *testing.T, out []domain.ChatMessage)
	}{
		{
			name:   "server list replaces confirmed local entries",
			server: []domain.ChatMessage{srv("m1", "a", "u1", ""), srv("m2", "b", "u2", "")},
			local:  []domain.ChatMessage{srv("m1", "a", "u1", "")},
			want:   2,
		},
		{
			name:   "unmatched live placeholder survives after the server list",
			server: []domain.ChatMessage{srv("m1", "a", "u2", "")},
			local:  []domain.ChatMessage{ph("pending", "u1", "key-1", live)},
			want:   2,
			check: func(t *testing.T, out []domain.ChatMessage) {
				assert.Equal(t, "m1", out[0].ID)
				assert.True(t, out[1].IsPlaceholder())
			},
		},
		{
			name:   "placeholder superseded by echoed client key",
			server: []domain.ChatMessage{srv("m1", "pending", "u1", "key-1")},
			local:  []domain.ChatMessage{ph("pending", "u1", "key-1", live)},
			want:   1,
			check: func(t *testing.T, out []domain.ChatMessage) {
				assert.Equal(t, "m1", out[0].ID)
			},
		},
		{
			name:   "key mismatch keeps both even with identical text",
			server: []domain.ChatMessage{srv("m1", "pending", "u1", "key-other")},
			local:  []domain.ChatMessage{ph("pending", "u1", "key-1", live)},
			want:   2,
		},
		{
			name:   "text fallback when the server does not echo keys",
			server: []domain.ChatMessage{srv("m1", "pending", "u1", "")},
			local:  []domain.ChatMessage{ph("pending", "u1", "", live)},
			want:   1,
		},
		{
			name:   "text fallback requires the same sender",
			server: []domain.ChatMessage{srv("m1", "pending", "u2", "")},
			local:  []domain.ChatMessage{ph("pending", "u1", "", live)},
			want:   2,
		},
		{
			name:   "expired placeholder is discarded",
			server: nil,
			local:  []domain.ChatMessage{ph("stale", "u1", "key-1", dead)},
			want:   0,
		},
		{
			name:   "empty server list keeps only live placeholders",
			server: nil,
			local: []domain.ChatMessage{
				srv("m1", "a", "u1", ""),
				ph("pending", "u1", "key-1", live),
			},
			want: 1,
			check: func(t *testing.T, out []domain.ChatMessage) {
				assert.True(t, out[0].IsPlaceholder())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := merge(tt.server, tt.local, now)
			require.Len(t, out, tt.want)
			if tt.check != nil {
				tt.check(t, out)
			}

			// Merging the already merged list with the same server list
			// again must not change anything.
			again := merge(tt.server, out, now)
			assert.Equal(t, ids(out), ids(again))
		})
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, matches(srv("m1", "a", "u1", "k"), srv("temp_1", "b", "u2", "k")),
		"matching keys win regardless of text")
	assert.False(t, matches(srv("m1", "a", "u1", "k1"), srv("temp_1", "a", "u1", "k2")))
	assert.True(t, matches(srv("m1", "a", "u1", ""), srv("temp_1", "a", "u1", "")))
	assert.False(t, matches(srv("m1", "a", "u1", ""), srv("temp_1", "a", "u2", "")))
}
