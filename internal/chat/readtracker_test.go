package chat_test

import (
	"context"
	"testing"
	"time"

	"github.com/dvir/roombill-client/internal/chat"
	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/store/memory"
	"github.com/dvir/roombill-client/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTracker_MarkAndLastRead(t *testing.T) {
	blobs := memory.New().Blobs()
	tracker := chat.NewReadTracker(blobs, time.Minute, testutil.Logger())
	ctx := context.Background()

	_, ok := tracker.LastRead(ctx, "room1")
	assert.False(t, ok)

	before := time.Now()
	tracker.Mark(ctx, "room1")

	got, ok := tracker.LastRead(ctx, "room1")
	require.True(t, ok)
	assert.WithinDuration(t, before, got, time.Second)

	// Rooms are tracked independently.
	_, ok = tracker.LastRead(ctx, "room2")
	assert.False(t, ok)
}

func TestReadTracker_MalformedStateResets(t *testing.T) {
	blobs := memory.New().Blobs()
	require.NoError(t, blobs.Set(context.Background(), "chat_last_read", []byte("{broken")))
	tracker := chat.NewReadTracker(blobs, time.Minute, testutil.Logger())

	_, ok := tracker.LastRead(context.Background(), "room1")
	assert.False(t, ok)

	tracker.Mark(context.Background(), "room1")
	_, ok = tracker.LastRead(context.Background(), "room1")
	assert.True(t, ok)
}

func TestReadTracker_RunWhileFocused(t *testing.T) {
	blobs := memory.New().Blobs()
	tracker := chat.NewReadTracker(blobs, 10*time.Millisecond, testutil.Logger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.RunWhileFocused(ctx, "room1")
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := tracker.LastRead(context.Background(), "room1")
		return ok
	}, time.Second, 5*time.Millisecond)

	first, _ := tracker.LastRead(context.Background(), "room1")

	// The marker keeps advancing while focused.
	require.Eventually(t, func() bool {
		cur, _ := tracker.LastRead(context.Background(), "room1")
		return cur.After(first)
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunWhileFocused did not stop on cancellation")
	}
}

func TestUnreadCount(t *testing.T) {
	lastRead := time.Now()
	older := lastRead.Add(-time.Minute)
	newer := lastRead.Add(time.Minute)

	messages := []domain.ChatMessage{
		{ID: "m1", SenderID: "u2", CreatedAt: older},
		{ID: "m2", SenderID: "u2", CreatedAt: newer},
		{ID: "m3", SenderID: "u1", CreatedAt: newer},                     // own message
		{ID: domain.PlaceholderID(newer), SenderID: "u2", CreatedAt: newer}, // unconfirmed
		{ID: "m4", SenderID: "u3", CreatedAt: newer},
	}

	assert.Equal(t, 2, chat.UnreadCount(messages, "u1", lastRead))
	assert.Equal(t, 3, chat.UnreadCount(messages, "u9", lastRead))
	assert.Equal(t, 0, chat.UnreadCount(nil, "u1", lastRead))
}
