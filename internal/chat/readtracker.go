package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/store"
)

const keyLastRead = "chat_last_read"

// ReadTracker persists a per-room last-read timestamp while a conversation is
// on screen. It only feeds unread badges; message delivery never depends on
// it, so every failure here is swallowed.
type ReadTracker struct {
	blobs    store.GeneralStore
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	mu sync.Mutex
}

func NewReadTracker(blobs store.GeneralStore, interval time.Duration, logger *slog.Logger) *ReadTracker {
	return &ReadTracker{
		blobs:    blobs,
		logger:   logger.With(slog.String("component", "read_tracker")),
		interval: interval,
		now:      time.Now,
	}
}

// Mark records the room as read now.
func (t *ReadTracker) Mark(ctx context.Context, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.loadLocked(ctx)
	m[roomID] = t.now().UnixMilli()

	payload, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := t.blobs.Set(ctx, keyLastRead, payload); err != nil {
		t.logger.Warn("read marker persist failed", slog.Any("error", err))
	}
}

// RunWhileFocused marks the room on entry, periodically while ctx lives, and
// once more when the view blurs (ctx cancellation).
func (t *ReadTracker) RunWhileFocused(ctx context.Context, roomID string) {
	t.Mark(ctx, roomID)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			blurCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			t.Mark(blurCtx, roomID)
			cancel()
			return
		case <-ticker.C:
			t.Mark(ctx, roomID)
		}
	}
}

// LastRead returns when the room was last read, if ever.
func (t *ReadTracker) LastRead(ctx context.Context, roomID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := t.loadLocked(ctx)
	ms, ok := m[roomID]
	if !ok || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// UnreadCount counts messages newer than the last-read marker, skipping the
// reader's own messages and unconfirmed placeholders.
func UnreadCount(messages []domain.ChatMessage, selfID string, lastRead time.Time) int {
	n := 0
	for _, m := range messages {
		if m.SenderID == selfID || m.IsPlaceholder() {
			continue
		}
		if m.CreatedAt.After(lastRead) {
			n++
		}
	}
	return n
}

func (t *ReadTracker) loadLocked(ctx context.Context) map[string]int64 {
	m := make(map[string]int64)
	raw, err := t.blobs.Get(ctx, keyLastRead)
	if err != nil || raw == nil {
		return m
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return make(map[string]int64)
	}
	return m
}
