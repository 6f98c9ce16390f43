package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dvir/roombill-client/internal/domain"
)

// persistSnapshot writes the size-capped cached copy of the profile used for
// offline bootstrap. Oversized avatar payloads are dropped before persisting:
// the store's row-size limit matters more than a cached picture, and the
// cached avatar is never authoritative anyway.
func (m *Manager) persistSnapshot(ctx context.Context, user *domain.User) {
	snap := *user
	if len(snap.AvatarURL) > m.cfg.AvatarByteLimit {
		snap.AvatarURL = ""
	}

	payload, err := json.Marshal(&snap)
	if err != nil {
		m.logger.Warn("profile snapshot encode failed", slog.Any("error", err))
		return
	}
	if err := m.blobs.Set(ctx, keyCachedUser, payload); err != nil {
		m.logger.Warn("profile snapshot persist failed", slog.Any("error", err))
	}
}

// loadSnapshot returns the cached profile, or nil when absent. A corrupt
// entry is deleted so future reads do not keep failing on it.
func (m *Manager) loadSnapshot(ctx context.Context) *domain.User {
	raw, err := m.blobs.Get(ctx, keyCachedUser)
	if err != nil || raw == nil {
		return nil
	}

	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil || user.ID == "" {
		m.logger.Warn("discarding corrupt profile snapshot")
		if err := m.blobs.Remove(ctx, keyCachedUser); err != nil {
			m.logger.Warn("corrupt snapshot delete failed", slog.Any("error", err))
		}
		return nil
	}
	return &user
}
