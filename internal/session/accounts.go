package session

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/dvir/roombill-client/internal/domain"
)

// RecentAccounts returns the most-recent-first account list shown on the
// sign-in screen. Missing or malformed data reads as empty.
func (m *Manager) RecentAccounts(ctx context.Context) []domain.RecentAccount {
	raw, err := m.blobs.Get(ctx, keyRecentAccounts)
	if err != nil || raw == nil {
		return nil
	}
	var accounts []domain.RecentAccount
	if err := json.Unmarshal(raw, &accounts); err != nil {
		return nil
	}
	return accounts
}

// recordRecentAccount moves the signed-in account to the front of the list,
// keyed by email, capped at the configured length. Best-effort.
func (m *Manager) recordRecentAccount(ctx context.Context, user *domain.User) {
	if user.Email == "" {
		return
	}

	accounts := m.RecentAccounts(ctx)
	kept := make([]domain.RecentAccount, 0, len(accounts)+1)
	kept = append(kept, domain.RecentAccount{
		Email:      user.Email,
		Name:       user.Name,
		AvatarURL:  user.AvatarURL,
		LastUsedAt: m.now(),
	})
	for _, a := range accounts {
		if a.Email == user.Email {
			continue
		}
		kept = append(kept, a)
	}
	if max := m.cfg.RecentAccountsMax; max > 0 && len(kept) > max {
		kept = kept[:max]
	}

	payload, err := json.Marshal(kept)
	if err != nil {
		return
	}
	if err := m.blobs.Set(ctx, keyRecentAccounts, payload); err != nil {
		m.logger.Warn("recent accounts persist failed", slog.Any("error", err))
	}
}
