package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Inactivity tracking. Platform timers do not survive backgrounding, so the
// persisted last-activity timestamp is the source of truth and the in-memory
// timer is only an optimization for the foreground case. At most one timer is
// live at a time: every rearm stops the previous one and bumps timerGen so a
// late fire from a stopped timer is discarded.

// ResetActivity records a user-activity signal: persists the timestamp and
// rearms the expiry timer with the full timeout.
func (m *Manager) ResetActivity(ctx context.Context) {
	m.persistLastActivity(ctx, m.now())
	m.armTimer(m.cfg.InactivityTimeout)
}

// EnterBackground is called when the app loses foreground. The timer is
// cleared rather than left running; elapsed time is recomputed on resume.
func (m *Manager) EnterBackground(ctx context.Context) {
	m.persistLastActivity(ctx, m.now())
	m.cancelTimer()
}

// EnterForeground recomputes elapsed inactivity from the persisted timestamp.
// Past the timeout it forces an expiry; otherwise the timer is rearmed with
// the remaining duration.
func (m *Manager) EnterForeground(ctx context.Context) {
	m.mu.Lock()
	signedIn := m.state.Phase == PhaseSignedIn
	m.mu.Unlock()
	if !signedIn {
		return
	}

	last, ok := m.lastActivity(ctx)
	if !ok {
		m.ResetActivity(ctx)
		return
	}

	elapsed := m.now().Sub(last)
	if elapsed >= m.cfg.InactivityTimeout {
		m.expireForInactivity(ctx)
		return
	}
	m.armTimer(m.cfg.InactivityTimeout - elapsed)
}

func (m *Manager) armTimer(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.timer != nil {
		m.timer.Stop()
	}
	m.timerGen++
	gen := m.timerGen
	m.timer = time.AfterFunc(d, func() {
		m.onTimerFired(gen)
	})
}

func (m *Manager) cancelTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.timerGen++
}

func (m *Manager) onTimerFired(gen uint64) {
	m.mu.Lock()
	stale := gen != m.timerGen || m.state.Phase != PhaseSignedIn
	m.mu.Unlock()
	if stale {
		return
	}
	m.expireForInactivity(context.Background())
}

func (m *Manager) expireForInactivity(ctx context.Context) {
	m.logger.Info("session expired after inactivity")
	m.notifier.CancelAll()
	m.clearPersisted(ctx)
	m.auth.SetToken("")
	m.cancelTimer()
	m.dispatch(SignedOutEvent{Reason: ExpiryInactivity})
}

func (m *Manager) persistLastActivity(ctx context.Context, t time.Time) {
	payload, _ := json.Marshal(t.UnixMilli())
	if err := m.blobs.Set(ctx, keyLastActivity, payload); err != nil {
		m.logger.Warn("activity timestamp persist failed", slog.Any("error", err))
	}
}

// lastActivity reads the persisted timestamp; a missing or malformed value is
// a miss, never an error.
func (m *Manager) lastActivity(ctx context.Context) (time.Time, bool) {
	raw, err := m.blobs.Get(ctx, keyLastActivity)
	if err != nil || raw == nil {
		return time.Time{}, false
	}
	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
