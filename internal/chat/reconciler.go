// Package chat keeps a locally rendered message list consistent with the
// polled server list while giving instant feedback on send. Sends render an
// optimistic placeholder synchronously; confirmation, failure cleanup, and
// poll merges all funnel through the same reconciliation path.
package chat

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dvir/roombill-client/internal/config"
	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/remote"
	"github.com/google/uuid"
)

const fetchLimit = 100

// Reconciler manages one room's message list.
type Reconciler struct {
	api    remote.ChatAPI
	logger *slog.Logger

	roomID       string
	self         domain.MessageSender
	selfAdmin    bool
	retention    time.Duration
	pollInterval time.Duration
	now          func() time.Time
	newKey       func() string

	mu             sync.Mutex
	enabled        bool
	messages       []domain.ChatMessage
	listeners      map[int]func([]domain.ChatMessage)
	nextListenerID int
	pollStop       chan struct{}
	onSendFailure  func(text string, err error)
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithKeyFunc overrides idempotency-key generation.
func WithKeyFunc(fn func() string) Option {
	return func(r *Reconciler) { r.newKey = fn }
}

// WithSendFailureHandler installs the UI callback for failed sends.
func WithSendFailureHandler(fn func(text string, err error)) Option {
	return func(r *Reconciler) { r.onSendFailure = fn }
}

func NewReconciler(api remote.ChatAPI, roomID string, self domain.MessageSender, selfAdmin bool, cfg *config.Config, logger *slog.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		api:          api,
		logger:       logger.With(slog.String("component", "chat"), slog.String("room", roomID)),
		roomID:       roomID,
		self:         self,
		selfAdmin:    selfAdmin,
		retention:    cfg.ChatRetention,
		pollInterval: cfg.ChatPollInterval,
		now:          time.Now,
		newKey:       uuid.NewString,
		listeners:    make(map[int]func([]domain.ChatMessage)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start checks the room's chat flag and, when enabled, does an initial fetch
// and begins polling. Safe to call once per reconciler.
func (r *Reconciler) Start(ctx context.Context) error {
	enabled, err := r.api.GetChatStatus(ctx, r.roomID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.enabled = enabled
	r.mu.Unlock()

	if !enabled {
		return nil
	}
	r.fetch(ctx)
	r.startPolling()
	return nil
}

// Stop halts background polling. The message list stays as-is.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopPollingLocked()
}

func (r *Reconciler) startPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pollStop != nil {
		return
	}
	stop := make(chan struct{})
	r.pollStop = stop
	go r.pollLoop(stop)
}

func (r *Reconciler) stopPollingLocked() {
	if r.pollStop != nil {
		close(r.pollStop)
		r.pollStop = nil
	}
}

func (r *Reconciler) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.pollInterval)
			r.fetch(ctx)
			cancel()
		}
	}
}

// fetch pulls the authoritative list and merges it. Poll failures are logged
// and retried on the next tick, never surfaced.
func (r *Reconciler) fetch(ctx context.Context) {
	server, err := r.api.GetMessages(ctx, r.roomID, fetchLimit)
	if err != nil {
		r.logger.Debug("message fetch failed", slog.Any("error", err))
		return
	}

	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return
	}
	r.messages = merge(server, r.messages, r.now())
	msgs, ls := r.snapshotLocked()
	r.mu.Unlock()
	notify(ls, msgs)
}

// Messages returns a copy of the current list.
func (r *Reconciler) Messages() []domain.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// Enabled reports the room-level chat flag as last seen.
func (r *Reconciler) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// Subscribe registers a listener for list changes; the returned function
// unsubscribes it.
func (r *Reconciler) Subscribe(fn func([]domain.ChatMessage)) func() {
	r.mu.Lock()
	id := r.nextListenerID
	r.nextListenerID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Send appends an optimistic placeholder in the caller's tick and confirms it
// in the background, so perceived latency is zero regardless of the network.
func (r *Reconciler) Send(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return domain.ErrChatDisabled
	}
	now := r.now()
	placeholder := domain.ChatMessage{
		ID:        domain.PlaceholderID(now),
		RoomID:    r.roomID,
		Text:      text,
		SenderID:  r.self.ID,
		Sender:    r.self,
		ClientKey: r.newKey(),
		CreatedAt: now,
		ExpiresAt: now.Add(r.retention),
	}
	r.messages = append(r.messages, placeholder)
	msgs, ls := r.snapshotLocked()
	r.mu.Unlock()
	notify(ls, msgs)

	go r.confirmSend(placeholder)
	return nil
}

func (r *Reconciler) confirmSend(placeholder domain.ChatMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	confirmed, err := r.api.SendMessage(ctx, r.roomID, placeholder.Text, placeholder.ClientKey)

	r.mu.Lock()
	idx := r.indexOfLocked(placeholder.ID)
	if idx < 0 {
		// Cleared by a disable or already superseded by a poll merge.
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.messages = append(r.messages[:idx], r.messages[idx+1:]...)
		msgs, ls := r.snapshotLocked()
		r.mu.Unlock()
		notify(ls, msgs)
		r.logger.Warn("message send failed", slog.Any("error", err))
		if r.onSendFailure != nil {
			r.onSendFailure(placeholder.Text, err)
		}
		return
	}
	r.messages[idx] = *confirmed
	msgs, ls := r.snapshotLocked()
	r.mu.Unlock()
	notify(ls, msgs)
}

// DeleteMessage removes a message. Placeholders are removed locally;
// confirmed messages are deleted on the server first.
func (r *Reconciler) DeleteMessage(ctx context.Context, id string) error {
	r.mu.Lock()
	idx := r.indexOfLocked(id)
	if idx < 0 {
		r.mu.Unlock()
		return domain.ErrMessageNotFound
	}
	msg := r.messages[idx]
	r.mu.Unlock()

	if !msg.IsPlaceholder() {
		if err := r.api.DeleteMessage(ctx, r.roomID, id); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if idx := r.indexOfLocked(id); idx >= 0 {
		r.messages = append(r.messages[:idx], r.messages[idx+1:]...)
	}
	msgs, ls := r.snapshotLocked()
	r.mu.Unlock()
	notify(ls, msgs)
	return nil
}

// ToggleChatEnabled flips the room-level flag. Disabling clears the rendered
// list and stops polling; enabling fetches immediately and resumes polling.
func (r *Reconciler) ToggleChatEnabled(ctx context.Context) (bool, error) {
	if !r.selfAdmin {
		return r.Enabled(), domain.ErrNotRoomAdmin
	}

	r.mu.Lock()
	target := !r.enabled
	r.mu.Unlock()

	if err := r.api.SetChatEnabled(ctx, r.roomID, target); err != nil {
		return !target, err
	}

	r.mu.Lock()
	r.enabled = target
	if !target {
		r.messages = nil
		r.stopPollingLocked()
	}
	msgs, ls := r.snapshotLocked()
	r.mu.Unlock()
	notify(ls, msgs)

	if target {
		r.fetch(ctx)
		r.startPolling()
	}
	return target, nil
}

// Ingest feeds one server-pushed message (live feed) through the same
// matching rules as a poll merge.
func (r *Reconciler) Ingest(msg domain.ChatMessage) {
	r.mu.Lock()
	if !r.enabled {
		r.mu.Unlock()
		return
	}
	replaced := false
	for i := range r.messages {
		if r.messages[i].ID == msg.ID {
			r.mu.Unlock()
			return
		}
		if r.messages[i].IsPlaceholder() && matches(msg, r.messages[i]) {
			r.messages[i] = msg
			replaced = true
			break
		}
	}
	if !replaced {
		r.messages = append(r.messages, msg)
	}
	msgs, ls := r.snapshotLocked()
	r.mu.Unlock()
	notify(ls, msgs)
}

func (r *Reconciler) indexOfLocked(id string) int {
	for i := range r.messages {
		if r.messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Reconciler) snapshotLocked() ([]domain.ChatMessage, []func([]domain.ChatMessage)) {
	msgs := make([]domain.ChatMessage, len(r.messages))
	copy(msgs, r.messages)
	ls := make([]func([]domain.ChatMessage), 0, len(r.listeners))
	for _, l := range r.listeners {
		ls = append(ls, l)
	}
	return msgs, ls
}

func notify(ls []func([]domain.ChatMessage), msgs []domain.ChatMessage) {
	for _, l := range ls {
		l(msgs)
	}
}

// merge reconciles the authoritative server list with outstanding local
// placeholders: matched placeholders are dropped (the server copy wins),
// unmatched live placeholders are preserved after the server list, expired
// ones are discarded. Running merge twice with the same inputs yields the
// same result.
func merge(server, local []domain.ChatMessage, now time.Time) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(server)+4)
	out = append(out, server...)

	for _, m := range local {
		if !m.IsPlaceholder() {
			continue
		}
		if !m.ExpiresAt.IsZero() && m.ExpiresAt.Before(now) {
			continue
		}
		superseded := false
		for _, s := range server {
			if matches(s, m) {
				superseded = true
				break
			}
		}
		if !superseded {
			out = append(out, m)
		}
	}
	return out
}

// matches pairs a server message with an optimistic placeholder. The echoed
// idempotency key is authoritative; text equality is the fallback for
// backends that do not echo it, and can collapse two identical texts sent
// back-to-back.
func matches(server, placeholder domain.ChatMessage) bool {
	if server.ClientKey != "" && placeholder.ClientKey != "" {
		return server.ClientKey == placeholder.ClientKey
	}
	return server.Text == placeholder.Text && server.SenderID == placeholder.SenderID
}
