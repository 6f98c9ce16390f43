package chat

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/gorilla/websocket"
)

const reconnectDelay = 3 * time.Second

// LiveFeed streams server-pushed messages into a reconciler over a websocket,
// as a lower-latency alternative to polling. Pushed messages go through the
// same matching rules as a poll merge, so running both at once is safe.
type LiveFeed struct {
	url            string
	token          string
	rec            *Reconciler
	logger         *slog.Logger
	reconnectDelay time.Duration
}

// liveEvent is the wire shape of one pushed chat event.
type liveEvent struct {
	Type    string             `json:"type"`
	Message domain.ChatMessage `json:"message"`
}

func NewLiveFeed(wsURL, token string, rec *Reconciler, logger *slog.Logger) *LiveFeed {
	return &LiveFeed{
		url:            wsURL,
		token:          token,
		rec:            rec,
		logger:         logger.With(slog.String("component", "chat_live")),
		reconnectDelay: reconnectDelay,
	}
}

// Run keeps a connection open until ctx is cancelled, reconnecting after
// transient failures. Feed errors are logged, never surfaced: polling remains
// the correctness baseline.
func (f *LiveFeed) Run(ctx context.Context) {
	for {
		if err := f.connectAndRead(ctx); err != nil {
			f.logger.Debug("live feed disconnected", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.reconnectDelay):
		}
	}
}

func (f *LiveFeed) connectAndRead(ctx context.Context) error {
	header := http.Header{}
	if f.token != "" {
		header.Set("Authorization", "Bearer "+f.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, f.url, header)
	if err != nil {
		return err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	// The watcher must not outlive this connection: tie it to a
	// per-connection done channel so a dropped link does not leave one
	// goroutine behind per reconnect.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var ev liveEvent
		if err := conn.ReadJSON(&ev); err != nil {
			return err
		}
		if ev.Type != "message" {
			continue
		}
		if ev.Message.RoomID != "" && ev.Message.RoomID != f.rec.roomID {
			continue
		}
		f.rec.Ingest(ev.Message)
	}
}
