package stubapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}

	s.mu.Lock()
	rm := s.roomLocked(roomID)
	if !rm.chatEnabled {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "chat is disabled")
		return
	}
	msgs := make([]domain.ChatMessage, 0, limit)
	start := 0
	if len(rm.messages) > limit {
		start = len(rm.messages) - limit
	}
	msgs = append(msgs, rm.messages[start:]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

type sendMessageRequest struct {
	Text      string `json:"text"`
	ClientKey string `json:"clientKey"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	a := s.accountFor(r.Context())
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	roomID := chi.URLParam(r, "roomID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	s.mu.Lock()
	rm := s.roomLocked(roomID)
	if !rm.chatEnabled {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "chat is disabled")
		return
	}

	// Echo the idempotency key: a retried send with the same key returns the
	// already-stored message instead of a duplicate.
	if req.ClientKey != "" {
		for i := range rm.messages {
			if rm.messages[i].ClientKey == req.ClientKey {
				msg := rm.messages[i]
				s.mu.Unlock()
				writeJSON(w, http.StatusOK, map[string]any{"message": msg})
				return
			}
		}
	}

	s.nextMsgID++
	now := time.Now()
	msg := domain.ChatMessage{
		ID:        fmt.Sprintf("m%d", s.nextMsgID),
		RoomID:    roomID,
		Text:      req.Text,
		SenderID:  a.ID,
		ClientKey: req.ClientKey,
		Sender: domain.MessageSender{
			ID:        a.ID,
			Name:      a.Name,
			AvatarURL: a.AvatarURL,
		},
		CreatedAt: now,
		ExpiresAt: now.Add(s.retention),
	}
	rm.messages = append(rm.messages, msg)
	s.mu.Unlock()

	s.broadcast(roomID, msg)
	writeJSON(w, http.StatusCreated, map[string]any{"message": msg})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	messageID := chi.URLParam(r, "messageID")

	s.mu.Lock()
	rm := s.roomLocked(roomID)
	for i := range rm.messages {
		if rm.messages[i].ID == messageID {
			rm.messages = append(rm.messages[:i], rm.messages[i+1:]...)
			s.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	s.mu.Unlock()
	writeError(w, http.StatusNotFound, "message not found")
}

func (s *Server) handleGetChatStatus(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	s.mu.Lock()
	enabled := s.roomLocked(roomID).chatEnabled
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"chatEnabled": enabled})
}

type chatStatusRequest struct {
	ChatEnabled bool `json:"chatEnabled"`
}

func (s *Server) handleSetChatStatus(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	var req chatStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	rm := s.roomLocked(roomID)
	rm.chatEnabled = req.ChatEnabled
	if !req.ChatEnabled {
		rm.messages = nil
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"chatEnabled": req.ChatEnabled})
}

// handleLive upgrades to a websocket and pushes every new room message as a
// {"type":"message","message":{...}} event.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	rm := s.roomLocked(roomID)
	rm.conns[conn] = true
	s.mu.Unlock()

	// Reader loop only detects disconnect; the feed is one-way.
	go func() {
		defer func() {
			s.mu.Lock()
			delete(rm.conns, conn)
			s.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(roomID string, msg domain.ChatMessage) {
	event := map[string]any{"type": "message", "message": msg}

	s.mu.Lock()
	rm := s.roomLocked(roomID)
	conns := make([]connWriter, 0, len(rm.conns))
	for c := range rm.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	// gorilla allows one concurrent writer per connection.
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, c := range conns {
		if err := c.WriteJSON(event); err != nil {
			s.logger.Debug("live push failed", slog.Any("error", err))
		}
	}
}

type connWriter interface {
	WriteJSON(v any) error
}
