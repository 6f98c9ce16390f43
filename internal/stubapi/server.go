// Package stubapi is an in-memory stand-in for the billing backend. It
// implements the REST and websocket surface the client consumes, so the core
// can run end-to-end in development and integration tests without the
// production service.
package stubapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

type account struct {
	ID           string
	Name         string
	Email        string
	Roles        []string
	AvatarURL    string
	PasswordHash []byte
}

type room struct {
	chatEnabled bool
	messages    []domain.ChatMessage
	conns       map[*websocket.Conn]bool
}

type Server struct {
	jwtSecret []byte
	logger    *slog.Logger
	retention time.Duration
	upgrader  websocket.Upgrader

	mu         sync.Mutex
	writeMu    sync.Mutex
	byEmail    map[string]*account
	byID       map[string]*account
	rooms      map[string]*room
	nextUserID int
	nextMsgID  int
}

func New(jwtSecret string, logger *slog.Logger) *Server {
	return &Server{
		jwtSecret: []byte(jwtSecret),
		logger:    logger.With(slog.String("component", "stubapi")),
		retention: 24 * time.Hour,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		byEmail:   make(map[string]*account),
		byID:      make(map[string]*account),
		rooms:     make(map[string]*room),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/google", s.handleGoogleLogin)
			r.Post("/facebook", s.handleFacebookLogin)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Get("/profile", s.handleGetProfile)
				r.Patch("/profile", s.handleUpdateProfile)
				r.Post("/logout", s.handleLogout)
			})
		})

		r.Route("/rooms/{roomID}", func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/messages", s.handleGetMessages)
			r.Post("/messages", s.handleSendMessage)
			r.Delete("/messages/{messageID}", s.handleDeleteMessage)
			r.Get("/chat-status", s.handleGetChatStatus)
			r.Put("/chat-status", s.handleSetChatStatus)
			r.Get("/live", s.handleLive)
		})
	})

	return r
}

// roomLocked returns the room, creating it chat-enabled on first touch.
func (s *Server) roomLocked(id string) *room {
	rm, ok := s.rooms[id]
	if !ok {
		rm = &room{chatEnabled: true, conns: make(map[*websocket.Conn]bool)}
		s.rooms[id] = rm
	}
	return rm
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// userJSON renders an account the way the production backend does: role is a
// bare string for single-role users and a list otherwise, avatar is an object
// with a url field. The client has to tolerate both role shapes.
func userJSON(a *account) map[string]any {
	out := map[string]any{
		"id":    a.ID,
		"name":  a.Name,
		"email": a.Email,
	}
	if len(a.Roles) == 1 {
		out["role"] = a.Roles[0]
	} else {
		out["role"] = a.Roles
	}
	if a.AvatarURL != "" {
		out["avatar"] = map[string]any{"url": a.AvatarURL}
	} else {
		out["avatar"] = nil
	}
	return out
}
