package stubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const userIDKey contextKey = "userID"

const tokenLifetime = 24 * time.Hour

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthRequest struct {
	AccessToken string `json:"accessToken"`
	IDToken     string `json:"idToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.mu.Lock()
	if _, exists := s.byEmail[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	a := s.createAccountLocked(req.Name, req.Email, []string{"client"})
	a.PasswordHash = hash
	s.mu.Unlock()

	s.respondAuth(w, a)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	a, ok := s.byEmail[req.Email]
	s.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.respondAuth(w, a)
}

// OAuth handlers accept any non-empty provider token and derive a synthetic
// identity from it. Good enough for development; never for production.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	s.handleOAuth(w, r, "google")
}

func (s *Server) handleFacebookLogin(w http.ResponseWriter, r *http.Request) {
	s.handleOAuth(w, r, "facebook")
}

func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request, provider string) {
	var req oauthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := req.AccessToken
	if token == "" {
		token = req.IDToken
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing provider token")
		return
	}

	email := fmt.Sprintf("%s-user@%s.example.com", provider, provider)

	s.mu.Lock()
	a, ok := s.byEmail[email]
	if !ok {
		a = s.createAccountLocked(provider+" user", email, []string{"client"})
	}
	s.mu.Unlock()

	s.respondAuth(w, a)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	a := s.accountFor(r.Context())
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(a)})
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	a := s.accountFor(r.Context())
	if a == nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Avatar != nil {
		a.AvatarURL = *req.Avatar
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"user": userJSON(a)})
}

func (s *Server) createAccountLocked(name, email string, roles []string) *account {
	s.nextUserID++
	a := &account{
		ID:    fmt.Sprintf("u%d", s.nextUserID),
		Name:  name,
		Email: email,
		Roles: roles,
	}
	s.byEmail[email] = a
	s.byID[a.ID] = a
	return a
}

func (s *Server) respondAuth(w http.ResponseWriter, a *account) {
	token, err := s.mintToken(a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userJSON(a),
	})
}

func (s *Server) mintToken(a *account) (string, error) {
	claims := jwt.MapClaims{
		"sub":  a.ID,
		"name": a.Name,
		"exp":  time.Now().Add(tokenLifetime).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			writeError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accountFor(ctx context.Context) *account {
	id, _ := ctx.Value(userIDKey).(string)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID[id]
}
