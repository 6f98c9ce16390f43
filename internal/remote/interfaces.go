package remote

import (
	"context"

	"github.com/dvir/roombill-client/internal/domain"
)

type Credentials struct {
	Email    string
	Password string
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// OAuthInput carries the provider-issued token from a native OAuth flow.
type OAuthInput struct {
	AccessToken string
	IDToken     string
}

type UpdateProfileInput struct {
	Name   *string
	Avatar *string // data URI or URL payload, server decides storage
}

type AuthResult struct {
	Token string
	User  *domain.User
}

// TokenCarrier lets the session manager install or clear the bearer token the
// client attaches to authenticated calls.
type TokenCarrier interface {
	SetToken(token string)
}

type AuthAPI interface {
	TokenCarrier
	Login(ctx context.Context, creds Credentials) (*AuthResult, error)
	Register(ctx context.Context, input SignUpInput) (*AuthResult, error)
	GoogleLogin(ctx context.Context, input OAuthInput) (*AuthResult, error)
	FacebookLogin(ctx context.Context, input OAuthInput) (*AuthResult, error)
	GetProfile(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, input UpdateProfileInput) (*domain.User, error)
	// Logout is best-effort; callers ignore its error.
	Logout(ctx context.Context) error
}

type ChatAPI interface {
	TokenCarrier
	GetMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	SendMessage(ctx context.Context, roomID, text, clientKey string) (*domain.ChatMessage, error)
	GetChatStatus(ctx context.Context, roomID string) (bool, error)
	SetChatEnabled(ctx context.Context, roomID string, enabled bool) error
	DeleteMessage(ctx context.Context, roomID, messageID string) error
}
