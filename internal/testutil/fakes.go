package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/remote"
	"github.com/dvir/roombill-client/internal/store"
)

var errNotScripted = errors.New("fake: call not scripted")

// FakeAuthAPI scripts the auth boundary with per-call function fields. Calls
// without a script fail, so a test only exercises what it declares.
type FakeAuthAPI struct {
	mu    sync.Mutex
	token string

	LoginFn         func(ctx context.Context, creds remote.Credentials) (*remote.AuthResult, error)
	RegisterFn      func(ctx context.Context, input remote.SignUpInput) (*remote.AuthResult, error)
	GoogleLoginFn   func(ctx context.Context, input remote.OAuthInput) (*remote.AuthResult, error)
	FacebookLoginFn func(ctx context.Context, input remote.OAuthInput) (*remote.AuthResult, error)
	GetProfileFn    func(ctx context.Context) (*domain.User, error)
	UpdateProfileFn func(ctx context.Context, input remote.UpdateProfileInput) (*domain.User, error)
	LogoutFn        func(ctx context.Context) error

	LogoutCalls int
}

var _ remote.AuthAPI = (*FakeAuthAPI)(nil)

func (f *FakeAuthAPI) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

// Token returns the last token installed via SetToken.
func (f *FakeAuthAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *FakeAuthAPI) Login(ctx context.Context, creds remote.Credentials) (*remote.AuthResult, error) {
	if f.LoginFn == nil {
		return nil, errNotScripted
	}
	return f.LoginFn(ctx, creds)
}

func (f *FakeAuthAPI) Register(ctx context.Context, input remote.SignUpInput) (*remote.AuthResult, error) {
	if f.RegisterFn == nil {
		return nil, errNotScripted
	}
	return f.RegisterFn(ctx, input)
}

func (f *FakeAuthAPI) GoogleLogin(ctx context.Context, input remote.OAuthInput) (*remote.AuthResult, error) {
	if f.GoogleLoginFn == nil {
		return nil, errNotScripted
	}
	return f.GoogleLoginFn(ctx, input)
}

func (f *FakeAuthAPI) FacebookLogin(ctx context.Context, input remote.OAuthInput) (*remote.AuthResult, error) {
	if f.FacebookLoginFn == nil {
		return nil, errNotScripted
	}
	return f.FacebookLoginFn(ctx, input)
}

func (f *FakeAuthAPI) GetProfile(ctx context.Context) (*domain.User, error) {
	if f.GetProfileFn == nil {
		return nil, errNotScripted
	}
	return f.GetProfileFn(ctx)
}

func (f *FakeAuthAPI) UpdateProfile(ctx context.Context, input remote.UpdateProfileInput) (*domain.User, error) {
	if f.UpdateProfileFn == nil {
		return nil, errNotScripted
	}
	return f.UpdateProfileFn(ctx, input)
}

func (f *FakeAuthAPI) Logout(ctx context.Context) error {
	f.mu.Lock()
	f.LogoutCalls++
	f.mu.Unlock()
	if f.LogoutFn == nil {
		return nil
	}
	return f.LogoutFn(ctx)
}

// FakeChatAPI scripts the chat boundary.
type FakeChatAPI struct {
	mu    sync.Mutex
	token string

	GetMessagesFn    func(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
	SendMessageFn    func(ctx context.Context, roomID, text, clientKey string) (*domain.ChatMessage, error)
	GetChatStatusFn  func(ctx context.Context, roomID string) (bool, error)
	SetChatEnabledFn func(ctx context.Context, roomID string, enabled bool) error
	DeleteMessageFn  func(ctx context.Context, roomID, messageID string) error
}

var _ remote.ChatAPI = (*FakeChatAPI)(nil)

func (f *FakeChatAPI) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *FakeChatAPI) GetMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	if f.GetMessagesFn == nil {
		return nil, errNotScripted
	}
	return f.GetMessagesFn(ctx, roomID, limit)
}

func (f *FakeChatAPI) SendMessage(ctx context.Context, roomID, text, clientKey string) (*domain.ChatMessage, error) {
	if f.SendMessageFn == nil {
		return nil, errNotScripted
	}
	return f.SendMessageFn(ctx, roomID, text, clientKey)
}

func (f *FakeChatAPI) GetChatStatus(ctx context.Context, roomID string) (bool, error) {
	if f.GetChatStatusFn == nil {
		return false, errNotScripted
	}
	return f.GetChatStatusFn(ctx, roomID)
}

func (f *FakeChatAPI) SetChatEnabled(ctx context.Context, roomID string, enabled bool) error {
	if f.SetChatEnabledFn == nil {
		return errNotScripted
	}
	return f.SetChatEnabledFn(ctx, roomID, enabled)
}

func (f *FakeChatAPI) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	if f.DeleteMessageFn == nil {
		return errNotScripted
	}
	return f.DeleteMessageFn(ctx, roomID, messageID)
}

// FailingBlobStore wraps a GeneralStore and fails selected operations, for
// asserting that persistence failures are swallowed.
type FailingBlobStore struct {
	Inner       store.GeneralStore
	FailGets    bool
	FailSets    bool
	FailRemoves bool
}

var _ store.GeneralStore = (*FailingBlobStore)(nil)

var ErrStoreBroken = errors.New("store broken")

func (f *FailingBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.FailGets {
		return nil, ErrStoreBroken
	}
	return f.Inner.Get(ctx, key)
}

func (f *FailingBlobStore) Set(ctx context.Context, key string, value []byte) error {
	if f.FailSets {
		return ErrStoreBroken
	}
	return f.Inner.Set(ctx, key, value)
}

func (f *FailingBlobStore) Remove(ctx context.Context, key string) error {
	if f.FailRemoves {
		return ErrStoreBroken
	}
	return f.Inner.Remove(ctx, key)
}
