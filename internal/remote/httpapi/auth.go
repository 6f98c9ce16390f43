package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/dvir/roombill-client/internal/remote"
	"github.com/tidwall/gjson"
)

func (c *Client) Login(ctx context.Context, creds remote.Credentials) (*remote.AuthResult, error) {
	body := map[string]string{"email": creds.Email, "password": creds.Password}
	return c.authCall(ctx, "/auth/login", body)
}

func (c *Client) Register(ctx context.Context, input remote.SignUpInput) (*remote.AuthResult, error) {
	body := map[string]string{"name": input.Name, "email": input.Email, "password": input.Password}
	return c.authCall(ctx, "/auth/register", body)
}

func (c *Client) GoogleLogin(ctx context.Context, input remote.OAuthInput) (*remote.AuthResult, error) {
	body := map[string]string{"accessToken": input.AccessToken, "idToken": input.IDToken}
	return c.authCall(ctx, "/auth/google", body)
}

func (c *Client) FacebookLogin(ctx context.Context, input remote.OAuthInput) (*remote.AuthResult, error) {
	body := map[string]string{"accessToken": input.AccessToken}
	return c.authCall(ctx, "/auth/facebook", body)
}

func (c *Client) authCall(ctx context.Context, path string, body any) (*remote.AuthResult, error) {
	respBody, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(respBody)
	token := root.Get("token").String()
	if token == "" {
		return nil, fmt.Errorf("auth response missing token")
	}
	return &remote.AuthResult{
		Token: token,
		User:  parseUser(root.Get("user")),
	}, nil
}

func (c *Client) GetProfile(ctx context.Context) (*domain.User, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/auth/profile", nil)
	if err != nil {
		return nil, err
	}
	return parseUser(gjson.GetBytes(respBody, "user")), nil
}

func (c *Client) UpdateProfile(ctx context.Context, input remote.UpdateProfileInput) (*domain.User, error) {
	body := map[string]any{}
	if input.Name != nil {
		body["name"] = *input.Name
	}
	if input.Avatar != nil {
		body["avatar"] = *input.Avatar
	}
	respBody, err := c.do(ctx, http.MethodPatch, "/auth/profile", body)
	if err != nil {
		return nil, err
	}
	return parseUser(gjson.GetBytes(respBody, "user")), nil
}

func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/auth/logout", nil)
	return err
}

// parseUser decodes the backend's user object, tolerating the two role shapes
// (single string or list) and the two avatar shapes (bare URL string or an
// object carrying a url field, possibly null).
func parseUser(v gjson.Result) *domain.User {
	u := &domain.User{
		ID:    v.Get("id").String(),
		Name:  v.Get("name").String(),
		Email: v.Get("email").String(),
	}

	role := v.Get("role")
	switch {
	case role.IsArray():
		for _, r := range role.Array() {
			u.Roles = append(u.Roles, r.String())
		}
	case role.Type == gjson.String:
		u.Roles = []string{role.String()}
	}

	avatar := v.Get("avatar")
	switch {
	case avatar.Type == gjson.String:
		u.AvatarURL = avatar.String()
	case avatar.IsObject():
		u.AvatarURL = avatar.Get("url").String()
	}

	if t := v.Get("updatedAt"); t.Exists() {
		u.UpdatedAt = t.Time()
	}
	return u
}
