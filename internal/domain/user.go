package domain

import "time"

// View is the UI surface a signed-in user currently sees. Elevated users can
// switch to a lower-privilege view without re-authenticating.
type View string

const (
	ViewAdmin  View = "admin"
	ViewHost   View = "host"
	ViewClient View = "client"
)

// ViewForRoles maps a user's roles to their default view. Unknown or empty
// role sets default to the client view.
func ViewForRoles(roles []string) View {
	for _, r := range roles {
		if r == "admin" {
			return ViewAdmin
		}
	}
	for _, r := range roles {
		if r == "host" {
			return ViewHost
		}
	}
	return ViewClient
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RecentAccount is one entry of the most-recent-first account list shown on
// the sign-in screen.
type RecentAccount struct {
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}
