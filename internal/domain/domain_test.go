package domain_test

import (
	"testing"
	"time"

	"github.com/dvir/roombill-client/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestViewForRoles(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  domain.View
	}{
		{name: "admin", roles: []string{"admin"}, want: domain.ViewAdmin},
		{name: "admin wins over host", roles: []string{"host", "admin"}, want: domain.ViewAdmin},
		{name: "host", roles: []string{"host"}, want: domain.ViewHost},
		{name: "client", roles: []string{"client"}, want: domain.ViewClient},
		{name: "unknown role defaults to client", roles: []string{"superuser"}, want: domain.ViewClient},
		{name: "no roles defaults to client", roles: nil, want: domain.ViewClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.ViewForRoles(tt.roles))
		})
	}
}

func TestPlaceholderID(t *testing.T) {
	now := time.Now()
	m := domain.ChatMessage{ID: domain.PlaceholderID(now)}
	assert.True(t, m.IsPlaceholder())

	confirmed := domain.ChatMessage{ID: "m42"}
	assert.False(t, confirmed.IsPlaceholder())
}

func TestHasRole(t *testing.T) {
	u := &domain.User{Roles: []string{"host", "client"}}
	assert.True(t, u.HasRole("host"))
	assert.False(t, u.HasRole("admin"))
}
