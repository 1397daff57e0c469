package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrgID(t *testing.T) {
	assert.Equal(t, "org:user", OrgID("user"))
	assert.Equal(t, "org:alice", OrgID("alice"))
}

func TestFixedCredentialAuthenticator_Defaults(t *testing.T) {
	a := NewFixedCredentialAuthenticator("", "")
	assert.Equal(t, "user", a.Username)
	assert.Equal(t, "pass", a.Password)
}

func TestValidateCredentials(t *testing.T) {
	a := NewFixedCredentialAuthenticator("user", "pass")

	tests := []struct {
		name string
		id   string
		pass string
		want bool
	}{
		{"valid pair", "user", "pass", true},
		{"wrong username", "admin", "pass", false},
		{"wrong password", "user", "hunter2", false},
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ValidateCredentials(tt.id, tt.pass))
		})
	}
}

func TestValidateNewUser(t *testing.T) {
	a := NewFixedCredentialAuthenticator("user", "pass")

	v := a.ValidateNewUser("user", "pass")
	assert.True(t, v.OK)
	assert.Empty(t, v.Errors)

	v = a.ValidateNewUser("bob", "pass")
	assert.False(t, v.OK)
	assert.Contains(t, v.Errors, "username")

	v = a.ValidateNewUser("user", "letmein")
	assert.False(t, v.OK)
	assert.Contains(t, v.Errors, "password")
}
