package auth

import (
	"testing"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdries/docpages/internal/config"
)

func TestCreateAuthNone(t *testing.T) {
	method, err := CreateAuth(nil)
	require.NoError(t, err)
	assert.Nil(t, method)

	method, err = CreateAuth(&config.AuthConfig{Type: config.AuthTypeNone})
	require.NoError(t, err)
	assert.Nil(t, method)
}

func TestCreateAuthToken(t *testing.T) {
	method, err := CreateAuth(&config.AuthConfig{Type: config.AuthTypeToken, Token: "tok", Username: "octocat"})
	require.NoError(t, err)

	basic, ok := method.(*githttp.BasicAuth)
	require.True(t, ok, "token auth should be HTTP basic")
	assert.Equal(t, "octocat", basic.Username)
	assert.Equal(t, "tok", basic.Password)
}

func TestCreateAuthTokenDefaultUsername(t *testing.T) {
	method, err := CreateAuth(&config.AuthConfig{Type: config.AuthTypeToken, Token: "tok"})
	require.NoError(t, err)
	basic := method.(*githttp.BasicAuth)
	assert.Equal(t, "token", basic.Username)
}

func TestCreateAuthBasicValidation(t *testing.T) {
	_, err := CreateAuth(&config.AuthConfig{Type: config.AuthTypeBasic, Username: "u"})
	assert.Error(t, err)
}

func TestCreateAuthUnsupported(t *testing.T) {
	_, err := CreateAuth(&config.AuthConfig{Type: "kerberos"})
	assert.Error(t, err)
}
