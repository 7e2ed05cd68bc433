package providers

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/jdries/docpages/internal/config"
)

// TokenProvider handles token-based authentication over HTTP.
type TokenProvider struct{}

// NewTokenProvider creates a new token authentication provider.
func NewTokenProvider() *TokenProvider { return &TokenProvider{} }

func (p *TokenProvider) Type() config.AuthType { return config.AuthTypeToken }

// CreateAuth creates token authentication from the configuration.
// Git hosting services accept the token as the HTTP basic password; the
// username is the configured actor, falling back to the literal "token".
func (p *TokenProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg.Token == "" {
		return nil, fmt.Errorf("token authentication requires a token")
	}
	username := authCfg.Username
	if username == "" {
		username = "token"
	}
	return &http.BasicAuth{Username: username, Password: authCfg.Token}, nil
}

func (p *TokenProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Token == "" {
		return fmt.Errorf("token authentication requires a token")
	}
	return nil
}

func (p *TokenProvider) Name() string { return "TokenProvider" }
