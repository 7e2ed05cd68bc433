package providers

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/jdries/docpages/internal/config"
)

// BasicProvider handles basic username/password authentication.
type BasicProvider struct{}

// NewBasicProvider creates a new basic authentication provider.
func NewBasicProvider() *BasicProvider { return &BasicProvider{} }

func (p *BasicProvider) Type() config.AuthType { return config.AuthTypeBasic }

func (p *BasicProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg.Username == "" || authCfg.Password == "" {
		return nil, fmt.Errorf("basic authentication requires username and password")
	}
	return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
}

func (p *BasicProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	if authCfg.Username == "" {
		return fmt.Errorf("basic authentication requires a username")
	}
	if authCfg.Password == "" {
		return fmt.Errorf("basic authentication requires a password")
	}
	return nil
}

func (p *BasicProvider) Name() string { return "BasicProvider" }
