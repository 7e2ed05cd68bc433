package providers

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/jdries/docpages/internal/config"
)

// NoneProvider handles repositories that need no authentication.
type NoneProvider struct{}

// NewNoneProvider creates a new no-auth provider.
func NewNoneProvider() *NoneProvider { return &NoneProvider{} }

func (p *NoneProvider) Type() config.AuthType { return config.AuthTypeNone }

func (p *NoneProvider) CreateAuth(*config.AuthConfig) (transport.AuthMethod, error) {
	return nil, nil
}

func (p *NoneProvider) ValidateConfig(*config.AuthConfig) error { return nil }

func (p *NoneProvider) Name() string { return "NoneProvider" }
