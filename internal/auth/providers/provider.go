package providers

import (
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/jdries/docpages/internal/config"
)

// Provider defines the interface for authentication providers.
// Each provider handles a specific authentication method (ssh, token, basic, none).
type Provider interface {
	// Type returns the authentication type this provider handles.
	Type() config.AuthType

	// CreateAuth creates a transport.AuthMethod from the given configuration.
	// Returns nil, nil for no authentication.
	CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error)

	// ValidateConfig validates the authentication configuration for this provider.
	ValidateConfig(authCfg *config.AuthConfig) error

	// Name returns a human-readable name for this provider (for logging/debugging).
	Name() string
}

// Registry manages the collection of available auth providers.
type Registry struct {
	providers map[config.AuthType]Provider
}

// NewRegistry creates a registry with the standard providers.
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[config.AuthType]Provider)}
	r.Register(NewNoneProvider())
	r.Register(NewSSHProvider())
	r.Register(NewTokenProvider())
	r.Register(NewBasicProvider())
	return r
}

// Register adds a provider to the registry.
func (r *Registry) Register(p Provider) {
	r.providers[p.Type()] = p
}

// Get returns the provider for the given auth type.
func (r *Registry) Get(authType config.AuthType) (Provider, bool) {
	p, ok := r.providers[authType]
	return p, ok
}
