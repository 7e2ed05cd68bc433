// Package auth maps configured credentials onto go-git transport auth methods.
package auth

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/jdries/docpages/internal/auth/providers"
	"github.com/jdries/docpages/internal/config"
)

// Manager provides a high-level interface for authentication operations.
type Manager struct {
	registry *providers.Registry
}

// NewManager creates a new authentication manager with the standard providers.
func NewManager() *Manager {
	return &Manager{registry: providers.NewRegistry()}
}

// CreateAuth creates authentication for the given configuration.
// This is the main entry point for git operations needing authentication.
// A nil or "none" configuration yields a nil AuthMethod (anonymous access).
func (m *Manager) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	if authCfg.IsZero() {
		return nil, nil
	}
	provider, ok := m.registry.Get(authCfg.Type)
	if !ok {
		return nil, fmt.Errorf("unsupported authentication type %q", authCfg.Type)
	}
	if err := provider.ValidateConfig(authCfg); err != nil {
		return nil, fmt.Errorf("auth config invalid (%s): %w", authCfg.Type, err)
	}
	return provider.CreateAuth(authCfg)
}

// DefaultManager is a package-level instance for convenience.
var DefaultManager = NewManager()

// CreateAuth is a convenience function that uses the default manager.
func CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	return DefaultManager.CreateAuth(authCfg)
}
