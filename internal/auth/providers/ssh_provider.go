package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/jdries/docpages/internal/config"
)

// SSHProvider handles SSH key authentication.
type SSHProvider struct{}

// NewSSHProvider creates a new SSH authentication provider.
func NewSSHProvider() *SSHProvider { return &SSHProvider{} }

func (p *SSHProvider) Type() config.AuthType { return config.AuthTypeSSH }

func (p *SSHProvider) CreateAuth(authCfg *config.AuthConfig) (transport.AuthMethod, error) {
	keyPath := p.keyPath(authCfg)
	publicKeys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
	}
	return publicKeys, nil
}

func (p *SSHProvider) ValidateConfig(authCfg *config.AuthConfig) error {
	keyPath := p.keyPath(authCfg)
	if _, err := os.Stat(keyPath); os.IsNotExist(err) {
		return fmt.Errorf("SSH key file does not exist: %s", keyPath)
	}
	return nil
}

func (p *SSHProvider) keyPath(authCfg *config.AuthConfig) string {
	if authCfg.KeyPath != "" {
		return authCfg.KeyPath
	}
	return filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
}

func (p *SSHProvider) Name() string { return "SSHProvider" }
