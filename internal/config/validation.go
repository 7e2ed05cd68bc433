package config

import (
	"fmt"
	"strings"
)

// Validate checks invariants that defaulting cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if c.Source.URL == "" {
		problems = append(problems, "source.url is required (or set GITHUB_REPOSITORY)")
	}
	if err := validateAuth("source.auth", c.Source.Auth); err != nil {
		problems = append(problems, err.Error())
	}
	if err := validateAuth("pages.auth", c.Pages.Auth); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Pages.Branch == c.Source.Branch {
		problems = append(problems, fmt.Sprintf("pages.branch %q must differ from source.branch (a publish force-pushes and would destroy the source branch)", c.Pages.Branch))
	}
	if c.Daemon != nil {
		if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
			problems = append(problems, fmt.Sprintf("daemon.port %d out of range", c.Daemon.Port))
		}
		if c.Daemon.NATS != nil && c.Daemon.NATS.URL == "" {
			problems = append(problems, "daemon.nats.url is required when the nats section is present")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateAuth(field string, a *AuthConfig) error {
	if a.IsZero() {
		return nil
	}
	switch a.Type {
	case AuthTypeToken:
		if a.Token == "" {
			return fmt.Errorf("%s: token auth requires a token", field)
		}
	case AuthTypeBasic:
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("%s: basic auth requires username and password", field)
		}
	case AuthTypeSSH:
		if a.KeyPath == "" {
			return fmt.Errorf("%s: ssh auth requires key_path", field)
		}
	default:
		return fmt.Errorf("%s: unsupported auth type %q", field, a.Type)
	}
	return nil
}
