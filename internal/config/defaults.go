package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jdries/docpages/internal/normalize"
)

const (
	DefaultSourceBranch  = "master"
	DefaultPagesBranch   = "gh-pages"
	DefaultDocsPath      = "docs"
	DefaultDocsCommand   = "sphinx-build"
	DefaultDocsBuilder   = "html"
	DefaultPython        = "python3"
	DefaultStageTimeout  = 15 * time.Minute
	DefaultCommitMessage = "Publish documentation for {commit}"
	DefaultAuthorName    = "docpages"
	DefaultAuthorEmail   = "docpages@localhost"
	DefaultDaemonPort    = 8080
	DefaultQueueSize     = 16
	DefaultWorkers       = 1
	DefaultNATSSubject   = "docpages.publish"
)

// applyDefaults fills in unset fields. Called after decoding, before validation.
func (c *Config) applyDefaults() {
	if c.Source.Branch == "" {
		c.Source.Branch = DefaultSourceBranch
	}
	if c.Source.Path == "" {
		c.Source.Path = DefaultDocsPath
	}
	if c.Source.Name == "" {
		c.Source.Name = normalize.Slug(repoNameFromURL(c.Source.URL))
	}

	if c.Docs.Command == "" {
		c.Docs.Command = DefaultDocsCommand
	}
	if c.Docs.Builder == "" {
		c.Docs.Builder = DefaultDocsBuilder
	}
	if c.Docs.Python == "" {
		c.Docs.Python = DefaultPython
	}
	if c.Docs.Timeout <= 0 {
		c.Docs.Timeout = DefaultStageTimeout
	}

	if c.Pages.Branch == "" {
		c.Pages.Branch = DefaultPagesBranch
	}
	if c.Pages.RemoteURL == "" {
		c.Pages.RemoteURL = c.Source.URL
	}
	if c.Pages.Auth == nil {
		c.Pages.Auth = c.Source.Auth
	}
	if c.Pages.CommitMessage == "" {
		c.Pages.CommitMessage = DefaultCommitMessage
	}
	if c.Pages.AuthorName == "" {
		c.Pages.AuthorName = DefaultAuthorName
	}
	if c.Pages.AuthorEmail == "" {
		c.Pages.AuthorEmail = DefaultAuthorEmail
	}

	if c.Daemon != nil {
		if c.Daemon.Port <= 0 {
			c.Daemon.Port = DefaultDaemonPort
		}
		if c.Daemon.QueueSize <= 0 {
			c.Daemon.QueueSize = DefaultQueueSize
		}
		if c.Daemon.Workers <= 0 {
			c.Daemon.Workers = DefaultWorkers
		}
		if c.Daemon.NATS != nil && c.Daemon.NATS.Subject == "" {
			c.Daemon.NATS.Subject = DefaultNATSSubject
		}
	}
}

// applyEnvironment layers CI runner environment conventions over the config.
// GITHUB_REPOSITORY synthesizes source/pages URLs when none are configured, and
// GITHUB_ACTOR + GITHUB_TOKEN supply pages auth and commit authorship.
func applyEnvironment(c *Config) {
	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		if c.Source.URL == "" {
			c.Source.URL = fmt.Sprintf("https://github.com/%s.git", repo)
		}
		if c.Pages.RemoteURL == "" {
			c.Pages.RemoteURL = fmt.Sprintf("https://github.com/%s.git", repo)
		}
		if c.Source.Name == "" {
			c.Source.Name = normalize.Slug(repoNameFromURL(c.Source.URL))
		}
	}

	actor := os.Getenv("GITHUB_ACTOR")
	token := os.Getenv("GITHUB_TOKEN")
	if token != "" && c.Pages.Auth.IsZero() {
		username := actor
		if username == "" {
			username = "token"
		}
		c.Pages.Auth = &AuthConfig{Type: AuthTypeToken, Username: username, Token: token}
	}
	if actor != "" {
		if c.Pages.AuthorName == "" || c.Pages.AuthorName == DefaultAuthorName {
			c.Pages.AuthorName = actor
		}
		if c.Pages.AuthorEmail == "" || c.Pages.AuthorEmail == DefaultAuthorEmail {
			c.Pages.AuthorEmail = actor + "@users.noreply.github.com"
		}
	}
}

// repoNameFromURL extracts the trailing path segment of a repository URL
// without its .git suffix. Returns "" for unusable input.
func repoNameFromURL(url string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if idx := strings.LastIndexAny(trimmed, "/:"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}
