package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Source SourceConfig  `yaml:"source"`
	Docs   DocsConfig    `yaml:"docs"`
	Pages  PagesConfig   `yaml:"pages"`
	Daemon *DaemonConfig `yaml:"daemon,omitempty"`
}

// SourceConfig describes the repository whose documentation is built.
type SourceConfig struct {
	URL    string      `yaml:"url"`
	Name   string      `yaml:"name,omitempty"`
	Branch string      `yaml:"branch,omitempty"` // trigger/checkout branch, defaults to master
	Auth   *AuthConfig `yaml:"auth,omitempty"`
	Path   string      `yaml:"path,omitempty"` // docs sources relative to repo root, defaults to docs
}

// DocsConfig controls the external documentation generator invocation.
type DocsConfig struct {
	Command      string            `yaml:"command,omitempty"` // defaults to sphinx-build
	Builder      string            `yaml:"builder,omitempty"` // sphinx builder name, defaults to html
	ExtraArgs    []string          `yaml:"extra_args,omitempty"`
	Requirements string            `yaml:"requirements,omitempty"` // pip requirements file, installed before the build when set
	Python       string            `yaml:"python,omitempty"`       // interpreter used for the install step, defaults to python3
	Env          map[string]string `yaml:"env,omitempty"`
	Timeout      time.Duration     `yaml:"timeout,omitempty"` // per-stage timeout, defaults to 15m
}

// PagesConfig controls where and how the rendered tree is published.
type PagesConfig struct {
	Branch        string      `yaml:"branch,omitempty"` // defaults to gh-pages
	RemoteURL     string      `yaml:"remote_url,omitempty"`
	Auth          *AuthConfig `yaml:"auth,omitempty"`
	AuthorName    string      `yaml:"author_name,omitempty"`
	AuthorEmail   string      `yaml:"author_email,omitempty"`
	CommitMessage string      `yaml:"commit_message,omitempty"`
	CNAME         string      `yaml:"cname,omitempty"`
	NoJekyll      *bool       `yaml:"nojekyll,omitempty"` // defaults to true
}

// DaemonConfig holds daemon-mode settings (webhook server, queue, schedule).
type DaemonConfig struct {
	Port          int           `yaml:"port,omitempty"`           // defaults to 8080
	WebhookSecret string        `yaml:"webhook_secret,omitempty"` // HMAC secret; unset disables signature checks
	QueueSize     int           `yaml:"queue_size,omitempty"`
	Workers       int           `yaml:"workers,omitempty"`
	Schedule      time.Duration `yaml:"schedule,omitempty"` // periodic publish interval; zero disables
	DataDir       string        `yaml:"data_dir,omitempty"` // event store + persistent workspace
	Metrics       bool          `yaml:"metrics"`
	NATS          *NATSConfig   `yaml:"nats,omitempty"`
}

// NATSConfig enables publishing run lifecycle events to a NATS subject.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject,omitempty"`
}

// NoJekyllEnabled reports whether the .nojekyll marker should be written (default true).
func (p *PagesConfig) NoJekyllEnabled() bool {
	return p.NoJekyll == nil || *p.NoJekyll
}

// Load loads configuration from the specified file.
// Environment variables are expanded in the raw YAML before decoding, so values
// like token: ${GITHUB_TOKEN} resolve against the process environment.
func Load(configPath string) (*Config, error) {
	LoadDotEnv()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()
	applyEnvironment(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		Source: SourceConfig{
			URL:    "https://github.com/example/project.git",
			Branch: "master",
			Path:   "docs",
		},
		Docs: DocsConfig{
			Command:      "sphinx-build",
			Builder:      "html",
			Requirements: "docs/requirements.txt",
		},
		Pages: PagesConfig{
			Branch:        "gh-pages",
			CommitMessage: "Publish documentation for {commit}",
			Auth: &AuthConfig{
				Type:  AuthTypeToken,
				Token: "${GITHUB_TOKEN}",
			},
		},
		Daemon: &DaemonConfig{
			Port:      8080,
			QueueSize: 16,
			Workers:   1,
			Metrics:   true,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	header := "# docpages configuration\n# Values of the form ${VAR} are expanded from the environment at load time.\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
