// Package git wraps go-git for the two sides of a publish run: checking out
// the source repository and force-pushing the rendered tree to the pages branch.
package git

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/jdries/docpages/internal/auth"
	appcfg "github.com/jdries/docpages/internal/config"
	"github.com/jdries/docpages/internal/retry"
)

// Client handles Git operations rooted in a workspace directory.
type Client struct {
	workspaceDir  string
	shallowDepth  int
	policy        retry.Policy
	retries       bool
	inRetry       bool // internal guard to avoid nested retry wrapping
	retryObserver func(op string)
}

// NewClient creates a new Git client with the specified workspace directory.
func NewClient(workspaceDir string) *Client {
	return &Client{workspaceDir: workspaceDir, policy: retry.DefaultPolicy()}
}

// WithShallowDepth limits clone/fetch history depth (fluent helper).
func (c *Client) WithShallowDepth(depth int) *Client { c.shallowDepth = depth; return c }

// WithRetry enables transient-failure retries using the given policy.
func (c *Client) WithRetry(p retry.Policy) *Client { c.policy = p; c.retries = true; return c }

// WithRetryObserver registers a callback invoked once per retry attempt,
// labelled with the operation name.
func (c *Client) WithRetryObserver(fn func(op string)) *Client { c.retryObserver = fn; return c }

// CloneRepository clones the source repository into the workspace, replacing
// any previous checkout (with retry wrapper if enabled).
func (c *Client) CloneRepository(src appcfg.SourceConfig) (string, error) {
	if c.inRetry || !c.retries {
		return c.cloneOnce(src)
	}
	return c.withRetry("clone", src.Name, func() (string, error) { return c.cloneOnce(src) })
}

func (c *Client) cloneOnce(src appcfg.SourceConfig) (string, error) {
	repoPath := filepath.Join(c.workspaceDir, src.Name)
	slog.Debug("Cloning repository",
		slog.String("url", src.URL), slog.String("name", src.Name),
		slog.String("branch", src.Branch), slog.String("path", repoPath))
	if err := os.RemoveAll(repoPath); err != nil {
		return "", fmt.Errorf("failed to remove existing directory: %w", err)
	}

	cloneOptions := &git.CloneOptions{URL: src.URL}
	if src.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
		cloneOptions.SingleBranch = true
	}
	if c.shallowDepth > 0 {
		cloneOptions.Depth = c.shallowDepth
	}
	if !src.Auth.IsZero() {
		method, err := auth.CreateAuth(src.Auth)
		if err != nil {
			return "", fmt.Errorf("failed to setup authentication: %w", err)
		}
		cloneOptions.Auth = method
	}

	repository, err := git.PlainClone(repoPath, false, cloneOptions)
	if err != nil {
		return "", classifyCloneError(src.URL, err)
	}

	if ref, herr := repository.Head(); herr == nil {
		slog.Info("Repository cloned successfully",
			slog.String("name", src.Name), slog.String("commit", shortHash(ref.Hash().String())))
	} else {
		slog.Info("Repository cloned successfully", slog.String("name", src.Name))
	}
	return repoPath, nil
}

// UpdateRepository updates an existing checkout or clones if missing.
func (c *Client) UpdateRepository(src appcfg.SourceConfig) (string, error) {
	if c.inRetry || !c.retries {
		return c.updateOnce(src)
	}
	return c.withRetry("update", src.Name, func() (string, error) { return c.updateOnce(src) })
}

func (c *Client) updateOnce(src appcfg.SourceConfig) (string, error) {
	repoPath := filepath.Join(c.workspaceDir, src.Name)
	if _, err := os.Stat(filepath.Join(repoPath, ".git")); err != nil { // missing => clone
		slog.Debug("Repository missing, cloning", slog.String("name", src.Name))
		return c.cloneOnce(src)
	}
	return c.updateExisting(repoPath, src)
}

func (c *Client) updateExisting(repoPath string, src appcfg.SourceConfig) (string, error) {
	repository, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	wt, err := repository.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}

	if err := c.fetchOrigin(repository, src); err != nil {
		return "", classifyFetchError(src.URL, err)
	}

	branch := src.Branch
	if branch == "" {
		branch = appcfg.DefaultSourceBranch
	}
	remoteRef, err := repository.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return "", fmt.Errorf("remote ref for %s: %w", branch, err)
	}

	// Hard reset to the remote tip. Local history is disposable: the checkout
	// exists only to feed the next render.
	localBranchRef := plumbing.NewBranchReferenceName(branch)
	if err := wt.Checkout(&git.CheckoutOptions{Branch: localBranchRef, Create: !branchExists(repository, localBranchRef), Force: true}); err != nil {
		return "", fmt.Errorf("checkout %s: %w", branch, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return "", fmt.Errorf("reset to %s: %w", shortHash(remoteRef.Hash().String()), err)
	}

	slog.Info("Repository updated",
		slog.String("name", src.Name), slog.String("branch", branch),
		slog.String("commit", shortHash(remoteRef.Hash().String())))
	return repoPath, nil
}

func (c *Client) fetchOrigin(repository *git.Repository, src appcfg.SourceConfig) error {
	fetchOpts := &git.FetchOptions{RemoteName: "origin", Tags: git.NoTags}
	if c.shallowDepth > 0 {
		fetchOpts.Depth = c.shallowDepth
	}
	if !src.Auth.IsZero() {
		method, err := auth.CreateAuth(src.Auth)
		if err != nil {
			return err
		}
		fetchOpts.Auth = method
	}
	if err := repository.Fetch(fetchOpts); err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func branchExists(repository *git.Repository, ref plumbing.ReferenceName) bool {
	_, err := repository.Reference(ref, true)
	return err == nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// classifyCloneError wraps underlying go-git errors into typed permanent or
// transient failures so callers can decide on retries without string parsing.
func classifyCloneError(url string, err error) error {
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "authentication") || strings.Contains(l, "auth fail") || strings.Contains(l, "invalid username or password"):
		return &AuthError{Op: "clone", URL: url, Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: "clone", URL: url, Err: err}
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "protocol not supported"):
		return &UnsupportedProtocolError{Op: "clone", URL: url, Err: err}
	case strings.Contains(l, "rate limit") || strings.Contains(l, "too many requests"):
		return &RateLimitError{Op: "clone", URL: url, Err: err}
	case strings.Contains(l, "timeout") || strings.Contains(l, "i/o timeout"):
		return &NetworkTimeoutError{Op: "clone", URL: url, Err: err}
	}
	return fmt.Errorf("failed to clone repository %s: %w", url, err)
}
