package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/jdries/docpages/internal/auth"
	appcfg "github.com/jdries/docpages/internal/config"
)

// PublishOptions describes a pages-branch publication.
type PublishOptions struct {
	Branch        string // target branch, e.g. gh-pages
	RemoteURL     string
	Auth          *appcfg.AuthConfig
	AuthorName    string
	AuthorEmail   string
	CommitMessage string // may contain {commit}, replaced with the source commit
	SourceCommit  string // commit of the source checkout the site was rendered from
	NoJekyll      bool
	CNAME         string
}

// PublishResult reports what a publish produced.
type PublishResult struct {
	Branch    string
	Commit    string
	RemoteURL string
}

// PublishTree turns the rendered site directory into a single-commit git
// history and force-pushes it to the pages branch. Any previous branch content
// is replaced wholesale; the pages branch never accumulates history.
func PublishTree(ctx context.Context, siteDir string, opts PublishOptions) (*PublishResult, error) {
	if opts.Branch == "" {
		return nil, fmt.Errorf("publish branch is required")
	}
	if opts.RemoteURL == "" {
		return nil, fmt.Errorf("publish remote URL is required")
	}

	// Discard any repository state from a previous publish of the same tree.
	if err := os.RemoveAll(filepath.Join(siteDir, ".git")); err != nil {
		return nil, fmt.Errorf("failed to clear previous publish state: %w", err)
	}

	if err := writeMarkers(siteDir, opts); err != nil {
		return nil, err
	}

	branchRef := plumbing.NewBranchReferenceName(opts.Branch)
	repository, err := git.PlainInitWithOptions(siteDir, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: branchRef},
	})
	if err != nil {
		return nil, fmt.Errorf("init pages repository: %w", err)
	}

	wt, err := repository.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, fmt.Errorf("stage rendered tree: %w", err)
	}

	message := opts.CommitMessage
	if message == "" {
		message = appcfg.DefaultCommitMessage
	}
	message = strings.ReplaceAll(message, "{commit}", shortHash(opts.SourceCommit))

	commit, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  opts.AuthorName,
			Email: opts.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("commit rendered tree: %w", err)
	}

	if _, err := repository.CreateRemote(&gitcfg.RemoteConfig{
		Name: "pages",
		URLs: []string{opts.RemoteURL},
	}); err != nil {
		return nil, fmt.Errorf("configure pages remote: %w", err)
	}

	pushOpts := &git.PushOptions{
		RemoteName: "pages",
		RefSpecs:   []gitcfg.RefSpec{gitcfg.RefSpec(fmt.Sprintf("+%s:%s", branchRef, branchRef))},
		Force:      true,
	}
	if !opts.Auth.IsZero() {
		method, err := auth.CreateAuth(opts.Auth)
		if err != nil {
			return nil, fmt.Errorf("failed to setup publish authentication: %w", err)
		}
		pushOpts.Auth = method
	}

	if err := repository.PushContext(ctx, pushOpts); err != nil && err != git.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("force-push %s: %w", opts.Branch, err)
	}

	slog.Info("Published rendered tree",
		slog.String("branch", opts.Branch),
		slog.String("commit", shortHash(commit.String())),
		slog.String("remote", opts.RemoteURL))

	return &PublishResult{Branch: opts.Branch, Commit: commit.String(), RemoteURL: opts.RemoteURL}, nil
}

// writeMarkers creates the hosting marker files in the site root.
// .nojekyll tells GitHub Pages to serve the tree verbatim instead of running
// it through Jekyll (which would drop underscore-prefixed Sphinx directories).
func writeMarkers(siteDir string, opts PublishOptions) error {
	if opts.NoJekyll {
		if err := os.WriteFile(filepath.Join(siteDir, ".nojekyll"), nil, 0o644); err != nil {
			return fmt.Errorf("write .nojekyll: %w", err)
		}
	}
	if opts.CNAME != "" {
		if err := os.WriteFile(filepath.Join(siteDir, "CNAME"), []byte(opts.CNAME+"\n"), 0o644); err != nil {
			return fmt.Errorf("write CNAME: %w", err)
		}
	}
	return nil
}
