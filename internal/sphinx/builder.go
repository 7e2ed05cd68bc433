// Package sphinx drives the external documentation generator. The toolchain
// itself (pip, sphinx-build) stays outside the binary; docpages only sequences
// the invocations and interprets their exit codes.
package sphinx

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	appcfg "github.com/jdries/docpages/internal/config"
	"github.com/jdries/docpages/internal/logfields"
)

// BuildRequest describes one generator invocation.
type BuildRequest struct {
	RepoPath  string // source checkout root
	SourceDir string // docs sources relative to RepoPath
	OutputDir string // absolute path for the rendered tree
}

// BuildResult reports a completed generator run.
type BuildResult struct {
	OutputDir string
	Duration  time.Duration
}

// Builder renders documentation sources into a publishable tree.
// The pipeline and tests substitute implementations freely.
type Builder interface {
	Build(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// CommandBuilder shells out to sphinx-build (or a configured equivalent).
type CommandBuilder struct {
	cfg appcfg.DocsConfig
}

// NewCommandBuilder creates a Builder from the docs configuration.
func NewCommandBuilder(cfg appcfg.DocsConfig) *CommandBuilder {
	return &CommandBuilder{cfg: cfg}
}

// Build runs the optional dependency install followed by the generator.
// A non-zero exit from either command fails the build; the captured combined
// output is attached to the error so CI logs show the generator's diagnostics.
func (b *CommandBuilder) Build(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	if err := b.installRequirements(ctx, req); err != nil {
		return nil, err
	}

	srcDir := filepath.Join(req.RepoPath, req.SourceDir)
	if _, err := os.Stat(srcDir); err != nil {
		return nil, fmt.Errorf("docs source directory %s: %w", srcDir, err)
	}
	if err := os.MkdirAll(req.OutputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	args := []string{"-b", b.cfg.Builder}
	args = append(args, b.cfg.ExtraArgs...)
	args = append(args, srcDir, req.OutputDir)

	slog.Info("Rendering documentation",
		slog.String("command", b.cfg.Command),
		logfields.Path(srcDir),
		slog.String("builder", b.cfg.Builder))

	if err := b.runCommand(ctx, req.RepoPath, b.cfg.Command, args...); err != nil {
		return nil, fmt.Errorf("documentation build failed: %w", err)
	}

	return &BuildResult{OutputDir: req.OutputDir, Duration: time.Since(start)}, nil
}

// installRequirements runs pip against the configured requirements file, when
// one is configured and present in the checkout.
func (b *CommandBuilder) installRequirements(ctx context.Context, req BuildRequest) error {
	if b.cfg.Requirements == "" {
		return nil
	}
	reqFile := filepath.Join(req.RepoPath, b.cfg.Requirements)
	if _, err := os.Stat(reqFile); err != nil {
		slog.Debug("Requirements file absent, skipping install", logfields.Path(reqFile))
		return nil
	}

	slog.Info("Installing documentation dependencies", logfields.Path(reqFile))
	if err := b.runCommand(ctx, req.RepoPath, b.cfg.Python, "-m", "pip", "install", "-r", reqFile); err != nil {
		return fmt.Errorf("dependency install failed: %w", err)
	}
	return nil
}

func (b *CommandBuilder) runCommand(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = mergedEnv(b.cfg.Env)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%s timed out after %s", name, b.cfg.Timeout)
	}
	if err != nil {
		return &CommandError{Command: name, Args: args, Output: output.String(), Err: err}
	}
	return nil
}

// mergedEnv layers configured overrides onto the process environment.
func mergedEnv(overrides map[string]string) []string {
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// CommandError carries the captured output of a failed generator command.
type CommandError struct {
	Command string
	Args    []string
	Output  string
	Err     error
}

func (e *CommandError) Error() string {
	out := e.Output
	const maxOutput = 4096
	if len(out) > maxOutput {
		out = "…" + out[len(out)-maxOutput:]
	}
	return fmt.Sprintf("%s exited with error: %v\n%s", e.Command, e.Err, out)
}

func (e *CommandError) Unwrap() error { return e.Err }
