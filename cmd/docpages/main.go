package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/jdries/docpages/internal/config"
	"github.com/jdries/docpages/internal/daemon"
	"github.com/jdries/docpages/internal/eventstore"
	"github.com/jdries/docpages/internal/git"
	"github.com/jdries/docpages/internal/markdown"
	"github.com/jdries/docpages/internal/publish"
	"github.com/jdries/docpages/internal/site"
	"github.com/jdries/docpages/internal/sphinx"
	"github.com/jdries/docpages/internal/version"
	"github.com/jdries/docpages/internal/workspace"
)

const defaultDataDir = "./docpages-data"

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docpages.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Show version and exit"`

	Publish struct {
		Keep bool `help:"Keep the workspace after the run for inspection"`
	} `cmd:"" help:"Render the documentation and force-push it to the pages branch"`

	Build struct {
		Output string `short:"o" help:"Output directory for the rendered site" default:"./site"`
		Audit  bool   `help:"Audit Markdown sources for broken relative links"`
	} `cmd:"" help:"Render the documentation locally without publishing"`

	Daemon struct {
		DataDir string `short:"d" help:"Data directory for daemon state (overrides daemon.data_dir)"`
	} `cmd:"" help:"Run as a service publishing on pushes and schedules"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	History struct {
		DataDir string `short:"d" help:"Data directory holding the event store" default:"./docpages-data"`
		Limit   int    `help:"Maximum runs to show" default:"10"`
	} `cmd:"" help:"Show recent publish runs"`
}

func main() {
	ctx := kong.Parse(&CLI, kong.Vars{"version": version.Version})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	var err error
	switch ctx.Command() {
	case "publish":
		err = runPublish()
	case "build":
		err = runBuild()
	case "daemon":
		err = runDaemon()
	case "init":
		err = config.Init(CLI.Config, CLI.Init.Force)
	case "history":
		err = runHistory()
	}
	if err != nil {
		slog.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

// runPublish executes one full pipeline run and exits non-zero on failure,
// making it usable directly from CI.
func runPublish() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := publish.New(cfg).WithKeepWorkspace(CLI.Publish.Keep)
	result, err := pipeline.Run(runCtx, "manual")
	if err != nil {
		return err
	}

	fmt.Printf("Published %d pages to %s (%s) from commit %s\n",
		result.PageCount, result.Branch, result.RemoteURL, short(result.SourceCommit))
	for _, warning := range result.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	return nil
}

// runBuild renders into a local directory and validates the result without
// touching any remote.
func runBuild() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}

	outputDir, err := filepath.Abs(CLI.Build.Output)
	if err != nil {
		return err
	}

	ws := workspace.NewManager("")
	if err := ws.Create(); err != nil {
		return err
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to cleanup workspace", "error", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := git.NewClient(ws.SourceRoot())
	repoPath, err := client.CloneRepository(cfg.Source)
	if err != nil {
		return err
	}

	if CLI.Build.Audit {
		for _, warning := range markdown.AuditSources(repoPath) {
			fmt.Printf("warning: %s\n", warning)
		}
	}

	builder := sphinx.NewCommandBuilder(cfg.Docs)
	if _, err := builder.Build(runCtx, sphinx.BuildRequest{
		RepoPath:  repoPath,
		SourceDir: cfg.Source.Path,
		OutputDir: outputDir,
	}); err != nil {
		return err
	}

	report, err := site.Validate(outputDir)
	if err != nil {
		return err
	}

	fmt.Printf("Rendered %d pages (%d assets, %d bytes) into %s\n",
		report.Pages, report.Assets, report.TotalBytes, outputDir)
	for _, warning := range report.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	return nil
}

func runDaemon() error {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return err
	}
	if cfg.Daemon == nil {
		cfg.Daemon = &config.DaemonConfig{}
	}
	cfg.Daemon.DataDir = resolveDataDir(CLI.Daemon.DataDir, cfg.Daemon.DataDir)
	if cfg.Daemon.Port == 0 {
		cfg.Daemon.Port = config.DefaultDaemonPort
	}
	if err := os.MkdirAll(cfg.Daemon.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	d, err := daemon.New(cfg, CLI.Config)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Start(runCtx)
}

func runHistory() error {
	dbPath := filepath.Join(CLI.History.DataDir, "events.db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no event store at %s: %w", dbPath, err)
	}

	store, err := eventstore.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	proj := eventstore.NewHistoryProjection(store, CLI.History.Limit)
	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := proj.Rebuild(runCtx); err != nil {
		return err
	}

	history := proj.GetHistory()
	if len(history) == 0 {
		fmt.Println("No publish runs recorded yet.")
		return nil
	}

	for _, run := range history {
		line := fmt.Sprintf("%s  %-9s  %s", run.StartedAt.Format(time.RFC3339), run.Status, short(run.SourceCommit))
		if run.Status == "failed" {
			line += fmt.Sprintf("  [%s] %s", run.ErrorStage, run.ErrorMessage)
		} else if run.PageCount > 0 {
			line += fmt.Sprintf("  %d pages -> %s", run.PageCount, short(run.PagesCommit))
		}
		fmt.Println(line)
	}
	return nil
}

// resolveDataDir picks the daemon data directory: the flag wins, then the
// configured daemon.data_dir, then the built-in default.
func resolveDataDir(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if configValue != "" {
		return configValue
	}
	return defaultDataDir
}

func short(commit string) string {
	if len(commit) > 8 {
		return commit[:8]
	}
	return commit
}
