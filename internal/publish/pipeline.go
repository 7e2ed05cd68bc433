// Package publish orchestrates one documentation publish run: fetch the
// source, render it, validate the output and force-push it to the pages
// branch. Each stage is timed and reported to the metrics recorder and the
// event store; the first failing stage aborts the run.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appcfg "github.com/jdries/docpages/internal/config"
	"github.com/jdries/docpages/internal/eventstore"
	"github.com/jdries/docpages/internal/git"
	"github.com/jdries/docpages/internal/logfields"
	"github.com/jdries/docpages/internal/markdown"
	"github.com/jdries/docpages/internal/metrics"
	"github.com/jdries/docpages/internal/retry"
	"github.com/jdries/docpages/internal/site"
	"github.com/jdries/docpages/internal/sphinx"
	"github.com/jdries/docpages/internal/workspace"
)

// Stage names used in logs, metrics labels and events.
const (
	StageFetch    = "fetch"
	StageRender   = "render"
	StageValidate = "validate"
	StagePublish  = "publish"
)

// Result describes a completed publish run.
type Result struct {
	PublishID      string
	Repository     string
	SourceCommit   string
	PagesCommit    string
	Branch         string
	RemoteURL      string
	PageCount      int
	Warnings       []string
	StageDurations map[string]time.Duration
	Duration       time.Duration
}

// StageError reports which pipeline stage failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Pipeline runs publish jobs for one configured source repository.
type Pipeline struct {
	cfg        *appcfg.Config
	ws         *workspace.Manager
	builder    sphinx.Builder
	recorder   metrics.Recorder
	store      eventstore.Store
	projection *eventstore.HistoryProjection
	keepWork   bool
}

// New creates a Pipeline with an ephemeral workspace, the command-line
// generator and no-op observability.
func New(cfg *appcfg.Config) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		ws:       workspace.NewManager(""),
		builder:  sphinx.NewCommandBuilder(cfg.Docs),
		recorder: metrics.NoopRecorder{},
	}
}

// WithWorkspace replaces the workspace manager (fluent helper).
func (p *Pipeline) WithWorkspace(ws *workspace.Manager) *Pipeline { p.ws = ws; return p }

// WithBuilder replaces the documentation generator.
func (p *Pipeline) WithBuilder(b sphinx.Builder) *Pipeline { p.builder = b; return p }

// WithRecorder attaches a metrics recorder.
func (p *Pipeline) WithRecorder(r metrics.Recorder) *Pipeline { p.recorder = r; return p }

// WithEventStore attaches an event store and optional history projection.
func (p *Pipeline) WithEventStore(s eventstore.Store, proj *eventstore.HistoryProjection) *Pipeline {
	p.store = s
	p.projection = proj
	return p
}

// WithKeepWorkspace disables workspace cleanup after the run, for debugging
// failed renders.
func (p *Pipeline) WithKeepWorkspace(keep bool) *Pipeline { p.keepWork = keep; return p }

// Run executes the full pipeline once. The trigger identifies what started
// the run ("push", "manual", "schedule") and ends up in the event stream.
func (p *Pipeline) Run(ctx context.Context, trigger string) (*Result, error) {
	start := time.Now()
	result := &Result{
		PublishID:      uuid.NewString(),
		Repository:     p.cfg.Source.Name,
		Branch:         p.cfg.Pages.Branch,
		RemoteURL:      p.cfg.Pages.RemoteURL,
		StageDurations: make(map[string]time.Duration),
	}

	slog.Info("Publish run started",
		logfields.JobID(result.PublishID),
		logfields.Repository(p.cfg.Source.Name),
		logfields.Branch(p.cfg.Source.Branch),
		slog.String("trigger", trigger))

	p.emit(ctx, mustEvent(eventstore.NewPublishStarted(result.PublishID, p.cfg.Source.Name, p.cfg.Source.Branch, trigger)))

	if err := p.ws.Create(); err != nil {
		return nil, p.fail(ctx, result, StageFetch, err)
	}
	if !p.keepWork {
		defer func() {
			if err := p.ws.Cleanup(); err != nil {
				slog.Warn("Workspace cleanup failed", logfields.Error(err))
			}
		}()
	}

	repoPath, err := p.fetch(ctx, result)
	if err != nil {
		return nil, p.fail(ctx, result, StageFetch, err)
	}

	outputDir, err := p.render(ctx, result, repoPath)
	if err != nil {
		return nil, p.fail(ctx, result, StageRender, err)
	}

	if err := p.validate(ctx, result, outputDir); err != nil {
		return nil, p.fail(ctx, result, StageValidate, err)
	}

	if err := p.push(ctx, result, outputDir); err != nil {
		return nil, p.fail(ctx, result, StagePublish, err)
	}

	result.Duration = time.Since(start)
	p.recorder.ObservePublishDuration(result.Duration)
	p.recorder.IncPublishOutcome("success")
	p.emit(ctx, mustEvent(eventstore.NewPublishCompleted(
		result.PublishID, result.Branch, result.PagesCommit, result.SourceCommit, result.Duration)))

	slog.Info("Publish run completed",
		logfields.JobID(result.PublishID),
		logfields.Branch(result.Branch),
		logfields.Commit(result.PagesCommit),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

// fetch clones or updates the source checkout and records its HEAD commit.
func (p *Pipeline) fetch(ctx context.Context, result *Result) (string, error) {
	stageStart := time.Now()

	client := git.NewClient(p.ws.SourceRoot()).
		WithRetry(retry.DefaultPolicy()).
		WithRetryObserver(p.recorder.IncGitRetry)
	repoPath, err := client.UpdateRepository(p.cfg.Source)
	d := time.Since(stageStart)
	p.recorder.ObserveFetchDuration(p.cfg.Source.Name, d, err == nil)
	if err != nil {
		return "", err
	}

	head, err := git.ReadRepoHead(repoPath)
	if err != nil {
		slog.Warn("Could not resolve source HEAD", logfields.Error(err))
	}
	result.SourceCommit = head
	result.StageDurations[StageFetch] = d
	p.recorder.ObserveStageDuration(StageFetch, d)
	p.recorder.IncStageResult(StageFetch, metrics.ResultSuccess)
	p.emit(ctx, mustEvent(eventstore.NewSourceFetched(result.PublishID, p.cfg.Source.Name, head, repoPath, d)))

	result.Warnings = append(result.Warnings, markdown.AuditSources(repoPath)...)
	return repoPath, nil
}

// render invokes the generator into the workspace output directory.
func (p *Pipeline) render(ctx context.Context, result *Result, repoPath string) (string, error) {
	stageStart := time.Now()
	outputDir := p.ws.OutputDir(p.cfg.Source.Name)

	_, err := p.builder.Build(ctx, sphinx.BuildRequest{
		RepoPath:  repoPath,
		SourceDir: p.cfg.Source.Path,
		OutputDir: outputDir,
	})
	d := time.Since(stageStart)
	if err != nil {
		return "", err
	}

	result.StageDurations[StageRender] = d
	p.recorder.ObserveStageDuration(StageRender, d)
	p.recorder.IncStageResult(StageRender, metrics.ResultSuccess)
	return outputDir, nil
}

// validate checks the rendered tree is publishable.
func (p *Pipeline) validate(ctx context.Context, result *Result, outputDir string) error {
	stageStart := time.Now()

	report, err := site.Validate(outputDir)
	d := time.Since(stageStart)
	if err != nil {
		return err
	}

	result.PageCount = report.Pages
	result.Warnings = append(result.Warnings, report.Warnings...)
	result.StageDurations[StageValidate] = d
	p.recorder.ObserveStageDuration(StageValidate, d)
	p.recorder.IncStageResult(StageValidate, metrics.ResultSuccess)
	p.emit(ctx, mustEvent(eventstore.NewDocsRendered(result.PublishID, outputDir, report.Pages, d)))

	for _, warning := range report.Warnings {
		slog.Warn("Site validation warning", logfields.JobID(result.PublishID), slog.String("warning", warning))
	}
	return nil
}

// push force-pushes the rendered tree to the pages branch.
func (p *Pipeline) push(ctx context.Context, result *Result, outputDir string) error {
	stageStart := time.Now()

	pushed, err := git.PublishTree(ctx, outputDir, git.PublishOptions{
		Branch:        p.cfg.Pages.Branch,
		RemoteURL:     p.cfg.Pages.RemoteURL,
		Auth:          p.cfg.Pages.Auth,
		AuthorName:    p.cfg.Pages.AuthorName,
		AuthorEmail:   p.cfg.Pages.AuthorEmail,
		CommitMessage: p.cfg.Pages.CommitMessage,
		SourceCommit:  result.SourceCommit,
		NoJekyll:      p.cfg.Pages.NoJekyllEnabled(),
		CNAME:         p.cfg.Pages.CNAME,
	})
	d := time.Since(stageStart)
	if err != nil {
		return err
	}

	result.PagesCommit = pushed.Commit
	result.StageDurations[StagePublish] = d
	p.recorder.ObserveStageDuration(StagePublish, d)
	p.recorder.IncStageResult(StagePublish, metrics.ResultSuccess)
	return nil
}

// fail records a stage failure in metrics and the event stream, then wraps
// the error with the failing stage.
func (p *Pipeline) fail(ctx context.Context, result *Result, stage string, err error) error {
	if ctx.Err() == context.Canceled {
		p.recorder.IncStageResult(stage, metrics.ResultCanceled)
		p.recorder.IncPublishOutcome("canceled")
	} else {
		p.recorder.IncStageResult(stage, metrics.ResultFailed)
		p.recorder.IncPublishOutcome("failed")
	}

	p.emit(ctx, mustEvent(eventstore.NewPublishFailed(result.PublishID, stage, err.Error())))
	slog.Error("Publish run failed",
		logfields.JobID(result.PublishID),
		logfields.Stage(stage),
		logfields.Error(err))
	return &StageError{Stage: stage, Err: err}
}

// emit appends an event to the store and applies it to the projection.
// Event persistence never fails a publish; errors are logged and dropped.
func (p *Pipeline) emit(ctx context.Context, event eventstore.Event) {
	if event == nil {
		return
	}
	if p.projection != nil {
		p.projection.Apply(event)
	}
	if p.store == nil {
		return
	}
	if err := p.store.Append(ctx, event.PublishID(), event.Type(), event.Payload(), event.Metadata()); err != nil {
		slog.Warn("Failed to persist event", slog.String("event", event.Type()), logfields.Error(err))
	}
}

func mustEvent(event eventstore.Event, err error) eventstore.Event {
	if err != nil {
		slog.Warn("Failed to construct event", logfields.Error(err))
		return nil
	}
	return event
}
