// Package daemon runs docpages as a long-lived service: a webhook endpoint
// enqueues publish runs on pushes, an optional schedule republishes
// periodically, and a small HTTP API exposes status and history.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	appcfg "github.com/jdries/docpages/internal/config"
	"github.com/jdries/docpages/internal/eventstore"
	"github.com/jdries/docpages/internal/logfields"
	"github.com/jdries/docpages/internal/metrics"
	"github.com/jdries/docpages/internal/publish"
	"github.com/jdries/docpages/internal/workspace"
)

// Daemon wires the publish pipeline into a long-running service.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *appcfg.Config
	configPath string

	queue      *Queue
	recorder   metrics.Recorder
	registry   *prom.Registry
	store      eventstore.Store
	projection *eventstore.HistoryProjection
	emitter    *NATSEmitter
	scheduler  *Scheduler
	watcher    *ConfigWatcher
	server     *http.Server
	startedAt  time.Time
}

// New assembles a daemon from the loaded configuration. configPath enables
// hot reload; pass "" to disable the config watcher.
func New(cfg *appcfg.Config, configPath string) (*Daemon, error) {
	if cfg.Daemon == nil {
		return nil, fmt.Errorf("daemon section missing from configuration")
	}

	d := &Daemon{
		cfg:        cfg,
		configPath: configPath,
		recorder:   metrics.NoopRecorder{},
	}

	if cfg.Daemon.Metrics {
		d.registry = prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.registry)
	}

	if cfg.Daemon.DataDir != "" {
		store, err := eventstore.NewSQLiteStore(filepath.Join(cfg.Daemon.DataDir, "events.db"))
		if err != nil {
			return nil, fmt.Errorf("open event store: %w", err)
		}
		d.store = store
		d.projection = eventstore.NewHistoryProjection(store, 100)
	}

	if cfg.Daemon.NATS != nil {
		emitter, err := NewNATSEmitter(cfg.Daemon.NATS)
		if err != nil {
			return nil, err
		}
		d.emitter = emitter
	}

	d.queue = NewQueue(cfg.Daemon.QueueSize, cfg.Daemon.Workers, d).WithRecorder(d.recorder)
	if d.emitter != nil {
		d.queue.OnResult(d.emitter.EmitJob)
	}

	return d, nil
}

// Run implements the queue Runner interface: each job executes one full
// pipeline run against the current configuration.
func (d *Daemon) Run(ctx context.Context, trigger string) (*publish.Result, error) {
	cfg := d.config()

	ws := workspace.NewManager("")
	if cfg.Daemon.DataDir != "" {
		ws = workspace.NewPersistentManager(cfg.Daemon.DataDir, "working")
	}

	pipeline := publish.New(cfg).
		WithWorkspace(ws).
		WithRecorder(d.recorder).
		WithEventStore(d.store, d.projection)
	return pipeline.Run(ctx, trigger)
}

// Start brings up all daemon components and serves HTTP until ctx is done.
func (d *Daemon) Start(ctx context.Context) error {
	cfg := d.config()
	d.startedAt = time.Now()

	if d.projection != nil {
		if err := d.projection.Rebuild(ctx); err != nil {
			slog.Warn("Failed to rebuild publish history", logfields.Error(err))
		}
	}

	d.queue.Start(ctx)

	if cfg.Daemon.Schedule > 0 {
		scheduler, err := NewScheduler()
		if err != nil {
			return err
		}
		scheduler.SetEnqueuer(d.queue)
		if _, err := scheduler.SchedulePeriodicPublish(cfg.Daemon.Schedule); err != nil {
			return err
		}
		scheduler.Start()
		d.scheduler = scheduler
	}

	if d.configPath != "" {
		watcher, err := NewConfigWatcher(d.configPath, d)
		if err != nil {
			slog.Warn("Config watcher unavailable", logfields.Error(err))
		} else if err := watcher.Start(ctx); err != nil {
			slog.Warn("Config watcher failed to start", logfields.Error(err))
		} else {
			d.watcher = watcher
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Daemon.Port)
	d.server = &http.Server{
		Addr:              addr,
		Handler:           d.buildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Daemon listening", slog.String("addr", addr))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return d.shutdown()
	case err := <-errCh:
		_ = d.shutdown()
		return err
	}
}

// shutdown stops components in reverse start order.
func (d *Daemon) shutdown() error {
	slog.Info("Daemon shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if d.server != nil {
		if err := d.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server shutdown failed", logfields.Error(err))
		}
	}
	if d.watcher != nil {
		d.watcher.Stop()
	}
	if d.scheduler != nil {
		if err := d.scheduler.Stop(); err != nil {
			slog.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}
	d.queue.Stop()
	if d.emitter != nil {
		d.emitter.Close()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			slog.Warn("Event store close failed", logfields.Error(err))
		}
	}

	slog.Info("Daemon stopped")
	return nil
}

// ReloadConfig applies a new configuration. Source and pages settings take
// effect on the next run; queue sizing and the HTTP port require a restart.
func (d *Daemon) ReloadConfig(_ context.Context, newCfg *appcfg.Config) error {
	if newCfg.Daemon == nil {
		return fmt.Errorf("daemon section missing from new configuration")
	}

	current := d.config()
	if newCfg.Daemon.Port != current.Daemon.Port {
		slog.Warn("HTTP port change requires restart to take effect",
			slog.Int("current", current.Daemon.Port), slog.Int("new", newCfg.Daemon.Port))
	}

	d.mu.Lock()
	d.cfg = newCfg
	d.mu.Unlock()

	slog.Info("Configuration applied", logfields.Repository(newCfg.Source.Name))
	return nil
}

// config returns the current configuration snapshot.
func (d *Daemon) config() *appcfg.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

func (d *Daemon) webhookSecret() string {
	return d.config().Daemon.WebhookSecret
}
