// Package control wires the registration service together and owns its
// lifecycle: storage, browser engine, orchestrator, health surface, and the
// scheduler loop that drives batches.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/nminhdao/registrar/internal/core/config"
	"github.com/nminhdao/registrar/internal/core/domain"
	"github.com/nminhdao/registrar/internal/health"
	browserinfra "github.com/nminhdao/registrar/internal/infra/browser"
	redisclient "github.com/nminhdao/registrar/internal/infra/redis"
	"github.com/nminhdao/registrar/internal/infra/storage"
	"github.com/nminhdao/registrar/internal/infra/storage/memory"
	"github.com/nminhdao/registrar/internal/infra/storage/postgres"
	"github.com/nminhdao/registrar/internal/registration"
	"github.com/nminhdao/registrar/internal/registration/retry"
	"github.com/nminhdao/registrar/internal/registration/strategy"

	corebrowser "github.com/nminhdao/registrar/internal/browser"
)

// Registrar is the main application struct managing the registration
// subsystem lifecycle.
type Registrar struct {
	cfg          *config.AppConfig
	orchestrator *registration.Orchestrator
	healthServer *health.Server
	browser      corebrowser.Browser
	db           *postgres.DB
	redisClient  *redisclient.Client
	events       storage.EventRepository
	log          *slog.Logger

	stopScheduler context.CancelFunc
	schedulerDone chan struct{}
}

// Option overrides a default dependency, used by tests and the admin tools.
type Option func(*deps)

type deps struct {
	events   storage.EventRepository
	attempts storage.AttemptRepository
	failures storage.FailureRepository
	browser  corebrowser.Browser
}

// WithBrowser substitutes the browser engine.
func WithBrowser(b corebrowser.Browser) Option {
	return func(d *deps) { d.browser = b }
}

// WithRepositories substitutes the storage layer.
func WithRepositories(
	events storage.EventRepository,
	attempts storage.AttemptRepository,
	failures storage.FailureRepository,
) Option {
	return func(d *deps) {
		d.events = events
		d.attempts = attempts
		d.failures = failures
	}
}

// NewRegistrar creates a Registrar with all dependencies initialized.
// Postgres and Redis are optional: without a database URL the service runs on
// in-memory storage, and without Redis the failure records stay in memory.
func NewRegistrar(cfg *config.AppConfig, opts ...Option) (*Registrar, error) {
	log := slog.Default()

	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	r := &Registrar{cfg: cfg, log: log}

	// 1. Storage
	if d.events == nil {
		if cfg.Database.URL != "" {
			db, err := postgres.NewDB(context.Background(), cfg.Database)
			if err != nil {
				return nil, fmt.Errorf("failed to init db: %w", err)
			}
			if err := goose.SetDialect("postgres"); err != nil {
				return nil, err
			}
			if err := goose.Up(db.DB.DB, "migrations"); err != nil {
				return nil, fmt.Errorf("failed to migrate db: %w", err)
			}

			r.db = db
			d.events = postgres.NewEventRepo(db)
			d.attempts = postgres.NewAttemptRepo(db)
			log.Info("Using PostgreSQL storage")
		} else {
			store := memory.NewMemoryStorage()
			d.events = memory.NewEventRepo(store)
			d.attempts = memory.NewAttemptRepo(store)
			d.failures = memory.NewFailureRepo(store)
			log.Info("Using memory storage")
		}
	}

	// 2. Failure records: Redis when configured, memory otherwise.
	if d.failures == nil {
		if cfg.Redis.URL != "" {
			redisClient, err := redisclient.NewClient(cfg.Redis)
			if err != nil {
				log.Warn("Failed to connect to Redis, using memory failure store", "error", err)
			} else {
				r.redisClient = redisClient
				d.failures = redisclient.NewFailureRepo(redisClient)
			}
		}
		if d.failures == nil {
			d.failures = memory.NewFailureRepo(memory.NewMemoryStorage())
		}
	}

	// 3. Browser engine
	if d.browser == nil {
		d.browser = browserinfra.NewChromeBrowser(cfg.Browser)
	}
	r.browser = d.browser

	// 4. Retry engine and orchestrator
	engine := retry.NewEngine(d.failures, retry.Config{
		Cooldown:  cfg.Registration.FailureCooldown,
		Retention: cfg.Registration.FailureRetention,
		Jitter:    cfg.Registration.JitterEnabled(),
	}, log)

	r.orchestrator = registration.NewOrchestrator(
		d.events,
		d.attempts,
		engine,
		strategy.NewRegistry(),
		d.browser,
		cfg.Family.Profile(),
		registration.Config{
			MaxConcurrent: cfg.Registration.MaxConcurrent,
			NavTimeout:    cfg.Registration.NavTimeout,
			StepTimeout:   cfg.Registration.StepTimeout,
		},
		log,
	)

	// 5. Health surface
	monitor := health.NewMonitor(r.orchestrator)
	if r.db != nil {
		monitor.Register("database", r.db, true)
	}
	if r.redisClient != nil {
		monitor.Register("redis", r.redisClient, false)
	}
	r.healthServer = health.NewServer(monitor, cfg.Server.Port)

	r.events = d.events
	return r, nil
}

// Events exposes the event repository for the admin and CLI paths.
func (r *Registrar) Events() storage.EventRepository { return r.events }

// Orchestrator exposes the registration orchestrator for the CLI paths.
func (r *Registrar) Orchestrator() *registration.Orchestrator { return r.orchestrator }

// Start requeues stuck events, starts the health server, and begins the
// scheduler loop. It returns immediately; the loop runs until Stop.
func (r *Registrar) Start(ctx context.Context) error {
	// Events left registering by a crash mid-write go back to approved.
	if n, err := r.events.RequeueStuck(ctx); err != nil {
		r.log.Warn("Failed to requeue stuck events", "error", err)
	} else if n > 0 {
		r.log.Info("Requeued stuck events", "count", n)
	}

	go func() {
		if err := r.healthServer.Start(); err != nil {
			r.log.Error("Health server failed", "error", err)
		}
	}()

	schedCtx, cancel := context.WithCancel(ctx)
	r.stopScheduler = cancel
	r.schedulerDone = make(chan struct{})
	go r.runScheduler(schedCtx)

	return nil
}

// runScheduler drives registration batches on a fixed interval. The first
// batch runs immediately so a restart picks up pending work without waiting.
func (r *Registrar) runScheduler(ctx context.Context) {
	defer close(r.schedulerDone)

	ticker := time.NewTicker(r.cfg.Registration.ScanInterval)
	defer ticker.Stop()

	r.runBatch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runBatch(ctx)
		}
	}
}

func (r *Registrar) runBatch(ctx context.Context) {
	summary, err := r.orchestrator.ProcessApprovedEvents(ctx)
	if err != nil {
		r.log.Error("Registration batch failed", "error", err)
		return
	}
	if summary.Processed > 0 {
		r.log.Info("Registration batch complete",
			"processed", summary.Processed,
			"registered", summary.Registered,
			"failed", summary.Failed,
		)
	}
}

// Stop shuts the service down: scheduler first so no batch is mid-flight,
// then the browser engine and connections.
func (r *Registrar) Stop(ctx context.Context) error {
	r.log.Info("Stopping registrar...")

	if r.stopScheduler != nil {
		r.stopScheduler()
		select {
		case <-r.schedulerDone:
		case <-ctx.Done():
			r.log.Warn("Scheduler did not drain before shutdown deadline")
		}
	}

	if err := r.browser.Close(); err != nil {
		r.log.Warn("Failed to close browser", "error", err)
	}
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			r.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			r.log.Warn("Failed to close database", "error", err)
		}
	}

	return r.healthServer.Stop(ctx)
}

// SeedEvent inserts an event directly, used by the e2e tests and local runs.
func (r *Registrar) SeedEvent(ctx context.Context, event *domain.Event) error {
	return r.events.Create(ctx, event)
}
