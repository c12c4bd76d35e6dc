package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"

	"meeting_assistant/internal/analysis"
	"meeting_assistant/internal/backfill"
	"meeting_assistant/internal/config"
	"meeting_assistant/internal/events"
	"meeting_assistant/internal/executor"
	"meeting_assistant/internal/httpapi"
	"meeting_assistant/internal/jobs"
	"meeting_assistant/internal/llm"
	"meeting_assistant/internal/metrics"
	"meeting_assistant/internal/notify"
	"meeting_assistant/internal/pipeline"
	"meeting_assistant/internal/prompts"
	"meeting_assistant/internal/report"
	"meeting_assistant/internal/store"
	"meeting_assistant/internal/transcribe"
	"meeting_assistant/internal/watch"
)

const shutdownTimeout = 10 * time.Second

// App wires the data plane components together.
type App struct {
	cfg          config.Config
	logger       *slog.Logger
	store        *store.Store
	metrics      *metrics.Metrics
	bus          *events.Bus
	orchestrator *pipeline.Orchestrator
	runner       *jobs.Runner
	watcher      *watch.Watcher
	backfill     *backfill.Meetings
	webhook      *notify.Webhook
	health       *HealthService
	handler      http.Handler
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	provider := llm.NewLazy(cfg.LLM)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.New()
	bus := events.NewBus()
	pm := prompts.NewManager(cfg.ConfigPath, cfg.Prompts, logger)
	engine := transcribe.New(cfg.Whisper, executor.New(), logger)
	orch := pipeline.New(st, engine, analysis.New(provider, pm, logger), report.New(provider, pm, logger), pipeline.Options{
		Retry:   pipeline.RetryPolicy{MaxAttempts: cfg.Retry.MaxAttempts, Delay: cfg.Retry.Delay},
		Bus:     bus,
		Metrics: m,
		Logger:  logger,
	})
	runner := jobs.NewRunner(cfg, st, pipeline.BuildRegistry(orch), m, logger)
	bf := backfill.NewMeetings(st, runner, logger)

	return &App{
		cfg:          cfg,
		logger:       logger,
		store:        st,
		metrics:      m,
		bus:          bus,
		orchestrator: orch,
		runner:       runner,
		watcher:      watch.New(cfg, st, runner, logger),
		backfill:     bf,
		webhook:      notify.NewWebhook(cfg.NotifyWebhookURL, logger),
		health:       NewHealthService(st.Health, 5*time.Second, logger),
		handler:      httpapi.NewRouter(cfg, st, runner, m, bf, logger).Handler(),
	}, nil
}

// Run starts workers, the inbox watcher, the gRPC health endpoint and the
// HTTP server, and blocks until ctx ends or a server fails.
func (a *App) Run(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return err
	}
	if err := a.watcher.Start(ctx); err != nil {
		return err
	}
	if a.cfg.EnableWatcher {
		if n, err := a.watcher.Backfill(ctx); err != nil {
			a.logger.Warn("inbox backfill failed", "error", err)
		} else if n > 0 {
			a.logger.Info("inbox backfill queued meetings", "count", n)
		}
	}
	if a.webhook != nil {
		go a.webhook.Run(ctx, a.bus.Subscribe())
	}

	errCh := make(chan error, 2)
	var grpcServer *grpc.Server
	if a.cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", a.cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		grpcServer = grpc.NewServer()
		a.health.Register(grpcServer)
		go a.health.Run(ctx)
		go func() {
			a.logger.Info("grpc health listening", "addr", a.cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc: %w", err)
			}
		}()
	}

	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		a.logger.Info("http listening", "addr", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown requested")
	case runErr = <-errCh:
		a.logger.Error("server failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	a.health.Shutdown()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	a.runner.Stop(shutdownCtx)
	a.bus.Close()
	return runErr
}

// Close releases the database.
func (a *App) Close() error { return a.store.Close() }

// Ingest registers an audio file as a new meeting and queues it, exactly as
// the inbox watcher would.
func (a *App) Ingest(ctx context.Context, path string) (*store.Meeting, error) {
	return a.watcher.Ingest(ctx, path)
}

func (a *App) Store() *store.Store                  { return a.store }
func (a *App) Runner() *jobs.Runner                 { return a.runner }
func (a *App) Orchestrator() *pipeline.Orchestrator { return a.orchestrator }
func (a *App) Backfill() *backfill.Meetings         { return a.backfill }
func (a *App) Handler() http.Handler                { return a.handler }
func (a *App) Metrics() *metrics.Metrics            { return a.metrics }
