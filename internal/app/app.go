package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/pubsub"

	"ProfInsight/internal/collection"
	"ProfInsight/internal/config"
	"ProfInsight/internal/domain"
	"ProfInsight/internal/httpapi"
	"ProfInsight/internal/infrastructure/jobs"
	"ProfInsight/internal/infrastructure/ml"
	"ProfInsight/internal/infrastructure/reputation"
	"ProfInsight/internal/infrastructure/storage"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	assembler *usecase.Assembler
	gateway   *storage.ReviewGateway
	closers   []func() error
}

// New opens the review store, builds every adapter and the assembler.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open review store: %w", err)
	}
	a.closers = append(a.closers, db.Close)

	a.gateway = storage.NewReviewGateway(db, cfg.Database.Driver, cfg.Sources, baseLogger.With("component", "storage"))

	registry, err := a.buildRegistry(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	enricher := ml.NewClient(cfg.Enrichment, baseLogger.With("component", "enrichment"))

	a.assembler = usecase.NewAssembler(usecase.AssemblerDeps{
		Reputation:         reputation.NewClient(cfg.Reputation, baseLogger.With("component", "reputation")),
		Reviews:            a.gateway,
		Trigger:            collection.NewTrigger(registry, cfg.Collection, baseLogger.With("component", "collection")),
		Enricher:           enricher,
		Answerer:           enricher,
		KnownSources:       cfg.Sources,
		EnrichmentDeadline: cfg.Enrichment.Deadline.Duration,
		Logger:             baseLogger.With("component", "assembler"),
	})

	return a, nil
}

func (a *Application) buildRegistry(ctx context.Context) (*collection.Registry, error) {
	registry := collection.NewRegistry()
	registry.Register(jobs.NewNoopLauncher(a.logger.With("component", "jobs.noop")))
	registry.Register(jobs.NewExecLauncher(a.cfg.Collection.Exec, a.logger.With("component", "jobs.exec")))

	if !usesLauncher(a.cfg.Collection.Sources, config.LauncherPubSub) {
		return registry, nil
	}

	ps := a.cfg.Collection.PubSub
	if ps.ProjectID == "" || ps.Topic == "" {
		a.logger.Warn("pubsub launcher requested but project or topic is missing; those sources will not trigger")
		return registry, nil
	}

	client, err := pubsub.NewClient(ctx, ps.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client: %w", err)
	}
	topic := client.Topic(ps.Topic)
	a.closers = append(a.closers, func() error {
		topic.Stop()
		return client.Close()
	})

	launcher, err := jobs.NewPubSubLauncher(topic)
	if err != nil {
		return nil, err
	}
	registry.Register(launcher)
	return registry, nil
}

func usesLauncher(sources []config.CollectSource, kind string) bool {
	for _, src := range sources {
		if src.Launcher == kind {
			return true
		}
	}
	return false
}

// Lookup runs a single assembly outside the HTTP server.
func (a *Application) Lookup(ctx context.Context, name string) (domain.ProfessorView, error) {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout())
	defer cancel()
	return a.assembler.Lookup(ctx, name)
}

// Handler exposes the HTTP API.
func (a *Application) Handler() http.Handler {
	return httpapi.NewRouter(httpapi.Options{
		Service: a.assembler,
		Store:   a.gateway,
		Timeout: a.requestTimeout(),
		Logger:  a.logger.With("component", "http"),
	})
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the database pool and broker clients.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *Application) requestTimeout() time.Duration {
	if d := a.cfg.Server.RequestTimeout.Duration; d > 0 {
		return d
	}
	return 30 * time.Second
}
