package collection

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ProfInsight/internal/config"
	"ProfInsight/internal/domain"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

const defaultLaunchTimeout = 5 * time.Second

// Trigger launches one fire-and-forget collection job per collectible source.
type Trigger struct {
	registry *Registry
	sources  []config.CollectSource
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

var _ ports.CollectionTrigger = (*Trigger)(nil)

// NewTrigger wires the launcher registry with the configured collectible sources.
func NewTrigger(reg *Registry, cfg config.CollectionConfig, log *slog.Logger) *Trigger {
	if log == nil {
		log = logging.Discard()
	}
	timeout := cfg.LaunchTimeout.Duration
	if timeout <= 0 {
		timeout = defaultLaunchTimeout
	}
	return &Trigger{
		registry: reg,
		sources:  append([]config.CollectSource(nil), cfg.Sources...),
		timeout:  timeout,
		logger:   log,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Trigger launches the jobs concurrently and returns how many launch attempts succeeded.
// It never waits for a job to finish and never re-reads the store.
func (t *Trigger) Trigger(ctx context.Context, id domain.Identity) int {
	if t.registry == nil || len(t.sources) == 0 {
		return 0
	}

	queuedAt := t.now().UTC()
	var launched atomic.Int32
	var g errgroup.Group

	for _, src := range t.sources {
		src := src
		g.Go(func() error {
			job := ports.Job{
				ID:             t.newID(),
				Source:         src.Name,
				Professor:      id.DisplayName(),
				IdempotencyKey: IdempotencyKey(src.Name, id, queuedAt),
				QueuedAt:       queuedAt,
			}
			if err := t.launch(ctx, src.Launcher, job); err != nil {
				t.logger.Warn("collection job not launched",
					"source", src.Name,
					"launcher", src.Launcher,
					"professor", id.String(),
					"error", err,
				)
				return nil
			}
			launched.Add(1)
			t.logger.Info("collection job launched", "source", src.Name, "job_id", job.ID, "professor", id.String())
			return nil
		})
	}

	_ = g.Wait()
	return int(launched.Load())
}

func (t *Trigger) launch(ctx context.Context, kind string, job ports.Job) error {
	launcher, err := t.registry.Resolve(kind)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := launcher.Launch(ctx, job); err != nil {
		return fmt.Errorf("%s launch: %w", launcher.Name(), err)
	}
	return nil
}

// IdempotencyKey lets job consumers drop duplicate requests for the same source and
// professor within one UTC hour.
func IdempotencyKey(source string, id domain.Identity, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", source, id.String(), at.UTC().Format("2006010215"))
}
