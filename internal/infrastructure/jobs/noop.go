package jobs

import (
	"context"
	"errors"
	"log/slog"

	"ProfInsight/internal/config"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

// ErrDisabled is returned by NoopLauncher so disabled sources never count as triggered.
var ErrDisabled = errors.New("collection disabled")

// NoopLauncher drops every job; used when collection is turned off for a source.
type NoopLauncher struct {
	logger *slog.Logger
}

var _ ports.JobLauncher = (*NoopLauncher)(nil)

// NewNoopLauncher returns a launcher that only logs.
func NewNoopLauncher(log *slog.Logger) *NoopLauncher {
	if log == nil {
		log = logging.Discard()
	}
	return &NoopLauncher{logger: log}
}

// Name identifies the launcher inside the registry.
func (n *NoopLauncher) Name() string {
	return config.LauncherNoop
}

// Launch logs the dropped job.
func (n *NoopLauncher) Launch(_ context.Context, job ports.Job) error {
	n.logger.Debug("collection job dropped", "job_id", job.ID, "source", job.Source, "professor", job.Professor)
	return ErrDisabled
}
