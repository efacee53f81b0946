package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"ProfInsight/internal/config"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

// ExecLauncher starts the scraper as a local process: `<command> <args...> <source> <professor>`.
type ExecLauncher struct {
	command string
	args    []string
	logger  *slog.Logger
	onExit  func(job ports.Job, err error)
}

var _ ports.JobLauncher = (*ExecLauncher)(nil)

// NewExecLauncher builds a launcher from the configured scraper command.
func NewExecLauncher(cfg config.ExecConfig, log *slog.Logger) *ExecLauncher {
	if log == nil {
		log = logging.Discard()
	}
	return &ExecLauncher{
		command: strings.TrimSpace(cfg.Command),
		args:    append([]string(nil), cfg.Args...),
		logger:  log,
	}
}

// Name identifies the launcher inside the registry.
func (l *ExecLauncher) Name() string {
	return config.LauncherExec
}

// Launch starts the process and returns once it is running; it never waits for the scrape.
func (l *ExecLauncher) Launch(ctx context.Context, job ports.Job) error {
	if l.command == "" {
		return fmt.Errorf("exec launcher: command is not configured")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("exec launcher: %w", err)
	}

	args := append(append([]string(nil), l.args...), job.Source, job.Professor)
	// Not bound to ctx: the job must outlive the request that triggered it.
	cmd := exec.Command(l.command, args...)
	cmd.Env = append(os.Environ(),
		"COLLECTION_JOB_ID="+job.ID,
		"COLLECTION_IDEMPOTENCY_KEY="+job.IdempotencyKey,
	)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", l.command, err)
	}

	started := time.Now()
	go func() {
		err := cmd.Wait()
		l.logger.Debug("collection job exited",
			"job_id", job.ID,
			"source", job.Source,
			"duration", time.Since(started),
			"error", err,
		)
		if l.onExit != nil {
			l.onExit(job, err)
		}
	}()

	return nil
}
