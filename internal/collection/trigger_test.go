package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProfInsight/internal/config"
	"ProfInsight/internal/domain"
	"ProfInsight/internal/ports"
)

type fakeLauncher struct {
	name string
	err  error
	wait bool

	mu   sync.Mutex
	jobs []ports.Job
}

func (f *fakeLauncher) Name() string { return f.name }

func (f *fakeLauncher) Launch(ctx context.Context, job ports.Job) error {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()

	if f.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.err
}

func (f *fakeLauncher) launched() []ports.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ports.Job(nil), f.jobs...)
}

func newTestTrigger(reg *Registry, sources ...config.CollectSource) *Trigger {
	trig := NewTrigger(reg, config.CollectionConfig{
		Sources:       sources,
		LaunchTimeout: config.Duration{Duration: 50 * time.Millisecond},
	}, nil)
	trig.now = func() time.Time { return time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC) }
	return trig
}

func TestTriggerLaunchesEachCollectibleSourceOnce(t *testing.T) {
	t.Parallel()

	exec := &fakeLauncher{name: config.LauncherExec}
	reg := NewRegistry()
	reg.Register(exec)

	trig := newTestTrigger(reg,
		config.CollectSource{Name: domain.SourceReddit, Launcher: config.LauncherExec},
		config.CollectSource{Name: domain.SourceCoursicle, Launcher: config.LauncherExec},
	)

	count := trig.Trigger(context.Background(), domain.Normalize("john-doe"))
	require.Equal(t, 2, count)

	jobs := exec.launched()
	require.Len(t, jobs, 2)

	seen := map[string]ports.Job{}
	for _, job := range jobs {
		seen[job.Source] = job
		assert.Equal(t, "john doe", job.Professor)
		assert.NotEmpty(t, job.ID)
	}
	assert.Contains(t, seen, domain.SourceReddit)
	assert.Contains(t, seen, domain.SourceCoursicle)
	assert.Equal(t, "reddit:john doe:2025010215", seen[domain.SourceReddit].IdempotencyKey)
	assert.NotEqual(t, seen[domain.SourceReddit].ID, seen[domain.SourceCoursicle].ID)
}

func TestTriggerCountsOnlySuccessfulLaunches(t *testing.T) {
	t.Parallel()

	ok := &fakeLauncher{name: config.LauncherExec}
	broken := &fakeLauncher{name: config.LauncherPubSub, err: errors.New("publish failed")}
	reg := NewRegistry()
	reg.Register(ok)
	reg.Register(broken)

	trig := newTestTrigger(reg,
		config.CollectSource{Name: domain.SourceReddit, Launcher: config.LauncherExec},
		config.CollectSource{Name: domain.SourceCoursicle, Launcher: config.LauncherPubSub},
		config.CollectSource{Name: domain.SourceRMP, Launcher: "unregistered"},
	)

	assert.Equal(t, 1, trig.Trigger(context.Background(), "Jane Doe"))
	assert.Len(t, broken.launched(), 1)
}

func TestTriggerBoundsSlowLaunch(t *testing.T) {
	t.Parallel()

	slow := &fakeLauncher{name: config.LauncherPubSub, wait: true}
	reg := NewRegistry()
	reg.Register(slow)

	trig := newTestTrigger(reg, config.CollectSource{Name: domain.SourceReddit, Launcher: config.LauncherPubSub})

	done := make(chan int, 1)
	go func() { done <- trig.Trigger(context.Background(), "Jane Doe") }()

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger blocked past its launch timeout")
	}
}

func TestTriggerWithoutSources(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, newTestTrigger(NewRegistry()).Trigger(context.Background(), "Jane Doe"))
	assert.Equal(t, 0, newTestTrigger(nil, config.CollectSource{Name: "reddit"}).Trigger(context.Background(), "Jane Doe"))
}

func TestRegistryResolve(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(nil)
	_, err := reg.Resolve(config.LauncherExec)
	require.Error(t, err)

	launcher := &fakeLauncher{name: config.LauncherExec}
	reg.Register(launcher)
	got, err := reg.Resolve(config.LauncherExec)
	require.NoError(t, err)
	assert.Same(t, launcher, got)
}
