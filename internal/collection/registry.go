package collection

import (
	"fmt"

	"ProfInsight/internal/ports"
)

// Registry keeps a mapping from launcher kinds to their implementations.
type Registry struct {
	launchers map[string]ports.JobLauncher
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{launchers: map[string]ports.JobLauncher{}}
}

// Register adds or replaces a launcher implementation.
func (r *Registry) Register(launcher ports.JobLauncher) {
	if launcher == nil {
		return
	}
	if r.launchers == nil {
		r.launchers = map[string]ports.JobLauncher{}
	}
	r.launchers[launcher.Name()] = launcher
}

// Resolve returns a launcher by kind or an error if it is absent.
func (r *Registry) Resolve(kind string) (ports.JobLauncher, error) {
	if launcher, ok := r.launchers[kind]; ok {
		return launcher, nil
	}
	return nil, fmt.Errorf("launcher %s is not registered", kind)
}
