package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"ProfInsight/internal/domain"
	"ProfInsight/internal/logging"
)

const defaultTimeout = 30 * time.Second

// ProfessorService is the use case surface the handlers depend on.
type ProfessorService interface {
	Lookup(ctx context.Context, rawName string) (domain.ProfessorView, error)
	Ask(ctx context.Context, rawName, question string) (domain.Answer, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the router.
type Options struct {
	Service ProfessorService
	Store   Pinger
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRouter constructs the chi router with shared middleware and the professor routes.
func NewRouter(opts Options) chi.Router {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	h := &handlers{
		service: opts.Service,
		store:   opts.Store,
		logger:  opts.Logger,
		started: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		traceRequests,
		logRequests(opts.Logger),
		middleware.Recoverer,
		middleware.Timeout(opts.Timeout),
	)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusNotFound, "route_not_found", fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, req, http.StatusMethodNotAllowed, "method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})

	r.Get("/healthz", h.health)
	r.Get("/professors/{name}", h.getProfessor)
	r.Post("/professors/{name}/ask", h.askProfessor)

	return r
}
