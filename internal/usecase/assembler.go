package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ProfInsight/internal/domain"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

const defaultEnrichmentDeadline = 20 * time.Second

var tracer = otel.Tracer("ProfInsight/internal/usecase")

var (
	// ErrInvalidName means the raw name normalizes to nothing.
	ErrInvalidName = errors.New("invalid professor name")
	// ErrEmptyQuestion means Ask was called without a question.
	ErrEmptyQuestion = errors.New("question is required")
)

// AssemblerDeps wires all driven adapters into the assembler.
type AssemblerDeps struct {
	Reputation ports.ReputationSource
	Reviews    ports.ReviewStore
	Trigger    ports.CollectionTrigger
	Enricher   ports.Enricher
	Answerer   ports.QuestionAnswerer

	// KnownSources seeds coverage when no review store is wired.
	KnownSources       []string
	EnrichmentDeadline time.Duration
	Logger             *slog.Logger
}

// Assembler builds a ProfessorView from independent, unreliable sources.
// It keeps no state between requests.
type Assembler struct {
	reputation ports.ReputationSource
	reviews    ports.ReviewStore
	trigger    ports.CollectionTrigger
	enricher   ports.Enricher
	answerer   ports.QuestionAnswerer
	known      []string
	deadline   time.Duration
	logger     *slog.Logger
}

// NewAssembler constructs the orchestration component.
func NewAssembler(deps AssemblerDeps) *Assembler {
	a := &Assembler{
		reputation: deps.Reputation,
		reviews:    deps.Reviews,
		trigger:    deps.Trigger,
		enricher:   deps.Enricher,
		answerer:   deps.Answerer,
		known:      deps.KnownSources,
		deadline:   deps.EnrichmentDeadline,
		logger:     deps.Logger,
	}
	if len(a.known) == 0 {
		a.known = domain.DefaultSources
	}
	if a.deadline <= 0 {
		a.deadline = defaultEnrichmentDeadline
	}
	if a.logger == nil {
		a.logger = logging.Discard()
	}
	return a
}

// gathered holds the results of the independent first stage.
type gathered struct {
	reputation *domain.ReputationRecord
	reviews    []domain.ReviewText
	coverage   domain.SourceCoverage
}

// Lookup answers "what do we know about this professor". Upstream failures only ever show up
// as absent fields; the error is non-nil for malformed names or when ctx ends first, in which
// case partial results are discarded.
func (a *Assembler) Lookup(ctx context.Context, rawName string) (domain.ProfessorView, error) {
	id := domain.Normalize(rawName)
	if id.IsZero() {
		return domain.ProfessorView{}, fmt.Errorf("%w: %q", ErrInvalidName, rawName)
	}

	ctx, span := tracer.Start(ctx, "assembler.lookup", trace.WithAttributes(attribute.String("professor", id.String())))
	defer span.End()

	data := a.gather(ctx, id)
	if err := ctx.Err(); err != nil {
		return domain.ProfessorView{}, err
	}

	view := domain.ProfessorView{
		Name:       id.String(),
		Reputation: data.reputation,
		Sources:    data.coverage,
	}
	if data.reputation != nil {
		view.Department = data.reputation.Department
	}

	if len(data.reviews) == 0 {
		triggered := a.collect(ctx, id) > 0
		if err := ctx.Err(); err != nil {
			return domain.ProfessorView{}, err
		}
		view.CollectionTriggered = &triggered
		span.SetAttributes(attribute.String("state", "pending"), attribute.Bool("collection_triggered", triggered))
		a.logger.Info("professor pending", "professor", id.String(), "collection_triggered", triggered)
		return view, nil
	}

	bundle := a.enrich(ctx, data.reviews)
	if err := ctx.Err(); err != nil {
		return domain.ProfessorView{}, err
	}

	view.HasReviewData = true
	view.Enrichment = &bundle
	view.Reviews = data.reviews
	span.SetAttributes(attribute.String("state", "full"), attribute.Int("reviews", len(data.reviews)))
	a.logger.Debug("professor assembled", "professor", id.String(), "reviews", len(data.reviews), "reputation", data.reputation != nil)
	return view, nil
}

// Ask answers a question from the professor's stored reviews. It never triggers collection;
// with no reviews the answer is absent.
func (a *Assembler) Ask(ctx context.Context, rawName, question string) (domain.Answer, error) {
	id := domain.Normalize(rawName)
	if id.IsZero() {
		return domain.Answer{}, fmt.Errorf("%w: %q", ErrInvalidName, rawName)
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, ErrEmptyQuestion
	}

	ctx, span := tracer.Start(ctx, "assembler.ask", trace.WithAttributes(attribute.String("professor", id.String())))
	defer span.End()

	answer := domain.Answer{Name: id.String(), Question: question}

	var reviews []domain.ReviewText
	if a.reviews != nil {
		reviews = a.reviews.ListReviews(ctx, id)
	}
	if len(reviews) > 0 && a.answerer != nil {
		qctx, cancel := context.WithTimeout(ctx, a.deadline)
		answer.Answer = a.answerer.Ask(qctx, reviews, question)
		cancel()
	}

	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	return answer, nil
}

// gather runs the reputation fetch and both store reads concurrently.
func (a *Assembler) gather(ctx context.Context, id domain.Identity) gathered {
	ctx, span := tracer.Start(ctx, "assembler.gather")
	defer span.End()

	out := gathered{
		reviews:  []domain.ReviewText{},
		coverage: domain.NewSourceCoverage(a.known),
	}

	var g errgroup.Group
	if a.reputation != nil {
		g.Go(func() error {
			a.guard("reputation", func() { out.reputation = a.reputation.Fetch(ctx, id) })
			return nil
		})
	}
	if a.reviews != nil {
		g.Go(func() error {
			a.guard("reviews", func() {
				if reviews := a.reviews.ListReviews(ctx, id); reviews != nil {
					out.reviews = reviews
				}
			})
			return nil
		})
		g.Go(func() error {
			a.guard("coverage", func() {
				if coverage := a.reviews.SourceCounts(ctx, id); coverage != nil {
					out.coverage = coverage
				}
			})
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (a *Assembler) collect(ctx context.Context, id domain.Identity) int {
	if a.trigger == nil {
		return 0
	}

	ctx, span := tracer.Start(ctx, "assembler.collect")
	defer span.End()

	count := 0
	a.guard("collection", func() { count = a.trigger.Trigger(ctx, id) })
	span.SetAttributes(attribute.Int("launched", count))
	return count
}

// enrich fans out the five enrichment calls and merges whatever settled before the deadline.
// Each field is independent: a failed or late call leaves only its own field nil.
func (a *Assembler) enrich(ctx context.Context, reviews []domain.ReviewText) domain.EnrichmentBundle {
	if a.enricher == nil {
		return domain.EnrichmentBundle{}
	}

	ctx, cancel := context.WithTimeout(ctx, a.deadline)
	defer cancel()
	ctx, span := tracer.Start(ctx, "assembler.enrich")
	defer span.End()

	var (
		mu     sync.Mutex
		bundle domain.EnrichmentBundle
		g      errgroup.Group
	)
	task := func(name string, run func() func(*domain.EnrichmentBundle)) {
		g.Go(func() error {
			a.guard(name, func() {
				apply := run()
				mu.Lock()
				apply(&bundle)
				mu.Unlock()
			})
			return nil
		})
	}

	task("summary", func() func(*domain.EnrichmentBundle) {
		v := a.enricher.Summarize(ctx, reviews)
		return func(b *domain.EnrichmentBundle) { b.Summary = v }
	})
	task("tags", func() func(*domain.EnrichmentBundle) {
		v := a.enricher.ExtractTags(ctx, reviews)
		return func(b *domain.EnrichmentBundle) { b.Tags = v }
	})
	task("skills", func() func(*domain.EnrichmentBundle) {
		v := a.enricher.ExtractSkills(ctx, reviews)
		return func(b *domain.EnrichmentBundle) { b.Skills = v }
	})
	task("sentiment", func() func(*domain.EnrichmentBundle) {
		v := a.enricher.ScoreSentiment(ctx, reviews)
		return func(b *domain.EnrichmentBundle) { b.Sentiment = v }
	})
	task("toxicity", func() func(*domain.EnrichmentBundle) {
		v := a.enricher.ScoreToxicity(ctx, reviews)
		return func(b *domain.EnrichmentBundle) { b.Toxic = v }
	})

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("enrichment deadline reached, merging settled results", "error", ctx.Err())
	}

	mu.Lock()
	defer mu.Unlock()
	return bundle
}

// guard keeps a panicking dependency from taking down its siblings; the field stays absent.
func (a *Assembler) guard(stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("dependency panicked", "stage", stage, "panic", fmt.Sprint(r))
		}
	}()
	fn()
}
