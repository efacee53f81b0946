package ports

import (
	"context"
	"time"

	"ProfInsight/internal/domain"
)

// ReputationSource fetches professor metadata. A nil record means "no record",
// whether the provider has none or could not be reached.
type ReputationSource interface {
	Fetch(ctx context.Context, id domain.Identity) *domain.ReputationRecord
}

// ReviewStore reads persisted reviews. Both queries absorb their own failures.
type ReviewStore interface {
	ListReviews(ctx context.Context, id domain.Identity) []domain.ReviewText
	SourceCounts(ctx context.Context, id domain.Identity) domain.SourceCoverage
}

// CollectionTrigger launches fire-and-forget collection jobs and reports how many launched.
type CollectionTrigger interface {
	Trigger(ctx context.Context, id domain.Identity) int
}

// Enricher derives NLP features from review text. Each call is failure-isolated:
// nil means the feature is unavailable for this request.
type Enricher interface {
	Summarize(ctx context.Context, reviews []domain.ReviewText) *string
	ExtractTags(ctx context.Context, reviews []domain.ReviewText) []string
	ExtractSkills(ctx context.Context, reviews []domain.ReviewText) []string
	ScoreSentiment(ctx context.Context, reviews []domain.ReviewText) *domain.Sentiment
	ScoreToxicity(ctx context.Context, reviews []domain.ReviewText) *bool
}

// QuestionAnswerer answers a free-form question from review text.
type QuestionAnswerer interface {
	Ask(ctx context.Context, reviews []domain.ReviewText, question string) *string
}

// Job is one out-of-band collection request.
type Job struct {
	ID             string
	Source         string
	Professor      string
	IdempotencyKey string
	QueuedAt       time.Time
}

// JobLauncher starts a collection job without waiting for it to finish.
// An error means the launch itself failed locally.
type JobLauncher interface {
	Name() string
	Launch(ctx context.Context, job Job) error
}
