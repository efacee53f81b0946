package domain

import (
	"fmt"
	"time"
)

// Known review sources.
const (
	SourceReddit    = "reddit"
	SourceCoursicle = "coursicle"
	SourceRMP       = "rmp"
)

// DefaultSources lists every source the review store may hold rows for.
var DefaultSources = []string{SourceReddit, SourceCoursicle, SourceRMP}

// ReputationRecord is the normalized metadata returned by the reputation provider.
// AverageMetric is nil when the provider reports neither a GPA nor a rating.
type ReputationRecord struct {
	AverageMetric *float64 `json:"averageMetric"`
	CourseCount   int      `json:"courseCount"`
	Courses       []string `json:"courses"`
	Department    *string  `json:"department"`
}

// ReviewText is one persisted review, owned by the review store.
type ReviewText struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Semester  string    `json:"semester,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// Texts returns the bare review bodies in their original order.
func Texts(reviews []ReviewText) []string {
	out := make([]string, len(reviews))
	for i, r := range reviews {
		out[i] = r.Text
	}
	return out
}

// SourceCoverage reports, per source tag, whether at least one review exists.
type SourceCoverage map[string]bool

// NewSourceCoverage returns coverage with every known source set to false.
func NewSourceCoverage(known []string) SourceCoverage {
	coverage := make(SourceCoverage, len(known))
	for _, source := range known {
		coverage[source] = false
	}
	return coverage
}

// Sentiment pairs a score with the model's short rationale.
type Sentiment struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

// NewSentiment validates the score range.
func NewSentiment(score float64, rationale string) (Sentiment, error) {
	if score < -1 || score > 1 {
		return Sentiment{}, fmt.Errorf("sentiment score %v outside [-1, 1]", score)
	}
	return Sentiment{Score: score, Rationale: rationale}, nil
}

// EnrichmentBundle merges the five enrichment results. A nil field means that
// operation was unavailable for this request.
type EnrichmentBundle struct {
	Summary   *string    `json:"summary"`
	Tags      []string   `json:"tags"`
	Skills    []string   `json:"skills"`
	Sentiment *Sentiment `json:"sentiment"`
	Toxic     *bool      `json:"toxic"`
}

// ProfessorView is the response assembled for a single lookup.
type ProfessorView struct {
	Name                string            `json:"name"`
	Department          *string           `json:"department"`
	Reputation          *ReputationRecord `json:"reputation"`
	Sources             SourceCoverage    `json:"sources"`
	HasReviewData       bool              `json:"hasReviewData"`
	CollectionTriggered *bool             `json:"collectionTriggered"`
	Enrichment          *EnrichmentBundle `json:"enrichmentBundle"`
	Reviews             []ReviewText      `json:"reviews"`
}

// Answer is the result of a question asked against a professor's reviews.
type Answer struct {
	Name     string  `json:"name"`
	Question string  `json:"question"`
	Answer   *string `json:"answer"`
}
