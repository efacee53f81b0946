package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/PuerkitoBio/goquery"

	"ProfInsight/internal/domain"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

const defaultQueryTimeout = 5 * time.Second

// hasText drops rows that can never yield a review body.
var hasText = sq.And{
	sq.NotEq{"r.raw_text": nil},
	sq.Expr("TRIM(r.raw_text) <> ''"),
}

// ReviewGateway reads persisted reviews. It owns no write path; rows are written by collection jobs.
type ReviewGateway struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	known   []string
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.ReviewStore = (*ReviewGateway)(nil)

// NewReviewGateway wires a sql.DB. known lists every source tag reported in coverage.
func NewReviewGateway(db *sql.DB, driver string, known []string, log *slog.Logger) *ReviewGateway {
	if log == nil {
		log = logging.Discard()
	}
	return &ReviewGateway{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholders(driver)),
		known:   append([]string(nil), known...),
		timeout: defaultQueryTimeout,
		logger:  log,
	}
}

// Ping reports whether the store is reachable.
func (g *ReviewGateway) Ping(ctx context.Context) error {
	if g.db == nil {
		return fmt.Errorf("review store is not configured")
	}
	return g.db.PingContext(ctx)
}

// ListReviews returns the professor's reviews, most recent first; rows without a timestamp come last.
// Failures yield an empty list.
func (g *ReviewGateway) ListReviews(ctx context.Context, id domain.Identity) []domain.ReviewText {
	reviews, err := g.queryReviews(ctx, id)
	if err != nil {
		g.logger.Warn("list reviews failed", "professor", id.String(), "error", err)
		return []domain.ReviewText{}
	}
	return reviews
}

// SourceCounts reports which known sources hold at least one review. Failures yield all-false coverage.
func (g *ReviewGateway) SourceCounts(ctx context.Context, id domain.Identity) domain.SourceCoverage {
	coverage := domain.NewSourceCoverage(g.known)

	counts, err := g.queryCounts(ctx, id)
	if err != nil {
		g.logger.Warn("source counts failed", "professor", id.String(), "error", err)
		return coverage
	}

	for source, n := range counts {
		if _, ok := coverage[source]; ok && n > 0 {
			coverage[source] = true
		}
	}
	return coverage
}

func (g *ReviewGateway) queryReviews(ctx context.Context, id domain.Identity) ([]domain.ReviewText, error) {
	if g.db == nil {
		return nil, fmt.Errorf("review store is not configured")
	}

	query, args, err := g.builder.
		Select("r.source", "r.raw_text", "r.semester", "r.timestamp").
		From("review r").
		Join("professor p ON r.professor_id = p.id").
		Where(sq.Eq{"p.name": id.String()}).
		Where(hasText).
		OrderBy("r.timestamp IS NULL", "r.timestamp DESC", "r.id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reviews query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}

	reviews := make([]domain.ReviewText, 0)
	for rows.Next() {
		var (
			source   string
			raw      sql.NullString
			semester sql.NullString
			at       sql.NullTime
		)
		if err := rows.Scan(&source, &raw, &semester, &at); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan review: %w", err)
		}

		text := plainText(raw.String)
		if text == "" {
			continue
		}
		reviews = append(reviews, domain.ReviewText{
			Text:      text,
			Source:    source,
			Semester:  strings.TrimSpace(semester.String),
			CreatedAt: at.Time,
		})
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return reviews, nil
}

func (g *ReviewGateway) queryCounts(ctx context.Context, id domain.Identity) (map[string]int, error) {
	if g.db == nil {
		return nil, fmt.Errorf("review store is not configured")
	}

	query, args, err := g.builder.
		Select("r.source", "r.raw_text").
		From("review r").
		Join("professor p ON r.professor_id = p.id").
		Where(sq.Eq{"p.name": id.String()}).
		Where(hasText).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counts query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	rows, err := g.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}

	counts := make(map[string]int)
	for rows.Next() {
		var (
			source string
			raw    sql.NullString
		)
		if err := rows.Scan(&source, &raw); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan count: %w", err)
		}
		// Same emptiness rule as ListReviews, so coverage never claims a review the list drops.
		if plainText(raw.String) != "" {
			counts[source]++
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return counts, nil
}

// plainText strips markup scrapers sometimes leave in review bodies and collapses whitespace.
func plainText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.ContainsAny(raw, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
			raw = doc.Text()
		}
	}
	return strings.Join(strings.Fields(raw), " ")
}
