package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ProfInsight/internal/config"
	"ProfInsight/internal/domain"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

const professorPath = "/v1/professor"

// maxBody caps how much of a provider response is read.
const maxBody = 1 << 20

// Client fetches professor metadata from a PlanetTerp-compatible API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ ports.ReputationSource = (*Client)(nil)

// NewClient builds a client from configuration. A zero request rate disables limiting.
func NewClient(cfg config.ReputationConfig, log *slog.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, 1),
		logger:  log,
	}
}

// professorPayload mirrors the provider's loosely typed professor object.
type professorPayload struct {
	Name          *string           `json:"name"`
	AverageGPA    *float64          `json:"average_gpa"`
	AverageRating *float64          `json:"average_rating"`
	Courses       []json.RawMessage `json:"courses"`
	Department    *string           `json:"department"`
}

// Fetch returns the professor's record, or nil when the provider has none or the call failed.
func (c *Client) Fetch(ctx context.Context, id domain.Identity) *domain.ReputationRecord {
	payload, err := c.fetch(ctx, id)
	if err != nil {
		c.logger.Warn("reputation fetch failed", "professor", id.String(), "error", err)
		return nil
	}
	if payload == nil {
		c.logger.Debug("reputation record absent", "professor", id.String())
		return nil
	}

	return toRecord(*payload)
}

func (c *Client) fetch(ctx context.Context, id domain.Identity) (*professorPayload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := c.baseURL + professorPath + "?name=" + url.QueryEscape(id.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload professorPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if payload.Name == nil || strings.TrimSpace(*payload.Name) == "" {
		return nil, nil
	}
	return &payload, nil
}

func toRecord(p professorPayload) *domain.ReputationRecord {
	record := &domain.ReputationRecord{
		Courses: make([]string, 0, len(p.Courses)),
	}

	switch {
	case p.AverageGPA != nil:
		record.AverageMetric = p.AverageGPA
	case p.AverageRating != nil:
		record.AverageMetric = p.AverageRating
	}

	for _, raw := range p.Courses {
		var course string
		if err := json.Unmarshal(raw, &course); err != nil {
			continue
		}
		if course = strings.TrimSpace(course); course != "" {
			record.Courses = append(record.Courses, course)
		}
	}
	record.CourseCount = len(record.Courses)

	if p.Department != nil {
		if dept := strings.TrimSpace(*p.Department); dept != "" {
			record.Department = &dept
		}
	}

	return record
}
