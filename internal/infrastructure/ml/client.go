package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"ProfInsight/internal/config"
	"ProfInsight/internal/domain"
	"ProfInsight/internal/logging"
	"ProfInsight/internal/ports"
)

// Enrichment service routes.
const (
	pathSummarize = "/summarize"
	pathTags      = "/tags"
	pathSkills    = "/skills"
	pathSentiment = "/sentiment"
	pathToxicity  = "/toxicity"
	pathQA        = "/qa"
)

const maxBody = 1 << 20

var errMissingField = errors.New("missing field")

// Client talks to the external text-enrichment service. Every public method makes a
// single attempt and reports failure as nil.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.Enricher = (*Client)(nil)
var _ ports.QuestionAnswerer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.EnrichmentConfig, log *slog.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
		logger:   log,
	}
}

type reviewsRequest struct {
	Reviews  []string `json:"reviews"`
	Question string   `json:"question,omitempty"`
}

// Summarize requests a short summary of the reviews.
func (c *Client) Summarize(ctx context.Context, reviews []domain.ReviewText) *string {
	var resp struct {
		Summary *string `json:"summary"`
	}
	if !c.call(ctx, pathSummarize, reviewsRequest{Reviews: domain.Texts(reviews)}, &resp, func() error {
		if resp.Summary == nil {
			return fmt.Errorf("summary: %w", errMissingField)
		}
		return nil
	}) {
		return nil
	}
	return resp.Summary
}

// ExtractTags requests short descriptive tags.
func (c *Client) ExtractTags(ctx context.Context, reviews []domain.ReviewText) []string {
	return c.stringList(ctx, pathTags, "tags", reviews)
}

// ExtractSkills requests the skills or topics the professor teaches.
func (c *Client) ExtractSkills(ctx context.Context, reviews []domain.ReviewText) []string {
	return c.stringList(ctx, pathSkills, "skills", reviews)
}

// ScoreSentiment requests a sentiment score and its rationale.
func (c *Client) ScoreSentiment(ctx context.Context, reviews []domain.ReviewText) *domain.Sentiment {
	var resp struct {
		Sentiment   *float64 `json:"sentiment"`
		Explanation *string  `json:"explanation"`
	}
	var sentiment domain.Sentiment
	if !c.call(ctx, pathSentiment, reviewsRequest{Reviews: domain.Texts(reviews)}, &resp, func() error {
		if resp.Sentiment == nil {
			return fmt.Errorf("sentiment: %w", errMissingField)
		}
		rationale := ""
		if resp.Explanation != nil {
			rationale = strings.TrimSpace(*resp.Explanation)
		}
		var err error
		sentiment, err = domain.NewSentiment(*resp.Sentiment, rationale)
		return err
	}) {
		return nil
	}
	return &sentiment
}

// ScoreToxicity asks whether any review is toxic or sarcastic.
func (c *Client) ScoreToxicity(ctx context.Context, reviews []domain.ReviewText) *bool {
	var resp struct {
		Toxic *bool `json:"toxic"`
	}
	if !c.call(ctx, pathToxicity, reviewsRequest{Reviews: domain.Texts(reviews)}, &resp, func() error {
		if resp.Toxic == nil {
			return fmt.Errorf("toxic: %w", errMissingField)
		}
		return nil
	}) {
		return nil
	}
	return resp.Toxic
}

// Ask answers a question using only the review text.
func (c *Client) Ask(ctx context.Context, reviews []domain.ReviewText, question string) *string {
	var resp struct {
		Answer *string `json:"answer"`
	}
	req := reviewsRequest{Reviews: domain.Texts(reviews), Question: question}
	if !c.call(ctx, pathQA, req, &resp, func() error {
		if resp.Answer == nil {
			return fmt.Errorf("answer: %w", errMissingField)
		}
		return nil
	}) {
		return nil
	}
	return resp.Answer
}

func (c *Client) stringList(ctx context.Context, path, key string, reviews []domain.ReviewText) []string {
	var resp map[string]json.RawMessage
	var out []string
	if !c.call(ctx, path, reviewsRequest{Reviews: domain.Texts(reviews)}, &resp, func() error {
		var list []string
		if raw, ok := resp[key]; ok {
			if err := json.Unmarshal(raw, &list); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
		if list == nil {
			return fmt.Errorf("%s: %w", key, errMissingField)
		}
		out = make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return nil
	}) {
		return nil
	}
	return out
}

// call performs one POST and validates the decoded payload. It logs and returns false on any failure.
func (c *Client) call(ctx context.Context, path string, payload, v any, validate func() error) bool {
	err := c.post(ctx, path, payload, v)
	if err == nil && validate != nil {
		err = validate()
	}
	if err != nil {
		c.logger.Warn("enrichment unavailable", "operation", strings.TrimPrefix(path, "/"), "error", err)
		return false
	}
	return true
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if c.endpoint == "" {
		return fmt.Errorf("enrichment endpoint is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
