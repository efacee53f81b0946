package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ProfInsight/internal/domain"
	"ProfInsight/internal/usecase"
)

type stubService struct {
	lastName     string
	lastQuestion string
	view         domain.ProfessorView
	err          error
}

func (s *stubService) Lookup(_ context.Context, rawName string) (domain.ProfessorView, error) {
	s.lastName = rawName
	if s.err != nil {
		return domain.ProfessorView{}, s.err
	}
	return s.view, nil
}

func (s *stubService) Ask(_ context.Context, rawName, question string) (domain.Answer, error) {
	s.lastName, s.lastQuestion = rawName, question
	if s.err != nil {
		return domain.Answer{}, s.err
	}
	if strings.TrimSpace(question) == "" {
		return domain.Answer{}, usecase.ErrEmptyQuestion
	}
	answer := "yes"
	return domain.Answer{Name: rawName, Question: question, Answer: &answer}, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func serve(t *testing.T, opts Options, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewRouter(opts).ServeHTTP(rec, req)
	return rec
}

func TestGetProfessorPending(t *testing.T) {
	t.Parallel()

	triggered := true
	svc := &stubService{view: domain.ProfessorView{
		Name:                "john doe",
		Sources:             domain.NewSourceCoverage(domain.DefaultSources),
		CollectionTriggered: &triggered,
	}}

	rec := serve(t, Options{Service: svc}, http.MethodGet, "/professors/john-doe", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "john-doe", svc.lastName)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "john doe", got["name"])
	assert.Nil(t, got["reputation"])
	assert.Nil(t, got["enrichmentBundle"])
	assert.Equal(t, false, got["hasReviewData"])
	assert.Equal(t, true, got["collectionTriggered"])
}

func TestGetProfessorDecodesEscapedName(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	rec := serve(t, Options{Service: svc}, http.MethodGet, "/professors/Jane%20Smith", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Jane Smith", svc.lastName)

	rec = serve(t, Options{Service: svc}, http.MethodGet, "/professors/A%2FB", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A/B", svc.lastName)
}

func TestGetProfessorInvalidName(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: usecase.ErrInvalidName}
	rec := serve(t, Options{Service: svc}, http.MethodGet, "/professors/---", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var got apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "invalid_name", got.Code)
	assert.NotEmpty(t, got.RequestID)
}

func TestGetProfessorUnexpectedError(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: errors.New("boom")}
	rec := serve(t, Options{Service: svc}, http.MethodGet, "/professors/jane", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAskProfessor(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	rec := serve(t, Options{Service: svc}, http.MethodPost, "/professors/jane-smith/ask", `{"question":"Curved?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Curved?", svc.lastQuestion)

	rec = serve(t, Options{Service: svc}, http.MethodPost, "/professors/jane-smith/ask", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(t, Options{Service: svc}, http.MethodPost, "/professors/jane-smith/ask", `{"question":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := serve(t, Options{Service: &stubService{}, Store: stubPinger{}}, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = serve(t, Options{Service: &stubService{}, Store: stubPinger{err: errors.New("down")}}, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"degraded"`)
}

func TestNotFoundAndMethod(t *testing.T) {
	t.Parallel()

	rec := serve(t, Options{Service: &stubService{}}, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(t, Options{Service: &stubService{}}, http.MethodDelete, "/professors/jane", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
