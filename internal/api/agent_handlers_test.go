package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimspilot/pkg/models"
)

type stubRunner struct {
	calls   int
	summary *models.RunSummary
	err     error
}

func (r *stubRunner) Run(ctx context.Context, triggerSource string) (*models.RunSummary, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if r.summary != nil {
		return r.summary, nil
	}
	return &models.RunSummary{RunID: "run-1", TriggerSource: triggerSource, Errors: []string{}}, nil
}

type stubHistory struct {
	inserted []*models.RunSummary
	runs     []*models.RunSummary
	err      error
}

func (h *stubHistory) InsertRunSummary(ctx context.Context, summary *models.RunSummary) error {
	if h.err != nil {
		return h.err
	}
	h.inserted = append(h.inserted, summary)
	return nil
}

func (h *stubHistory) ListRecentRuns(ctx context.Context, limit int) ([]*models.RunSummary, error) {
	if h.err != nil {
		return nil, h.err
	}
	if limit < len(h.runs) {
		return h.runs[:limit], nil
	}
	return h.runs, nil
}

func doRequest(server *Server, method, path, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	return rec
}

func TestTriggerAgentRun_RequiresSecret(t *testing.T) {
	runner := &stubRunner{}
	server := NewServer(0, "s3cret", runner, &stubHistory{})

	rec := doRequest(server, http.MethodPost, "/api/v1/agent/run", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// No side effect before authorization
	assert.Zero(t, runner.calls)

	rec = doRequest(server, http.MethodPost, "/api/v1/agent/run", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestTriggerAgentRun_EmptyConfiguredSecretAlwaysRejects(t *testing.T) {
	runner := &stubRunner{}
	server := NewServer(0, "", runner, &stubHistory{})

	rec := doRequest(server, http.MethodPost, "/api/v1/agent/run", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, runner.calls)
}

func TestTriggerAgentRun_ReturnsSummary(t *testing.T) {
	runner := &stubRunner{summary: &models.RunSummary{
		RunID:         "run-7",
		TriggerSource: "http_trigger",
		Processed:     4,
		EmailsSent:    2,
		Errors:        []string{},
	}}
	history := &stubHistory{}
	server := NewServer(0, "s3cret", runner, history)

	rec := doRequest(server, http.MethodPost, "/api/v1/agent/run", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)

	var summary models.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "run-7", summary.RunID)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 2, summary.EmailsSent)

	// Summary was recorded for the history endpoint
	require.Len(t, history.inserted, 1)
	assert.Equal(t, "run-7", history.inserted[0].RunID)
}

func TestTriggerAgentRun_RunFailureReturns500(t *testing.T) {
	runner := &stubRunner{err: errors.New("database unreachable")}
	server := NewServer(0, "s3cret", runner, &stubHistory{})

	rec := doRequest(server, http.MethodPost, "/api/v1/agent/run", "s3cret")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unreachable")
}

func TestTriggerAgentRun_HistoryFailureIsBestEffort(t *testing.T) {
	runner := &stubRunner{}
	server := NewServer(0, "s3cret", runner, &stubHistory{err: errors.New("insert failed")})

	rec := doRequest(server, http.MethodPost, "/api/v1/agent/run", "s3cret")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRecentRuns(t *testing.T) {
	history := &stubHistory{runs: []*models.RunSummary{
		{RunID: "run-3"}, {RunID: "run-2"}, {RunID: "run-1"},
	}}
	server := NewServer(0, "s3cret", &stubRunner{}, history)

	rec := doRequest(server, http.MethodGet, "/api/v1/agent/runs/recent?limit=2", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []*models.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	if diff := cmp.Diff(history.runs[:2], runs); diff != "" {
		t.Errorf("unexpected runs payload (-want +got):\n%s", diff)
	}
}

func TestGetRecentRuns_RequiresSecret(t *testing.T) {
	server := NewServer(0, "s3cret", &stubRunner{}, &stubHistory{})

	rec := doRequest(server, http.MethodGet, "/api/v1/agent/runs/recent", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpointIsPublic(t *testing.T) {
	server := NewServer(0, "s3cret", &stubRunner{}, &stubHistory{})

	rec := doRequest(server, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestGetRecentRuns_WithoutHistoryReturnsEmptyList(t *testing.T) {
	server := NewServer(0, "s3cret", &stubRunner{}, nil)

	rec := doRequest(server, http.MethodGet, "/api/v1/agent/runs/recent", "s3cret")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []*models.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Empty(t, runs)
}
