package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/hirelytics/internal/ai"
	"github.com/spigell/hirelytics/internal/ai/synthetic"
	"github.com/spigell/hirelytics/internal/candidates"
	"github.com/spigell/hirelytics/internal/comparison"
	"github.com/spigell/hirelytics/internal/plan"
)

var now = time.Date(2026, time.June, 1, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T) (*httptest.Server, *plan.Book) {
	t.Helper()
	ctx := context.Background()

	projects := candidates.NewDirStore(t.TempDir())
	for _, c := range []candidates.Candidate{
		{ID: "ada", Name: "Ada", Resume: []byte("Go, Kubernetes"), Character: []byte("calm")},
		{ID: "bob", Name: "Bob", Resume: []byte("Python"), Character: []byte("curious")},
	} {
		_, err := projects.Put(ctx, "backend", c, "txt")
		require.NoError(t, err)
	}

	book := plan.NewBook(plan.NewMemoryStore(), zap.NewNop(), plan.WithClock(func() time.Time { return now }))

	registry := ai.NewRegistry()
	registry.Register(ai.ProviderSynthetic, synthetic.New())

	orch, err := comparison.New(comparison.Deps{
		Ledgers:    book,
		Candidates: projects,
		Cache:      projects,
		Extractor:  candidates.NewDocumentExtractor(zap.NewNop()),
		Registry:   registry,
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)

	srv := New(book, orch, Options{
		Defaults: ai.Config{Provider: ai.ProviderSynthetic, Temperature: ai.DefaultTemperature, MaxTokens: ai.DefaultMaxTokens},
	})

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, book
}

func do(t *testing.T, ts *httptest.Server, method, path, user string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func TestHealthz(t *testing.T) {
	ts, _ := newServer(t)

	resp, body := do(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestCompareThenQuotaExceeded(t *testing.T) {
	ts, _ := newServer(t)
	path := "/projects/backend/comparisons"
	req := map[string]any{"candidateIds": []string{"bob", "ada"}}

	resp, body := do(t, ts, http.MethodPost, path, "alice", req)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var res comparison.Result
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Len(t, res.Rankings, 2)
	assert.Equal(t, 1, res.Rankings[0].Rank)
	assert.Equal(t, ai.ProviderSynthetic, res.Metadata.Provider)
	assert.NotEmpty(t, res.Insights)
	assert.NotEmpty(t, res.Metadata.RunID)

	resp, body = do(t, ts, http.MethodPost, path, "alice", req)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Contains(t, string(body), `"kind":"quota_exceeded"`)

	// other users keep their own quota
	resp, _ = do(t, ts, http.MethodPost, path, "carol", req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCompareErrors(t *testing.T) {
	ts, _ := newServer(t)

	cases := []struct {
		name   string
		path   string
		body   any
		status int
		kind   string
	}{
		{name: "one candidate", path: "/projects/backend/comparisons", body: map[string]any{"candidateIds": []string{"ada"}}, status: http.StatusBadRequest, kind: "insufficient_candidates"},
		{name: "unknown provider", path: "/projects/backend/comparisons", body: map[string]any{"candidateIds": []string{"ada", "bob"}, "provider": "mistral"}, status: http.StatusBadRequest, kind: "invalid_provider"},
		{name: "bad temperature", path: "/projects/backend/comparisons", body: map[string]any{"candidateIds": []string{"ada", "bob"}, "temperature": 3}, status: http.StatusBadRequest, kind: "invalid_config"},
		{name: "missing project", path: "/projects/nope/comparisons", body: map[string]any{"candidateIds": []string{"ada", "bob"}}, status: http.StatusNotFound, kind: "not_found"},
		{name: "unknown field", path: "/projects/backend/comparisons", body: map[string]any{"apiKey": "sk"}, status: http.StatusBadRequest, kind: "bad_request"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, ts, http.MethodPost, tc.path, "dave", tc.body)
			assert.Equal(t, tc.status, resp.StatusCode)

			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tc.kind, e.Kind)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestPlanEndpoints(t *testing.T) {
	ts, _ := newServer(t)

	resp, body := do(t, ts, http.MethodGet, "/plan", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap plan.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, plan.TierFree, snap.Plan)
	assert.True(t, snap.CanRun)

	resp, body = do(t, ts, http.MethodPost, "/plan/upgrade", "", map[string]string{"tier": "hire%"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, plan.TierPro, snap.Plan)
	assert.Equal(t, 20, snap.Limits.CandidateLimit)

	resp, _ = do(t, ts, http.MethodPost, "/plan/upgrade", "", map[string]string{"tier": "gold"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

type failing struct{ err error }

func (f failing) Run(context.Context, comparison.Request) (*comparison.Result, error) {
	return nil, f.err
}

func TestProviderFailuresMapToBadGateway(t *testing.T) {
	for _, err := range []error{
		&ai.HTTPError{Provider: ai.ProviderOpenAI, Status: 500, Message: "boom"},
		&ai.ParseError{Provider: ai.ProviderCohere, Reason: "not json"},
		&ai.TransportError{Provider: ai.ProviderJina, Err: errors.New("dial tcp: refused")},
	} {
		srv := New(plan.NewBook(nil, nil), failing{err: err}, Options{})
		ts := httptest.NewServer(srv.Routes())

		resp, _ := do(t, ts, http.MethodPost, "/projects/p/comparisons", "", map[string]any{"candidateIds": []string{"a", "b"}})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode, "%v", err)
		ts.Close()
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(comparison.KindAllExtractionsFailed))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(comparison.KindInvariantViolation))
	assert.Equal(t, http.StatusBadRequest, StatusFor(comparison.KindCandidateLimit))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(comparison.KindInternal))
}
