package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sitescope/sitescope/internal/analysis"
	"github.com/sitescope/sitescope/internal/config"
	jobmem "github.com/sitescope/sitescope/internal/jobs/memory"
	"github.com/sitescope/sitescope/internal/metrics"
)

func TestServer_AnalyzeSEO_Succeeds(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/analyze-seo", bytes.NewBufferString(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var result analysis.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, 81, result.SEOScore)
	require.Equal(t, "example.com", result.Domain)
	require.Equal(t, []string{"https://example.com"}, env.runner.urls)
}

func TestServer_AnalyzeSEO_InvalidJSON(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/analyze-seo", bytes.NewBufferString("{invalid"))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "invalid JSON")
}

func TestServer_AnalyzeSEO_MissingURL(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/analyze-seo", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AnalyzeSEO_InvalidURL(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	env.runner.err = fmt.Errorf("%w: unsupported scheme %q", analysis.ErrInvalidURL, "ftp")
	req := httptest.NewRequest(http.MethodPost, "/analyze-seo", bytes.NewBufferString(`{"url":"ftp://example.com"}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unsupported scheme")
}

func TestServer_AnalyzeSEO_RunnerError(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	env.runner.err = assert.AnError
	req := httptest.NewRequest(http.MethodPost, "/analyze-seo", bytes.NewBufferString(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "analysis failed")
	require.NotContains(t, rec.Body.String(), assert.AnError.Error(),
		"internal error detail must not leak to clients")
}

func TestServer_AnalyzeComprehensive_Starts(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/analyze-comprehensive", bytes.NewBufferString(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "job-9", resp["analysisId"])
	require.Equal(t, "started", resp["status"])
}

func TestServer_AnalyzeComprehensive_InvalidURL(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	env.coord.err = fmt.Errorf("%w: invalid host %q", analysis.ErrInvalidURL, "")
	req := httptest.NewRequest(http.MethodPost, "/analyze-comprehensive", bytes.NewBufferString(`{"url":"https://"}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetComprehensive_ReturnsSnapshot(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	job := analysis.Job{
		ID:        "job-5",
		Domain:    "example.com",
		Status:    analysis.JobStatusRunning,
		Progress:  50,
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.store.CreateJob(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/analyze-comprehensive/job-5", nil)
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got analysis.Job
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Equal(t, "job-5", got.ID)
	require.Equal(t, 50, got.Progress)
	require.Equal(t, analysis.JobStatusRunning, got.Status)
}

func TestServer_GetComprehensive_NotFound(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/analyze-comprehensive/unknown", nil)
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "analysis not found")
}

func TestServer_HealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		env.server.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# HELP")
}

func TestServer_APIKeyMiddleware(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Auth: config.AuthConfig{Enabled: true, APIKey: "secret"}}
	env := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/healthz?api_key=secret", nil)
	rec = httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RecoversHandlerPanic(t *testing.T) {
	t.Parallel()

	env := newTestServer(t, config.Config{})
	env.runner.panics = true
	req := httptest.NewRequest(http.MethodPost, "/analyze-seo", bytes.NewBufferString(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()

	env.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}

// --- helpers/fakes ---

type serverEnv struct {
	runner *fakeRunner
	coord  *fakeCoordinator
	store  *jobmem.Store
	server *Server
}

func newTestServer(t *testing.T, cfg config.Config) *serverEnv {
	t.Helper()
	metrics.Init()
	env := &serverEnv{
		runner: &fakeRunner{result: analysis.Result{SEOScore: 81, Domain: "example.com"}},
		coord: &fakeCoordinator{job: analysis.Job{
			ID:     "job-9",
			Domain: "example.com",
			Status: analysis.JobStatusRunning,
		}},
		store: jobmem.NewStore(fixedClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}),
	}
	env.server = NewServer(env.runner, env.coord, env.store, cfg, zap.NewNop())
	return env
}

type fakeRunner struct {
	result analysis.Result
	err    error
	panics bool
	urls   []string
}

func (f *fakeRunner) Run(_ context.Context, rawURL string) (analysis.Result, error) {
	if f.panics {
		panic("runner blew up")
	}
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return analysis.Result{}, f.err
	}
	if rawURL == "" {
		return analysis.Result{}, fmt.Errorf("%w: empty input", analysis.ErrInvalidURL)
	}
	return f.result, nil
}

type fakeCoordinator struct {
	job analysis.Job
	err error
}

func (f *fakeCoordinator) Start(context.Context, string) (analysis.Job, error) {
	if f.err != nil {
		return analysis.Job{}, f.err
	}
	return f.job, nil
}

type fixedClock struct {
	now time.Time
}

func (f fixedClock) Now() time.Time { return f.now }
