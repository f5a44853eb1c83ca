package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/browsertestoor/pkg/config"
	"github.com/ethpandaops/browsertestoor/pkg/results"
	"github.com/ethpandaops/browsertestoor/pkg/store"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return log
}

// newTestServer builds a router backed by a temp sqlite store seeded
// with the given runs.
func newTestServer(t *testing.T, cfg *config.APIConfig, runIDs ...string) http.Handler {
	t.Helper()

	if cfg == nil {
		cfg = &config.APIConfig{}
	}

	cfg.Database = config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "runs.db")},
	}

	st := store.NewStore(testLogger(), &cfg.Database)
	require.NoError(t, st.Start(context.Background()))
	t.Cleanup(func() { require.NoError(t, st.Stop()) })

	for i, id := range runIDs {
		res := []results.TestResult{
			{
				TestName: "login",
				Status:   results.StatusPassed,
				Duration: 2 * time.Second,
				Metadata: results.Metadata{Tags: []string{"smoke"}},
			},
			{
				TestName: "checkout",
				Status:   results.StatusFailed,
				Error:    "button missing",
			},
		}

		summary := results.GenerateSummary("shop", res, 5*time.Second)
		summary.RunID = id

		start := time.Now().Add(time.Duration(i) * time.Hour)
		require.NoError(t, st.SaveRun(
			context.Background(), summary, res, start, start.Add(time.Minute),
		))
	}

	s := &server{
		log:   testLogger(),
		cfg:   cfg,
		store: st,
		done:  make(chan struct{}),
	}

	return s.buildRouter()
}

func doGet(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, nil)

	rec := doGet(t, h, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestListRuns(t *testing.T) {
	h := newTestServer(t, nil, "run-1", "run-2", "run-3")

	rec := doGet(t, h, "/api/v1/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs   []store.Run `json:"runs"`
		Limit  int         `json:"limit"`
		Offset int         `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.Len(t, body.Runs, 3)
	assert.Equal(t, 50, body.Limit)

	// Newest first.
	assert.Equal(t, "run-3", body.Runs[0].RunID)

	rec = doGet(t, h, "/api/v1/runs?limit=1&offset=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "run-2", body.Runs[0].RunID)
}

func TestGetRun(t *testing.T) {
	h := newTestServer(t, nil, "run-1")

	rec := doGet(t, h, "/api/v1/runs/run-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var run store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "shop", run.SuiteName)
	assert.Equal(t, 2, run.TestsTotal)

	rec = doGet(t, h, "/api/v1/runs/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListResults(t *testing.T) {
	h := newTestServer(t, nil, "run-1")

	rec := doGet(t, h, "/api/v1/runs/run-1/results")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		RunID   string             `json:"run_id"`
		Results []store.TestRecord `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "run-1", body.RunID)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "login", body.Results[0].TestName)
	assert.Equal(t, "passed", body.Results[0].Status)
	assert.Equal(t, "checkout", body.Results[1].TestName)

	rec = doGet(t, h, "/api/v1/runs/missing/results")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := &config.APIConfig{
		Server: config.APIServerConfig{
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 2,
			},
		},
	}

	h := newTestServer(t, cfg)

	// Burst equals the per-minute limit; the third request is rejected.
	for i := 0; i < 2; i++ {
		rec := doGet(t, h, "/api/v1/health")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doGet(t, h, "/api/v1/health")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "absent", query: "", want: 50},
		{name: "valid", query: "limit=10", want: 10},
		{name: "malformed", query: "limit=abc", want: 50},
		{name: "negative", query: "limit=-5", want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(
				http.MethodGet, "/api/v1/runs?"+tt.query, nil,
			)
			assert.Equal(t, tt.want, queryInt(req, "limit", 50))
		})
	}
}
