package status

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"thirdcoast.systems/scout/internal/db"
	"thirdcoast.systems/scout/internal/jobs"
	"thirdcoast.systems/scout/internal/testsupport"
	"thirdcoast.systems/scout/internal/topicgraph"
)

type fixedWorker jobs.Status

func (w fixedWorker) Status() jobs.Status { return jobs.Status(w) }

type fixture struct {
	store    *testsupport.MemoryStore
	progress *jobs.ProgressMap
	server   *Server
	tenant   *db.Tenant
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testsupport.NewMemoryStore()
	f := &fixture{
		store:    store,
		progress: jobs.NewProgressMap(),
		tenant:   store.AddTenant("acme"),
	}
	f.server = NewServer(
		Options{DefaultLookbackDays: 7, InitialLookbackDays: 90},
		store, store, db.NewGraphCache(store), f.progress,
		fixedWorker{State: jobs.StateRunning, JobID: "job-1"},
	)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","worker":{"state":"running","job_id":"job-1"}}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSubmitJob(t *testing.T) {
	f := newFixture(t)
	body := `{"tenantId":"` + f.tenant.ID + `","platform":"youtube","handle":"@BeaBakes","initial":true}`

	rec := f.do(t, http.MethodPost, "/api/jobs", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job db.ScrapeJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.Equal(t, "beabakes", job.Handle)
	require.Equal(t, int32(90), job.LookbackDays)
	require.Equal(t, db.JobStatusPending, job.Status)

	rec = f.do(t, http.MethodPost, "/api/jobs", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitJob_Invalid(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `{`},
		{name: "bad tenant", body: `{"tenantId":"acme","platform":"youtube","handle":"x"}`},
		{name: "bad platform", body: `{"tenantId":"` + f.tenant.ID + `","platform":"myspace","handle":"x"}`},
		{name: "missing handle", body: `{"tenantId":"` + f.tenant.ID + `","platform":"youtube"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/jobs", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestJobStatus_MergesProgress(t *testing.T) {
	f := newFixture(t)
	job, err := f.store.Enqueue(db.EnqueueScrapeJobParams{TenantID: f.tenant.ID, Platform: "youtube", Handle: "beabakes", LookbackDays: 7})
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/jobs/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"progress"`)

	require.NoError(t, f.store.MarkJobRunning(context.Background(), job.ID, time.Now()))
	f.progress.Report(job.ID, "enrich", 4, 12)

	rec = f.do(t, http.MethodGet, "/api/jobs/"+job.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Status   string        `json:"status"`
		Progress jobs.Progress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "running", got.Status)
	require.Equal(t, "enrich", got.Progress.Step)
	require.Equal(t, 4, got.Progress.Current)
	require.Equal(t, 12, got.Progress.Total)
}

func TestJobStatus_NotFound(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/jobs/1b4e28ba-2fa1-11d2-883f-0016d3cca427", "").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/jobs/nope", "").Code)
}

func TestGraphEndpoints(t *testing.T) {
	f := newFixture(t)
	path := "/api/tenants/" + f.tenant.ID + "/graph"

	require.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, path, "").Code)

	g := &topicgraph.Graph{
		Params:    topicgraph.DefaultParams(),
		ItemCount: 12,
		Topics: []topicgraph.Node{
			{Index: 0, Name: "baking", ItemCount: 5, Multiplier: 1.3},
			{Index: 1, Name: "sourdough", ItemCount: 4, Multiplier: 0.9},
		},
		Edges: []topicgraph.Edge{{Source: 1, Target: 0, Weight: 0.75}},
	}
	require.NoError(t, f.store.SaveTopicGraph(context.Background(), f.tenant.ID, g, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)))

	// Misses are not cached.
	rec := f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		BuiltAt string           `json:"built_at"`
		Graph   topicgraph.Graph `json:"graph"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "2026-10-01T12:00:00Z", got.BuiltAt)
	require.Len(t, got.Graph.Topics, 2)

	rec = f.do(t, http.MethodGet, path+"/report", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "<table>")
	require.Contains(t, rec.Body.String(), "sourdough")
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.store.InsertSuggestion(ctx, db.ChannelSuggestion{TenantID: f.tenant.ID, Platform: "youtube", Handle: "crumbshot", TopicName: "sourdough"})
	require.NoError(t, err)

	path := "/api/tenants/" + f.tenant.ID + "/suggestions"
	rec := f.do(t, http.MethodGet, path+"?status=pending", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []db.ChannelSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "crumbshot", got[0].Handle)

	rec = f.do(t, http.MethodGet, path+"?status=accepted", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `[]`, rec.Body.String())

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, path+"?status=bogus", "").Code)
}
