package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/vr-training-admin/internal/analytics"
	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/evaluation"
	"github.com/jonathan/vr-training-admin/internal/prefs"
	"github.com/jonathan/vr-training-admin/internal/server/ratelimit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream is a fake training platform API.
type upstream struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	u.mu.Lock()
	u.requests = append(u.requests, r)
	u.bodies = append(u.bodies, string(body))
	handler := u.handler
	u.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}
	_, _ = w.Write([]byte(`{"data": [], "total": 0}`))
}

func (u *upstream) last() *http.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.requests) == 0 {
		return nil
	}
	return u.requests[len(u.requests)-1]
}

type testServer struct {
	*Server
	upstream  *upstream
	pageSizes *prefs.PageSizes
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	up := &upstream{}
	api := httptest.NewServer(up)
	t.Cleanup(api.Close)

	client, err := apiclient.New(apiclient.Options{BaseURL: api.URL, Token: "service-token"})
	require.NoError(t, err)

	if cfg.RateLimit == nil {
		cfg.RateLimit = &ratelimit.Config{Enabled: false}
	}
	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{"*"}
	}
	pageSizes := prefs.NewPageSizes(prefs.NewMemoryStore(), zerolog.Nop())
	s := New(cfg, client, pageSizes, zerolog.Nop())
	t.Cleanup(s.rateLimiter.Stop)

	return &testServer{Server: s, upstream: up, pageSizes: pageSizes}
}

func (ts *testServer) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t, Config{})
	rec := ts.do(t, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(apiclient.RequestIDHeader))
	assert.Equal(t, map[string]string{"status": "ok"}, decode[map[string]string](t, rec))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t, Config{})
	rec := ts.do(t, http.MethodGet, "/health", "", apiclient.RequestIDHeader, "req-123")
	assert.Equal(t, "req-123", rec.Header().Get(apiclient.RequestIDHeader))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Config{AllowedOrigins: []string{"https://admin.example.com"}})

	rec := ts.do(t, http.MethodOptions, "/evaluations", "", "Origin", "https://admin.example.com")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://admin.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	rec = ts.do(t, http.MethodOptions, "/evaluations", "", "Origin", "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandleList_DefaultsFromSavedPageSize(t *testing.T) {
	ts := newTestServer(t, Config{DefaultPageSize: 10})
	require.NoError(t, ts.pageSizes.Set(t.Context(), tableTrainings, 25))
	ts.upstream.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [{"_id": "t1", "mode": "jsonLifeCycle"}], "total": 60}`))
	}

	rec := ts.do(t, http.MethodGet, "/trainings", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := ts.upstream.last()
	assert.Equal(t, "/training/", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("page"))
	assert.Equal(t, "25", got.URL.Query().Get("limit"))
	assert.Equal(t, "Bearer service-token", got.Header.Get("Authorization"))

	resp := decode[ListResponse](t, rec)
	assert.Equal(t, 60, resp.Total)
	assert.Equal(t, 3, resp.PageCount)
	assert.Equal(t, 25, resp.Limit)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, evaluation.StatusOngoing, resp.Data[0].Status)

	// evaluations keep their own default
	ts.do(t, http.MethodGet, "/evaluations", "")
	assert.Equal(t, "10", ts.upstream.last().URL.Query().Get("limit"))
}

func TestHandleList_ForwardsGridQuery(t *testing.T) {
	ts := newTestServer(t, Config{})

	q := url.Values{}
	q.Set("page", "3")
	q.Set("limit", "20")
	q.Set("sort", `{"createdAt":-1}`)
	q.Set("filters", `[{"id":"mode","value":["mcq","time"]},{"id":"status","value":[]}]`)
	rec := ts.do(t, http.MethodGet, "/evaluations?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := ts.upstream.last()
	assert.Equal(t, "/evaluation/all", got.URL.Path)
	assert.Equal(t, "3", got.URL.Query().Get("page"))
	assert.Equal(t, "20", got.URL.Query().Get("limit"))
	assert.JSONEq(t, `{"createdat":-1}`, got.URL.Query().Get("sort"))
	assert.JSONEq(t, `[{"id":"mode","value":["mcq","time"]}]`, got.URL.Query().Get("filters"))
}

func TestHandleList_BadQuery(t *testing.T) {
	ts := newTestServer(t, Config{})

	filters := func(v string) string {
		return "/evaluations?" + url.Values{"filters": {v}}.Encode()
	}
	targets := []string{
		"/evaluations?page=0",
		"/evaluations?limit=x",
		"/evaluations?sort=%5B",
		"/evaluations?filters=%7B",
		filters(`[{"id":"mode"}]`),
		filters(`[{"id":"","value":"x"}]`),
		filters(`{"id":"mode","value":"mcq"}`),
	}
	for _, target := range targets {
		rec := ts.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Nil(t, ts.upstream.last())
}

func TestHandleList_UpstreamErrors(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.upstream.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message": "database unavailable"}`))
	}

	rec := ts.do(t, http.MethodGet, "/evaluations", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "database unavailable", decode[map[string]string](t, rec)["error"])
}

func TestHandleResult(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.upstream.handler = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/evaluation/e1", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id": "e1", "mode": "time", "endTime": "2024-05-01T10:00:00Z",
			"evaluationDump": {"timeBased": {"bronzeTimeLimit": 100, "mistakesAllowed": 2}},
			"answers": {"timeBased": {"timeTaken": 90, "mistakes": 3, "score": "bronze"}}}`))
	}

	rec := ts.do(t, http.MethodGet, "/evaluations/e1/result", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec2 := decode[evaluation.Record](t, rec)
	assert.Equal(t, evaluation.StatusFail, rec2.Status)
	assert.Equal(t, "Bronze", rec2.Score)
}

func TestHandleResult_NotFound(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.upstream.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}

	rec := ts.do(t, http.MethodGet, "/trainings/missing/result", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Something went wrong. Please try again.", decode[map[string]string](t, rec)["error"])
}

func TestHandleArchive_ForwardsCallerToken(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := signed(t, jwt.MapClaims{"sub": "u1", "permissions": []string{"archive"}, "exp": time.Now().Add(time.Hour).Unix()})

	rec := ts.do(t, http.MethodPost, "/trainings/t1/archive", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := ts.upstream.last()
	assert.Equal(t, "/training/archive/t1", got.URL.Path)
	assert.Equal(t, "Bearer "+token, got.Header.Get("Authorization"))
}

func TestHandleArchive_RequiresPermission(t *testing.T) {
	ts := newTestServer(t, Config{})
	token := signed(t, jwt.MapClaims{"sub": "u1", "permissions": []string{"view"}})

	rec := ts.do(t, http.MethodPost, "/evaluations/e1/archive", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, ts.upstream.last())
}

func TestHandleBulkArchive(t *testing.T) {
	ts := newTestServer(t, Config{})

	rec := ts.do(t, http.MethodPost, "/archive/bulk", `{"type": "evaluation", "data": ["b", "a", "b"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, BulkArchiveResponse{Type: "evaluation", Archived: 2}, decode[BulkArchiveResponse](t, rec))

	assert.Equal(t, "/archive/bulkArchive", ts.upstream.last().URL.Path)
	assert.JSONEq(t, `{"type": "evaluation", "data": ["a", "b"]}`, ts.upstream.bodies[0])
}

func TestHandleBulkArchive_Validation(t *testing.T) {
	ts := newTestServer(t, Config{})

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "no ids", body: `{"type": "evaluation", "data": []}`},
		{name: "bad type", body: `{"type": "course", "data": ["a"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/archive/bulk", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Nil(t, ts.upstream.last())
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t, Config{RequireAuth: true})

	rec := ts.do(t, http.MethodGet, "/evaluations", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := signed(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Hour).Unix()})
	rec = ts.do(t, http.MethodGet, "/evaluations", "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, ts.upstream.last())

	// CORS preflight is answered before authentication
	rec = ts.do(t, http.MethodOptions, "/evaluations", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPageSizePreferences(t *testing.T) {
	ts := newTestServer(t, Config{DefaultPageSize: 10})

	rec := ts.do(t, http.MethodGet, "/preferences/page-size/trainings", "")
	assert.Equal(t, PageSizeResponse{Table: "trainings", PageSize: 10}, decode[PageSizeResponse](t, rec))

	rec = ts.do(t, http.MethodPut, "/preferences/page-size/trainings", `{"pageSize": 50}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPut, "/preferences/page-size/evaluations", `{"pageSize": 20}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/preferences/page-size/trainings", "")
	assert.Equal(t, 50, decode[PageSizeResponse](t, rec).PageSize)

	rec = ts.do(t, http.MethodGet, "/preferences/page-size", "")
	assert.Equal(t, map[string]int{"trainings": 50, "evaluations": 20}, decode[map[string]int](t, rec))

	for _, body := range []string{`{"pageSize": 0}`, `{"pageSize": -5}`, `nope`} {
		rec = ts.do(t, http.MethodPut, "/preferences/page-size/trainings", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestAnalyticsSummary(t *testing.T) {
	ts := newTestServer(t, Config{})
	ts.upstream.handler = func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data": [
			{"_id": "a", "mode": "mcq", "startTime": "2024-05-02T00:00:00Z", "endTime": "2024-05-02T00:10:00Z", "score": 1, "evaluationDump": {"mcqs": [{}]}},
			{"_id": "b", "mode": "mcq", "startTime": "2024-04-25T00:00:00Z"}
		], "total": 2}`))
	}

	rec := ts.do(t, http.MethodGet, "/analytics/summary?from=2024-05-01&to=2024-05-08", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[analytics.Report](t, rec)
	assert.Equal(t, 1, report.Current.Total)
	assert.Equal(t, 1, report.Current.Passed)
	require.NotNil(t, report.Previous)
	assert.Equal(t, 1, report.Previous.Total)
	assert.Equal(t, 1, report.Previous.Pending)

	var filters []string
	ts.upstream.mu.Lock()
	for _, r := range ts.upstream.requests {
		filters = append(filters, r.URL.Query().Get("filters"))
	}
	ts.upstream.mu.Unlock()
	assert.Len(t, filters, 2)
	for _, f := range filters {
		assert.Contains(t, f, analytics.DateColumn)
	}
}

func TestAnalyticsSummary_BadInput(t *testing.T) {
	ts := newTestServer(t, Config{})

	for _, target := range []string{"/analytics/summary?from=yesterday", "/analytics/summary?table=courses"} {
		rec := ts.do(t, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestRateLimited(t *testing.T) {
	ts := newTestServer(t, Config{RateLimit: &ratelimit.Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	}})

	body := `{"type": "training", "data": ["a"]}`
	for i := 0; i < 2; i++ {
		rec := ts.do(t, http.MethodPost, "/archive/bulk", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/archive/bulk", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "10", rec.Header().Get("X-RateLimit-Limit"))
}

func TestJSONResponse(t *testing.T) {
	s := &Server{log: zerolog.Nop()}
	rec := httptest.NewRecorder()
	s.jsonResponse(rec, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())

	rec = httptest.NewRecorder()
	s.errorResponse(rec, http.StatusBadRequest, "nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"nope"}`, rec.Body.String())
}
