package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/stepflow/errors"
	"github.com/kbukum/stepflow/graph"
	"github.com/kbukum/stepflow/history"
	"github.com/kbukum/stepflow/logger"
	"github.com/kbukum/stepflow/observability"
	"github.com/kbukum/stepflow/workflow"
)

type fakeService struct {
	runs      map[uuid.UUID]*history.Run
	runErr    error
	health    observability.HealthStatus
	lastLimit int
	lastRun   [2]string
}

func newFakeService() *fakeService {
	return &fakeService{runs: map[uuid.UUID]*history.Run{}, health: observability.HealthStatusUp}
}

func (f *fakeService) Workflows() []workflow.Info {
	return []workflow.Info{{
		Name:  "hello",
		Entry: "greet",
		Steps: []string{"greet"},
		Edges: []graph.Edge{{From: "greet", To: graph.End}},
	}}
}

func (f *fakeService) Run(_ context.Context, name, subject string) (*history.Run, error) {
	f.lastRun = [2]string{name, subject}
	if f.runErr != nil {
		return nil, f.runErr
	}
	if name != "hello" {
		return nil, apperrors.NotFound("workflow", name)
	}
	run := &history.Run{ID: uuid.New(), Workflow: name, Subject: subject, Status: "completed", Report: "Hello, " + subject + "!", Steps: 1}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeService) ListRuns(_ context.Context, limit int) ([]history.Run, error) {
	f.lastLimit = limit
	var out []history.Run
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeService) GetRun(_ context.Context, id uuid.UUID) (*history.Run, error) {
	r, ok := f.runs[id]
	if !ok {
		return nil, apperrors.NotFound("run", id.String())
	}
	return r, nil
}

func (f *fakeService) Health(context.Context) *observability.ServiceHealth {
	h := observability.NewServiceHealth("stepflow", "test")
	h.AddComponent(observability.Health{Name: "history", Status: f.health})
	return h
}

func newTestServer(t *testing.T, svc Service) *Server {
	t.Helper()
	var cfg Config
	cfg.ApplyDefaults()
	return New(cfg, svc, logger.Nop())
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8080 || cfg.WriteTimeout != 5*time.Minute || cfg.MaxBodySize != 1<<20 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected port error")
	}
}

func TestHealth(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc)

	rr := do(t, s, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected request id header")
	}

	svc.health = observability.HealthStatusDown
	rr = do(t, s, "GET", "/health", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	h := decode[observability.ServiceHealth](t, rr)
	if h.Status != observability.HealthStatusDown {
		t.Errorf("expected down, got %s", h.Status)
	}
}

func TestVersion(t *testing.T) {
	rr := do(t, newTestServer(t, newFakeService()), "GET", "/version", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if v := decode[map[string]any](t, rr); v["version"] == "" || v["version"] == nil {
		t.Errorf("expected version field, got %v", v)
	}
}

func TestListWorkflows(t *testing.T) {
	rr := do(t, newTestServer(t, newFakeService()), "GET", "/api/v1/workflows", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	resp := decode[struct {
		Data []workflow.Info `json:"data"`
		Meta Meta            `json:"meta"`
	}](t, rr)
	if resp.Meta.Count != 1 || resp.Data[0].Name != "hello" {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
	if resp.Data[0].Edges[0].To != graph.End {
		t.Errorf("expected edge to END, got %+v", resp.Data[0].Edges)
	}
}

func TestStartRun_AndGet(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc)

	rr := do(t, s, "POST", "/api/v1/workflows/hello/runs", `{"subject":"Ada"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	created := decode[struct {
		Data history.Run `json:"data"`
	}](t, rr)
	if created.Data.Report != "Hello, Ada!" {
		t.Errorf("unexpected report %q", created.Data.Report)
	}

	rr = do(t, s, "GET", "/api/v1/runs/"+created.Data.ID.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decode[struct {
		Data history.Run `json:"data"`
	}](t, rr)
	if got.Data.ID != created.Data.ID {
		t.Errorf("expected id %s, got %s", created.Data.ID, got.Data.ID)
	}
}

func TestStartRun_EmptyBody(t *testing.T) {
	svc := newFakeService()
	rr := do(t, newTestServer(t, svc), "POST", "/api/v1/workflows/hello/runs", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if svc.lastRun != [2]string{"hello", ""} {
		t.Errorf("unexpected run args %v", svc.lastRun)
	}
}

func TestStartRun_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		runErr   error
		wantCode int
		wantErr  string
	}{
		{"unknown workflow", "/api/v1/workflows/nope/runs", `{"subject":"x"}`, nil, http.StatusNotFound, "NOT_FOUND"},
		{"malformed body", "/api/v1/workflows/hello/runs", `{"subject":`, nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"definition error", "/api/v1/workflows/hello/runs", `{}`, &graph.MissingBranchError{From: "route", Condition: "pick", Key: "x"}, http.StatusUnprocessableEntity, "PIPELINE_DEFINITION_ERROR"},
		{"upstream failure", "/api/v1/workflows/hello/runs", `{}`, apperrors.UpstreamCall("llm", context.DeadlineExceeded), http.StatusBadGateway, "UPSTREAM_CALL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.runErr = tt.runErr
			rr := do(t, newTestServer(t, svc), "POST", tt.path, tt.body)
			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if body := decode[errorBody](t, rr); body.Error.Code != tt.wantErr {
				t.Errorf("expected %s, got %s", tt.wantErr, body.Error.Code)
			}
		})
	}
}

func TestListRuns_Limit(t *testing.T) {
	svc := newFakeService()
	s := newTestServer(t, svc)

	rr := do(t, s, "GET", "/api/v1/runs", "")
	if rr.Code != http.StatusOK || svc.lastLimit != 20 {
		t.Fatalf("expected default limit 20, got %d (status %d)", svc.lastLimit, rr.Code)
	}

	rr = do(t, s, "GET", "/api/v1/runs?limit=5", "")
	if rr.Code != http.StatusOK || svc.lastLimit != 5 {
		t.Fatalf("expected limit 5, got %d (status %d)", svc.lastLimit, rr.Code)
	}

	for _, bad := range []string{"0", "abc", "1000"} {
		rr = do(t, s, "GET", "/api/v1/runs?limit="+bad, "")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", bad, rr.Code)
		}
	}
}

func TestGetRun_Errors(t *testing.T) {
	s := newTestServer(t, newFakeService())

	rr := do(t, s, "GET", "/api/v1/runs/not-a-uuid", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	rr = do(t, s, "GET", "/api/v1/runs/"+uuid.NewString(), "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestNoRouteAndMethod(t *testing.T) {
	s := newTestServer(t, newFakeService())

	rr := do(t, s, "GET", "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	rr = do(t, s, "DELETE", "/api/v1/workflows", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestStartStop(t *testing.T) {
	cfg := Config{Host: "127.0.0.1"}
	cfg.ApplyDefaults()
	cfg.Port = 0
	s := New(cfg, newFakeService(), logger.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
