package httpapi

import (
	stdcontext "context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wrenware/vigil/internal/api"
	"github.com/wrenware/vigil/internal/metrics"
	"github.com/wrenware/vigil/internal/watch"
)

type testController struct{}

func (t *testController) ListWatches(stdcontext.Context) ([]api.WatchReport, error) {
	return nil, nil
}

func (t *testController) CreateWatch(stdcontext.Context, api.WatchRequest) (*api.WatchReport, error) {
	return nil, nil
}

func (t *testController) GetWatch(stdcontext.Context, string) (*api.WatchReport, error) {
	return nil, nil
}

func (t *testController) DeleteWatch(stdcontext.Context, string) error {
	return nil
}

func TestNewServerRejectsTypedNilController(t *testing.T) {
	var ctrl api.Controller = (*testController)(nil)
	_, err := NewServer(Config{Controller: ctrl})
	if err == nil {
		t.Fatalf("expected error when controller is typed nil")
	}
	if !strings.Contains(err.Error(), "testController") {
		t.Fatalf("expected error to describe typed nil controller, got %v", err)
	}
}

func TestNormalizeAddr(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":           defaultAddr,
		":80":        "127.0.0.1:80",
		"0.0.0.0:80": "0.0.0.0:80",
		"[::]:80":    "[::]:80",
		"host:9000":  "host:9000",
		"[::1]:443":  "[::1]:443",
	}

	for input, expected := range tests {
		input, expected := input, expected
		t.Run(fmt.Sprintf("%s->%s", input, expected), func(t *testing.T) {
			t.Parallel()
			if got := normalizeAddr(input); got != expected {
				t.Fatalf("normalizeAddr(%q)=%q, want %q", input, got, expected)
			}
		})
	}
}

func TestHandleListWatches(t *testing.T) {
	ctrl := &mockController{
		listFn: func(stdcontext.Context) ([]api.WatchReport, error) {
			return []api.WatchReport{
				{ID: "a", Target: "pid:41", Kind: "pid", Status: watch.StatusAlive},
				{ID: "b", Target: "pid:42", Kind: "pid", Status: watch.StatusDead},
			}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watches", nil)
	rec := httptest.NewRecorder()
	server.handleListWatches(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", rec.Code)
	}
	var body map[string][]api.WatchReport
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed decoding response: %v", err)
	}
	watches, ok := body["watches"]
	if !ok {
		t.Fatalf("expected watches field in response")
	}
	if len(watches) != 2 || watches[1].Status != watch.StatusDead {
		t.Fatalf("unexpected watches payload: %+v", watches)
	}
}

func TestHandleListWatchesError(t *testing.T) {
	ctrl := &mockController{
		listFn: func(stdcontext.Context) ([]api.WatchReport, error) {
			return nil, errors.New("boom")
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watches", nil)
	rec := httptest.NewRecorder()
	server.handleListWatches(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "internal_error" {
		t.Fatalf("expected internal_error code, got %q", body.Code)
	}
}

func TestHandleListWatchesClosed(t *testing.T) {
	ctrl := &mockController{
		listFn: func(stdcontext.Context) ([]api.WatchReport, error) {
			return nil, api.ErrRegistryClosed
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watches", nil)
	rec := httptest.NewRecorder()
	server.handleListWatches(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "registry_closed" {
		t.Fatalf("expected registry_closed code, got %q", body.Code)
	}
}

func TestHandleCreateWatch(t *testing.T) {
	ctrl := &mockController{
		createFn: func(_ stdcontext.Context, req api.WatchRequest) (*api.WatchReport, error) {
			if req.Pid == nil || *req.Pid != 4242 {
				t.Fatalf("unexpected request %+v", req)
			}
			return &api.WatchReport{ID: "w-1", Target: "pid:4242", Kind: "pid", Status: watch.StatusUnknown}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watches", strings.NewReader(`{"pid":4242}`))
	rec := httptest.NewRecorder()
	server.handleCreateWatch(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var body api.WatchReport
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.ID != "w-1" || body.Target != "pid:4242" {
		t.Fatalf("unexpected report %+v", body)
	}
}

func TestHandleCreateWatchRejectsUnknownFields(t *testing.T) {
	ctrl := &mockController{
		createFn: func(stdcontext.Context, api.WatchRequest) (*api.WatchReport, error) {
			t.Fatalf("controller should not be reached on decode failure")
			return nil, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watches", strings.NewReader(`{"process":1}`))
	rec := httptest.NewRecorder()
	server.handleCreateWatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "invalid_target" {
		t.Fatalf("expected invalid_target code, got %q", body.Code)
	}
}

func TestHandleCreateWatchInvalidTarget(t *testing.T) {
	ctrl := &mockController{
		createFn: func(stdcontext.Context, api.WatchRequest) (*api.WatchReport, error) {
			return nil, fmt.Errorf("%w: requires exactly one of pid or container", api.ErrInvalidTarget)
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watches", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.handleCreateWatch(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleCreateWatchUnsupportedPlatform(t *testing.T) {
	ctrl := &mockController{
		createFn: func(stdcontext.Context, api.WatchRequest) (*api.WatchReport, error) {
			return nil, fmt.Errorf("watch pid 99: %w", watch.ErrUnsupported)
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/watches", strings.NewReader(`{"pid":99}`))
	rec := httptest.NewRecorder()
	server.handleCreateWatch(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "unsupported_platform" {
		t.Fatalf("expected unsupported_platform code, got %q", body.Code)
	}
}

func TestHandleGetWatch(t *testing.T) {
	ctrl := &mockController{
		getFn: func(_ stdcontext.Context, id string) (*api.WatchReport, error) {
			if id != "w-7" {
				t.Fatalf("unexpected id %q", id)
			}
			return &api.WatchReport{ID: id, Target: "container:abc", Kind: "container", Status: watch.StatusAlive, Since: time.Unix(123, 0)}, nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watches/w-7", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body api.WatchReport
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Kind != "container" || body.Status != watch.StatusAlive {
		t.Fatalf("unexpected report %+v", body)
	}
}

func TestHandleGetWatchUnknown(t *testing.T) {
	ctrl := &mockController{
		getFn: func(stdcontext.Context, string) (*api.WatchReport, error) {
			return nil, api.ErrUnknownWatch
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/watches/missing", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "unknown_watch" {
		t.Fatalf("expected unknown_watch code, got %q", body.Code)
	}
	details, ok := body.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", body.Details)
	}
	if _, ok := details["watch"]; !ok {
		t.Fatalf("expected watch key in details")
	}
	if _, ok := details["timestamp"]; !ok {
		t.Fatalf("expected timestamp key in details")
	}
}

func TestHandleDeleteWatch(t *testing.T) {
	var deleted string
	ctrl := &mockController{
		deleteFn: func(_ stdcontext.Context, id string) error {
			deleted = id
			return nil
		},
	}
	server := newTestServer(t, ctrl)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/watches/w-9", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deleted != "w-9" {
		t.Fatalf("expected delete of w-9, got %q", deleted)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rec.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/watches", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "method_not_allowed" {
		t.Fatalf("expected method_not_allowed code, got %q", body.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Code != "not_found" {
		t.Fatalf("expected not_found code, got %q", body.Code)
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, &mockController{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected ok status, got %+v", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t, &mockController{})

	target := "pid:7677"
	metrics.EmitBuildInfo()
	metrics.SetWatchDead(target, true)
	metrics.IncrementProbe(target)
	metrics.ObservePollLatency(target, 200*time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from metrics endpoint, got %d", rec.Code)
	}
	body := rec.Body.String()
	expected := fmt.Sprintf("vigil_watch_dead{target=\"%s\"} 1", target)
	if !strings.Contains(body, expected) {
		t.Fatalf("expected body to contain %q, got:\n%s", expected, body)
	}
	if !strings.Contains(body, fmt.Sprintf("vigil_probes_total{target=\"%s\"} 1", target)) {
		t.Fatalf("expected metrics output to include probe count for %q, got:\n%s", target, body)
	}
	if !strings.Contains(body, fmt.Sprintf("vigil_poll_latency_seconds_sum{target=\"%s\"}", target)) {
		t.Fatalf("expected metrics output to include latency sum for %q, got:\n%s", target, body)
	}
	if !strings.Contains(body, fmt.Sprintf("vigil_poll_latency_seconds_count{target=\"%s\"} 1", target)) {
		t.Fatalf("expected metrics output to include latency count for %q, got:\n%s", target, body)
	}
	if !strings.Contains(body, "vigil_build_info{") {
		t.Fatalf("expected metrics output to include build info, got:\n%s", body)
	}
}

type mockController struct {
	listFn   func(stdcontext.Context) ([]api.WatchReport, error)
	createFn func(stdcontext.Context, api.WatchRequest) (*api.WatchReport, error)
	getFn    func(stdcontext.Context, string) (*api.WatchReport, error)
	deleteFn func(stdcontext.Context, string) error
}

func (m *mockController) ListWatches(ctx stdcontext.Context) ([]api.WatchReport, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockController) CreateWatch(ctx stdcontext.Context, req api.WatchRequest) (*api.WatchReport, error) {
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	return nil, nil
}

func (m *mockController) GetWatch(ctx stdcontext.Context, id string) (*api.WatchReport, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockController) DeleteWatch(ctx stdcontext.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func newTestServer(t *testing.T, ctrl api.Controller) *Server {
	t.Helper()
	server, err := NewServer(Config{Controller: ctrl})
	if err != nil {
		t.Fatalf("failed creating server: %v", err)
	}
	return server
}
