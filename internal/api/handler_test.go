package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"video-autopilot/internal/ledger"
	"video-autopilot/internal/pipeline"
	"video-autopilot/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

type fakeWorkflow struct {
	active  atomic.Bool
	stopped atomic.Bool
	started atomic.Int32
}

func (f *fakeWorkflow) Active() bool { return f.active.Load() }
func (f *fakeWorkflow) RequestStop() { f.stopped.Store(true) }
func (f *fakeWorkflow) Run(context.Context) bool {
	f.started.Add(1)
	return true
}

type fakeNextRunner struct{ text string }

func (f fakeNextRunner) NextRun() string { return f.text }

func newTestServer(t *testing.T, wf *fakeWorkflow, store ledger.Store) (*httptest.Server, *Tracker) {
	t.Helper()
	tracker := NewTracker()
	settings := config.DefaultSettings()
	settings.GeminiAPIKey = "real-secret"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := NewHandler(wf, fakeNextRunner{text: "Today (Monday) at 09:00"}, store, settings, tracker, log)
	r := chi.NewRouter()
	h.Routes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, tracker
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRunWorkflow_accepted(t *testing.T) {
	wf := &fakeWorkflow{}
	srv, _ := newTestServer(t, wf, ledger.NewMemoryStore())

	resp, err := http.Post(srv.URL+"/workflow/run", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
}

func TestRunWorkflow_conflict_when_active(t *testing.T) {
	wf := &fakeWorkflow{}
	wf.active.Store(true)
	srv, _ := newTestServer(t, wf, ledger.NewMemoryStore())

	resp, err := http.Post(srv.URL+"/workflow/run", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if n := wf.started.Load(); n != 0 {
		t.Fatalf("run started %d times, want 0", n)
	}
}

func TestStopWorkflow(t *testing.T) {
	wf := &fakeWorkflow{}
	wf.active.Store(true)
	srv, _ := newTestServer(t, wf, ledger.NewMemoryStore())

	resp, err := http.Post(srv.URL+"/workflow/stop", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if !wf.stopped.Load() {
		t.Fatal("stop was not forwarded to the workflow")
	}
}

func TestStopWorkflow_conflict_when_idle(t *testing.T) {
	wf := &fakeWorkflow{}
	srv, _ := newTestServer(t, wf, ledger.NewMemoryStore())

	resp, err := http.Post(srv.URL+"/workflow/stop", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}

func TestWorkflowStatus_snapshot(t *testing.T) {
	wf := &fakeWorkflow{}
	srv, tracker := newTestServer(t, wf, ledger.NewMemoryStore())

	tracker.Update(pipeline.StepPlan, 100, pipeline.StatusCompleted)
	tracker.Update(pipeline.StepGenerate, 0, pipeline.StatusRunning)

	resp, err := http.Get(srv.URL + "/workflow/status")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		Active bool        `json:"active"`
		Steps  []StepState `json:"steps"`
	}
	decodeBody(t, resp, &body)

	if len(body.Steps) != len(pipeline.Steps()) {
		t.Fatalf("got %d steps, want %d", len(body.Steps), len(pipeline.Steps()))
	}
	if body.Steps[0].Status != string(pipeline.StatusCompleted) || body.Steps[0].Percent != 100 {
		t.Errorf("planning step = %+v, want Completed at 100", body.Steps[0])
	}
	if body.Steps[1].Status != string(pipeline.StatusRunning) {
		t.Errorf("generation step = %+v, want Running", body.Steps[1])
	}
	if body.Steps[4].Status != string(pipeline.StatusPending) {
		t.Errorf("upload step = %+v, want Pending", body.Steps[4])
	}
}

func TestNextRun(t *testing.T) {
	srv, _ := newTestServer(t, &fakeWorkflow{}, ledger.NewMemoryStore())

	resp, err := http.Get(srv.URL + "/workflow/next-run")
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["next_run"] != "Today (Monday) at 09:00" {
		t.Fatalf("next_run = %q", body["next_run"])
	}
}

func TestHistory(t *testing.T) {
	store := ledger.NewMemoryStore()
	if err := store.MarkPublished("vid123", "First video"); err != nil {
		t.Fatal(err)
	}
	srv, _ := newTestServer(t, &fakeWorkflow{}, store)

	resp, err := http.Get(srv.URL + "/history")
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		History []ledger.Record `json:"history"`
	}
	decodeBody(t, resp, &body)
	if len(body.History) != 1 {
		t.Fatalf("got %d records, want 1", len(body.History))
	}
	if body.History[0].VideoID != "vid123" {
		t.Fatalf("video id = %q", body.History[0].VideoID)
	}
}

func TestHistory_empty_is_array(t *testing.T) {
	srv, _ := newTestServer(t, &fakeWorkflow{}, ledger.NewMemoryStore())

	resp, err := http.Get(srv.URL + "/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"history":[]`) {
		t.Fatalf("empty history not rendered as array: %s", raw)
	}
}

func TestHistory_rejects_bad_limit(t *testing.T) {
	srv, _ := newTestServer(t, &fakeWorkflow{}, ledger.NewMemoryStore())

	resp, err := http.Get(srv.URL + "/history?limit=abc")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetSettings_masks_credentials(t *testing.T) {
	srv, _ := newTestServer(t, &fakeWorkflow{}, ledger.NewMemoryStore())

	resp, err := http.Get(srv.URL + "/settings")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "real-secret") {
		t.Fatalf("credential leaked: %s", raw)
	}
	if !strings.Contains(string(raw), "********") {
		t.Fatalf("credential not masked: %s", raw)
	}
}
