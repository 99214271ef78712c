package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"video-autopilot/internal/ledger"
	"video-autopilot/internal/platform/config"

	"github.com/go-chi/chi/v5"
)

const defaultHistoryLimit = 30

// Workflow is the runner surface the handler drives.
type Workflow interface {
	Active() bool
	RequestStop()
	Run(ctx context.Context) bool
}

// NextRunner describes the next scheduled slot.
type NextRunner interface {
	NextRun() string
}

// Handler exposes the workflow control endpoints using go-chi.
type Handler struct {
	workflow Workflow
	sched    NextRunner
	store    ledger.Store
	settings config.Settings
	tracker  *Tracker
	log      *slog.Logger
}

// NewHandler returns a Handler over the given workflow, scheduler, and ledger.
func NewHandler(wf Workflow, sched NextRunner, store ledger.Store, settings config.Settings, tracker *Tracker, log *slog.Logger) *Handler {
	return &Handler{
		workflow: wf,
		sched:    sched,
		store:    store,
		settings: settings,
		tracker:  tracker,
		log:      log,
	}
}

// Routes registers the control surface on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/workflow", func(r chi.Router) {
		r.Post("/run", h.RunWorkflow)
		r.Post("/stop", h.StopWorkflow)
		r.Get("/status", h.WorkflowStatus)
		r.Get("/next-run", h.NextRun)
	})
	r.Get("/history", h.History)
	r.Get("/settings", h.GetSettings)
}

// RunWorkflow handles POST /workflow/run. A run already in progress is a
// conflict; triggers are rejected, never queued.
func (h *Handler) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	if h.workflow.Active() {
		h.log.Info("manual trigger rejected, run already active")
		writeJSON(w, http.StatusConflict, map[string]string{"error": "workflow already running"})
		return
	}

	h.tracker.Reset()
	go h.workflow.Run(context.Background())

	h.log.Info("manual workflow trigger accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// StopWorkflow handles POST /workflow/stop. The stop is cooperative: the run
// exits at its next stage boundary, so the response only acknowledges the
// request.
func (h *Handler) StopWorkflow(w http.ResponseWriter, r *http.Request) {
	if !h.workflow.Active() {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no workflow running"})
		return
	}

	h.workflow.RequestStop()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
}

// WorkflowStatus handles GET /workflow/status.
func (h *Handler) WorkflowStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active": h.workflow.Active(),
		"steps":  h.tracker.Snapshot(),
	})
}

// NextRun handles GET /workflow/next-run.
func (h *Handler) NextRun(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"next_run": h.sched.NextRun()})
}

// History handles GET /history?limit=n. limit defaults to 30; 0 or a negative
// value returns everything.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	records := h.store.History(limit)
	if records == nil {
		records = []ledger.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": records})
}

// GetSettings handles GET /settings. Credentials are masked before leaving
// the process.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s := h.settings.Redacted()
	writeJSON(w, http.StatusOK, settingsView{
		GeminiAPIKey:      s.GeminiAPIKey,
		OpenAIAPIKey:      s.OpenAIAPIKey,
		YouTubeClientID:   s.YouTubeOAuth.ClientID,
		AgentInstructions: s.AgentInstructions,
		VideoDuration:     s.VideoDuration,
		VideoResolution:   s.VideoResolution,
		WeeklySchedule:    s.WeeklySchedule,
		UploadDestination: s.UploadDestination,
		Visibility:        s.Visibility,
		OutputDirectory:   s.OutputDirectory,
	})
}

// settingsView is the JSON shape of the settings endpoint. Secrets that are
// never useful masked (client secret, refresh token) are omitted entirely.
type settingsView struct {
	GeminiAPIKey      string            `json:"gemini_api_key"`
	OpenAIAPIKey      string            `json:"openai_api_key"`
	YouTubeClientID   string            `json:"youtube_client_id"`
	AgentInstructions string            `json:"agent_instructions"`
	VideoDuration     int               `json:"video_duration"`
	VideoResolution   string            `json:"video_resolution"`
	WeeklySchedule    map[string]string `json:"weekly_schedule"`
	UploadDestination string            `json:"upload_destination"`
	Visibility        string            `json:"visibility"`
	OutputDirectory   string            `json:"output_directory"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
