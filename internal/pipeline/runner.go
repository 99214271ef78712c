package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"video-autopilot/internal/ledger"
	"video-autopilot/internal/platform/metrics"

	"github.com/google/uuid"
)

// RunnerConfig wires a Runner's collaborators. Planner, Generator,
// PostProcessor, Uploader, Ledger, and Logger are required; Progress and
// Metrics may be nil.
type RunnerConfig struct {
	Planner       Planner
	Generator     Generator
	PostProcessor PostProcessor
	Uploader      Uploader
	Ledger        ledger.Store
	Progress      ProgressFunc
	Logger        *slog.Logger
	Metrics       *metrics.Metrics

	DurationSec int    // requested video length
	Resolution  string // 1080p, 720p, or 480p
	AsShort     bool   // publish to the short-form destination
}

// Runner executes the pipeline stages in strict sequence. At most one run is
// active at a time; overlapping triggers are rejected, not queued.
type Runner struct {
	cfg RunnerConfig
	log *slog.Logger

	stop   atomic.Bool
	active atomic.Bool
}

// NewRunner returns a Runner for the given collaborators.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{cfg: cfg, log: cfg.Logger}
}

// Active reports whether a run is currently executing.
func (r *Runner) Active() bool {
	return r.active.Load()
}

// RequestStop asks the current run to stop. The flag is observed at the next
// stage boundary; an in-flight provider call is not preemptible.
func (r *Runner) RequestStop() {
	r.stop.Store(true)
	r.log.Info("workflow stop requested")
}

// ScheduledTrigger is the callback registered with the scheduler. It skips
// the run when today's publish already happened; the skip is logged, not an
// error.
func (r *Runner) ScheduledTrigger(day time.Weekday) {
	if r.cfg.Ledger.HasPublishedToday(day) {
		r.log.Info("video already published today, skipping scheduled run",
			slog.String("weekday", day.String()))
		return
	}
	r.log.Info("starting scheduled workflow", slog.String("weekday", day.String()))
	r.Run(context.Background())
}

// Run executes all five stages and reports whether the full pipeline
// succeeded. A false return means a stage failed, verification failed, a
// stop was requested, or a run was already active; no publish record is
// written in any of those cases.
func (r *Runner) Run(ctx context.Context) bool {
	if !r.active.CompareAndSwap(false, true) {
		r.log.Warn("workflow run already in progress, trigger ignored")
		return false
	}
	defer r.active.Store(false)
	r.stop.Store(false)

	log := r.log.With(slog.String("run_id", uuid.NewString()[:8]))
	log.Info("starting workflow run")
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.IncRunsStarted()
		r.cfg.Metrics.SetRunInProgress(true)
		defer r.cfg.Metrics.SetRunInProgress(false)
	}

	// A fresh run resets every step so an observer never sees a snapshot
	// mixing two runs.
	for _, s := range Steps() {
		r.report(s, 0, StatusPending)
	}

	// Stage 1: AI planning — prompt first, then metadata derived from it.
	r.report(StepPlan, 0, StatusRunning)
	prompt, err := r.cfg.Planner.GeneratePrompt(ctx)
	if err != nil {
		return r.fail(log, StepPlan, err)
	}
	log.Info("video prompt generated", slog.String("prompt", truncate(prompt, 120)))

	meta, err := r.cfg.Planner.GenerateMetadata(ctx, prompt)
	if err != nil {
		return r.fail(log, StepPlan, err)
	}
	log.Info("video metadata generated", slog.String("title", meta.Title))
	r.report(StepPlan, 100, StatusCompleted)
	if r.stopRequested(log) {
		return false
	}

	// Stage 2: video generation.
	r.report(StepGenerate, 0, StatusRunning)
	rawPath, err := r.cfg.Generator.Generate(ctx, prompt, r.cfg.DurationSec, r.cfg.Resolution)
	if err != nil {
		return r.fail(log, StepGenerate, err)
	}
	if err := r.verify(log, rawPath); err != nil {
		return r.fail(log, StepGenerate, err)
	}
	log.Info("video generated", slog.String("path", rawPath))
	r.report(StepGenerate, 100, StatusCompleted)
	if r.stopRequested(log) {
		return false
	}

	// Stage 3: watermark removal. The input is re-verified in case the
	// artifact was disturbed between stages.
	r.report(StepPostProcess, 0, StatusRunning)
	if err := r.verify(log, rawPath); err != nil {
		return r.fail(log, StepPostProcess, err)
	}
	cleanPath, err := r.cfg.PostProcessor.Process(ctx, rawPath)
	if err != nil {
		return r.fail(log, StepPostProcess, err)
	}
	if err := r.verify(log, cleanPath); err != nil {
		return r.fail(log, StepPostProcess, err)
	}
	log.Info("watermark removed", slog.String("path", cleanPath))
	r.report(StepPostProcess, 100, StatusCompleted)
	if r.stopRequested(log) {
		return false
	}

	// Stage 4: enhancement runs inside the post-processing tool; it is
	// reported as its own stage for the progress surface.
	r.report(StepEnhance, 0, StatusRunning)
	r.report(StepEnhance, 100, StatusCompleted)
	if r.stopRequested(log) {
		return false
	}

	// Stage 5: upload.
	r.report(StepUpload, 0, StatusRunning)
	if err := r.verify(log, cleanPath); err != nil {
		return r.fail(log, StepUpload, err)
	}
	videoID, err := r.cfg.Uploader.Upload(ctx, cleanPath, meta, r.cfg.AsShort)
	if err != nil {
		return r.fail(log, StepUpload, err)
	}
	if videoID == "" {
		return r.fail(log, StepUpload, ErrUpload)
	}

	// The video is already live; a ledger write failure must not fail the
	// run. It only risks a duplicate on a future trigger.
	if err := r.cfg.Ledger.MarkPublished(videoID, meta.Title); err != nil {
		log.Error("ledger write failed after successful upload",
			slog.String("error", err.Error()))
	}
	r.report(StepUpload, 100, StatusCompleted)

	if r.cfg.Metrics != nil {
		r.cfg.Metrics.IncUploads()
		r.cfg.Metrics.IncRunsSucceeded()
	}
	log.Info("workflow completed",
		slog.String("video_id", videoID),
		slog.String("title", meta.Title),
	)
	return true
}

// report delivers a progress transition; a nil observer is allowed.
func (r *Runner) report(step Step, percent int, status Status) {
	if r.cfg.Progress != nil {
		r.cfg.Progress(step, percent, status)
	}
}

// fail logs the stage error, emits the Error status, and counts the run as
// failed. Always returns false.
func (r *Runner) fail(log *slog.Logger, step Step, err error) bool {
	log.Error("workflow stage failed",
		slog.String("step", step.String()),
		slog.String("error", err.Error()),
	)
	r.report(step, 0, StatusError)
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.IncRunsFailed()
	}
	return false
}

// stopRequested checks the cooperative stop flag at a stage boundary. A stop
// is not a failure: no Error status is emitted and nothing is logged at
// ERROR; the aborted run simply leaves its partial artifacts in place.
func (r *Runner) stopRequested(log *slog.Logger) bool {
	if !r.stop.Load() {
		return false
	}
	log.Info("workflow stopped on request, partial artifacts kept")
	return true
}

// verify checks a stage artifact and logs a warning for suspiciously small
// but non-empty files.
func (r *Runner) verify(log *slog.Logger, path string) error {
	size, err := verifyArtifact(path)
	if err != nil {
		return err
	}
	if size < MinArtifactBytes {
		log.Warn("artifact smaller than expected",
			slog.String("path", path),
			slog.Int64("bytes", size),
		)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
