package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-autopilot/internal/api"
	"video-autopilot/internal/ledger"
	"video-autopilot/internal/pipeline"
	"video-autopilot/internal/platform/config"
	"video-autopilot/internal/platform/logger"
	"video-autopilot/internal/platform/metrics"
	"video-autopilot/internal/provider/ffmpeg"
	"video-autopilot/internal/provider/gemini"
	"video-autopilot/internal/provider/sora"
	"video-autopilot/internal/provider/youtube"
	"video-autopilot/internal/schedule"

	"github.com/go-chi/chi/v5"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")
	settingsFile := config.GetEnv("SETTINGS_FILE", "settings.yaml")
	checkInterval := config.GetEnvDuration("CHECK_INTERVAL", schedule.DefaultCheckInterval)

	log := logger.New(logLevel, logFormat)

	settings, err := config.LoadSettings(settingsFile)
	if err != nil {
		log.Error("settings load failed", "file", settingsFile, "error", err)
		os.Exit(1)
	}

	store, err := ledger.NewFileStore(settings.LedgerFile)
	if err != nil {
		log.Error("ledger open failed", "file", settings.LedgerFile, "error", err)
		os.Exit(1)
	}

	sched, err := schedule.ParseSchedule(settings.WeeklySchedule)
	if err != nil {
		log.Error("invalid weekly schedule", "error", err)
		os.Exit(1)
	}

	met := metrics.New()
	tracker := api.NewTracker()

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Planner:       gemini.New(settings.GeminiAPIKey, settings.AgentInstructions),
		Generator:     sora.New(settings.OpenAIAPIKey, settings.OutputDirectory),
		PostProcessor: ffmpeg.New(settings.OutputDirectory, log),
		Uploader: youtube.New(youtube.Credentials{
			ClientID:     settings.YouTubeOAuth.ClientID,
			ClientSecret: settings.YouTubeOAuth.ClientSecret,
			RefreshToken: settings.YouTubeOAuth.RefreshToken,
		}, settings.Visibility, log),
		Ledger:      store,
		Progress:    tracker.Update,
		Logger:      log,
		Metrics:     met,
		DurationSec: settings.VideoDuration,
		Resolution:  settings.VideoResolution,
		AsShort:     settings.UploadDestination == "shorts",
	})

	scheduler := schedule.New(sched, runner.ScheduledTrigger, log)
	scheduler.SetCheckInterval(checkInterval)
	scheduler.SetTickObserver(func(fired bool) {
		met.IncSchedulerTicks()
		if fired {
			met.IncSchedulerTriggers()
		}
	})
	scheduler.Start()

	h := api.NewHandler(runner, scheduler, store, settings, tracker, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() { met.SetRunInProgress(runner.Active()) }).ServeHTTP(w, req)
	})
	h.Routes(r)

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"settings_file", settingsFile,
		"schedule_slots", len(sched),
		"next_run", scheduler.NextRun(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	scheduler.Stop()
	if runner.Active() {
		runner.RequestStop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
