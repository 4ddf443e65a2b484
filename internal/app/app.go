package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"farmwatch/internal/config"
	"farmwatch/internal/logger"
	"farmwatch/internal/metrics"
	"farmwatch/internal/repository/sqlite"
	"farmwatch/internal/routes"
	"farmwatch/internal/services"
	"farmwatch/internal/services/ai"
	"farmwatch/internal/services/capture"
	"farmwatch/internal/services/classifier"
	"farmwatch/internal/services/render"
	"farmwatch/internal/services/storage"
	"farmwatch/internal/services/stream"
	"farmwatch/internal/services/websocket"
	"farmwatch/internal/sink"
	"farmwatch/internal/sink/firebase"
	"farmwatch/internal/sink/history"
	"farmwatch/internal/sink/mqtt"
	"farmwatch/internal/sink/redis"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	db            *sqlite.DB
	camera        *capture.Camera
	detector      ai.Detector
	renderer      *render.Renderer
	sinks         *sink.Multi
	hubService    *websocket.HubService
	mjpeg         *stream.MJPEG
	bufferService *storage.BufferService
	manager       *services.Manager
	server        *http.Server
}

// NewApp loads the configuration and builds every component. Whatever was
// opened before a failure is released again.
func NewApp(ctx context.Context) (a *App, err error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		log.EnableDebug()
	}

	a = &App{config: cfg, logger: log, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	table := classifier.DefaultTable()
	if cfg.CategoryTablePath != "" {
		if table, err = classifier.LoadTable(cfg.CategoryTablePath); err != nil {
			return nil, err
		}
		log.Info("Loaded category table from %s", cfg.CategoryTablePath)
	}

	if a.db, err = sqlite.New(cfg.DatabasePath); err != nil {
		return nil, err
	}
	summaryRepo := sqlite.NewSummaryRepository(a.db)
	snapshotRepo := sqlite.NewSnapshotRepository(a.db)

	if a.sinks, err = a.buildSinks(ctx, summaryRepo); err != nil {
		return nil, err
	}

	if a.camera, err = capture.Open(cfg, log); err != nil {
		return nil, err
	}
	if a.detector, err = ai.NewDetector(cfg, log); err != nil {
		return nil, err
	}
	a.renderer = render.New(table, cfg.DisplayWindow)

	a.hubService = websocket.NewHubService(log)
	a.mjpeg = stream.NewMJPEG()
	a.bufferService = storage.NewBufferService(cfg, log, snapshotRepo)

	a.manager = services.NewManager(services.ManagerOptions{
		Camera:              a.camera,
		Detector:            a.detector,
		Renderer:            a.renderer,
		Publisher:           a.sinks,
		Viewers:             []services.Viewer{a.hubService, a.mjpeg, a.bufferService},
		Table:               table,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MinIntervalMs:       cfg.MinIntervalMs,
		CaptureTimeout:      time.Duration(cfg.CaptureTimeoutMs) * time.Millisecond,
		PublishTimeout:      time.Duration(cfg.PublishTimeoutMs) * time.Millisecond,
		Metrics:             a.metrics,
		Logger:              log,
	})

	router := routes.SetupRoutes(routes.Deps{
		Status:    a.manager,
		Hub:       a.hubService,
		Stream:    a.mjpeg,
		Metrics:   a.metrics.Handler(),
		Summaries: summaryRepo,
		Snapshots: snapshotRepo,
	}, cfg, log)

	a.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
	}
	return a, nil
}

// buildSinks registers every configured remote sink plus the local history.
// Without remote sinks summaries are also written to the log.
func (a *App) buildSinks(ctx context.Context, summaryRepo *sqlite.SummaryRepository) (*sink.Multi, error) {
	cfg := a.config
	var openers []sink.Opener

	if cfg.FirebaseURL != "" {
		openers = append(openers, func() (sink.Publisher, error) {
			fb, err := firebase.New(ctx, cfg.FirebaseURL, cfg.FirebasePath, cfg.FirebaseCredentials)
			if err != nil {
				return nil, fmt.Errorf("firebase sink: %w", err)
			}
			return fb, nil
		})
	}
	if cfg.MQTTBroker != "" {
		openers = append(openers, func() (sink.Publisher, error) {
			mq, err := mqtt.New(cfg, a.logger)
			if err != nil {
				return nil, fmt.Errorf("mqtt sink: %w", err)
			}
			return mq, nil
		})
	}
	if cfg.RedisAddr != "" {
		openers = append(openers, func() (sink.Publisher, error) {
			rd, err := redis.New(ctx, cfg)
			if err != nil {
				return nil, fmt.Errorf("redis sink: %w", err)
			}
			return rd, nil
		})
	}

	sinks, err := sink.OpenAll(openers...)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		a.logger.Warning("No remote sink configured, summaries are only logged and stored")
		sinks = append(sinks, sink.NewLog(a.logger))
	}
	sinks = append(sinks, history.New(summaryRepo))

	multi := sink.NewMulti(sinks...)
	a.logger.Info("Publishing to: %v", multi.Names())
	return multi, nil
}

// Run starts the background services and the HTTP server, then runs the
// frame loop until it ends or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.hubService.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.bufferService.Run(ctx, time.Duration(a.config.ImageBufferFlushInterval)*time.Second)
	}()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			cancelLoop()
		}
	}()

	a.logger.Info("🚀 farmwatch")
	a.logger.Info("📍 URL: http://localhost:%d", a.config.Port)
	a.logger.Info("📁 Snapshots: %s", a.config.ImageDirectory)
	a.logger.Info("🤖 AI Model: %s (%s)", a.config.ModelPath, a.config.ModelBackend)

	runErr := a.manager.Run(loopCtx)
	stop()
	select {
	case err := <-serverErr:
		a.logger.Error("HTTP server failed: %v", err)
		runErr = errors.Join(runErr, fmt.Errorf("http server: %w", err))
	default:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown: %v", err)
	}
	wg.Wait()

	a.logger.Info("Stopped after %d processed frames", a.metrics.FramesProcessed.Load())
	return runErr
}

// Close releases the camera, model, sinks, window and database.
func (a *App) Close() error {
	var errs []error
	if a.camera != nil {
		errs = append(errs, a.camera.Close())
	}
	if a.detector != nil {
		errs = append(errs, a.detector.Close())
	}
	if a.renderer != nil {
		errs = append(errs, a.renderer.Close())
	}
	if a.sinks != nil {
		errs = append(errs, a.sinks.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
