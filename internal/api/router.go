package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/quorum/internal/api/handlers"
	mw "github.com/Harshitk-cp/quorum/internal/api/middleware"
	"github.com/Harshitk-cp/quorum/internal/config"
	"github.com/Harshitk-cp/quorum/internal/domain"
	"github.com/Harshitk-cp/quorum/internal/notify"
	"github.com/Harshitk-cp/quorum/internal/service"
	"github.com/Harshitk-cp/quorum/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// App holds the router and background services for lifecycle management.
type App struct {
	Router     *chi.Mux
	Selector   *service.SelectorService
	Decay      *service.DecayService
	Adaptation *service.AdaptationEngine

	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	// Stores
	expertStore := store.NewExpertStore(db)
	predictionStore := store.NewPredictionStore(db)
	memoryStore := store.NewMemoryStore(db)
	councilStore := store.NewCouncilStore(db)
	consensusStore := store.NewConsensusStore(db)
	eventStore := store.NewEventStore(db)

	// External collaborators
	sink, err := notify.NewSink(config.AlertSink(), config.AlertWebhookURL(), logger)
	if err != nil {
		logger.Warn("alert sink initialization failed, falling back to log", zap.Error(err))
		sink = notify.NewLogSink(logger)
	}

	var provider domain.PredictionProvider
	if url := config.ProviderURL(); url != "" {
		provider = notify.NewWebhookProvider(url)
		logger.Info("prediction provider configured", zap.String("url", url))
	}

	// Services
	registry := service.DefaultCategoryRegistry(service.Tolerances{
		Score:      config.ScoreTolerance(),
		Margin:     config.MarginTolerance(),
		YardagePct: config.YardageTolerancePct(),
		YardageAbs: config.YardageToleranceAbs(),
		Counting:   config.CountingTolerance(),
	})

	memorySvc := service.NewMemoryService(memoryStore, expertStore, consensusStore, logger)
	trackerSvc := service.NewTrackerService(predictionStore, expertStore, registry, memorySvc, config.MinSampleSize(), logger)
	trendSvc := service.NewTrendAnalyzer(trackerSvc, logger)
	selectorSvc := service.NewSelectorService(expertStore, councilStore, trackerSvc, trendSvc, config.CouncilSize(), config.CouncilValidity(), logger)
	consensusSvc := service.NewConsensusService(councilStore, consensusStore, predictionStore, registry, selectorSvc, logger)
	decaySvc := service.NewDecayService(memoryStore, config.MemoryAgeThreshold(), config.MemoryCapPerExpert(), logger)
	adaptationEngine := service.NewAdaptationEngine(expertStore, eventStore, trackerSvc, trendSvc, sink, provider, service.AdaptationThresholds{
		EmergencyAccuracy:      config.EmergencyAccuracy(),
		CriticalCalibrationGap: config.CriticalCalibrationGap(),
		SuspendAccuracy:        config.SuspendAccuracy(),
		Cooldown:               config.SuspensionCooldown(),
		MinSample:              config.MinSampleSize(),
	}, logger)

	// Handlers
	expertHandler := handlers.NewExpertHandler(expertStore, trackerSvc, trendSvc)
	predictionHandler := handlers.NewPredictionHandler(trackerSvc)
	councilHandler := handlers.NewCouncilHandler(selectorSvc, councilStore)
	consensusHandler := handlers.NewConsensusHandler(consensusSvc)
	memoryHandler := handlers.NewMemoryHandler(memorySvc, decaySvc)
	eventHandler := handlers.NewEventHandler(eventStore)
	adaptationHandler := handlers.NewAdaptationHandler(adaptationEngine)

	r := chi.NewRouter()

	app := &App{
		Router:     r,
		Selector:   selectorSvc,
		Decay:      decaySvc,
		Adaptation: adaptationEngine,
		startTime:  time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/health", healthHandler(db))
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Experts
		r.Route("/experts", func(r chi.Router) {
			r.Post("/", expertHandler.Register)
			r.Get("/", expertHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", expertHandler.GetByID)
				r.Get("/profile", expertHandler.GetProfile)
				r.Get("/trend/{category}", expertHandler.GetTrend)
				r.Post("/memories/similar", memoryHandler.Similar)
			})
		})

		// Predictions and outcomes
		r.Post("/predictions", predictionHandler.Submit)
		r.Post("/outcomes", predictionHandler.RecordOutcome)

		// Council
		r.Route("/council", func(r chi.Router) {
			r.Post("/rotate", councilHandler.Rotate)
			r.Get("/current", councilHandler.Current)
		})

		// Consensus
		r.Route("/consensus/{gameID}/{category}", func(r chi.Router) {
			r.Post("/", consensusHandler.Aggregate)
			r.Get("/", consensusHandler.Latest)
		})

		// Cognitive maintenance
		r.Route("/cognitive", func(r chi.Router) {
			r.Post("/decay", memoryHandler.RunDecay)
			r.Post("/consolidate", memoryHandler.RunConsolidation)
		})

		// Adaptation
		r.Post("/adaptation/sweep", adaptationHandler.Sweep)
		r.Get("/events", eventHandler.List)
	})

	return app
}

// NewRouter returns just the chi.Mux for callers that manage no workers.
func NewRouter(db *pgxpool.Pool, logger *zap.Logger) *chi.Mux {
	return NewApp(db, logger).Router
}

func healthHandler(db *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores and sinks satisfy interfaces at compile time.
var (
	_ domain.ExpertStore        = (*store.ExpertStore)(nil)
	_ domain.PredictionStore    = (*store.PredictionStore)(nil)
	_ domain.MemoryStore        = (*store.MemoryStore)(nil)
	_ domain.CouncilStore       = (*store.CouncilStore)(nil)
	_ domain.ConsensusStore     = (*store.ConsensusStore)(nil)
	_ domain.EventStore         = (*store.EventStore)(nil)
	_ domain.AlertSink          = (*notify.LogSink)(nil)
	_ domain.AlertSink          = (*notify.WebhookSink)(nil)
	_ domain.AlertSink          = (*notify.MockSink)(nil)
	_ domain.PredictionProvider = (*notify.WebhookProvider)(nil)
	_ domain.PredictionProvider = (*notify.MockProvider)(nil)
)
