package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tourplan/internal/config"
	"tourplan/internal/geo"
	"tourplan/internal/metrics"
	"tourplan/internal/recommend"
	"tourplan/internal/store"
	"tourplan/internal/tour"
	"tourplan/internal/webhooks"
)

type Server struct {
	Store   store.Store
	Engine  *tour.Engine
	Broker  EventBroker
	Latest  *LatestTours
	Limiter *rate.Limiter
	Hooks   *webhooks.Publisher // nil when WEBHOOK_URL is unset
	Tuning  config.Tuning
	Logger  zerolog.Logger
	Config  config.Config
}

// NewServer wires the store, geocoder, engine and broker from cfg. If
// DatabaseURL is empty, uses the in-memory store, optionally seeded from
// SeedFile.
func NewServer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, err
	}

	var s store.Store
	if cfg.DatabaseURL == "" {
		mem := store.NewMemory()
		if cfg.SeedFile != "" {
			f, err := os.Open(cfg.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("open seed file: %w", err)
			}
			ds, err := store.ReadDataset(f)
			_ = f.Close()
			if err != nil {
				return nil, err
			}
			mem.Seed(ds)
			logger.Info().Int("venues", len(ds.Venues)).Int("events", len(ds.Events)).Msg("seeded in-memory store")
		}
		s = mem
	} else {
		sp, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if cfg.DBMigrate {
			if err := sp.Migrate(ctx); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		s = sp
	}

	var geocoder *geo.Geocoder
	if cfg.GoogleMapsAPIKey != "" {
		resolver := geo.NewGoogleResolver(cfg.GoogleMapsAPIKey, cfg.GoogleMapsURL, &http.Client{Timeout: cfg.GeocodeTimeout}, logger)
		geocoder = geo.NewGeocoder(resolver, geo.NewGeocodeCache(cfg.GeocodeCacheSize),
			geo.WithTimeout(cfg.GeocodeTimeout), geo.WithLogger(logger))
	} else {
		logger.Warn().Msg("GOOGLE_MAPS_API_KEY unset; distances use heuristic estimates only")
	}

	// Broker selection
	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("redis broker unavailable; using in-process broker")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	return New(s, broker, geocoder, tuning, cfg, logger)
}

// New builds a Server around existing collaborators.
func New(s store.Store, broker EventBroker, geocoder *geo.Geocoder, tuning config.Tuning, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	engine, err := tour.NewEngine(tour.Deps{
		Availability:    s,
		Recommendations: recommend.NewAffinity(s, tuning.Recommend, logger),
		Venues:          s,
		Events:          s,
		Groups:          s,
		Distances:       geo.NewEstimator(geocoder, tuning.Tour.Distance),
	}, tour.WithTuning(tuning.Tour), tour.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	var limiter *rate.Limiter
	if cfg.RateRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateRPS), max(cfg.RateBurst, 1))
	}
	var hooks *webhooks.Publisher
	if cfg.WebhookURL != "" {
		hooks = webhooks.NewPublisher(64, logger)
	}
	return &Server{
		Store:   s,
		Engine:  engine,
		Broker:  broker,
		Latest:  NewLatestTours(),
		Limiter: limiter,
		Hooks:   hooks,
		Tuning:  tuning,
		Logger:  logger,
		Config:  cfg,
	}, nil
}

// Routes returns the HTTP handler with logging and metrics middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Tours
	mux.Handle("/v1/tours", s.rateLimit(http.HandlerFunc(s.GenerateTourHandler)))
	mux.HandleFunc("/v1/tours/recompute-stop", s.RecomputeStopHandler)
	mux.HandleFunc("/v1/tuning", s.TuningHandler)
	mux.HandleFunc("/v1/groups/", s.GroupToursHandler) // latest, stream, ws

	// Health
	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)

	// Ops
	metrics.RegisterDefault()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/info", s.DebugJSON)

	// Docs
	mux.HandleFunc("/openapi.yaml", s.OpenAPIHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	return s.logMiddleware(mux)
}

// WebhookWorker returns the delivery loop for tour notifications, or nil
// when webhooks are disabled.
func (s *Server) WebhookWorker() *webhooks.Worker {
	if s.Hooks == nil {
		return nil
	}
	return webhooks.NewWorker(s.Hooks, s.Config.WebhookURL, s.Config.WebhookSecret, s.Config.WebhookAttempts, s.Logger)
}

// HTTPServer wraps Routes in an http.Server for addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}
