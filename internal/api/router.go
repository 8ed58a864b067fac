package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/theblitlabs/tinyml-runner/internal/api/handlers"
	"github.com/theblitlabs/tinyml-runner/internal/api/middleware"
	"github.com/theblitlabs/tinyml-runner/internal/telemetry"
)

// Router wraps mux.Router to add more functionality
type Router struct {
	*mux.Router
	middleware []mux.MiddlewareFunc
	endpoint   string
}

type RouterConfig struct {
	Endpoint  string
	JWTSecret string
	Health    *handlers.HealthHandler
}

// NewRouter creates and configures a new router with all dependencies
func NewRouter(
	trainingHandler *handlers.TrainingHandler,
	predictionHandler *handlers.PredictionHandler,
	cfg RouterConfig,
) *Router {
	r := &Router{
		Router: mux.NewRouter(),
		middleware: []mux.MiddlewareFunc{
			middleware.Logging,
			telemetry.MetricsMiddleware,
			middleware.CORS,
		},
		endpoint: cfg.Endpoint,
	}

	r.setup()
	healthHandler := cfg.Health
	if healthHandler == nil {
		healthHandler = handlers.NewHealthHandler(nil)
	}
	r.registerRoutes(trainingHandler, predictionHandler, healthHandler, cfg.JWTSecret)

	return r
}

// setup configures the base router with middleware and common settings
func (r *Router) setup() {
	for _, m := range r.middleware {
		r.Use(m)
	}
}

// registerRoutes registers all application routes. Health and metrics stay
// outside authentication.
func (r *Router) registerRoutes(
	trainingHandler *handlers.TrainingHandler,
	predictionHandler *handlers.PredictionHandler,
	healthHandler *handlers.HealthHandler,
	jwtSecret string,
) {
	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", telemetry.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix(r.endpoint).Subrouter()
	api.Use(middleware.Auth(jwtSecret))

	api.HandleFunc("/train", trainingHandler.Train).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/jobs", trainingHandler.ListJobs).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/jobs/{id}", trainingHandler.GetJob).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/predict", predictionHandler.Predict).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/save-features", predictionHandler.SaveFeatures).Methods(http.MethodPost, http.MethodOptions)
}
