package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/technohub6911/smartcropx/internal/health"
	"github.com/technohub6911/smartcropx/internal/middleware"
)

type RouterConfig struct {
	Soil           *SoilHandler
	Settings       *SettingsHandler
	WS             *WSHandler
	SoilRateLimit  *middleware.RateLimitMiddleware // optional
	Health         *health.Service                 // optional
	AllowedOrigins []string
	RequestTimeout time.Duration
}

func NewRouter(c RouterConfig) http.Handler {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(c.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"success": true, "status": "ok"})
	})
	r.Get("/readyz", readiness(c.Health))
	r.Handle("/metrics", promhttp.Handler())

	// Long-lived; kept outside the request timeout.
	r.Get("/ws", c.WS.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(c.RequestTimeout))

		ingest := http.HandlerFunc(c.Soil.Create)
		if c.SoilRateLimit != nil {
			r.Method(http.MethodPost, "/soil-data", c.SoilRateLimit.Limit(ingest))
		} else {
			r.Method(http.MethodPost, "/soil-data", ingest)
		}
		r.Get("/soil-data/latest/{userId}", c.Soil.Latest)
		r.Get("/soil-data/{userId}", c.Soil.History)
		r.Delete("/soil-data/{userId}", c.Soil.Delete)

		r.Post("/auto-irrigation", c.Settings.Put)
		r.Get("/irrigation-settings/{userId}", c.Settings.Get)
	})

	return r
}

// readiness reports the last dependency probe results. No probes means ready.
func readiness(svc *health.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			respondJSON(w, http.StatusOK, map[string]any{"success": true, "checks": []health.Status{}})
			return
		}
		checks, ready := svc.Snapshot()
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		respondJSON(w, status, map[string]any{"success": ready, "checks": checks})
	}
}
