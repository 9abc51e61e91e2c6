package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/BrandonDHaskell/Portico/internal/portico/service"
)

type Dependencies struct {
	Logger zerolog.Logger
	Addr   string

	AccessService *service.AccessService
	AdminService  *service.AdminService
	Sweeper       service.SweepRunner

	// AdminToken guards /v1/admin.  Empty leaves the admin routes unmounted.
	AdminToken string

	// TwilioAuthToken enables webhook signature checks.  PublicURL is the
	// externally visible base URL the provider signs; when empty the
	// request's own scheme and host are used, with X-Forwarded-Proto
	// honored only when TrustProxy is set.
	TwilioAuthToken string
	PublicURL       string
	TrustProxy      bool

	RateRPS   float64
	RateBurst int

	// Ready, when set, backs /healthz.
	Ready func(context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     zerolog.Logger
	router     chi.Router

	access  *service.AccessService
	admin   *service.AdminService
	sweeper service.SweepRunner

	twilioAuthToken string
	publicURL       string
	trustProxy      bool
	ready           func(context.Context) error
}

func NewServer(d Dependencies) *Server {
	r := chi.NewRouter()

	s := &Server{
		logger:          d.Logger,
		router:          r,
		access:          d.AccessService,
		admin:           d.AdminService,
		sweeper:         d.Sweeper,
		twilioAuthToken: d.TwilioAuthToken,
		publicURL:       d.PublicURL,
		trustProxy:      d.TrustProxy,
		ready:           d.Ready,
	}

	r.Use(requestID(d.Logger))
	r.Use(tracing)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.With(rateLimit(d.RateRPS, d.RateBurst)).Post("/v1/call", s.handleCall)

	if d.AdminToken != "" {
		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(requireBearer(d.AdminToken))

			r.Post("/sweep", s.handleSweep)

			r.Route("/users/{userID}", func(r chi.Router) {
				r.Get("/properties", s.handleListProperties)
				r.Post("/properties", s.handlePutProperty)
				r.Put("/properties/{number}", s.handlePutProperty)
				r.Delete("/properties/{number}", s.handleDeleteProperty)

				r.Get("/checkins", s.handleQueryCheckIns)
				r.Post("/checkins", s.handleCreateCheckIn)
				r.Put("/checkins/{id}", s.handleEditCheckIn)
				r.Delete("/checkins/{id}", s.handleDeleteCheckIn)

				r.Get("/calls", s.handleListCalls)
				r.Get("/counters", s.handleCounters)
			})
		})
	} else {
		d.Logger.Warn().Msg("admin token not set; admin routes disabled")
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
