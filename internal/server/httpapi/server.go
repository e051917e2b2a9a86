package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evenfall/nightpost/internal/logging"
	"github.com/evenfall/nightpost/internal/server/models"
)

// NewRouter assembles the public routes. Everything under /api requires a
// verified bearer token; /healthz and /metrics stay open.
func NewRouter(h *Handler, secretKey []byte) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(AuthMiddleware(secretKey))
	api.Use(MetricsMiddleware)

	api.HandleFunc("/letters", h.Deliver).Methods(http.MethodPost)
	api.HandleFunc("/letters/assign", h.AssignDaily).Methods(http.MethodPost)
	api.HandleFunc("/letters/stats", h.Stats).Methods(http.MethodGet)
	api.HandleFunc("/letters/sent", h.Box(models.BoxSent)).Methods(http.MethodGet)
	api.HandleFunc("/letters/received", h.Box(models.BoxReceived)).Methods(http.MethodGet)
	api.HandleFunc("/letters/mybox", h.Box(models.BoxMine)).Methods(http.MethodGet)
	api.HandleFunc("/letters/{id}", h.GetThread).Methods(http.MethodGet)
	api.HandleFunc("/letters/{id}/read", h.Accept).Methods(http.MethodPost)
	api.HandleFunc("/attachments/presign", h.PresignAttachment).Methods(http.MethodPost)

	return r
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

func NewServer(addr string, router *mux.Router, logger logging.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
