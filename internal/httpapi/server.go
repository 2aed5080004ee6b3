package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postgate/internal/api"
	"postgate/internal/logging"
	"postgate/internal/queue"
)

// CorrelationHeader carries the request correlation id in both directions.
const CorrelationHeader = "X-Correlation-ID"

// Service is the subset of the queue service the HTTP front end calls.
type Service interface {
	Pending(ctx context.Context) ([]*queue.Item, error)
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Get(ctx context.Context, id string) (*queue.Item, error)
	SubmitRaw(ctx context.Context, content string, metadata json.RawMessage, opts ...api.SubmitOption) (*queue.Item, error)
	ApproveAs(ctx context.Context, id, actor string) error
	RejectAs(ctx context.Context, id, actor string) error
	Status(ctx context.Context) (api.QueueStatus, error)
}

// Options configures a Server.
type Options struct {
	Bind   string
	Logger *slog.Logger
	// Gatherer backs GET /metrics. Nil leaves the endpoint unregistered.
	Gatherer prometheus.Gatherer
}

// Server is the HTTP front end.
type Server struct {
	bind   string
	logger *slog.Logger
	svc    Service
	router *mux.Router

	listener net.Listener
	server   *http.Server
}

// maxBodyBytes bounds submission payloads.
const maxBodyBytes = 1 << 20

// New builds a server around svc. Call Start to listen on opts.Bind, or use
// Handler directly.
func New(svc Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:   strings.TrimSpace(opts.Bind),
		logger: logging.NewComponentLogger(logger, "http"),
		svc:    svc,
	}

	router := mux.NewRouter()
	router.Use(s.correlate)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/queue/pending-tweets", s.handlePending).Methods(http.MethodGet)
	apiRouter.HandleFunc("/queue/approve/{id}", s.handleDecision(queue.StatusApproved)).Methods(http.MethodPost)
	apiRouter.HandleFunc("/queue/reject/{id}", s.handleDecision(queue.StatusRejected)).Methods(http.MethodPost)
	apiRouter.HandleFunc("/queue/items", s.handleList).Methods(http.MethodGet)
	apiRouter.HandleFunc("/queue/items", s.handleSubmit).Methods(http.MethodPost)
	apiRouter.HandleFunc("/queue/items/{id}", s.handleItem).Methods(http.MethodGet)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.NotFoundHandler = http.HandlerFunc(s.handleAPINotFound)
	apiRouter.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	registerStatic(router)
	router.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	s.router = router
	s.server = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured bind address and serves until ctx is
// cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if s.bind == "" {
		return errors.New("api listen: empty bind address")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for open requests.
func (s *Server) Stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// correlate tags each request with a correlation id, honouring one supplied
// by the caller.
func (s *Server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(CorrelationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithCorrelationID(r.Context(), id)))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code})
}

// writeStoreFailure reports a storage error without leaking driver detail.
func (s *Server) writeStoreFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), msg, "http_store_failure",
		logging.String("path", r.URL.Path),
		logging.Error(err),
	)
	s.writeError(w, http.StatusInternalServerError, codeStoreFailure, queue.ErrStoreFailure.Error())
}
