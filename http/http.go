package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/awantoch/scriptflow/config"
	"github.com/awantoch/scriptflow/constants"
	"github.com/awantoch/scriptflow/event"
	"github.com/awantoch/scriptflow/layout"
	"github.com/awantoch/scriptflow/parser"
	"github.com/awantoch/scriptflow/telemetry"
	"github.com/awantoch/scriptflow/utils"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Server is the script-to-flow HTTP service.
type Server struct {
	cfg      *config.Config
	parser   parser.Parser
	assigner *layout.Assigner
	bus      event.EventBus
	handler  http.Handler
}

type Option func(*Server)

// WithParser replaces the parser built from config.
func WithParser(p parser.Parser) Option {
	return func(s *Server) { s.parser = p }
}

// WithEventBus publishes parse completions on bus.
func WithEventBus(bus event.EventBus) Option {
	return func(s *Server) { s.bus = bus }
}

// NewServer builds a server from cfg. A nil cfg uses defaults.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if s.parser == nil {
		p, err := parser.New(cfg.Parser)
		if err != nil {
			return nil, fmt.Errorf("failed to create parser: %w", err)
		}
		s.parser = p
	}
	assigner, err := layout.FromConfig(cfg.Layout, "")
	if err != nil {
		return nil, err
	}
	s.assigner = assigner
	s.handler = s.routes()
	return s, nil
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.HTTP.Host, strconv.Itoa(s.cfg.HTTP.Port))
}

// Start serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(&utils.LoggerWriter{Fn: utils.Error, Prefix: "http: "}, "", 0),
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("scriptflow listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		utils.Info("scriptflow server stopped")
		return nil
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(route, name string, h http.HandlerFunc) {
		mux.Handle(route, telemetry.WrapHandler(name, h))
	}
	handle(constants.RouteParse, "parse", s.handleParse)
	handle(constants.RouteLayout, "layout", s.handleLayout)
	handle(constants.RouteFlow, "flow", s.handleFlow)
	handle(constants.RouteDiagram, "diagram", s.handleDiagram)
	mux.HandleFunc(constants.RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		_, _ = w.Write([]byte(constants.HealthCheckResponse))
	})
	mux.Handle(constants.RouteMetrics, telemetry.MetricsHandler())
	return withRequestID(withCORS(s.cfg.HTTP.AllowedOrigins, mux))
}

// withRequestID tags every request with an id, taken from X-Request-ID when
// the caller sent one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(constants.HeaderRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(constants.HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(utils.WithRequestID(r.Context(), reqID)))
	})
}

// withCORS answers preflight requests and sets CORS headers. An empty origin
// list allows any origin.
func withCORS(origins []string, next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		h := w.Header()
		switch {
		case len(allowed) == 0 || allowed["*"]:
			h.Set(constants.HeaderAllowOrigin, "*")
		case allowed[origin]:
			h.Set(constants.HeaderAllowOrigin, origin)
			h.Set(constants.HeaderAllowCreds, "true")
			h.Add("Vary", "Origin")
		}
		h.Set(constants.HeaderAllowMethods, "GET, POST, OPTIONS")
		h.Set(constants.HeaderAllowHeaders, strings.Join([]string{
			constants.HeaderContentType, constants.HeaderAuthorization, constants.HeaderRequestID,
		}, ", "))
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
