package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"thepipe/internal/config"
	"thepipe/internal/geometry"
	"thepipe/internal/logging"
	"thepipe/internal/metrics"
	"thepipe/internal/wire"
)

// Options configures a relay Server.
type Options struct {
	Listen    string
	Token     string
	Limits    wire.Limits
	Tolerance geometry.Tolerance
	// TTL expires queued trees nobody took. Zero keeps them until replaced.
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// OptionsFromConfig maps the [relay], [pipe] and [geometry] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Listen:    cfg.Relay.Listen,
		Token:     cfg.Relay.Token,
		Limits:    wire.Limits{MaxPayloadBytes: cfg.MaxPayloadBytes()},
		Tolerance: cfg.Tolerance(),
		TTL:       cfg.ListenTimeout(),
	}
}

// Server is the HTTP relay.
type Server struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	store   *store
	router  chi.Router

	listener net.Listener
	server   *http.Server
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(opts Options) *Server {
	if opts.Limits.MaxPayloadBytes == 0 {
		opts.Limits = wire.DefaultLimits()
	}
	if opts.Tolerance == (geometry.Tolerance{}) {
		opts.Tolerance = geometry.DefaultTolerance
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	s := &Server{
		opts:    opts,
		logger:  logging.NewComponentLogger(opts.Logger, "relay"),
		metrics: opts.Metrics,
		store:   newStore(opts.Tolerance, opts.TTL),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/pipes", func(r chi.Router) {
		r.Use(authMiddleware(s.opts.Token))
		r.Get("/", s.handleList)
		r.Put("/{name}", s.handlePut)
		r.Get("/{name}", s.handleGet)
		r.Delete("/{name}", s.handleDelete)
		r.Get("/{name}/pushes/{id}", s.handlePushStatus)
	})
	return r
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("relay listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("relay server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("relay listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RelayRequest(r.Method, strconv.Itoa(status))
	})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body := http.MaxBytesReader(w, r.Body, int64(s.opts.Limits.MaxPayloadBytes)+int64(wire.FixedHeaderLen))
	frame, err := wire.ReadFrame(body, s.opts.Limits)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || errors.Is(err, wire.ErrPayloadTooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload exceeds relay limit")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tree, err := wire.TreeFromFrame(frame)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, suppressed := s.store.put(name, frame.Payload, tree)
	if suppressed {
		s.metrics.Push("relay", metrics.PushSuppressed)
		writeJSON(w, http.StatusOK, PushResponse{PushID: id, Suppressed: true})
		return
	}
	s.metrics.Push("relay", metrics.PushSent)
	s.metrics.Payload("relay", "in", len(frame.Payload))
	s.logger.Debug("tree queued",
		logging.String(logging.FieldPipe, name),
		logging.String(logging.FieldPushID, id),
		logging.Int("nodes", tree.Count()))
	writeJSON(w, http.StatusCreated, PushResponse{PushID: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	peek := isTrue(r.URL.Query().Get("peek"))

	var (
		payload []byte
		ok      bool
	)
	if peek {
		payload, ok = s.store.peek(name)
	} else {
		payload, ok = s.store.take(name)
	}
	if !ok {
		if !peek {
			s.metrics.Pull("relay", metrics.PullEmpty)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !peek {
		s.metrics.Pull("relay", metrics.PullReceived)
		s.metrics.Payload("relay", "out", len(payload))
	}
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(http.StatusOK)
	if err := wire.WriteFrame(w, wire.NewFrame(wire.MsgTree, 0, wire.FlagIsResponse, payload), s.opts.Limits); err != nil {
		s.logger.Warn("write tree response failed", logging.String(logging.FieldPipe, name), logging.Error(err))
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.store.drop(chi.URLParam(r, "name")) {
		writeError(w, http.StatusNotFound, "nothing queued")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePushStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	state, ok := s.store.state(chi.URLParam(r, "name"), id)
	if !ok {
		writeError(w, http.StatusNotFound, "push not found")
		return
	}
	writeJSON(w, http.StatusOK, PushStatus{PushID: id, State: state})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ListResponse{Pipes: s.store.list()})
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
