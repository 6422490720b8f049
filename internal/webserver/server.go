// Package webserver exposes the nomination pipeline over a small JSON API.
package webserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tejzpr/eloy-nominator/internal/db"
	"github.com/tejzpr/eloy-nominator/internal/events"
	"github.com/tejzpr/eloy-nominator/internal/nomination"
)

const (
	healthMagic     = "eloy-nominator-ok"
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Submitter is the pipeline the API drives.
type Submitter interface {
	Submit(ctx context.Context, req nomination.Request) nomination.Outcome
	FetchCategories(ctx context.Context) []string
}

// Lister reads the submission ledger.
type Lister interface {
	ListAll(ctx context.Context) ([]db.Submission, error)
}

// Server holds the API dependencies. It has no package-level state.
type Server struct {
	submitter Submitter
	ledger    Lister
	broker    *events.Broker
	logger    *zap.Logger
}

// New creates a Server. broker may be nil, which disables /api/events.
func New(submitter Submitter, ledger Lister, broker *events.Broker, log *zap.Logger) *Server {
	return &Server{
		submitter: submitter,
		ledger:    ledger,
		broker:    broker,
		logger:    log,
	}
}

// Handler returns the routed API with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/submit", s.handleSubmit)
	mux.HandleFunc("GET /api/submissions", s.handleSubmissions)
	mux.HandleFunc("OPTIONS /api/", handleCORS)
	if s.broker != nil {
		mux.HandleFunc("GET /api/events", s.handleSSE)
	}

	return corsMiddleware(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled. Request contexts derive from
// ctx, so open event streams end as soon as shutdown begins.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("API listening", zap.String("addr", ln.Addr().String()))
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
		s.logger.Info("API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func handleCORS(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": healthMagic})
}

// handleCategories always answers 200; an unreadable form page yields an
// empty list.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"categories": s.submitter.FetchCategories(r.Context()),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req nomination.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, nomination.Outcome{Detail: "invalid body"})
		return
	}

	writeJSON(w, http.StatusOK, s.submitter.Submit(r.Context(), req))
}

func (s *Server) handleSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.ledger.ListAll(r.Context())
	if err != nil {
		s.logger.Error("List submissions failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]db.Submission{"submissions": subs})
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.broker.Subscribe()
	defer s.broker.Unsubscribe(ch)

	fmt.Fprintf(w, ": keepalive\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: new-submission\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
