package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/example/tablesearch/internal/application/search"
	"github.com/example/tablesearch/internal/domain/reservation"
	"github.com/example/tablesearch/internal/internaltypes"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Server struct {
	Visitors *Visitors
	Sessions *Registry
	Auth     *search.SessionManager
	Log      *zap.Logger
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/api/auth", s.handleAuth)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/search/results", s.handleResults)
	mux.HandleFunc("/api/search/more", s.handleMore)

	return s.logging(mux)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.Auth.Snapshot())
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	id, err := s.Visitors.Ensure(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sess, err := s.Sessions.Lookup(id)
		if errors.Is(err, internaltypes.ErrNoSession) {
			writeJSON(w, http.StatusOK, search.State{})
			return
		}
		writeJSON(w, http.StatusOK, sess.State())
	case http.MethodPost:
		var c reservation.Criteria
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, "invalid criteria", http.StatusBadRequest)
			return
		}
		if c.Size == "" || c.Date == "" || c.Time == "" {
			http.Error(w, "size, date and time are required", http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, s.Sessions.Get(id).Search(r.Context(), c))
	case http.MethodDelete:
		s.Sessions.Drop(id)
		s.Visitors.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, sess *search.Session) search.State {
		return sess.FetchResults(ctx)
	})
}

func (s *Server) handleMore(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(ctx context.Context, sess *search.Session) search.State {
		return sess.LoadMore(ctx)
	})
}

// withSession runs fn against the visitor's existing session; there is
// nothing to page through before a search has been submitted.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(context.Context, *search.Session) search.State) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := s.Visitors.ID(r)
	if !ok {
		http.Error(w, internaltypes.ErrNoSession.Error(), http.StatusNotFound)
		return
	}
	sess, err := s.Sessions.Lookup(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, fn(r.Context(), sess))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.Log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", sw.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// Start serves h on addr until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
