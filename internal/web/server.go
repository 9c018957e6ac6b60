// Package web provides the VerseFlow upload server: a small JSON API that
// accepts translation files, runs the pipeline, and hands back persisted
// results.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/verseflow/verseflow/internal/logging"
	"github.com/verseflow/verseflow/internal/pipeline"
	"github.com/verseflow/verseflow/internal/store"
	"github.com/verseflow/verseflow/internal/validation"
)

// Config holds server configuration.
type Config struct {
	Port int

	// DBPath locates the SQLite job store. ":memory:" keeps jobs for the
	// lifetime of the process only.
	DBPath string

	// MaxUploadBytes caps upload size. Zero applies validation.MaxUploadSize.
	MaxUploadBytes int64

	// Augmenter, when set, is applied to every processed upload that asks
	// for augmentation.
	Augmenter pipeline.Augmenter
}

// Server is the running upload server.
type Server struct {
	cfg   Config
	store *store.Store
	http  *http.Server
}

// New opens the job store and builds the server.
func New(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = "verseflow.db"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = validation.MaxUploadSize
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, store: st}
	handler := logging.CombinedMiddleware(securityHeaders(s.routes()))
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start runs the server until it fails or Shutdown is called.
func (s *Server) Start() error {
	logging.ServerStartup("upload_api", "http", s.cfg.Port,
		"db_path", s.cfg.DBPath,
		"max_upload_bytes", s.cfg.MaxUploadBytes)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains connections and closes the job store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if cerr := s.store.Close(); err == nil {
		err = cerr
	}
	return err
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/process", s.handleProcess)
	mux.HandleFunc("GET /api/jobs", s.handleListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/jobs/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /api/formats", s.handleFormats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
