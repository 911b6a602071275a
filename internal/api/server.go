package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/config"
	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/inspect"
	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/dgallion1/codechunk/internal/stats"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP browse API over one loaded chunk list.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	extract      pipeline.Options
	latency      *stats.Window
	log          *slog.Logger
	cfg          config.Config

	mu     sync.RWMutex
	index  *inspect.Index
	report *audit.Report
	loaded time.Time
}

// NewServer creates and configures the HTTP server. orch may be nil, in
// which case re-extraction is unavailable. extract is the template for
// jobs submitted through the API.
func NewServer(orch *pipeline.Orchestrator, extract pipeline.Options, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		orchestrator: orch,
		extract:      extract,
		latency:      stats.NewWindow(time.Hour),
		log:          log,
		cfg:          cfg,
		index:        inspect.NewIndex(nil),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Replace swaps in a new chunk list and audit. In-flight requests keep the
// previous index.
func (s *Server) Replace(chunks []doctree.Chunk, report *audit.Report) {
	idx := inspect.NewIndex(chunks)
	s.mu.Lock()
	s.index = idx
	s.report = report
	s.loaded = time.Now()
	s.mu.Unlock()
	s.log.Info("chunks loaded", "chunks", len(chunks))
}

// OnResult adapts Replace for the orchestrator completion callback.
func (s *Server) OnResult(res *pipeline.Result) {
	s.Replace(res.Chunks, res.Audit)
}

func (s *Server) current() (*inspect.Index, *audit.Report) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index, s.report
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.latency))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints when an API key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Get("/api/chunks", s.handleListChunks)
		r.Get("/api/chunks/{number}", s.handleGetChunk)
		r.Get("/api/chunks/{number}/neighbors", s.handleNeighbors)
		r.Get("/api/chunks/{number}/references", s.handleReferences)
		r.Get("/api/lookup", s.handleLookup)
		r.Get("/api/docs/{docID}", s.handleGetDoc)
		r.Get("/api/chapters", s.handleChapters)
		r.Get("/api/stats", s.handleStats)
		r.Get("/report", s.handleReport)

		r.Post("/api/extract", s.handleExtract)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"chunks": idx.Len(),
	})
}
