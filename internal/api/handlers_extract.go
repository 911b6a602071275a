package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dgallion1/codechunk/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// extractRequest overrides the run template. The input and output paths
// always come from server configuration.
type extractRequest struct {
	TextOnly     *bool `json:"text_only"`
	MaxChunkSize *int  `json:"max_chunk_size"`
}

// handleExtract queues a re-extraction of the configured input. On success
// the worker swaps the served chunk list.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "re-extraction unavailable", http.StatusServiceUnavailable)
		return
	}

	var req extractRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts := s.extract
	if req.TextOnly != nil {
		opts.TextOnly = *req.TextOnly
	}
	if req.MaxChunkSize != nil {
		if *req.MaxChunkSize <= 0 {
			jsonError(w, "max_chunk_size must be positive", http.StatusBadRequest)
			return
		}
		opts.Chunker.MaxChunkSize = *req.MaxChunkSize
	}

	job := pipeline.NewJob(opts)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"input":    snap.Input,
		"poll_url": fmt.Sprintf("/api/jobs/%s", snap.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.orchestrator == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}
