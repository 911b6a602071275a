package api

import (
	"net/http"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	idx, report := s.current()

	body := map[string]any{
		"sizes":    idx.SizeStats(s.extract.Chunker.MaxChunkSize),
		"requests": s.latency.Snapshot(),
	}
	if report != nil {
		body["audit"] = map[string]any{
			"clean":            report.Clean(),
			"fallback_blocks":  report.FallbackBlocks,
			"unresolved_links": report.UnresolvedLinks,
			"content_hash":     report.ContentHash,
		}
	}
	if s.orchestrator != nil {
		body["queue_depth"] = s.orchestrator.QueueDepth()
	}
	s.mu.RLock()
	if !s.loaded.IsZero() {
		body["loaded_at"] = s.loaded.UTC()
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, body)
}

// handleReport renders the audit of the loaded run as HTML.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	_, report := s.current()
	if report == nil {
		jsonError(w, "no audit report loaded", http.StatusNotFound)
		return
	}
	page, err := report.HTML()
	if err != nil {
		s.log.Error("rendering audit", "error", err)
		jsonError(w, "failed to render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}
