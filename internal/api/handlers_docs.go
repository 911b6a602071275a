package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/inspect"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
	maxRadius       = 25
)

// handleListChunks pages through the chunk list in document order.
func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", defaultPageSize)
	if offset < 0 || limit <= 0 {
		jsonError(w, "offset must be >= 0 and limit > 0", http.StatusBadRequest)
		return
	}
	limit = min(limit, maxPageSize)

	all := idx.Chunks()
	start := min(offset, len(all))
	end := min(start+limit, len(all))
	writeJSON(w, http.StatusOK, map[string]any{
		"total":  len(all),
		"offset": offset,
		"limit":  limit,
		"chunks": nonNil(all[start:end]),
	})
}

// handleGetChunk returns one chunk by chunk_number.
func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	c, ok := s.chunkParam(w, r, idx)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	c, ok := s.chunkParam(w, r, idx)
	if !ok {
		return
	}
	radius := queryInt(r, "radius", 2)
	if radius < 0 || radius > maxRadius {
		jsonError(w, "radius must be between 0 and 25", http.StatusBadRequest)
		return
	}
	nbs, err := idx.Neighbors(c.ChunkNumber, radius)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"center":    c.ChunkNumber,
		"radius":    radius,
		"neighbors": nbs,
	})
}

// handleReferences resolves a chunk's references to the chunks owning the
// referenced anchors.
func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	c, ok := s.chunkParam(w, r, idx)
	if !ok {
		return
	}
	found, missing := idx.Referenced(c)
	if missing == nil {
		missing = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"references": c.References,
		"found":      nonNil(found),
		"missing":    missing,
	})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	q := inspect.Query{
		DocID:     r.URL.Query().Get("doc_id"),
		SectionID: r.URL.Query().Get("section_id"),
		UUID:      r.URL.Query().Get("uuid"),
	}
	if q.Empty() {
		jsonError(w, "one of doc_id, section_id or uuid is required", http.StatusBadRequest)
		return
	}
	i, ok := idx.Find(q)
	if !ok {
		jsonError(w, "chunk not found", http.StatusNotFound)
		return
	}
	c, _ := idx.At(i)
	writeJSON(w, http.StatusOK, c)
}

// handleGetDoc returns every chunk of one document.
func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	docID := chi.URLParam(r, "docID")
	chunks := idx.ByDocID(docID)
	if len(chunks) == 0 {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"chunks": chunks,
	})
}

func (s *Server) handleChapters(w http.ResponseWriter, r *http.Request) {
	idx, _ := s.current()
	counts := idx.ChapterStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"total_chapters": len(counts),
		"chapters":       counts,
	})
}

func (s *Server) chunkParam(w http.ResponseWriter, r *http.Request, idx *inspect.Index) (doctree.Chunk, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		jsonError(w, "chunk number must be an integer", http.StatusBadRequest)
		return doctree.Chunk{}, false
	}
	i, ok := idx.ByNumber(n)
	if !ok {
		jsonError(w, "chunk not found", http.StatusNotFound)
		return doctree.Chunk{}, false
	}
	c, _ := idx.At(i)
	return c, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func nonNil(cs []doctree.Chunk) []doctree.Chunk {
	if cs == nil {
		return []doctree.Chunk{}
	}
	return cs
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
