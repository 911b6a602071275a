package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/chunker"
	"github.com/dgallion1/codechunk/internal/config"
	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testChunks() []doctree.Chunk {
	mk := func(n int, doc, section, content string) doctree.Chunk {
		return doctree.Chunk{
			Meta:           doctree.Meta{Chapter: doctree.Ptr("Chapter 1"), SectionID: doctree.Ptr(section)},
			ChunkNumber:    n,
			ChunkIndex:     1,
			DocID:          doc,
			UUID:           "uuid-" + section,
			Content:        content,
			CharacterCount: len(content),
			AllLinks:       doctree.NewLinks(),
			History:        doctree.NewHistory(),
			DivClasses:     []string{},
			HTMLTags:       []doctree.TagAnnotation{},
			References:     []doctree.Reference{},
		}
	}
	cs := []doctree.Chunk{
		mk(1, "doc_a", "JD_1.1", "first"),
		mk(2, "doc_a", "JD_1.1", "second"),
		mk(3, "doc_b", "JD_1.2", "third"),
	}
	cs[2].Hash = doctree.Ptr("#JD_1.2")
	cs[0].References = []doctree.Reference{{Hash: "#JD_1.2", ReferenceString: "Section 1.2"}, {Hash: "#JD_9"}}
	return cs
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
	t.Helper()
	s := NewServer(nil, pipeline.Options{Chunker: chunker.DefaultConfig()}, quietLogger(), cfg)
	rep := audit.New()
	rep.Chunks = 3
	rep.Fallback("p", "loose")
	s.Replace(testChunks(), rep)
	return s
}

func get(t *testing.T, h http.Handler, path string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" || body["chunks"] != float64(3) {
		t.Errorf("unexpected health body %v", body)
	}
}

func TestListChunks_Paging(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := get(t, s, "/api/chunks?offset=1&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Total  int             `json:"total"`
		Chunks []doctree.Chunk `json:"chunks"`
	}
	decode(t, rec, &body)
	if body.Total != 3 || len(body.Chunks) != 1 || body.Chunks[0].ChunkNumber != 2 {
		t.Errorf("unexpected page %+v", body)
	}

	rec = get(t, s, "/api/chunks?offset=10")
	decode(t, rec, &body)
	if len(body.Chunks) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(body.Chunks))
	}

	if rec := get(t, s, "/api/chunks?limit=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestGetChunk(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := get(t, s, "/api/chunks/2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var c doctree.Chunk
	decode(t, rec, &c)
	if c.Content != "second" {
		t.Errorf("expected second chunk, got %q", c.Content)
	}

	if rec := get(t, s, "/api/chunks/99"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/chunks/x"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestNeighborsAndReferences(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := get(t, s, "/api/chunks/1/neighbors?radius=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var nb struct {
		Neighbors []struct {
			Offset int            `json:"offset"`
			Chunk  *doctree.Chunk `json:"chunk"`
		} `json:"neighbors"`
	}
	decode(t, rec, &nb)
	if len(nb.Neighbors) != 3 || nb.Neighbors[0].Chunk != nil || nb.Neighbors[2].Chunk.ChunkNumber != 2 {
		t.Errorf("unexpected neighbors %+v", nb)
	}
	if rec := get(t, s, "/api/chunks/1/neighbors?radius=100"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for large radius, got %d", rec.Code)
	}

	rec = get(t, s, "/api/chunks/1/references")
	var refs struct {
		Found   []doctree.Chunk `json:"found"`
		Missing []string        `json:"missing"`
	}
	decode(t, rec, &refs)
	if len(refs.Found) != 1 || refs.Found[0].ChunkNumber != 3 {
		t.Errorf("expected chunk 3 resolved, got %+v", refs.Found)
	}
	if len(refs.Missing) != 1 || refs.Missing[0] != "#JD_9" {
		t.Errorf("expected #JD_9 missing, got %v", refs.Missing)
	}
}

func TestLookupAndDocs(t *testing.T) {
	s := newTestServer(t, config.Config{})
	rec := get(t, s, "/api/lookup?section_id=JD_1.2")
	var c doctree.Chunk
	decode(t, rec, &c)
	if c.ChunkNumber != 3 {
		t.Errorf("expected chunk 3, got %d", c.ChunkNumber)
	}
	if rec := get(t, s, "/api/lookup"); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without identifiers, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/lookup?uuid=nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = get(t, s, "/api/docs/doc_a")
	var doc struct {
		Chunks []doctree.Chunk `json:"chunks"`
	}
	decode(t, rec, &doc)
	if len(doc.Chunks) != 2 {
		t.Errorf("expected 2 chunks for doc_a, got %d", len(doc.Chunks))
	}
	if rec := get(t, s, "/api/docs/none"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStatsAndReport(t *testing.T) {
	s := newTestServer(t, config.Config{})
	get(t, s, "/health")

	rec := get(t, s, "/api/stats")
	var body struct {
		Sizes struct {
			Chunks int `json:"chunks"`
		} `json:"sizes"`
		Requests struct {
			Count int `json:"count"`
		} `json:"requests"`
		Audit struct {
			Clean bool `json:"clean"`
		} `json:"audit"`
	}
	decode(t, rec, &body)
	if body.Sizes.Chunks != 3 {
		t.Errorf("expected 3 chunks, got %d", body.Sizes.Chunks)
	}
	if body.Requests.Count < 1 {
		t.Errorf("expected recorded request latency, got %d", body.Requests.Count)
	}
	if body.Audit.Clean {
		t.Error("expected unclean audit with a fallback block")
	}

	rec = get(t, s, "/report")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("expected html report, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "<h1>") {
		t.Errorf("expected rendered heading, got %q", rec.Body.String())
	}
}

func TestReport_NoneLoaded(t *testing.T) {
	s := NewServer(nil, pipeline.Options{}, quietLogger(), config.Config{})
	if rec := get(t, s, "/report"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t, config.Config{APIKey: "secret"})

	if rec := get(t, s, "/health"); rec.Code != http.StatusOK {
		t.Errorf("expected public health, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/chunks"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/chunks", "Authorization", "Bearer wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/chunks", "Authorization", "Bearer secret"); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rec.Code)
	}
}

func TestExtract_Unavailable(t *testing.T) {
	s := newTestServer(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/api/extract", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

const extractHTML = `<html><body>
<div class="rbox Chapter">CHAPTER 1: GENERAL</div>
<div class="Section toc-destination" id="JD_1.1">SEC. 1.1. TITLE.</div>
<div class="Normal-Level">Body text.</div>
</body></html>`

func TestExtract_RunsJobAndSwapsChunks(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "code.html")
	if err := os.WriteFile(in, []byte(extractHTML), 0o644); err != nil {
		t.Fatal(err)
	}

	var s *Server
	orch := pipeline.NewOrchestrator(2, time.Hour, quietLogger(), func(r *pipeline.Result) { s.OnResult(r) })
	s = NewServer(orch, pipeline.Options{
		InputPath:  in,
		OutputPath: filepath.Join(dir, "chunks.json"),
		Chunker:    chunker.DefaultConfig(),
	}, quietLogger(), config.Config{})
	orch.Start(context.Background())
	defer orch.Stop()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"text_only":true}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted map[string]any
	decode(t, rec, &accepted)
	pollURL, _ := accepted["poll_url"].(string)
	if pollURL == "" {
		t.Fatalf("expected poll url, got %v", accepted)
	}

	deadline := time.Now().Add(5 * time.Second)
	var snap pipeline.JobSnapshot
	for time.Now().Before(deadline) {
		decode(t, get(t, s, pollURL), &snap)
		if snap.Status == pipeline.StatusCompleted || snap.Status == pipeline.StatusFailed {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap.Status != pipeline.StatusCompleted {
		t.Fatalf("expected completed job, got %+v", snap)
	}

	for time.Now().Before(deadline) {
		var body map[string]any
		decode(t, get(t, s, "/health"), &body)
		if body["chunks"] != float64(0) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("expected served chunks to be replaced after the job")
}

func TestExtract_BadBody(t *testing.T) {
	orch := pipeline.NewOrchestrator(1, time.Hour, quietLogger(), nil)
	s := NewServer(orch, pipeline.Options{}, quietLogger(), config.Config{})
	for _, body := range []string{`{`, `{"max_chunk_size":0}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	if rec := get(t, s, "/api/jobs/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown job, got %d", rec.Code)
	}
}
