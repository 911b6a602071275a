package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dgallion1/codechunk/internal/audit"
	"github.com/dgallion1/codechunk/internal/chunker"
	"github.com/dgallion1/codechunk/internal/doctree"
	"github.com/dgallion1/codechunk/internal/hierarchy"
	"github.com/dgallion1/codechunk/internal/parser"
	"golang.org/x/net/html"
)

// ErrInputNotFound is returned before any traversal when the input file is
// missing.
var ErrInputNotFound = errors.New("input not found")

// Options describes one extraction run.
type Options struct {
	InputPath  string
	OutputPath string // Empty skips writing chunks.
	AuditPath  string // Empty skips writing the audit report.
	RulesPath  string // Empty uses the built-in hierarchy table.
	TextOnly   bool
	Chunker    chunker.Config

	// OnPhase, when set, is called as the run enters each phase.
	OnPhase func(JobStatus)
}

// Result is the output of a successful run.
type Result struct {
	Chunks      []doctree.Chunk
	Audit       *audit.Report
	ContentHash string
	Elapsed     time.Duration
}

// Run loads the input document, extracts chunks in one pass and writes the
// chunk file and audit report.
func Run(ctx context.Context, opts Options, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("input", opts.InputPath)
	start := time.Now()
	phase := func(s JobStatus) {
		if opts.OnPhase != nil {
			opts.OnPhase(s)
		}
	}

	levels := hierarchy.DefaultLevels()
	if opts.RulesPath != "" {
		var err error
		if levels, err = hierarchy.LoadYAML(opts.RulesPath); err != nil {
			return nil, err
		}
		log.Info("loaded hierarchy rules", "path", opts.RulesPath, "levels", len(levels))
	}

	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.InputPath)
		}
		return nil, fmt.Errorf("read input: %w", err)
	}
	hash := ContentHashHex(data)

	phase(StatusParsing)
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	log.Info("parsed document", "bytes", len(data), "content_hash", hash)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	phase(StatusExtracting)
	ex := parser.NewExtractor(levels, opts.Chunker, parser.Options{TextOnly: opts.TextOnly}, log)
	chunks, report, err := ex.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	report.Input = opts.InputPath
	report.ContentHash = hash
	log.Info("extraction complete",
		"chunks", len(chunks),
		"sections", report.Sections,
		"fallback_blocks", report.FallbackBlocks,
		"unresolved_links", report.UnresolvedLinks)
	if !report.Clean() {
		log.Warn("extraction needs review", "unrecognized_keys", len(report.Unrecognized), "unresolved_links", report.UnresolvedLinks)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	phase(StatusWriting)
	if opts.OutputPath != "" {
		if err := WriteChunks(opts.OutputPath, chunks); err != nil {
			return nil, err
		}
		log.Info("wrote chunks", "path", opts.OutputPath)
	}
	if opts.AuditPath != "" {
		if err := report.WriteFile(opts.AuditPath); err != nil {
			return nil, err
		}
		log.Info("wrote audit", "path", opts.AuditPath)
	}

	return &Result{
		Chunks:      chunks,
		Audit:       report,
		ContentHash: hash,
		Elapsed:     time.Since(start),
	}, nil
}

// WriteChunks writes chunks as an indented JSON array. The file is written
// to a temporary sibling and renamed into place.
func WriteChunks(path string, chunks []doctree.Chunk) error {
	if chunks == nil {
		chunks = []doctree.Chunk{}
	}
	// Legal text is full of "&" and "<"; keep it readable in the file.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(chunks); err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	data := buf.Bytes()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}

// LoadChunks reads a chunk file written by WriteChunks.
func LoadChunks(path string) ([]doctree.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	var chunks []doctree.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse chunks: %w", err)
	}
	for i := range chunks {
		chunks[i].Normalize()
	}
	return chunks, nil
}
