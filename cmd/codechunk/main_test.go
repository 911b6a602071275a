package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/codechunk/internal/config"
	"github.com/dgallion1/codechunk/internal/export"
)

const smallCode = `<html><body>
<div class="rbox Chapter"><a name="JD_Chapter1"></a>CHAPTER 1: GENERAL PROVISIONS</div>
<div class="Section toc-destination" id="JD_1.1"><a name="JD_1.1"></a>SEC. 1.1. TITLE.</div>
<div class="Normal-Level">This Code shall be known as the Administrative Code. See <link to="pathname: '/codes/sf/0-0-0-2', hash: '#JD_1.2'">Section 1.2.</div>
<div class="Section toc-destination" id="JD_1.2"><a name="JD_1.2"></a>SEC. 1.2. DEFINITIONS.</div>
<div class="Normal-Level">Words have their ordinary meaning.</div>
<p>Loose paragraph.</p>
</body></html>`

func testConfig(dir string) config.Config {
	return config.Config{
		InputPath:    filepath.Join(dir, "code.html"),
		OutputPath:   filepath.Join(dir, "chunks.json"),
		MaxChunkSize: 2000,
		DocIDPrefix:  "sf_municipal_code",
		City:         "San Francisco",
		LogLevel:     "error",
		LogFormat:    "text",
	}
}

func run(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(cfg, io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func setup(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := testConfig(dir)
	if err := os.WriteFile(cfg.InputPath, []byte(smallCode), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, cfg, "extract")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "Saved 3 chunks") {
		t.Fatalf("unexpected extract output %q", out)
	}
	return cfg
}

func TestExtract_FlagsOverrideConfig(t *testing.T) {
	cfg := setup(t)
	other := filepath.Join(t.TempDir(), "other.json")
	auditPath := filepath.Join(t.TempDir(), "audit.md")
	out, err := run(t, cfg, "extract", "-o", other, "--audit", auditPath, "--text-only")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, other) || !strings.Contains(out, "1 fallback blocks") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(auditPath); err != nil {
		t.Errorf("expected audit report: %v", err)
	}
}

func TestExtract_Errors(t *testing.T) {
	cfg := testConfig(t.TempDir())
	if _, err := run(t, cfg, "extract"); err == nil || !strings.Contains(err.Error(), "input not found") {
		t.Errorf("expected input not found, got %v", err)
	}
	if _, err := run(t, cfg, "extract", "-s", "0"); err == nil {
		t.Error("expected validation error for chunk size 0")
	}
}

func TestInspect(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "inspect", "--count", "--chapters", "--sizes")
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Total chunks: 3", "Total chapters: 1", "Chunks: 3 in"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "inspect", "--section-id", "JD_1.1", "--refs")
	if err != nil {
		t.Fatalf("inspect lookup: %v", err)
	}
	if !strings.Contains(out, "SEC. 1.1") || strings.Count(out, "CHUNK ") < 2 {
		t.Errorf("expected chunk and its reference target:\n%s", out)
	}

	if _, err := run(t, cfg, "inspect", "--uuid", "missing"); err == nil {
		t.Error("expected lookup failure")
	}

	out, err = run(t, cfg, "inspect", "--summary", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Inspecting first 1 chunks") {
		t.Errorf("unexpected summary output:\n%s", out)
	}
}

func TestAnalyze(t *testing.T) {
	cfg := setup(t)

	out, err := run(t, cfg, "analyze", "-s", "40")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "chunks with <= 40 characters") {
		t.Errorf("unexpected short output:\n%s", out)
	}

	out, err = run(t, cfg, "analyze", "-n", "2")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"CHUNK #2 ANALYSIS", "PREDECESSOR", "SUCCESSOR"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}

	out, err = run(t, cfg, "analyze", "--neighbors", "1", "--radius", "1")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "3-CHUNK ANALYSIS AROUND #1") || !strings.Contains(out, " -> 1") {
		t.Errorf("unexpected neighbors output:\n%s", out)
	}

	out, err = run(t, cfg, "analyze", "--chunks", "1,3")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "=== Chunk ") != 2 {
		t.Errorf("expected two detail blocks:\n%s", out)
	}

	out, err = run(t, cfg, "analyze", "--duplicates")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Total parent-child duplicates found: 0") {
		t.Errorf("unexpected duplicates output:\n%s", out)
	}

	if _, err := run(t, cfg, "analyze", "-n", "99"); err == nil {
		t.Error("expected error for unknown chunk")
	}
}

func TestDiff(t *testing.T) {
	cfg := setup(t)
	dir := t.TempDir()
	raw := filepath.Join(dir, "raw.txt")
	text := "CHAPTER 1: GENERAL PROVISIONS\nSEC. 1.1. TITLE.\nThis Code shall be known as the Administrative Code. See Section 1.2.\n" +
		"SEC. 1.2. DEFINITIONS.\nWords have their ordinary meaning.\nLoose paragraph."
	if err := os.WriteFile(raw, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	recon := filepath.Join(dir, "recon.txt")
	patch := filepath.Join(dir, "recon.patch")

	out, err := run(t, cfg, "diff", "--raw", raw, "--reconstructed-out", recon, "--patch", patch)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	for _, want := range []string{"Found 0 articles in raw text", "IMAGE URL COMPARISON", "TEXT COMPARISON", "Saved unified patch"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if _, err := os.Stat(recon); err != nil {
		t.Errorf("expected reconstructed text: %v", err)
	}
	if _, err := os.Stat(patch); err != nil {
		t.Errorf("expected patch file: %v", err)
	}
}

func TestExport(t *testing.T) {
	cfg := setup(t)
	xlsx := filepath.Join(t.TempDir(), "chunks.xlsx")
	out, err := run(t, cfg, "export", "-o", xlsx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Exported 3 chunks") {
		t.Errorf("unexpected output %q", out)
	}
	rows, err := export.ReadSheet(xlsx, export.ChunkSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Errorf("expected header plus 3 rows, got %d", len(rows))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("%q: expected %s, got %s", in, want, got)
		}
	}
}
