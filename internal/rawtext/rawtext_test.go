package rawtext

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
)

func TestTextLoader_ParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\n\n\nSecond paragraph.\n   \nThird paragraph."
	l := &TextLoader{}
	got, err := l.Load(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestTextLoader_EmptyInput(t *testing.T) {
	l := &TextLoader{}
	got, err := l.Load(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestDecodeText_Latin1Fallback(t *testing.T) {
	// "§ 1. Café" in Windows-1252.
	raw := []byte{0xa7, ' ', '1', '.', ' ', 'C', 'a', 'f', 0xe9}
	got, err := DecodeText(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "§ 1. Café" {
		t.Errorf("expected %q, got %q", "§ 1. Café", got)
	}
}

func TestDecodeText_StripsBOM(t *testing.T) {
	got, err := DecodeText([]byte("\xef\xbb\xbfSEC. 1."))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "SEC. 1." {
		t.Errorf("expected BOM stripped, got %q", got)
	}
}

func TestMarkdownLoader_StripsMarkup(t *testing.T) {
	input := "# Chapter 1\n\nSome *emphasis* and a [link](http://x).\n\n- item one\n- item two\n"
	l := &MarkdownLoader{}
	got, err := l.Load(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Chapter 1", "Some emphasis and a link.", "item one", "item two"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected text to contain %q, got %q", want, got)
		}
	}
	if strings.Contains(got, "*") || strings.Contains(got, "#") {
		t.Errorf("expected markup removed, got %q", got)
	}
	if strings.Count(got, "Some emphasis") != 1 {
		t.Errorf("expected paragraph text once, got %q", got)
	}
}

func TestHTMLLoader_HidesAnnotations(t *testing.T) {
	input := `<html><head><title>x</title></head><body>
<div class="Normal-Level">SEC. 1. Text <a class="Web" href="http://ex.com">site</a>.</div>
<annotationdrawer>hidden note<div class="EdNote">Editor's note kept.</div></annotationdrawer>
<script>var x = 1;</script>
</body></html>`
	l := &HTMLLoader{}
	got, err := l.Load(strings.NewReader(input), "code.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SEC. 1. Text site [http://ex.com] . Editor's note kept."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"a.txt", "*rawtext.TextLoader"},
		{"a.MD", "*rawtext.MarkdownLoader"},
		{"a.htm", "*rawtext.HTMLLoader"},
		{"a.pdf", "*rawtext.PDFLoader"},
		{"a.docx", "*rawtext.DOCXLoader"},
	}
	for _, tt := range tests {
		l, err := ForFile(tt.name)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got := typeName(l); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
	if _, err := ForFile("a.csv"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("a.csv") || !IsSupportedExtension("A.PDF") {
		t.Error("unexpected IsSupportedExtension result")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.txt")
	if err := os.WriteFile(path, []byte("Line one.\n\nLine two.\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Line one.\n\nLine two." {
		t.Errorf("unexpected text %q", got)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *TextLoader:
		return "*rawtext.TextLoader"
	case *MarkdownLoader:
		return "*rawtext.MarkdownLoader"
	case *HTMLLoader:
		return "*rawtext.HTMLLoader"
	case *PDFLoader:
		return "*rawtext.PDFLoader"
	case *DOCXLoader:
		return "*rawtext.DOCXLoader"
	}
	return "unknown"
}

func TestDOCXLoader_Load(t *testing.T) {
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("SEC. 1.1. TITLE.")
	doc.AddParagraph()
	doc.AddParagraph().AddText("This Code shall be known as the Administrative Code.")

	path := filepath.Join(t.TempDir(), "code.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		t.Fatalf("write docx: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "SEC. 1.1. TITLE.\n\nThis Code shall be known as the Administrative Code."
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDOCXLoader_Invalid(t *testing.T) {
	if _, err := (&DOCXLoader{}).Load(strings.NewReader("not a zip"), "bad.docx"); err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestPDFLoader_Invalid(t *testing.T) {
	_, err := (&PDFLoader{}).Load(strings.NewReader("not a pdf"), "bad.pdf")
	if err == nil || !strings.Contains(err.Error(), "bad.pdf") {
		t.Errorf("expected error naming the file, got %v", err)
	}
}
