// Package rawtext loads the plain text of an original source document so
// it can be compared against the text reconstructed from chunks.
package rawtext

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Loader converts raw document bytes into plain text.
type Loader interface {
	Load(r io.Reader, filename string) (string, error)
}

// SupportedExtensions lists file extensions a Loader exists for.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate loader for a filename.
func ForFile(filename string) (Loader, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text":
		return &TextLoader{}, nil
	case ".md", ".markdown":
		return &MarkdownLoader{}, nil
	case ".html", ".htm":
		return &HTMLLoader{}, nil
	case ".pdf":
		return &PDFLoader{FallbackPdftotext: true}, nil
	case ".docx":
		return &DOCXLoader{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// LoadFile opens path and loads it with the loader for its extension.
func LoadFile(path string) (string, error) {
	return LoadFileWith(path, true)
}

// LoadFileWith is LoadFile with control over the pdftotext fallback for PDF
// sources.
func LoadFileWith(path string, pdfFallback bool) (string, error) {
	l, err := ForFile(path)
	if err != nil {
		return "", err
	}
	if pl, ok := l.(*PDFLoader); ok {
		pl.FallbackPdftotext = pdfFallback
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open raw source: %w", err)
	}
	defer f.Close()
	text, err := l.Load(f, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return text, nil
}
