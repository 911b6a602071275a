package diff

import (
	"fmt"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// PatchOptions controls patch generation.
type PatchOptions struct {
	// MaxBytes is a guardrail on input size (old+new). When exceeded a
	// placeholder patch is returned. 0 means no limit.
	MaxBytes int

	// Context is the number of context lines in hunks. 0 means 3.
	Context int
}

// Unified produces a line-based unified patch from a to b. oversize is true
// when the inputs exceeded MaxBytes and the body is a placeholder.
func Unified(aName, bName, a, b string, opt PatchOptions) (body string, oversize bool) {
	if opt.MaxBytes > 0 && len(a)+len(b) > opt.MaxBytes {
		return omitted(aName, bName), true
	}
	ctx := opt.Context
	if ctx <= 0 {
		ctx = 3
	}
	u := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(a),
		B:        splitLinesKeepNL(b),
		FromFile: aName,
		ToFile:   bName,
		Context:  ctx,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return omitted(aName, bName), false
	}
	return s, false
}

// splitLinesKeepNL splits into lines and keeps newline characters.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

func omitted(aName, bName string) string {
	return fmt.Sprintf("--- %s\n+++ %s\n@@\n# diff omitted (oversize)\n", aName, bName)
}
