package chunker

import "strings"

// EstimateTokens gives a rough token count for sizing reports. Legal text
// runs close to 1.33 tokens per whitespace-separated word.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
