// Package tokenizer estimates token counts for providers that do not report them.
package tokenizer

import (
	"strings"
)

// Estimate approximates the token count of text at four tokens per three
// words. Non-empty text counts at least one token.
func Estimate(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return max(words*4/3, 1)
}

// EstimateAll sums Estimate over texts.
func EstimateAll(texts []string) int {
	total := 0
	for _, t := range texts {
		total += Estimate(t)
	}
	return total
}
