// Package tokenizer provides the default text tokenizer shared by the index
// builder and the index reader. It lower-cases input and splits on Unicode
// whitespace; nothing else is normalised.
package tokenizer

import (
	"strings"
)

// Func turns raw text into terms. Builders and readers that index and query
// the same artifact must use the same Func.
type Func func(text string) []string

// Tokenize lower-cases text and splits it on whitespace.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Distinct returns terms with repeats removed, keeping first-seen order.
func Distinct(terms []string) []string {
	if len(terms) <= 1 {
		return terms
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
