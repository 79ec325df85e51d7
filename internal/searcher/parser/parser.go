// Package parser turns raw query strings into query plans.
package parser

import (
	"slices"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/indexer/tokenizer"
)

// QueryPlan holds the distinct terms of a query in first-seen order.
type QueryPlan struct {
	Terms    []string
	RawQuery string
}

// Parse tokenizes query with tokenize, or the default tokenizer when nil,
// and removes repeated terms.
func Parse(query string, tokenize tokenizer.Func) *QueryPlan {
	plan := &QueryPlan{
		Terms:    make([]string, 0),
		RawQuery: query,
	}
	if strings.TrimSpace(query) == "" {
		return plan
	}
	if tokenize == nil {
		tokenize = tokenizer.Tokenize
	}
	plan.Terms = tokenizer.Distinct(tokenize(query))
	return plan
}

// Normalized renders the plan independent of term order and spacing, for
// use in cache keys.
func (p *QueryPlan) Normalized() string {
	terms := slices.Clone(p.Terms)
	slices.Sort(terms)
	return strings.Join(terms, " ")
}

func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}
