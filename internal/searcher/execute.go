package searcher

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/bm25comp/internal/searcher/ranker"
)

// SearchResult is the service-facing answer to a query.
type SearchResult struct {
	Query     string         `json:"query"`
	TotalHits int            `json:"total_hits"`
	Results   []Result       `json:"results"`
	TermStats map[string]int `json:"term_stats,omitempty"`
	Checksum  string         `json:"checksum"`
}

// Execute runs a parsed query and reports, besides the top limit hits, how
// many documents matched in total and each term's document frequency.
func (r *Reader) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	st, err := r.current()
	if err != nil {
		return nil, err
	}
	res := &SearchResult{
		Query:    plan.RawQuery,
		Results:  []Result{},
		Checksum: st.info.Checksum,
	}
	terms := ranker.Lookup(st.ix, plan.Terms)
	if len(terms) == 0 {
		return res, nil
	}
	res.TermStats = make(map[string]int, len(terms))
	for _, tp := range terms {
		res.TermStats[tp.Term] = len(tp.Postings)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	ranked := ranker.Rank(terms, st.params, st.docLength, 0)
	res.TotalHits = len(ranked)
	if limit < len(ranked) {
		ranked = ranked[:max(limit, 0)]
	}
	res.Results = make([]Result, len(ranked))
	for i, sd := range ranked {
		res.Results[i] = Result{Key: st.ix.Keys[sd.DocID], Score: sd.Score}
	}
	return res, nil
}
