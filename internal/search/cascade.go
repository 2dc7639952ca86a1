package search

import (
	"sort"
	"strings"

	"github.com/onnwee/cinesearch/internal/ranking"
	"github.com/onnwee/cinesearch/internal/similarity"
	"github.com/onnwee/cinesearch/internal/text"
)

// CascadeRanker matches titles in tiers: exact, prefix, substring,
// approximate token-set match and finally keyword substring. Each tier
// appends its titles after the previous tiers' and the cascade stops as
// soon as the limit is reached.
type CascadeRanker struct {
	weights *ranking.Weights
}

// NewCascadeRanker creates a CascadeRanker. A nil weights falls back to
// ranking.DefaultWeights.
func NewCascadeRanker(weights *ranking.Weights) *CascadeRanker {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	return &CascadeRanker{weights: weights}
}

// accumulator collects unique positions up to a limit.
type accumulator struct {
	limit int
	seen  map[int]struct{}
	order []int
}

// add appends positions not seen before and reports whether the limit is reached.
func (a *accumulator) add(positions ...int) bool {
	for _, p := range positions {
		if len(a.order) >= a.limit {
			return true
		}
		if _, ok := a.seen[p]; ok {
			continue
		}
		a.seen[p] = struct{}{}
		a.order = append(a.order, p)
	}
	return len(a.order) >= a.limit
}

// Rank returns up to limit titles for query, most exact first.
func (r *CascadeRanker) Rank(query string, corpus *Corpus, limit int) []string {
	q := text.Normalize(query)
	if q == "" || corpus.Len() == 0 || limit <= 0 {
		return []string{}
	}

	acc := &accumulator{limit: limit, seen: make(map[int]struct{})}
	tiers := []func() []int{
		func() []int { return r.exact(q, corpus) },
		func() []int { return corpus.titlesWithPrefix(q) },
		func() []int { return scan(corpus, func(e *entry) bool { return strings.Contains(e.lower, q) }) },
		func() []int { return r.approximate(q, corpus) },
		func() []int {
			return scan(corpus, func(e *entry) bool { return e.keywords != "" && strings.Contains(e.keywords, q) })
		},
	}
	for _, tier := range tiers {
		if acc.add(tier()...) {
			break
		}
	}

	out := make([]string, len(acc.order))
	for i, pos := range acc.order {
		out[i] = corpus.title(pos)
	}
	return out
}

func (r *CascadeRanker) exact(q string, corpus *Corpus) []int {
	if pos, ok := corpus.catalog.Index(q); ok {
		return []int{pos}
	}
	return nil
}

// approximate returns titles whose token-set ratio against q reaches the
// fuzzy cutoff, best first and in catalog order among equal ratios.
func (r *CascadeRanker) approximate(q string, corpus *Corpus) []int {
	type scored struct {
		pos   int
		ratio float64
	}
	var hits []scored
	for pos := range corpus.entries {
		ratio := similarity.TokenSetRatio(q, corpus.entries[pos].lower)
		if ranking.ApproximateMatch(ratio, r.weights) {
			hits = append(hits, scored{pos: pos, ratio: ratio})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].ratio > hits[j].ratio
	})

	out := make([]int, len(hits))
	for i, h := range hits {
		out[i] = h.pos
	}
	return out
}

// scan returns, in catalog order, the positions of entries matching keep.
func scan(corpus *Corpus, keep func(e *entry) bool) []int {
	var out []int
	for pos := range corpus.entries {
		if keep(&corpus.entries[pos]) {
			out = append(out, pos)
		}
	}
	return out
}
