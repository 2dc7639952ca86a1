package search

import (
	"sort"
	"strings"

	"github.com/onnwee/cinesearch/internal/ranking"
	"github.com/onnwee/cinesearch/internal/similarity"
	"github.com/onnwee/cinesearch/internal/text"
)

// WeightedRanker scores every candidate title on several text features,
// keeps the qualifying ones, selects the best by score and orders the
// selected page by popularity.
type WeightedRanker struct {
	weights *ranking.Weights
	partial similarity.PartialScorer
}

// NewWeightedRanker creates a WeightedRanker. Nil arguments fall back to
// ranking.DefaultWeights and similarity.Default.
func NewWeightedRanker(weights *ranking.Weights, partial similarity.PartialScorer) *WeightedRanker {
	if weights == nil {
		weights = ranking.DefaultWeights()
	}
	if partial == nil {
		partial = similarity.Default
	}
	return &WeightedRanker{weights: weights, partial: partial}
}

// Match is a scored candidate.
type Match struct {
	Position int
	Title    string
	Score    float64
	Features ranking.Features
}

// preparedQuery is the analyzed form of a query shared by all candidates.
type preparedQuery struct {
	normalized string
	tokens     []text.Token
	synonyms   []map[string]struct{}
	lemmaSet   map[string]struct{}
}

func prepare(query string, corpus *Corpus) preparedQuery {
	q := preparedQuery{normalized: text.Normalize(query)}
	q.tokens = corpus.analyzer.Analyze(q.normalized)
	q.synonyms = make([]map[string]struct{}, len(q.tokens))
	q.lemmaSet = make(map[string]struct{}, len(q.tokens))
	for i, tok := range q.tokens {
		q.synonyms[i] = corpus.analyzer.Expand(tok)
		q.lemmaSet[tok.Lemma] = struct{}{}
	}
	return q
}

// Rank returns up to limit titles for query, most relevant first.
func (r *WeightedRanker) Rank(query string, corpus *Corpus, limit int) []string {
	matches := r.Matches(query, corpus, limit)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Title
	}
	return out
}

// Matches is Rank with scores and features attached.
func (r *WeightedRanker) Matches(query string, corpus *Corpus, limit int) []Match {
	if corpus.Len() == 0 || limit <= 0 {
		return []Match{}
	}
	q := prepare(query, corpus)
	if q.normalized == "" {
		return []Match{}
	}

	exact, hasExact := corpus.catalog.Index(q.normalized)

	var matches []Match
	for _, pos := range corpus.prefixCandidates(q.tokens) {
		f, ok := r.features(q, &corpus.entries[pos])
		if !ok {
			continue
		}
		score := ranking.CompositeScore(f, r.weights)
		if !ranking.Qualifies(f, score, r.weights) {
			continue
		}
		matches = append(matches, Match{Position: pos, Title: corpus.title(pos), Score: score, Features: f})
	}

	// Candidates arrive in catalog order, so equal scores keep it.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	page := make([]Match, 0, min(limit, len(matches)+1))
	if hasExact {
		page = append(page, r.exactMatch(q, corpus, exact, matches))
	}
	for _, m := range matches {
		if len(page) >= limit {
			break
		}
		if hasExact && m.Position == exact {
			continue
		}
		page = append(page, m)
	}

	sortByPopularity(page, corpus)
	return page
}

// exactMatch returns the scored match for the exact title at pos, scoring
// it directly if it did not qualify on its own.
func (r *WeightedRanker) exactMatch(q preparedQuery, corpus *Corpus, pos int, matches []Match) Match {
	for _, m := range matches {
		if m.Position == pos {
			return m
		}
	}
	f, _ := r.features(q, &corpus.entries[pos])
	return Match{Position: pos, Title: corpus.title(pos), Score: ranking.CompositeScore(f, r.weights), Features: f}
}

// features computes the ranking signals of one title. ok is false when the
// title shares no token with the query and no title token starts with a
// query token.
func (r *WeightedRanker) features(q preparedQuery, e *entry) (ranking.Features, bool) {
	var f ranking.Features

	for _, tt := range e.tokens {
		for _, qt := range q.tokens {
			if strings.HasPrefix(tt.Lemma, qt.Lemma) || strings.HasPrefix(tt.Surface, qt.Surface) {
				f.PrefixMatches++
			}
		}
	}

	overlap := 0
	for lemma := range q.lemmaSet {
		if _, ok := e.lemmas[lemma]; ok {
			overlap++
		}
	}
	if overlap == 0 && f.PrefixMatches == 0 {
		return f, false
	}

	for _, syns := range q.synonyms {
		for lemma := range e.lemmas {
			if _, ok := syns[lemma]; ok {
				f.WordMatches++
				break
			}
		}
	}

	for _, qt := range q.tokens {
		f.SubstringMatches += strings.Count(e.lower, qt.Lemma)
		if s := r.partial.PartialRatio(qt.Lemma, e.lower); s > f.Fuzzy {
			f.Fuzzy = s
		}
	}

	f.Sequence = similarity.SequenceRatio(q.normalized, e.lower)
	if len(q.lemmaSet) > 0 {
		f.TokenRatio = float64(overlap) / float64(len(q.lemmaSet))
	}
	return f, true
}

// sortByPopularity orders matches by descending popularity. Titles without
// a usable popularity go last; ties keep their relevance order.
func sortByPopularity(matches []Match, corpus *Corpus) {
	sort.SliceStable(matches, func(i, j int) bool {
		pi, oki := corpus.catalog.At(matches[i].Position).PopularityValue()
		pj, okj := corpus.catalog.At(matches[j].Position).PopularityValue()
		if oki != okj {
			return oki
		}
		return oki && pi > pj
	})
}
