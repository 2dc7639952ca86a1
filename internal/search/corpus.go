// Package search ranks catalog titles against free-text queries.
//
// Two strategies are available: a weighted multi-feature score
// (WeightedRanker) and a tiered exact/prefix/substring/approximate/keyword
// cascade (CascadeRanker). Both rank against a Corpus, an immutable
// analyzed view of one catalog snapshot with a precomputed token index.
package search

import (
	"sort"
	"strings"

	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/text"
)

// entry is the analyzed form of one catalog title.
type entry struct {
	lower    string              // Lowercased title
	tokens   []text.Token        // Title tokens in order
	lemmas   map[string]struct{} // Distinct title lemmas
	keywords string              // Lowercased keyword metadata
}

// tokenIndex maps tokens to the catalog positions of titles containing them.
type tokenIndex struct {
	postings map[string][]int // Ascending positions per token
	tokens   []string         // Distinct tokens, sorted for prefix lookup
}

func newTokenIndex() tokenIndex {
	return tokenIndex{postings: make(map[string][]int)}
}

func (ix *tokenIndex) add(token string, pos int) {
	list := ix.postings[token]
	if n := len(list); n > 0 && list[n-1] == pos {
		return
	}
	ix.postings[token] = append(list, pos)
}

func (ix *tokenIndex) seal() {
	ix.tokens = make([]string, 0, len(ix.postings))
	for tok := range ix.postings {
		ix.tokens = append(ix.tokens, tok)
	}
	sort.Strings(ix.tokens)
}

// eachPrefixed calls fn with the postings of every token starting with prefix.
func (ix *tokenIndex) eachPrefixed(prefix string, fn func(positions []int)) {
	start := sort.SearchStrings(ix.tokens, prefix)
	for i := start; i < len(ix.tokens) && strings.HasPrefix(ix.tokens[i], prefix); i++ {
		fn(ix.postings[ix.tokens[i]])
	}
}

// Corpus is an analyzed, indexed catalog snapshot. It is read-only after
// construction and safe for concurrent use.
type Corpus struct {
	catalog  *catalog.Catalog
	analyzer *text.Analyzer
	entries  []entry

	lemmaIndex   tokenIndex
	surfaceIndex tokenIndex
	byLowerTitle []int // Positions sorted by lowercased title
}

// NewCorpus analyzes every title of c with analyzer and builds the token
// index. A nil analyzer matches literal tokens.
func NewCorpus(c *catalog.Catalog, analyzer *text.Analyzer) *Corpus {
	if analyzer == nil {
		analyzer = &text.Analyzer{}
	}

	n := c.Len()
	corpus := &Corpus{
		catalog:      c,
		analyzer:     analyzer,
		entries:      make([]entry, n),
		lemmaIndex:   newTokenIndex(),
		surfaceIndex: newTokenIndex(),
		byLowerTitle: make([]int, n),
	}

	for i := 0; i < n; i++ {
		t := c.At(i)
		tokens := analyzer.Analyze(t.Title)
		e := entry{
			lower:    strings.ToLower(t.Title),
			tokens:   tokens,
			lemmas:   make(map[string]struct{}, len(tokens)),
			keywords: strings.ToLower(t.Keywords),
		}
		for _, tok := range tokens {
			e.lemmas[tok.Lemma] = struct{}{}
			corpus.lemmaIndex.add(tok.Lemma, i)
			corpus.surfaceIndex.add(tok.Surface, i)
		}
		corpus.entries[i] = e
		corpus.byLowerTitle[i] = i
	}

	corpus.lemmaIndex.seal()
	corpus.surfaceIndex.seal()
	sort.SliceStable(corpus.byLowerTitle, func(a, b int) bool {
		return corpus.entries[corpus.byLowerTitle[a]].lower < corpus.entries[corpus.byLowerTitle[b]].lower
	})

	return corpus
}

// Catalog returns the snapshot the corpus was built from.
func (c *Corpus) Catalog() *catalog.Catalog {
	if c == nil {
		return nil
	}
	return c.catalog
}

// Len returns the number of titles.
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Tokens returns the number of distinct indexed lemmas.
func (c *Corpus) Tokens() int {
	if c == nil {
		return 0
	}
	return len(c.lemmaIndex.tokens)
}

// title returns the display title at position i.
func (c *Corpus) title(i int) string {
	return c.catalog.At(i).Title
}

// titlesWithPrefix returns, in catalog order, the positions of titles whose
// lowercased form starts with prefix.
func (c *Corpus) titlesWithPrefix(prefix string) []int {
	start := sort.Search(len(c.byLowerTitle), func(i int) bool {
		return c.entries[c.byLowerTitle[i]].lower >= prefix
	})

	var out []int
	for i := start; i < len(c.byLowerTitle); i++ {
		pos := c.byLowerTitle[i]
		if !strings.HasPrefix(c.entries[pos].lower, prefix) {
			break
		}
		out = append(out, pos)
	}
	sort.Ints(out)
	return out
}

// prefixCandidates returns, in catalog order, the positions of titles with
// a lemma starting with a query lemma or a surface token starting with a
// query surface token.
func (c *Corpus) prefixCandidates(query []text.Token) []int {
	seen := make(map[int]struct{})
	collect := func(positions []int) {
		for _, p := range positions {
			seen[p] = struct{}{}
		}
	}
	for _, q := range query {
		c.lemmaIndex.eachPrefixed(q.Lemma, collect)
		c.surfaceIndex.eachPrefixed(q.Surface, collect)
	}

	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
