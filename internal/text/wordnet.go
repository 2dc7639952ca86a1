package text

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// SynonymSource looks up synonyms of a lowercased word.
type SynonymSource interface {
	Synonyms(word string) []string
}

// NoSynonyms is a SynonymSource that knows no synonyms.
type NoSynonyms struct{}

// Synonyms returns nil.
func (NoSynonyms) Synonyms(string) []string { return nil }

// Thesaurus is an in-memory SynonymSource. It is read-only after
// construction and safe for concurrent use.
type Thesaurus struct {
	words map[string][]string
}

// NewThesaurus builds a Thesaurus from groups of interchangeable words.
// Every word in a group becomes a synonym of every other word in it.
func NewThesaurus(groups [][]string) *Thesaurus {
	sets := make(map[string]map[string]struct{})
	for _, group := range groups {
		for _, w := range group {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			if sets[w] == nil {
				sets[w] = make(map[string]struct{})
			}
			for _, other := range group {
				other = strings.ToLower(strings.TrimSpace(other))
				if other != "" && other != w {
					sets[w][other] = struct{}{}
				}
			}
		}
	}

	words := make(map[string][]string, len(sets))
	for w, set := range sets {
		list := make([]string, 0, len(set))
		for s := range set {
			list = append(list, s)
		}
		sort.Strings(list)
		words[w] = list
	}
	return &Thesaurus{words: words}
}

// Synonyms returns the synonyms of word in alphabetical order.
func (t *Thesaurus) Synonyms(word string) []string {
	if t == nil {
		return nil
	}
	return t.words[word]
}

// Len returns the number of words with at least one synonym.
func (t *Thesaurus) Len() int {
	if t == nil {
		return 0
	}
	return len(t.words)
}

// GWN-LMF JSON types (Open English WordNet).

type gwnDocument struct {
	Graph []gwnLexicon `json:"@graph"`
}

type gwnLexicon struct {
	Entries []gwnEntry `json:"entry"`
}

type gwnEntry struct {
	Lemma gwnLemma   `json:"lemma"`
	Sense []gwnSense `json:"sense"`
}

type gwnLemma struct {
	WrittenForm string `json:"writtenForm"`
}

type gwnSense struct {
	Synset string `json:"synset"`
}

// LoadWordNet reads an Open English WordNet GWN-LMF JSON file and returns a
// Thesaurus where words sharing a synset are synonyms. Multi-word lemmas are
// skipped because they can never equal a single title token.
func LoadWordNet(path string) (*Thesaurus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wordnet file: %w", err)
	}
	defer f.Close()
	return ParseWordNet(f)
}

// ParseWordNet decodes GWN-LMF JSON from r.
func ParseWordNet(r io.Reader) (*Thesaurus, error) {
	var doc gwnDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode wordnet JSON: %w", err)
	}

	synsets := make(map[string][]string)
	var order []string
	for _, lex := range doc.Graph {
		for _, entry := range lex.Entries {
			word := strings.ToLower(strings.TrimSpace(entry.Lemma.WrittenForm))
			if word == "" || strings.ContainsAny(word, " _-") {
				continue
			}
			for _, sense := range entry.Sense {
				if sense.Synset == "" {
					continue
				}
				if _, ok := synsets[sense.Synset]; !ok {
					order = append(order, sense.Synset)
				}
				synsets[sense.Synset] = append(synsets[sense.Synset], word)
			}
		}
	}

	groups := make([][]string, 0, len(order))
	for _, id := range order {
		groups = append(groups, synsets[id])
	}
	return NewThesaurus(groups), nil
}
