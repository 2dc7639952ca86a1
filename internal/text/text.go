// Package text provides query and title analysis for search: normalization,
// tokenization, lemmatization and synonym expansion.
package text

import (
	"strings"
	"unicode"
)

// Token is a single word of analyzed text.
type Token struct {
	Surface string // Lowercased word as it appeared in the text
	Lemma   string // Canonical form produced by the Lemmatizer
}

// Normalize trims surrounding whitespace and lowercases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokenize lowercases s and splits it into words. Any rune that is not a
// letter or digit is a split point.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Analyzer turns raw text into lemmatized tokens and expands query tokens
// into synonym sets. The zero value is usable and degrades to literal
// token matching.
type Analyzer struct {
	Lemmatizer Lemmatizer
	Synonyms   SynonymSource
}

// NewAnalyzer creates an Analyzer. Nil collaborators fall back to Identity
// and NoSynonyms.
func NewAnalyzer(lemmatizer Lemmatizer, synonyms SynonymSource) *Analyzer {
	return &Analyzer{Lemmatizer: lemmatizer, Synonyms: synonyms}
}

// Analyze tokenizes s and lemmatizes every token.
func (a *Analyzer) Analyze(s string) []Token {
	words := Tokenize(s)
	tokens := make([]Token, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, Token{Surface: w, Lemma: a.lemma(w)})
	}
	return tokens
}

// Expand returns the synonym set of tok: the token's lemma plus the lemma
// of every synonym of its surface and lemma forms.
func (a *Analyzer) Expand(tok Token) map[string]struct{} {
	set := map[string]struct{}{tok.Lemma: {}}
	if a == nil || a.Synonyms == nil {
		return set
	}
	for _, word := range []string{tok.Surface, tok.Lemma} {
		for _, syn := range a.Synonyms.Synonyms(word) {
			set[a.lemma(syn)] = struct{}{}
		}
	}
	return set
}

func (a *Analyzer) lemma(word string) string {
	if a == nil || a.Lemmatizer == nil {
		return word
	}
	if l := a.Lemmatizer.Lemmatize(word); l != "" {
		return l
	}
	return word
}
