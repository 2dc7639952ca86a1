package text

import (
	"github.com/kljensen/snowball/english"
)

// Lemmatizer reduces a lowercased word to its canonical form.
type Lemmatizer interface {
	Lemmatize(word string) string
}

// Identity is a Lemmatizer that returns words unchanged.
type Identity struct{}

// Lemmatize returns word.
func (Identity) Lemmatize(word string) string { return word }

// Snowball reduces words with the Snowball English stemmer. Stemming stands
// in for dictionary lemmatization: plural and tense variants collapse to the
// same form, at the cost of occasionally producing non-words ("inception" ->
// "incept").
type Snowball struct {
	// StemStopWords controls whether common words such as "the" are stemmed.
	StemStopWords bool
}

// Lemmatize returns the Snowball stem of word.
func (s Snowball) Lemmatize(word string) string {
	return english.Stem(word, s.StemStopWords)
}
