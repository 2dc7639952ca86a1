// Package recommend finds titles similar to a given title.
//
// Recommenders are collaborators of the search service: a missing or failing
// recommender degrades to an empty "similar" list and never fails a request.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultK is the number of similar titles returned when none is requested.
const DefaultK = 5

// ErrInvalidNeighbours is returned when a neighbour table cannot be parsed.
var ErrInvalidNeighbours = errors.New("invalid neighbour table")

// Recommender returns up to k titles similar to title, most similar first.
// The seed title is never part of the result and an unknown title yields an
// empty slice.
type Recommender interface {
	Similar(ctx context.Context, title string, k int) ([]string, error)
}

// Noop is a Recommender that never recommends anything.
type Noop struct{}

// Similar returns an empty slice.
func (Noop) Similar(context.Context, string, int) ([]string, error) {
	return []string{}, nil
}

// Neighbour is one precomputed nearest neighbour.
type Neighbour struct {
	Title    string  `json:"title"`
	Distance float64 `json:"distance"` // Cosine distance; similarity is 1 - Distance
}

// neighbourFile is the on-disk JSON layout of a neighbour table.
type neighbourFile struct {
	Neighbours map[string][]Neighbour `json:"neighbours"`
}

// Precomputed serves recommendations from a neighbour table computed
// offline. It is read-only after construction and safe for concurrent use.
type Precomputed struct {
	table     map[string][]Neighbour // Keyed by lowercased title
	threshold float64
}

// NewPrecomputed creates a Precomputed recommender. Neighbours whose
// similarity is below threshold are never returned.
func NewPrecomputed(neighbours map[string][]Neighbour, threshold float64) *Precomputed {
	table := make(map[string][]Neighbour, len(neighbours))
	for title, list := range neighbours {
		key := normalize(title)
		if key == "" {
			continue
		}
		table[key] = list
	}
	return &Precomputed{table: table, threshold: threshold}
}

// LoadPrecomputed reads a neighbour table from a JSON file.
func LoadPrecomputed(path string, threshold float64) (*Precomputed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open neighbour table: %w", err)
	}
	defer f.Close()
	return ParsePrecomputed(f, threshold)
}

// ParsePrecomputed reads a neighbour table of the form
// {"neighbours": {"Title": [{"title": "...", "distance": 0.1}, ...]}}.
func ParsePrecomputed(r io.Reader, threshold float64) (*Precomputed, error) {
	var file neighbourFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNeighbours, err)
	}
	return NewPrecomputed(file.Neighbours, threshold), nil
}

// Len returns the number of seed titles in the table.
func (p *Precomputed) Len() int {
	return len(p.table)
}

// Similar returns up to k neighbours of title in table order.
func (p *Precomputed) Similar(ctx context.Context, title string, k int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []string{}, nil
	}

	seed := normalize(title)
	seen := map[string]struct{}{seed: {}}
	out := make([]string, 0, k)
	for _, n := range p.table[seed] {
		if len(out) >= k {
			break
		}
		key := normalize(n.Title)
		if _, dup := seen[key]; dup || key == "" {
			continue
		}
		if 1-n.Distance < p.threshold {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n.Title)
	}
	return out, nil
}

func normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
