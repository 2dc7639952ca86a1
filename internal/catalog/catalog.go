// Package catalog provides the movie catalog: immutable title snapshots,
// the sources they are loaded from, and the store that publishes them.
package catalog

import (
	"errors"
	"math"
	"strings"
)

// Catalog errors.
var (
	// ErrCatalogUnavailable means no catalog snapshot could be loaded.
	// It is distinct from a search that found nothing.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrTitleNotFound is returned by lookups for unknown titles or IDs.
	ErrTitleNotFound = errors.New("title not found")
)

// Title is a single movie record.
type Title struct {
	ID                  int64    `json:"id" cbor:"id"`
	Title               string   `json:"title" cbor:"title"`
	Popularity          *float64 `json:"popularity,omitempty" cbor:"popularity,omitempty"` // Missing popularity sorts last
	Keywords            string   `json:"keywords,omitempty" cbor:"keywords,omitempty"`
	Overview            string   `json:"overview,omitempty" cbor:"overview,omitempty"`
	Genres              []string `json:"genres,omitempty" cbor:"genres,omitempty"`
	Cast                []string `json:"cast,omitempty" cbor:"cast,omitempty"`
	Crew                []string `json:"crew,omitempty" cbor:"crew,omitempty"`
	ProductionCompanies []string `json:"production_companies,omitempty" cbor:"production_companies,omitempty"`
	ReleaseDate         string   `json:"release_date,omitempty" cbor:"release_date,omitempty"` // YYYY-MM-DD
	VoteAverage         *float64 `json:"vote_average,omitempty" cbor:"vote_average,omitempty"`
	VoteCount           *int64   `json:"vote_count,omitempty" cbor:"vote_count,omitempty"`
	Runtime             *float64 `json:"runtime,omitempty" cbor:"runtime,omitempty"` // Minutes
	Budget              *int64   `json:"budget,omitempty" cbor:"budget,omitempty"`
	Revenue             *int64   `json:"revenue,omitempty" cbor:"revenue,omitempty"`
	PosterPath          string   `json:"poster_path,omitempty" cbor:"poster_path,omitempty"`
}

// PopularityValue returns the popularity and whether it is usable for
// ordering. Missing, NaN and negative values are not.
func (t Title) PopularityValue() (float64, bool) {
	if t.Popularity == nil {
		return 0, false
	}
	p := *t.Popularity
	if math.IsNaN(p) || p < 0 {
		return 0, false
	}
	return p, true
}

// Catalog is an ordered, immutable snapshot of titles. It is safe for
// concurrent use.
type Catalog struct {
	titles  []Title
	byTitle map[string]int
	byID    map[int64]int
}

// New builds a Catalog from titles, keeping their order. Entries with an
// empty title are dropped, as are case-insensitive duplicates after the
// first occurrence. The second return value counts dropped entries.
func New(titles []Title) (*Catalog, int) {
	c := &Catalog{
		titles:  make([]Title, 0, len(titles)),
		byTitle: make(map[string]int, len(titles)),
		byID:    make(map[int64]int, len(titles)),
	}

	dropped := 0
	for _, t := range titles {
		t.Title = strings.TrimSpace(t.Title)
		key := strings.ToLower(t.Title)
		if key == "" {
			dropped++
			continue
		}
		if _, dup := c.byTitle[key]; dup {
			dropped++
			continue
		}

		idx := len(c.titles)
		c.titles = append(c.titles, t)
		c.byTitle[key] = idx
		if _, seen := c.byID[t.ID]; !seen {
			c.byID[t.ID] = idx
		}
	}
	return c, dropped
}

// Len returns the number of titles.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.titles)
}

// At returns the title at position i.
func (c *Catalog) At(i int) Title {
	return c.titles[i]
}

// Index returns the position of the title matching name case-insensitively.
func (c *Catalog) Index(name string) (int, bool) {
	if c == nil {
		return 0, false
	}
	i, ok := c.byTitle[strings.ToLower(strings.TrimSpace(name))]
	return i, ok
}

// ByTitle looks up a title case-insensitively.
func (c *Catalog) ByTitle(name string) (Title, error) {
	i, ok := c.Index(name)
	if !ok {
		return Title{}, ErrTitleNotFound
	}
	return c.titles[i], nil
}

// ByID looks up a title by its ID.
func (c *Catalog) ByID(id int64) (Title, error) {
	if c == nil {
		return Title{}, ErrTitleNotFound
	}
	i, ok := c.byID[id]
	if !ok {
		return Title{}, ErrTitleNotFound
	}
	return c.titles[i], nil
}

// Titles returns a copy of all titles in catalog order.
func (c *Catalog) Titles() []Title {
	if c == nil {
		return nil
	}
	out := make([]Title, len(c.titles))
	copy(out, c.titles)
	return out
}
