package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/search"
	"github.com/onnwee/cinesearch/internal/validate"
)

// Search limits.
const (
	MaxSearchLimit     = 50 // Max results per request
	DefaultSearchLimit = 20 // Default results if not specified
)

// Searcher ranks queries against the loaded catalog. *search.Engine
// implements it.
type Searcher interface {
	Search(ctx context.Context, query string, mode search.Mode, limit int) ([]catalog.Title, error)
	DefaultMode() search.Mode
}

// SearchHandlers serves GET /search.
type SearchHandlers struct {
	searcher     Searcher
	defaultLimit int
}

// NewSearchHandlers creates search handlers. defaultLimit outside
// [1, MaxSearchLimit] selects DefaultSearchLimit.
func NewSearchHandlers(searcher Searcher, defaultLimit int) *SearchHandlers {
	if defaultLimit < 1 || defaultLimit > MaxSearchLimit {
		defaultLimit = DefaultSearchLimit
	}
	return &SearchHandlers{searcher: searcher, defaultLimit: defaultLimit}
}

// SearchResponse is the body of GET /search. NotFound is true when nothing
// qualified, so clients can render a "not found" state without counting.
type SearchResponse struct {
	Query    string         `json:"query"`
	Mode     search.Mode    `json:"mode"`
	Results  []SearchResult `json:"results"`
	Count    int            `json:"count"`
	NotFound bool           `json:"not_found"`
}

// SearchResult is the card-sized view of a matched title.
type SearchResult struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Popularity  *float64 `json:"popularity,omitempty"`
	PosterURL   string   `json:"poster_url"`
	Year        string   `json:"year"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

func newSearchResult(t catalog.Title) SearchResult {
	_, year := catalog.FormatReleaseDate(t.ReleaseDate)
	return SearchResult{
		ID:          t.ID,
		Title:       t.Title,
		Popularity:  t.Popularity,
		PosterURL:   catalog.PosterURL(t.PosterPath),
		Year:        year,
		VoteAverage: t.VoteAverage,
		Genres:      t.Genres,
	}
}

// Search handles GET /search?q=&limit=&mode=.
// An empty query is not an error; it returns no results.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	params := r.URL.Query()

	q, err := validate.Query(params.Get("q"))
	if err != nil {
		if errors.Is(err, validate.ErrStringTooLong) {
			writeErrorCode(w, r, ErrCodeValidation, "q must be at most "+strconv.Itoa(validate.MaxQueryLength)+" characters")
			return
		}
		writeErrorCode(w, r, ErrCodeValidation, "q contains invalid characters")
		return
	}

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeErrorCode(w, r, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		if limit > MaxSearchLimit {
			limit = MaxSearchLimit
		}
	}

	mode, err := search.ParseMode(params.Get("mode"))
	if err != nil {
		writeErrorCode(w, r, ErrCodeValidation, "mode must be one of: weighted, cascade")
		return
	}
	if mode == "" {
		mode = h.searcher.DefaultMode()
	}

	titles, err := h.searcher.Search(r.Context(), q, mode, limit)
	if err != nil {
		if errors.Is(err, search.ErrUnknownMode) {
			writeErrorCode(w, r, ErrCodeValidation, "mode must be one of: weighted, cascade")
			return
		}
		writeServiceError(w, r, err)
		return
	}

	results := make([]SearchResult, 0, len(titles))
	for _, t := range titles {
		results = append(results, newSearchResult(t))
	}
	writeJSON(w, r, SearchResponse{
		Query:    q,
		Mode:     mode,
		Results:  results,
		Count:    len(results),
		NotFound: len(results) == 0,
	})
}
