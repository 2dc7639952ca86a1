package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/onnwee/cinesearch/internal/catalog"
	"github.com/onnwee/cinesearch/internal/recommend"
	"github.com/onnwee/cinesearch/internal/validate"
)

// Similar-title limits.
const (
	DefaultSimilarK = recommend.DefaultK
	MaxSimilarK     = 20
)

// CatalogSource returns the current catalog snapshot. *catalog.Store
// implements it.
type CatalogSource interface {
	Current() (*catalog.Catalog, error)
}

// MovieHandlers serves the /movies/ subtree.
type MovieHandlers struct {
	catalog     CatalogSource
	recommender recommend.Recommender
	logger      *slog.Logger
}

// NewMovieHandlers creates movie handlers. A nil recommender disables
// similar titles.
func NewMovieHandlers(source CatalogSource, rec recommend.Recommender, logger *slog.Logger) *MovieHandlers {
	if rec == nil {
		rec = recommend.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MovieHandlers{catalog: source, recommender: rec, logger: logger}
}

// SimilarTitle is a recommended title. ID is omitted when the recommender
// names a title the catalog does not hold.
type SimilarTitle struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
}

// MovieResponse is a title with display fields and similar titles.
type MovieResponse struct {
	catalog.Details
	Similar []SimilarTitle `json:"similar"`
}

// SimilarResponse is the body of GET /movies/{id}/similar.
type SimilarResponse struct {
	ID      int64          `json:"id"`
	Title   string         `json:"title"`
	Similar []SimilarTitle `json:"similar"`
	Count   int            `json:"count"`
}

// Route dispatches /movies/{id}, /movies/{id}/similar and
// /movies/by-title/{title}.
func (h *MovieHandlers) Route(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/movies/")
	if escaped, ok := strings.CutPrefix(rest, "by-title/"); ok {
		title, err := url.PathUnescape(escaped)
		if err == nil {
			title, err = validate.Title(title)
		}
		if err != nil {
			writeErrorCode(w, r, ErrCodeValidation, "title must be a non-empty path segment")
			return
		}
		h.getByTitle(w, r, title)
		return
	}

	parts := strings.Split(rest, "/")
	if len(parts) > 2 || (len(parts) == 2 && parts[1] != "similar") {
		writeErrorCode(w, r, ErrCodeNotFound, "The requested resource was not found")
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeErrorCode(w, r, ErrCodeValidation, "movie id must be a positive integer")
		return
	}

	if len(parts) == 2 {
		h.getSimilar(w, r, id)
		return
	}
	h.getByID(w, r, id)
}

func (h *MovieHandlers) getByID(w http.ResponseWriter, r *http.Request, id int64) {
	c, err := h.catalog.Current()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	t, err := c.ByID(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeMovie(w, r, c, t)
}

func (h *MovieHandlers) getByTitle(w http.ResponseWriter, r *http.Request, title string) {
	c, err := h.catalog.Current()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	t, err := c.ByTitle(title)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeMovie(w, r, c, t)
}

func (h *MovieHandlers) writeMovie(w http.ResponseWriter, r *http.Request, c *catalog.Catalog, t catalog.Title) {
	writeJSON(w, r, MovieResponse{
		Details: catalog.NewDetails(t),
		Similar: resolveSimilar(c, h.similar(r, t, DefaultSimilarK)),
	})
}

// similar asks the recommender for up to k titles. Failures degrade to an
// empty list.
func (h *MovieHandlers) similar(r *http.Request, t catalog.Title, k int) []string {
	names, err := h.recommender.Similar(r.Context(), t.Title, k)
	if err != nil {
		h.logger.WarnContext(r.Context(), "similar titles unavailable",
			"error", err, "movie_id", t.ID)
		return nil
	}
	return names
}

func (h *MovieHandlers) getSimilar(w http.ResponseWriter, r *http.Request, id int64) {
	k := DefaultSimilarK
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		var err error
		k, err = strconv.Atoi(kStr)
		if err != nil || k < 1 {
			writeErrorCode(w, r, ErrCodeValidation, "k must be a positive integer")
			return
		}
		if k > MaxSimilarK {
			k = MaxSimilarK
		}
	}

	c, err := h.catalog.Current()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	t, err := c.ByID(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	similar := resolveSimilar(c, h.similar(r, t, k))
	writeJSON(w, r, SimilarResponse{
		ID:      t.ID,
		Title:   t.Title,
		Similar: similar,
		Count:   len(similar),
	})
}

func resolveSimilar(c *catalog.Catalog, names []string) []SimilarTitle {
	out := make([]SimilarTitle, 0, len(names))
	for _, name := range names {
		st := SimilarTitle{Title: name, PosterURL: catalog.PosterURL("")}
		if t, err := c.ByTitle(name); err == nil {
			st.ID = t.ID
			st.Title = t.Title
			st.PosterURL = catalog.PosterURL(t.PosterPath)
		}
		out = append(out, st)
	}
	return out
}
