package catalog

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Presentation constants for title details.
const (
	PosterBaseURL     = "https://image.tmdb.org/t/p/w500"
	PlaceholderPoster = "https://via.placeholder.com/500x750?text=No+Poster"
	notAvailable      = "N/A"
)

// Details is a Title with display-ready derived fields.
type Details struct {
	Title
	PosterURL            string `json:"poster_url"`
	Year                 string `json:"year"`
	ReleaseDateFormatted string `json:"release_date_formatted"`
	VoteAverageFormatted string `json:"vote_average_formatted"`
	BudgetFormatted      string `json:"budget_formatted"`
	RevenueFormatted     string `json:"revenue_formatted"`
	Stars                string `json:"stars"`
}

// NewDetails derives the display fields of t. Zero budget and revenue are
// treated as unknown.
func NewDetails(t Title) Details {
	if t.Budget != nil && *t.Budget == 0 {
		t.Budget = nil
	}
	if t.Revenue != nil && *t.Revenue == 0 {
		t.Revenue = nil
	}
	if t.VoteAverage != nil && math.IsNaN(*t.VoteAverage) {
		t.VoteAverage = nil
	}

	formatted, year := FormatReleaseDate(t.ReleaseDate)
	return Details{
		Title:                t,
		PosterURL:            PosterURL(t.PosterPath),
		Year:                 year,
		ReleaseDateFormatted: formatted,
		VoteAverageFormatted: FormatFloat(t.VoteAverage, 1),
		BudgetFormatted:      FormatNumber(t.Budget),
		RevenueFormatted:     FormatNumber(t.Revenue),
		Stars:                Stars(t.VoteAverage),
	}
}

// PosterURL returns the full image URL for a poster path, or a placeholder.
func PosterURL(path string) string {
	if path == "" {
		return PlaceholderPoster
	}
	return PosterBaseURL + path
}

// FormatNumber formats v with thousands separators, or "N/A" when unknown.
func FormatNumber(v *int64) string {
	if v == nil {
		return notAvailable
	}

	n := *v
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatFloat formats v with the given number of decimals, or "N/A" when unknown.
func FormatFloat(v *float64, decimals int) string {
	if v == nil || math.IsNaN(*v) {
		return notAvailable
	}
	return strconv.FormatFloat(*v, 'f', decimals, 64)
}

// Stars renders a ten-point vote average as a five-star string.
func Stars(voteAverage *float64) string {
	if voteAverage == nil || math.IsNaN(*voteAverage) {
		return notAvailable
	}
	n := int(math.RoundToEven(*voteAverage / 2))
	n = max(0, min(5, n))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// FormatReleaseDate turns a YYYY-MM-DD date into "January 2, 2006" form and
// extracts the year. Unparseable dates are returned unchanged with year "N/A".
func FormatReleaseDate(date string) (formatted, year string) {
	if date == "" {
		return "", notAvailable
	}
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date, notAvailable
	}
	return t.Format("January 02, 2006"), strconv.Itoa(t.Year())
}
