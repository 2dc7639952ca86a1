package ranking

// Features holds the per-candidate signals computed by the weighted ranker.
type Features struct {
	WordMatches      int     // Query synonym sets with at least one token in the title
	SubstringMatches int     // Occurrences of query tokens inside the lowercased title
	Fuzzy            float64 // Best partial ratio of a query token against the title [0, 100]
	Sequence         float64 // Sequence similarity of the whole query and title [0, 1]
	TokenRatio       float64 // Share of distinct query tokens present in the title [0, 1]
	PrefixMatches    int     // (title token, query token) pairs where the title token starts with the query token
}

// PrefixMatched reports whether any title token starts with a query token.
func (f Features) PrefixMatched() bool {
	return f.PrefixMatches > 0
}

// FuzzyWeight scales a [0, 100] similarity ratio to [0, 1] and applies w.
// Ratios outside the range are clamped.
func FuzzyWeight(ratio float64, w float64) float64 {
	return clamp01(ratio/100) * w
}

// CompositeScore combines the features into a single relevance score using
// the calibrated weights (defaults if nil).
//
// Default formula: (word_matches * 8) + (substring_matches * 2) +
// (fuzzy/100 * 5) + (sequence * 30) + (token_ratio * 20) + (prefix_matches * 15)
func CompositeScore(f Features, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	w := weights.Search

	return float64(f.WordMatches)*w.WordMatch +
		float64(f.SubstringMatches)*w.Substring +
		FuzzyWeight(f.Fuzzy, w.Fuzzy) +
		clamp01(f.Sequence)*w.Sequence +
		clamp01(f.TokenRatio)*w.TokenRatio +
		float64(f.PrefixMatches)*w.PrefixBonus
}

// Qualifies reports whether a candidate with the given features and score
// belongs in the result set: either a strong overall match or a prefix match.
func Qualifies(f Features, score float64, weights *Weights) bool {
	if weights == nil {
		weights = DefaultWeights()
	}
	if f.PrefixMatched() {
		return true
	}
	return score > weights.Thresholds.MinScore && f.Sequence > weights.Thresholds.MinSequence
}

// ApproximateMatch reports whether a token-set ratio is high enough for the
// cascade's approximate tier.
func ApproximateMatch(ratio float64, weights *Weights) bool {
	if weights == nil {
		weights = DefaultWeights()
	}
	return ratio >= weights.Thresholds.FuzzyCutoff
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
