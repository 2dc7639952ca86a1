package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrInvalidThreshold is returned when a calibration file sets a threshold
// outside its valid range.
var ErrInvalidThreshold = errors.New("invalid ranking threshold")

// SearchWeights defines the per-feature weights of the weighted title ranker.
type SearchWeights struct {
	WordMatch   float64 `json:"word_match"`   // Per query synonym set overlapping the title (default: 8)
	Substring   float64 `json:"substring"`    // Per query token occurrence inside the title (default: 2)
	Fuzzy       float64 `json:"fuzzy"`        // Applied to the best partial ratio scaled to [0, 1] (default: 5)
	Sequence    float64 `json:"sequence"`     // Applied to whole-string sequence similarity (default: 30)
	TokenRatio  float64 `json:"token_ratio"`  // Applied to the share of query tokens found in the title (default: 20)
	PrefixBonus float64 `json:"prefix_bonus"` // Per title token starting with a query token (default: 15)
}

// Thresholds defines the cut-offs that decide whether a candidate qualifies.
type Thresholds struct {
	MinScore    float64 `json:"min_score"`    // Composite score must exceed this (default: 30)
	MinSequence float64 `json:"min_sequence"` // Sequence similarity must exceed this (default: 0.5)
	FuzzyCutoff float64 `json:"fuzzy_cutoff"` // Token-set ratio needed by the cascade's approximate tier (default: 80)
}

// Weights holds all ranking weight configurations.
type Weights struct {
	Search     SearchWeights `json:"search"`     // Weighted ranker feature weights
	Thresholds Thresholds    `json:"thresholds"` // Qualification thresholds
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight configurations
}

// DefaultWeights returns the default ranking weight configuration.
//
// Formula: score = word_matches*8 + substring_matches*2 + fuzzy/100*5 +
// sequence*30 + token_ratio*20 + prefix_matches*15
//
// A candidate qualifies when score > 30 and sequence > 0.5, or when any
// title token starts with a query token.
func DefaultWeights() *Weights {
	return &Weights{
		Search: SearchWeights{
			WordMatch:   8,
			Substring:   2,
			Fuzzy:       5,
			Sequence:    30,
			TokenRatio:  20,
			PrefixBonus: 15,
		},
		Thresholds: Thresholds{
			MinScore:    30,
			MinSequence: 0.5,
			FuzzyCutoff: 80,
		},
	}
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// If the file doesn't exist or can't be read, returns default weights with an error.
// Partial configurations are merged with defaults for graceful degradation.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	// Thresholds named in the file apply even when zero, which
	// MergeCalibration cannot tell apart from an omitted key.
	var present struct {
		Weights struct {
			Thresholds thresholdOverrides `json:"thresholds"`
		} `json:"weights"`
	}
	if err := json.Unmarshal(data, &present); err != nil {
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	present.Weights.Thresholds.apply(&merged.Thresholds)
	if err := validateThresholds(merged.Thresholds); err != nil {
		slog.Warn("invalid calibration thresholds, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights with base weights.
// Only non-zero values from the override are applied, so a calibration file
// may name just the weights it changes. LoadCalibration additionally applies
// thresholds the file sets to zero. The base is never modified.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	mergeValue(&result.Search.WordMatch, override.Search.WordMatch)
	mergeValue(&result.Search.Substring, override.Search.Substring)
	mergeValue(&result.Search.Fuzzy, override.Search.Fuzzy)
	mergeValue(&result.Search.Sequence, override.Search.Sequence)
	mergeValue(&result.Search.TokenRatio, override.Search.TokenRatio)
	mergeValue(&result.Search.PrefixBonus, override.Search.PrefixBonus)

	mergeValue(&result.Thresholds.MinScore, override.Thresholds.MinScore)
	mergeValue(&result.Thresholds.MinSequence, override.Thresholds.MinSequence)
	mergeValue(&result.Thresholds.FuzzyCutoff, override.Thresholds.FuzzyCutoff)

	return &result
}

// thresholdOverrides records which thresholds a calibration file names.
type thresholdOverrides struct {
	MinScore    *float64 `json:"min_score"`
	MinSequence *float64 `json:"min_sequence"`
	FuzzyCutoff *float64 `json:"fuzzy_cutoff"`
}

func (o thresholdOverrides) apply(t *Thresholds) {
	if o.MinScore != nil {
		t.MinScore = *o.MinScore
	}
	if o.MinSequence != nil {
		t.MinSequence = *o.MinSequence
	}
	if o.FuzzyCutoff != nil {
		t.FuzzyCutoff = *o.FuzzyCutoff
	}
}

func validateThresholds(t Thresholds) error {
	switch {
	case t.MinScore < 0:
		return fmt.Errorf("%w: min_score %.2f is negative", ErrInvalidThreshold, t.MinScore)
	case t.MinSequence < 0 || t.MinSequence > 1:
		return fmt.Errorf("%w: min_sequence %.2f outside [0, 1]", ErrInvalidThreshold, t.MinSequence)
	case t.FuzzyCutoff < 0 || t.FuzzyCutoff > 100:
		return fmt.Errorf("%w: fuzzy_cutoff %.2f outside [0, 100]", ErrInvalidThreshold, t.FuzzyCutoff)
	}
	return nil
}

func mergeValue(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	check := func(name string, def, got float64) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}

	check("search.word_match", defaults.Search.WordMatch, loaded.Search.WordMatch)
	check("search.substring", defaults.Search.Substring, loaded.Search.Substring)
	check("search.fuzzy", defaults.Search.Fuzzy, loaded.Search.Fuzzy)
	check("search.sequence", defaults.Search.Sequence, loaded.Search.Sequence)
	check("search.token_ratio", defaults.Search.TokenRatio, loaded.Search.TokenRatio)
	check("search.prefix_bonus", defaults.Search.PrefixBonus, loaded.Search.PrefixBonus)
	check("thresholds.min_score", defaults.Thresholds.MinScore, loaded.Thresholds.MinScore)
	check("thresholds.min_sequence", defaults.Thresholds.MinSequence, loaded.Thresholds.MinSequence)
	check("thresholds.fuzzy_cutoff", defaults.Thresholds.FuzzyCutoff, loaded.Thresholds.FuzzyCutoff)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
