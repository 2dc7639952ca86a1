// Package ranking provides centralized ranking component calculations
// with calibration support for title search.
//
// Basic Usage:
//
//	// Load calibration (typically at startup)
//	weights, err := ranking.LoadCalibration("configs/ranking.calibration.json")
//	if err != nil {
//		slog.Warn("using default weights", "error", err)
//	}
//
//	features := ranking.Features{
//		WordMatches:   1,
//		Sequence:      0.71,
//		TokenRatio:    1,
//		PrefixMatches: 1,
//	}
//	score := ranking.CompositeScore(features, weights)
//	if ranking.Qualifies(features, score, weights) {
//		// keep the candidate
//	}
//
// Calibration:
//
// Weights and thresholds can be tuned at deploy time via a JSON file loaded
// at startup. Only non-zero values override the defaults. See
// configs/ranking.calibration.json for the default configuration.
package ranking
