// Package trust computes per-vessel composite trust scores.
package trust

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/pelagic-data/vessel-mdm/internal/config"
)

// DefaultConfig returns a config.TrustConfig with the standard weights.
// Weights sum to 1.0.
func DefaultConfig() config.TrustConfig {
	return config.TrustConfig{
		IdentifierWeight:  0.30,
		SourceWeight:      0.25,
		DataWeight:        0.20,
		ConsistencyWeight: 0.15,
		ReputationWeight:  0.10,

		ReputationDecayDays: 1095, // 3 years
		BlacklistPenalty:    0.30,
		BlacklistWindowDays: 365,

		MinTrust:        0.7,
		MinCompleteness: 0.6,
		DriftThreshold:  0.15,
	}
}

// WeightSum returns the sum of all component weights.
func WeightSum(c config.TrustConfig) float64 {
	return c.IdentifierWeight + c.SourceWeight + c.DataWeight +
		c.ConsistencyWeight + c.ReputationWeight
}

// ValidateConfig checks that a TrustConfig is internally consistent.
func ValidateConfig(c config.TrustConfig) error {
	var errs []string

	weights := map[string]float64{
		"identifier_weight":  c.IdentifierWeight,
		"source_weight":      c.SourceWeight,
		"data_weight":        c.DataWeight,
		"consistency_weight": c.ConsistencyWeight,
		"reputation_weight":  c.ReputationWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}
	// Allow tolerance for floating-point.
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Sprintf("weights should sum to 1.0, got %.3f", sum))
	}

	if c.BlacklistPenalty < 0 || c.BlacklistPenalty > 1 {
		errs = append(errs, "blacklist_penalty must be between 0 and 1")
	}
	if c.ReputationDecayDays <= 0 {
		errs = append(errs, "reputation_decay_days must be > 0")
	}
	if c.BlacklistWindowDays < 0 {
		errs = append(errs, "blacklist_window_days must be >= 0")
	}
	if c.MinTrust < 0 || c.MinTrust > 1 {
		errs = append(errs, "min_trust must be between 0 and 1")
	}
	if c.MinCompleteness < 0 || c.MinCompleteness > 1 {
		errs = append(errs, "min_completeness must be between 0 and 1")
	}
	if c.DriftThreshold <= 0 {
		errs = append(errs, "drift_threshold must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("trust: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
