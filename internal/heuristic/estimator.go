// Package heuristic provides a deterministic local risk score used for
// instant live preview and as the fallback when the prediction service is
// unreachable. It is an approximation, never a diagnosis.
package heuristic

import (
	"math"

	"github.com/cardiacai/riskengine/internal/features"
)

// Affine weights over the strongest numeric predictors. All coefficients are
// non-negative so the estimate never decreases when a risk-positive input
// increases.
const (
	base          = -40.0
	ageWeight     = 0.65
	bpWeight      = 0.28
	cholWeight    = 0.05
	oldpeakWeight = 8.0
)

// Estimate returns a risk percentage in [0, 100] for the given record.
// Pure function: no I/O, same input always yields the same output.
func Estimate(r features.Record) int {
	score := base +
		ageWeight*features.Numeric(r, "age") +
		bpWeight*features.Numeric(r, "trestbps") +
		cholWeight*features.Numeric(r, "chol") +
		oldpeakWeight*features.Numeric(r, "oldpeak")

	return clamp(int(math.Round(score)))
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
