// Package assess defines the canonical assessment result and the remote
// prediction client that produces it.
package assess

import (
	"math"
	"time"

	"github.com/cardiacai/riskengine/internal/rank"
)

type Class string

const (
	ClassPositive Class = "positive"
	ClassNegative Class = "negative"
)

// Source records which path produced a result.
type Source string

const (
	SourceRemote    Source = "remote"
	SourceHeuristic Source = "heuristic"
	SourceStale     Source = "stale"
)

type RiskLabel string

const (
	RiskLow      RiskLabel = "Low Risk"
	RiskModerate RiskLabel = "Moderate Risk"
	RiskHigh     RiskLabel = "High Risk"
)

// LabelFor maps a risk percentage to its tier. The label is always derived
// from the percentage, never stored independently.
func LabelFor(percent int) RiskLabel {
	switch {
	case percent < 30:
		return RiskLow
	case percent < 60:
		return RiskModerate
	default:
		return RiskHigh
	}
}

type Result struct {
	Class         Class               `json:"class"`
	Confidence    float64             `json:"confidence"` // [0, 1]
	RiskPercent   int                 `json:"risk_percent"`
	RiskLabel     RiskLabel           `json:"risk_label"`
	Contributions []rank.Contribution `json:"contributions"`
	Source        Source              `json:"source"`
	At            time.Time           `json:"at"`
}

// NewResult derives RiskPercent and RiskLabel from the confidence value.
func NewResult(class Class, confidence float64, contributions []rank.Contribution, source Source) Result {
	confidence = clampUnit(confidence)
	percent := int(math.Round(confidence * 100))
	return Result{
		Class:         class,
		Confidence:    confidence,
		RiskPercent:   percent,
		RiskLabel:     LabelFor(percent),
		Contributions: contributions,
		Source:        source,
		At:            time.Now().UTC(),
	}
}

// HeuristicResult builds a fallback result from a local estimate. The default
// contribution table stands in for the missing model explanation.
func HeuristicResult(riskPercent int) Result {
	class := ClassNegative
	if riskPercent >= 60 {
		class = ClassPositive
	}
	return NewResult(class, float64(riskPercent)/100, rank.Default(), SourceHeuristic)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
