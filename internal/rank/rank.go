// Package rank turns raw feature-contribution payloads into the bounded,
// labeled list the result dashboard renders.
package rank

import (
	"math"
	"sort"

	"github.com/cardiacai/riskengine/internal/features"
)

// MaxEntries caps how many ranked contributions are surfaced.
const MaxEntries = 10

// highImpactThreshold marks a contribution as "high" tier. The upstream
// service returns raw input values as contributions, so the threshold is on
// that scale.
const highImpactThreshold = 100.0

type Contribution struct {
	Name      string  `json:"name"`
	Label     string  `json:"label"`
	Magnitude float64 `json:"magnitude"`
	Impact    string  `json:"impact"`
}

// Pair is one (feature, value) element of an ordered contribution list.
type Pair struct {
	Name  string
	Value float64
}

// FromPairs ranks an ordered contribution list: descending absolute
// magnitude, stable on ties, at most MaxEntries entries.
func FromPairs(pairs []Pair) []Contribution {
	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Value) > math.Abs(sorted[j].Value)
	})
	if len(sorted) > MaxEntries {
		sorted = sorted[:MaxEntries]
	}

	out := make([]Contribution, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, Contribution{
			Name:      p.Name,
			Label:     features.Label(p.Name),
			Magnitude: math.Abs(p.Value),
			Impact:    tier(p.Value),
		})
	}
	return out
}

// FromMap ranks a name->value contribution mapping. Map order is not
// meaningful, so entries are first laid out in sorted-name order to keep the
// tie-break deterministic.
func FromMap(m map[string]float64) []Contribution {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]Pair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, Pair{Name: name, Value: m[name]})
	}
	return FromPairs(pairs)
}

func tier(v float64) string {
	if math.Abs(v) > highImpactThreshold {
		return "high"
	}
	return "normal"
}

// Default returns the static ranking used when no contribution data is
// available at all, e.g. on the heuristic fallback path. The dashboard always
// has something to render.
func Default() []Contribution {
	return FromPairs([]Pair{
		{Name: "chol", Value: 240},
		{Name: "trestbps", Value: 130},
		{Name: "thalach", Value: 150},
		{Name: "age", Value: 54},
		{Name: "oldpeak", Value: 1.0},
		{Name: "cp", Value: 1},
		{Name: "thal", Value: 3},
		{Name: "ca", Value: 0.5},
	})
}
