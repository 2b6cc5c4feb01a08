package heuristic

import (
	"fmt"
	"testing"

	"github.com/cardiacai/riskengine/internal/features"
)

func baseRecord() features.Record {
	r := features.Defaults()
	r["age"] = "50"
	r["trestbps"] = "120"
	r["chol"] = "200"
	r["thalach"] = "150"
	r["oldpeak"] = "0.5"
	return r
}

func TestEstimateDeterministic(t *testing.T) {
	r := baseRecord()
	first := Estimate(r)
	for i := 0; i < 5; i++ {
		if got := Estimate(r); got != first {
			t.Fatalf("estimate changed between calls: %d then %d", first, got)
		}
	}
}

func TestEstimateClamped(t *testing.T) {
	low := features.Defaults() // everything blank or zero
	if got := Estimate(low); got < 0 || got > 100 {
		t.Fatalf("estimate %d out of range for empty record", got)
	}

	high := baseRecord()
	high["age"] = "120"
	high["trestbps"] = "250"
	high["chol"] = "700"
	high["oldpeak"] = "8"
	if got := Estimate(high); got != 100 {
		t.Fatalf("extreme inputs should clamp to 100, got %d", got)
	}
}

func TestEstimateMonotone(t *testing.T) {
	for _, field := range []string{"age", "trestbps", "chol"} {
		t.Run(field, func(t *testing.T) {
			prev := -1
			for v := 40; v <= 300; v += 20 {
				r := baseRecord()
				r[field] = fmt.Sprintf("%d", v)
				got := Estimate(r)
				if got < prev {
					t.Fatalf("increasing %s to %d decreased estimate: %d < %d", field, v, got, prev)
				}
				prev = got
			}
		})
	}
}
