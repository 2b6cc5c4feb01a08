package assess

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cardiacai/riskengine/internal/rank"
)

// normalize converts whatever shape the prediction service returned into the
// canonical Result. The upstream contract is not stable: confidence may
// arrive as `confidence` or `probability` (on a 0-1 or 0-100 scale), the
// class as `prediction` or `pred`, and the explanation as a
// `feature_importance` list or a `features_used` mapping. Unknown fields are
// ignored and missing fields default to zero values; this function never
// fails on well-formed JSON of any shape.
func normalize(raw []byte) Result {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return NewResult(ClassNegative, 0, nil, SourceRemote)
	}

	confidence := pickConfidence(fields)
	class := pickClass(fields)
	contributions := pickContributions(fields)

	return NewResult(class, confidence, contributions, SourceRemote)
}

func pickConfidence(fields map[string]json.RawMessage) float64 {
	for _, key := range []string{"confidence", "probability"} {
		v, ok := numberField(fields, key)
		if !ok {
			continue
		}
		// Values above 1 are percentages.
		if v > 1 {
			v = v / 100
		}
		return v
	}
	return 0
}

func pickClass(fields map[string]json.RawMessage) Class {
	for _, key := range []string{"prediction", "pred"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if v, ok := asNumber(raw); ok {
			if v >= 0.5 {
				return ClassPositive
			}
			return ClassNegative
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			switch strings.ToLower(strings.TrimSpace(s)) {
			case "1", "positive", "disease", "true":
				return ClassPositive
			}
			return ClassNegative
		}
	}
	return ClassNegative
}

func pickContributions(fields map[string]json.RawMessage) []rank.Contribution {
	if raw, ok := fields["feature_importance"]; ok {
		if pairs := importanceList(raw); len(pairs) > 0 {
			return rank.FromPairs(pairs)
		}
	}
	if raw, ok := fields["features_used"]; ok {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err == nil {
			values := make(map[string]float64, len(m))
			for name, rv := range m {
				if v, ok := asNumber(rv); ok {
					values[name] = v
				}
			}
			if len(values) > 0 {
				return rank.FromMap(values)
			}
		}
	}
	return nil
}

// importanceList accepts both element shapes seen in the wild:
// {"feature": ..., "importance": ...} and {"name": ..., "value": ...}.
func importanceList(raw json.RawMessage) []rank.Pair {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	var pairs []rank.Pair
	for _, item := range items {
		name := firstString(item, "feature", "name")
		if name == "" {
			continue
		}
		value, ok := firstNumber(item, "importance", "value", "magnitude")
		if !ok {
			continue
		}
		pairs = append(pairs, rank.Pair{Name: name, Value: value})
	}
	return pairs
}

func firstString(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstNumber(fields map[string]json.RawMessage, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := numberField(fields, key); ok {
			return v, true
		}
	}
	return 0, false
}

func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	return asNumber(raw)
}

func asNumber(raw json.RawMessage) (float64, bool) {
	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		return v, true
	}
	// Tolerate numbers sent as strings.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
