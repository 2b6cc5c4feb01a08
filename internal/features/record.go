package features

import (
	"math"
	"strconv"
	"strings"
)

// Record holds the raw form input for one assessment, keyed by feature name.
// Values stay as strings until Payload coerces them for transmission.
type Record map[string]string

// Required lists the features the prediction model was trained on. Every one
// must hold a numeric value before an assessment is attempted.
var Required = []string{
	"age", "sex", "cp", "trestbps", "chol", "fbs",
	"restecg", "thalach", "exang", "oldpeak",
	"slope", "ca", "thal",
}

// Extended are the optional lifestyle and lab fields collected by the form.
// They ride along in the payload but are not required.
var Extended = []string{
	"smoking", "exercise", "family_history", "bmi", "hba1c", "calcium_score",
}

// Defaults returns a record seeded with the form defaults. Numeric vitals
// start blank; categorical fields carry the common UCI dataset values.
func Defaults() Record {
	return Record{
		"age":      "",
		"sex":      "1",
		"cp":       "0",
		"trestbps": "",
		"chol":     "",
		"fbs":      "0",
		"restecg":  "0",
		"thalach":  "",
		"exang":    "0",
		"oldpeak":  "",
		"slope":    "0",
		"ca":       "0",
		"thal":     "3",

		"smoking":        "0",
		"exercise":       "1",
		"family_history": "0",
		"bmi":            "",
		"hba1c":          "",
		"calcium_score":  "",
	}
}

// Names returns every declared feature name, required first.
func Names() []string {
	out := make([]string, 0, len(Required)+len(Extended))
	out = append(out, Required...)
	out = append(out, Extended...)
	return out
}

// Validate returns the required fields that are blank or non-numeric,
// in declaration order. A nil return means the record is complete.
func Validate(r Record) []string {
	var missing []string
	for _, name := range Required {
		v := strings.TrimSpace(r[name])
		if v == "" {
			missing = append(missing, name)
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Payload coerces every declared field to a number for transmission.
// Blank or unparseable values become 0; the result always contains the full
// declared field set and only finite numbers.
func Payload(r Record) map[string]float64 {
	out := make(map[string]float64, len(Required)+len(Extended))
	for _, name := range Names() {
		out[name] = coerce(r[name])
	}
	return out
}

func coerce(raw string) float64 {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Numeric returns the parsed value of a single field, 0 when blank or invalid.
func Numeric(r Record, name string) float64 {
	return coerce(r[name])
}

// Label converts a feature name to its display form: underscores become
// spaces and each word is title-cased ("family_history" -> "Family History").
func Label(name string) string {
	words := strings.Split(strings.ReplaceAll(name, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
