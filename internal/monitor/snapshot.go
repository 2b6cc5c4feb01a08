// Package monitor polls the prediction service's health and activity-log
// endpoints and maintains the dashboard's view of the system.
package monitor

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/cardiacai/riskengine/internal/assess"
)

// LogEntry is one prediction-audit row in a snapshot window.
type LogEntry struct {
	ID         string           `json:"id"`
	Time       time.Time        `json:"time"`
	Risk       assess.RiskLabel `json:"risk"`
	Confidence float64          `json:"confidence"` // [0, 1]
	Status     string           `json:"status"`
	SourceIP   string           `json:"source_ip"`
	// Synthetic marks rows fabricated locally when the log endpoint is
	// unavailable; the dashboard labels them as demo data.
	Synthetic bool `json:"synthetic"`
}

const (
	StatusSuccess = "Success"
	StatusFailed  = "Failed"
)

// Stats are aggregate counts over one log window only. They are recomputed
// wholesale on every poll, never merged across polls.
type Stats struct {
	Total         int     `json:"total"`
	HighRisk      int     `json:"high_risk"`
	ModerateRisk  int     `json:"moderate_risk"`
	LowRisk       int     `json:"low_risk"`
	Successes     int     `json:"successes"`
	Failures      int     `json:"failures"`
	SuccessRate   float64 `json:"success_rate"`   // [0, 1]
	AvgConfidence float64 `json:"avg_confidence"` // [0, 1]
}

// Snapshot is the full dashboard state for one poll cycle. Each snapshot
// supersedes the previous one entirely.
type Snapshot struct {
	Healthy   bool       `json:"healthy"`
	LatencyMS int64      `json:"latency_ms"`
	CheckedAt time.Time  `json:"checked_at"`
	Logs      []LogEntry `json:"logs"`
	Stats     Stats      `json:"stats"`
	// Alert is a pure function of this window's high-risk count; it clears
	// itself on the next cycle below threshold.
	Alert     bool `json:"alert"`
	Synthetic bool `json:"synthetic"`
}

func buildSnapshot(healthy bool, latency time.Duration, logs []LogEntry, synthetic bool, alertThreshold int) Snapshot {
	stats := computeStats(logs)
	return Snapshot{
		Healthy:   healthy,
		LatencyMS: latency.Milliseconds(),
		CheckedAt: time.Now().UTC(),
		Logs:      logs,
		Stats:     stats,
		// Fabricated windows never raise alerts; only real activity counts.
		Alert:     !synthetic && stats.HighRisk >= alertThreshold,
		Synthetic: synthetic,
	}
}

func computeStats(logs []LogEntry) Stats {
	s := Stats{Total: len(logs)}
	var confSum float64
	for _, l := range logs {
		switch l.Risk {
		case assess.RiskHigh:
			s.HighRisk++
		case assess.RiskModerate:
			s.ModerateRisk++
		case assess.RiskLow:
			s.LowRisk++
		}
		if l.Status == StatusSuccess {
			s.Successes++
		} else {
			s.Failures++
		}
		confSum += l.Confidence
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Total)
		s.AvgConfidence = confSum / float64(s.Total)
	}
	return s
}

// parseLogs decodes the upstream activity log, tolerating the field-name and
// value-format drift seen across service revisions (confidence as a number,
// a percentage, or a "78%" string; `ip` or `source_ip`; `time` or
// `timestamp`). Undecodable elements are dropped; an empty array is a valid
// window, distinct from a decode failure.
func parseLogs(raw []byte, limit int) ([]LogEntry, error) {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	out := []LogEntry{}
	for _, item := range items {
		entry := LogEntry{
			ID:       stringField(item, "id"),
			Risk:     assess.RiskLabel(stringField(item, "risk", "risk_label")),
			Status:   stringField(item, "status"),
			SourceIP: stringField(item, "ip", "source_ip"),
		}
		if entry.Risk == "" {
			continue
		}
		if entry.Status == "" {
			entry.Status = StatusSuccess
		}
		entry.Time = timeField(item, "time", "timestamp")
		entry.Confidence = confidenceField(item)
		out = append(out, entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	return ""
}

func timeField(fields map[string]json.RawMessage, keys ...string) time.Time {
	for _, key := range keys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func confidenceField(fields map[string]json.RawMessage) float64 {
	raw, ok := fields["confidence"]
	if !ok {
		return 0
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err == nil {
		if v > 1 {
			v = v / 100
		}
		return v
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSuffix(strings.TrimSpace(s), "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f > 1 {
				f = f / 100
			}
			return f
		}
	}
	return 0
}
