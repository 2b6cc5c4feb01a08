package history

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/cardiacai/riskengine/internal/assess"
	"github.com/cardiacai/riskengine/internal/features"
)

// ExportedEntry is the lossless export form of an entry: the full input
// snapshot and result, with JSON columns unpacked.
type ExportedEntry struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Snapshot  features.Record `json:"snapshot"`
	Result    assess.Result   `json:"result"`
}

func (s *Store) export(ids []int64) ([]ExportedEntry, error) {
	var entries []Entry
	if len(ids) == 0 {
		var err error
		entries, err = s.List()
		if err != nil {
			return nil, err
		}
	} else {
		for _, id := range ids {
			e, err := s.Get(id)
			if err != nil {
				return nil, err
			}
			entries = append(entries, e)
		}
	}

	out := make([]ExportedEntry, 0, len(entries))
	for _, e := range entries {
		snapshot, result, err := e.Decode()
		if err != nil {
			continue
		}
		out = append(out, ExportedEntry{
			ID:        e.ID,
			CreatedAt: e.CreatedAt,
			Snapshot:  snapshot,
			Result:    result,
		})
	}
	return out, nil
}

// ExportJSON serializes the selected entries (all when ids is empty) with
// full structure preserved.
func (s *Store) ExportJSON(ids ...int64) ([]byte, error) {
	entries, err := s.export(ids)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(entries, "", "  ")
}

// ExportCSV flattens each entry to (entry_id, section, key, value) rows so
// nested fields survive the tabular format.
func (s *Store) ExportCSV(ids ...int64) ([]byte, error) {
	entries, err := s.export(ids)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"entry_id", "section", "key", "value"}); err != nil {
		return nil, err
	}

	for _, e := range entries {
		id := strconv.FormatInt(e.ID, 10)

		rows := [][]string{
			{id, "entry", "created_at", e.CreatedAt.Format(time.RFC3339Nano)},
			{id, "result", "class", string(e.Result.Class)},
			{id, "result", "confidence", formatFloat(e.Result.Confidence)},
			{id, "result", "risk_percent", strconv.Itoa(e.Result.RiskPercent)},
			{id, "result", "risk_label", string(e.Result.RiskLabel)},
			{id, "result", "source", string(e.Result.Source)},
		}
		for _, c := range e.Result.Contributions {
			rows = append(rows, []string{id, "contribution", c.Name, formatFloat(c.Magnitude)})
		}

		names := make([]string, 0, len(e.Snapshot))
		for name := range e.Snapshot {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rows = append(rows, []string{id, "snapshot", name, e.Snapshot[name]})
		}

		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
