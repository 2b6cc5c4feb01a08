package monitor

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/cardiacai/riskengine/internal/assess"
)

// syntheticLogs fabricates a plausible activity window so the dashboard stays
// populated while the log endpoint is down. Every entry is flagged Synthetic.
func syntheticLogs(n int) []LogEntry {
	risks := []assess.RiskLabel{assess.RiskLow, assess.RiskModerate, assess.RiskHigh}
	now := time.Now().UTC()

	out := make([]LogEntry, 0, n)
	for i := 0; i < n; i++ {
		status := StatusSuccess
		if i%4 == 3 {
			status = StatusFailed
		}
		out = append(out, LogEntry{
			ID:         uuid.NewString(),
			Time:       now.Add(-time.Duration(i) * 5 * time.Minute),
			Risk:       risks[i%len(risks)],
			Confidence: 0.65 + rand.Float64()*0.30,
			Status:     status,
			SourceIP:   fmt.Sprintf("192.168.%d.%d", rand.Intn(256), 1+rand.Intn(254)),
			Synthetic:  true,
		})
	}
	return out
}
