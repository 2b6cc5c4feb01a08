package monitor

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cardiacai/riskengine/internal/pkg/logger"
	"github.com/cardiacai/riskengine/internal/session"
)

// State describes the monitor lifecycle.
type State string

const (
	StateLoggedOut State = "logged_out"
	StatePolling   State = "polling"
	StatePaused    State = "paused"
)

// ErrLoggedOut is returned by Start when no admin session is active.
var ErrLoggedOut = errors.New("monitor: no active admin session")

const defaultWindowSize = 20

// Config parameterizes a Loop. BaseURL is the prediction service origin.
type Config struct {
	BaseURL        string
	HealthPath     string // defaults to /health
	LogsPath       string // defaults to /logs
	Interval       time.Duration
	AlertThreshold int
	WindowSize     int // max log rows kept per snapshot
	HTTPClient     *http.Client
	Log            *logger.Logger
}

// Loop owns the polling goroutine and the latest snapshot. A Loop is bound to
// the admin session manager: it refuses to start without a live session and
// winds itself down if the session expires mid-flight.
type Loop struct {
	cfg      Config
	sessions *session.Manager
	client   *http.Client
	log      *logger.Logger

	mu       sync.Mutex
	snapshot *Snapshot
	cancel   context.CancelFunc
	running  bool
	paused   bool
	wake     chan struct{}
}

func New(cfg Config, sessions *session.Manager) *Loop {
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/health"
	}
	if cfg.LogsPath == "" {
		cfg.LogsPath = "/logs"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = 6
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultWindowSize
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Loop{cfg: cfg, sessions: sessions, client: client, log: log}
}

// Start begins polling. The first poll fires immediately, before the first
// interval elapses. Starting an already-running loop is a no-op; only one
// polling goroutine ever exists per Loop.
func (l *Loop) Start() error {
	if l.sessions.Current() == nil {
		return ErrLoggedOut
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.running = true
	l.paused = false
	l.wake = make(chan struct{}, 1)
	go l.run(ctx, l.wake)
	return nil
}

// Stop tears the loop down, cancelling any in-flight poll.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.cancel()
	l.cancel = nil
	l.running = false
	l.paused = false
}

// Pause suspends polling without releasing the goroutine; the last snapshot
// stays visible.
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		l.paused = true
	}
}

// Resume restarts polling after a Pause and triggers an immediate refresh.
func (l *Loop) Resume() {
	l.mu.Lock()
	if !l.running || !l.paused {
		l.mu.Unlock()
		return
	}
	l.paused = false
	wake := l.wake
	l.mu.Unlock()

	select {
	case wake <- struct{}{}:
	default:
	}
}

// State reports the lifecycle phase for the dashboard.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case !l.running:
		return StateLoggedOut
	case l.paused:
		return StatePaused
	default:
		return StatePolling
	}
}

// Snapshot returns the most recent snapshot, or nil before the first poll
// completes.
func (l *Loop) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot
}

func (l *Loop) run(ctx context.Context, wake chan struct{}) {
	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-wake:
			l.poll(ctx)
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

func (l *Loop) poll(ctx context.Context) {
	if l.sessions.Current() == nil {
		l.log.Warn("monitor: admin session expired, stopping poll loop")
		l.Stop()
		return
	}

	l.mu.Lock()
	paused := l.paused
	l.mu.Unlock()
	if paused {
		return
	}

	healthy, latency := l.checkHealth(ctx)
	logs, synthetic := l.fetchLogs(ctx)
	snap := buildSnapshot(healthy, latency, logs, synthetic, l.cfg.AlertThreshold)

	l.mu.Lock()
	l.snapshot = &snap
	l.mu.Unlock()

	if snap.Alert {
		l.log.Warn("monitor: high-risk alert raised", "high_risk", snap.Stats.HighRisk, "threshold", l.cfg.AlertThreshold)
	}
}

func (l *Loop) checkHealth(ctx context.Context) (bool, time.Duration) {
	start := time.Now()
	_, status, err := l.get(ctx, l.cfg.HealthPath)
	latency := time.Since(start)
	if err != nil || status != http.StatusOK {
		return false, latency
	}
	return true, latency
}

// fetchLogs returns the real activity window when the endpoint answers,
// including an empty one. Only a failed fetch or an undecodable body falls
// back to the fabricated window.
func (l *Loop) fetchLogs(ctx context.Context) ([]LogEntry, bool) {
	body, status, err := l.get(ctx, l.cfg.LogsPath)
	if err == nil && status == http.StatusOK {
		if logs, perr := parseLogs(body, l.cfg.WindowSize); perr == nil {
			return logs, false
		}
	}
	return syntheticLogs(l.cfg.WindowSize), true
}

func (l *Loop) get(ctx context.Context, path string) ([]byte, int, error) {
	u, err := url.JoinPath(strings.TrimRight(l.cfg.BaseURL, "/"), path)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
