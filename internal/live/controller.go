// Package live schedules best-effort preview assessments while the user is
// still editing. At most one remote call is in flight per settled input, and
// a superseded call can never clobber a fresher result.
package live

import (
	"context"
	"sync"
	"time"

	"github.com/cardiacai/riskengine/internal/assess"
	"github.com/cardiacai/riskengine/internal/features"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

type State string

const (
	StateIdle     State = "idle"
	StatePending  State = "pending"
	StateInFlight State = "in_flight"
	StateSettled  State = "settled"
)

type Config struct {
	Client   *assess.Client
	Debounce time.Duration
	// OnResult receives each applied preview result. Called outside the
	// controller lock; never called for superseded or failed requests.
	OnResult func(assess.Result)
	Log      *logger.Logger
}

type Controller struct {
	client   *assess.Client
	debounce time.Duration
	onResult func(assess.Result)
	log      *logger.Logger

	mu     sync.Mutex
	state  State
	timer  *time.Timer
	gen    uint64 // generation token; bumping it orphans any outstanding work
	cancel context.CancelFunc
	closed bool
}

func NewController(cfg Config) *Controller {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = 1500 * time.Millisecond
	}
	onResult := cfg.OnResult
	if onResult == nil {
		onResult = func(assess.Result) {}
	}
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{
		client:   cfg.Client,
		debounce: debounce,
		onResult: onResult,
		log:      log.With("component", "live"),
		state:    StateIdle,
	}
}

// Update reports an input change. A complete record arms (or re-arms) the
// debounce timer; an incomplete one cancels any pending or in-flight work.
// Either way, whatever was outstanding before this change can no longer
// reach the UI.
func (c *Controller) Update(r features.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.supersedeLocked()

	if features.Validate(r) != nil {
		c.state = StateIdle
		return
	}

	payload := features.Payload(r)
	c.state = StatePending
	c.timer = time.AfterFunc(c.debounce, func() {
		c.fire(payload)
	})
}

func (c *Controller) fire(payload map[string]float64) {
	c.mu.Lock()
	if c.closed || c.state != StatePending {
		c.mu.Unlock()
		return
	}
	c.gen++
	token := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = StateInFlight
	c.mu.Unlock()

	go func() {
		result, err := c.client.Assess(ctx, payload)
		cancel()

		c.mu.Lock()
		if c.closed || token != c.gen {
			c.mu.Unlock()
			c.log.Debug("discarding superseded live result", "token", token)
			return
		}
		c.state = StateSettled
		c.cancel = nil
		c.mu.Unlock()

		if err != nil {
			// Live preview is best-effort; errors stay silent.
			c.log.Debug("live assessment failed", "error", err)
			return
		}
		c.onResult(result)
	}()
}

// State returns the controller's current phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the controller down: the timer is stopped, any in-flight call
// is canceled, and late responses become no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.supersedeLocked()
	c.state = StateIdle
}

// supersedeLocked invalidates outstanding work: stops the pending timer,
// bumps the generation token, and cancels the in-flight request.
func (c *Controller) supersedeLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
