package live

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cardiacai/riskengine/internal/assess"
	"github.com/cardiacai/riskengine/internal/features"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(confidence float64) *http.Response {
	body := fmt.Sprintf(`{"prediction": 1, "confidence": %v}`, confidence)
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newClient(t *testing.T, rt roundTripperFunc) *assess.Client {
	t.Helper()
	c, err := assess.NewClient(assess.Options{
		BaseURL:    "http://upstream",
		Timeout:    2 * time.Second,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func completeRecord(age string) features.Record {
	r := features.Defaults()
	r["age"] = age
	r["trestbps"] = "130"
	r["chol"] = "246"
	r["thalach"] = "150"
	r["oldpeak"] = "1.0"
	return r
}

func TestBurstOfChangesIssuesOneCall(t *testing.T) {
	var calls int32
	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(0.5), nil
	})

	results := make(chan assess.Result, 8)
	c := NewController(Config{
		Client:   client,
		Debounce: 80 * time.Millisecond,
		OnResult: func(r assess.Result) { results <- r },
	})
	defer c.Close()

	// Three edits inside one debounce window.
	c.Update(completeRecord("50"))
	time.Sleep(10 * time.Millisecond)
	c.Update(completeRecord("51"))
	time.Sleep(10 * time.Millisecond)
	c.Update(completeRecord("52"))

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
	}
	// Give any extra (erroneous) calls time to fire.
	time.Sleep(150 * time.Millisecond)

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls=%d, want exactly 1 for a burst", got)
	}
}

func TestStaleResponseDiscarded(t *testing.T) {
	var call int32
	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		var in map[string]float64
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Errorf("decode req: %v", err)
		}
		if atomic.AddInt32(&call, 1) == 1 {
			// First call is slow and ignores cancellation, so its response
			// arrives after the second call's.
			time.Sleep(250 * time.Millisecond)
			return jsonResponse(0.11), nil
		}
		return jsonResponse(0.99), nil
	})

	results := make(chan assess.Result, 8)
	c := NewController(Config{
		Client:   client,
		Debounce: 20 * time.Millisecond,
		OnResult: func(r assess.Result) { results <- r },
	})
	defer c.Close()

	c.Update(completeRecord("40"))
	time.Sleep(60 * time.Millisecond) // first call is now in flight
	c.Update(completeRecord("70"))    // supersedes it

	var applied []assess.Result
	deadline := time.After(2 * time.Second)
	for len(applied) == 0 {
		select {
		case r := <-results:
			applied = append(applied, r)
		case <-deadline:
			t.Fatal("no result delivered")
		}
	}
	// Wait out the slow first response; it must never surface.
	time.Sleep(300 * time.Millisecond)
	close(results)
	for r := range results {
		applied = append(applied, r)
	}

	if len(applied) != 1 {
		t.Fatalf("applied %d results, want 1", len(applied))
	}
	if applied[0].RiskPercent != 99 {
		t.Fatalf("displayed percent=%d, want the superseding call's 99", applied[0].RiskPercent)
	}
}

func TestIncompleteInputCancelsPending(t *testing.T) {
	var calls int32
	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(0.5), nil
	})

	c := NewController(Config{
		Client:   client,
		Debounce: 30 * time.Millisecond,
		OnResult: func(assess.Result) {},
	})
	defer c.Close()

	c.Update(completeRecord("50"))
	if got := c.State(); got != StatePending {
		t.Fatalf("state=%q want %q", got, StatePending)
	}

	incomplete := completeRecord("50")
	incomplete["chol"] = ""
	c.Update(incomplete)
	if got := c.State(); got != StateIdle {
		t.Fatalf("state=%q want %q", got, StateIdle)
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("calls=%d, want 0 after input became incomplete", got)
	}
}

func TestTransportErrorsAreSilent(t *testing.T) {
	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})

	delivered := make(chan assess.Result, 1)
	c := NewController(Config{
		Client:   client,
		Debounce: 20 * time.Millisecond,
		OnResult: func(r assess.Result) { delivered <- r },
	})
	defer c.Close()

	c.Update(completeRecord("50"))

	select {
	case r := <-delivered:
		t.Fatalf("live errors must not surface results, got %+v", r)
	case <-time.After(300 * time.Millisecond):
	}
	if got := c.State(); got != StateSettled {
		t.Fatalf("state=%q want %q after a swallowed failure", got, StateSettled)
	}
}

func TestCloseDropsLateResponses(t *testing.T) {
	release := make(chan struct{})
	client := newClient(t, func(req *http.Request) (*http.Response, error) {
		<-release
		return jsonResponse(0.7), nil
	})

	delivered := make(chan assess.Result, 1)
	c := NewController(Config{
		Client:   client,
		Debounce: 10 * time.Millisecond,
		OnResult: func(r assess.Result) { delivered <- r },
	})

	c.Update(completeRecord("50"))
	time.Sleep(50 * time.Millisecond) // request now in flight
	c.Close()
	close(release)

	select {
	case r := <-delivered:
		t.Fatalf("closed controller must drop responses, got %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}
