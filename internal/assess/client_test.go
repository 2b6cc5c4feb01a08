package assess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func newTestClient(t *testing.T, rt roundTripperFunc) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:    "http://upstream",
		Timeout:    2 * time.Second,
		MaxRetries: 1,
		HTTPClient: &http.Client{Transport: rt},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestAssessNormalizesConfidenceShape(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/predict" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var in map[string]float64
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			t.Fatalf("decode req: %v", err)
		}
		if in["age"] != 54 {
			t.Fatalf("age=%v", in["age"])
		}
		// Percentage-scale confidence, as the reference service sends it.
		return jsonResponse(200, `{"prediction": 1, "confidence": 82.4, "features_used": {"age": 54, "chol": 246}}`), nil
	})

	res, err := c.Assess(context.Background(), map[string]float64{"age": 54})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.Class != ClassPositive {
		t.Fatalf("class=%q", res.Class)
	}
	if res.RiskPercent != 82 {
		t.Fatalf("percent=%d", res.RiskPercent)
	}
	if res.Source != SourceRemote {
		t.Fatalf("source=%q", res.Source)
	}
	if len(res.Contributions) != 2 || res.Contributions[0].Name != "chol" {
		t.Fatalf("contributions=%v", res.Contributions)
	}
}

func TestAssessNormalizesAlternateFieldNames(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{
			"pred": "0",
			"probability": 0.31,
			"feature_importance": [
				{"feature": "oldpeak", "importance": 0.6},
				{"feature": "age", "importance": -0.9}
			],
			"model_version": "v2.1"
		}`), nil
	})

	res, err := c.Assess(context.Background(), map[string]float64{})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.Class != ClassNegative {
		t.Fatalf("class=%q", res.Class)
	}
	if res.RiskPercent != 31 {
		t.Fatalf("percent=%d", res.RiskPercent)
	}
	if len(res.Contributions) != 2 || res.Contributions[0].Name != "age" {
		t.Fatalf("contributions=%v", res.Contributions)
	}
}

func TestAssessToleratesUnknownShape(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"verdict": "who knows", "extra": [1, 2, 3]}`), nil
	})

	res, err := c.Assess(context.Background(), map[string]float64{})
	if err != nil {
		t.Fatalf("an unrecognized response shape must not fail: %v", err)
	}
	if res.Confidence != 0 || res.Class != ClassNegative {
		t.Fatalf("expected zero-value result, got %+v", res)
	}
}

func TestAssessSurfacesServerValidation(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"error": "Missing required features", "missing_features": ["thal", "ca"]}`), nil
	})

	_, err := c.Assess(context.Background(), map[string]float64{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.MissingFields) != 2 || verr.MissingFields[0] != "thal" {
		t.Fatalf("missing=%v", verr.MissingFields)
	}
	if verr.Message != "Missing required features" {
		t.Fatalf("message=%q", verr.Message)
	}
}

func TestAssessClassifiesNetworkFailure(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	_, err := c.Assess(context.Background(), map[string]float64{})
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestAssessRetriesRetryableStatusOnce(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return jsonResponse(503, `{"error": "warming up"}`), nil
		}
		return jsonResponse(200, `{"prediction": 0, "confidence": 0.2}`), nil
	})

	res, err := c.Assess(context.Background(), map[string]float64{})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}
	if res.RiskPercent != 20 {
		t.Fatalf("percent=%d", res.RiskPercent)
	}
}

func TestAssessRespectsCancellation(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		close(started)
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Assess(ctx, map[string]float64{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
