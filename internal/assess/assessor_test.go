package assess

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/cardiacai/riskengine/internal/features"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

func validRecord() features.Record {
	r := features.Defaults()
	r["age"] = "61"
	r["trestbps"] = "145"
	r["chol"] = "280"
	r["thalach"] = "120"
	r["oldpeak"] = "2.1"
	return r
}

func TestSubmitValidatesFirst(t *testing.T) {
	called := false
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		called = true
		return jsonResponse(200, `{}`), nil
	})
	a := NewAssessor(c, logger.Nop())

	r := validRecord()
	r["age"] = ""

	_, err := a.Submit(context.Background(), r)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.MissingFields) != 1 || verr.MissingFields[0] != "age" {
		t.Fatalf("missing=%v", verr.MissingFields)
	}
	if called {
		t.Fatal("invalid record must not reach the remote service")
	}
}

func TestSubmitPrefersRemoteResult(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"prediction": 1, "confidence": 0.9}`), nil
	})
	a := NewAssessor(c, logger.Nop())

	res, err := a.Submit(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Source != SourceRemote || res.RiskPercent != 90 {
		t.Fatalf("source=%q percent=%d", res.Source, res.RiskPercent)
	}
}

func TestSubmitFallsBackToHeuristic(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	a := NewAssessor(c, logger.Nop())

	res, err := a.Submit(context.Background(), validRecord())
	if err != nil {
		t.Fatalf("manual submit must never hard-fail on transport errors: %v", err)
	}
	if res.Source != SourceHeuristic {
		t.Fatalf("source=%q want %q", res.Source, SourceHeuristic)
	}
	if len(res.Contributions) == 0 {
		t.Fatal("fallback result must carry the default contribution ranking")
	}
	if res.RiskPercent < 0 || res.RiskPercent > 100 {
		t.Fatalf("percent=%d", res.RiskPercent)
	}
	if res.RiskLabel != LabelFor(res.RiskPercent) {
		t.Fatalf("label %q inconsistent with percent %d", res.RiskLabel, res.RiskPercent)
	}
}

func TestSubmitPassesThroughServerValidation(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(400, `{"error": "bad input", "missing_features": ["thal"]}`), nil
	})
	a := NewAssessor(c, logger.Nop())

	_, err := a.Submit(context.Background(), validRecord())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Message != "bad input" {
		t.Fatalf("message=%q", verr.Message)
	}
}

func TestSubmitHonorsCallerCancellation(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})
	a := NewAssessor(c, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Submit(ctx, validRecord())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPreviewIsLocal(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("preview must not touch the network")
		return nil, nil
	})
	a := NewAssessor(c, logger.Nop())

	res := a.Preview(validRecord())
	if res.Source != SourceHeuristic {
		t.Fatalf("source=%q", res.Source)
	}
}
