package assess

import (
	"context"
	"errors"

	"github.com/cardiacai/riskengine/internal/features"
	"github.com/cardiacai/riskengine/internal/heuristic"
	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

// Assessor implements the manual submission path: validate, ask the remote
// service, and degrade to the local heuristic when the service is down. A
// manual submission always yields a displayable result or a validation error;
// it never surfaces a transport failure to the user.
type Assessor struct {
	client *Client
	log    *logger.Logger
}

func NewAssessor(client *Client, log *logger.Logger) *Assessor {
	return &Assessor{
		client: client,
		log:    log.With("component", "assessor"),
	}
}

func (a *Assessor) Submit(ctx context.Context, r features.Record) (Result, error) {
	if missing := features.Validate(r); missing != nil {
		return Result{}, &ValidationError{MissingFields: missing}
	}

	result, err := a.client.Assess(ctx, features.Payload(r))
	if err == nil {
		return result, nil
	}

	// The service had the full payload and still rejected it; its field list
	// is authoritative, so pass it through.
	var verr *ValidationError
	if errors.As(err, &verr) {
		return Result{}, verr
	}

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	a.log.Warn("remote assessment failed, using local heuristic", "error", err)
	return HeuristicResult(heuristic.Estimate(r)), nil
}

// Preview returns the instant local estimate for the given record without any
// network traffic. Used before the first debounced remote call lands.
func (a *Assessor) Preview(r features.Record) Result {
	return HeuristicResult(heuristic.Estimate(r))
}
