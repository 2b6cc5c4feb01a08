package assess

import (
	"fmt"
	"strings"
)

// ValidationError reports required fields the submission is missing, either
// detected locally or surfaced verbatim from the prediction service.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "missing required features"
	}
	if len(e.MissingFields) == 0 {
		return msg
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(e.MissingFields, ", "))
}

// TransportError covers every remote failure that is not the caller's fault:
// connection errors, timeouts, and upstream 5xx responses. The caller decides
// whether to fall back to the local heuristic.
type TransportError struct {
	StatusCode int
	Timeout    bool
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return "prediction service timed out"
	case e.StatusCode != 0:
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
		}
		return fmt.Sprintf("prediction service returned status %d: %s", e.StatusCode, msg)
	case e.Err != nil:
		return fmt.Sprintf("prediction service unreachable: %v", e.Err)
	default:
		return "prediction service unreachable"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatusCode implements httpx.HTTPStatusCoder for retry classification.
func (e *TransportError) HTTPStatusCode() int { return e.StatusCode }
