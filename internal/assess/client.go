package assess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardiacai/riskengine/internal/pkg/httpx"
)

const maxResponseBytes = 1 << 20

type Options struct {
	BaseURL     string
	PredictPath string

	Timeout    time.Duration
	MaxRetries int

	HTTPClient *http.Client
}

// Client calls the external prediction service. It performs no fallback of
// its own: failures are classified and returned so the caller can decide.
type Client struct {
	baseURL     string
	predictPath string
	timeout     time.Duration
	maxRetries  int
	httpClient  *http.Client
}

func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	predictPath := strings.TrimSpace(opts.PredictPath)
	if predictPath == "" {
		predictPath = "/api/v1/predict"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:     baseURL,
		predictPath: predictPath,
		timeout:     timeout,
		maxRetries:  maxRetries,
		httpClient:  hc,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// Assess posts the coerced payload and normalizes the response. The call is
// bounded by the client timeout and aborts as soon as ctx is canceled; a
// canceled call returns ctx's error and mutates nothing.
func (c *Client) Assess(ctx context.Context, payload map[string]float64) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("marshal payload: %w", err)
	}

	requestID := uuid.NewString()

	var lastErr error
	delay := retryBaseDelay
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(httpx.JitterSleep(delay)):
			}
		}

		result, nextDelay, err := c.once(ctx, body, requestID)
		if err == nil {
			return result, nil
		}
		if httpx.IsCanceled(err) {
			return Result{}, err
		}
		lastErr = err
		if !retryableError(err) {
			break
		}
		delay = nextDelay
	}
	return Result{}, lastErr
}

const retryBaseDelay = 500 * time.Millisecond

// retryableError: connection-level failures always earn another attempt;
// responses are classified by status.
func retryableError(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) && terr.StatusCode == 0 {
		return true
	}
	return httpx.IsRetryableError(err)
}

func (c *Client) once(ctx context.Context, body []byte, requestID string) (Result, time.Duration, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+c.predictPath, bytes.NewReader(body))
	if err != nil {
		return Result{}, retryBaseDelay, &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if httpx.IsCanceled(ctx.Err()) {
			return Result{}, 0, ctx.Err()
		}
		if httpx.IsTimeout(err) {
			return Result{}, retryBaseDelay, &TransportError{Timeout: true, Err: err}
		}
		return Result{}, retryBaseDelay, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, retryBaseDelay, &TransportError{Err: err}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return normalize(raw), 0, nil
	}

	// A throttling service may name its own backoff.
	wait := httpx.RetryAfterDuration(resp, retryBaseDelay, 5*time.Second)
	return Result{}, wait, errorFromStatus(resp.StatusCode, raw)
}

// errorFromStatus surfaces the service's own validation feedback verbatim;
// everything else is a transport-level failure.
func errorFromStatus(status int, raw []byte) error {
	var body struct {
		Error           string   `json:"error"`
		MissingFeatures []string `json:"missing_features"`
	}
	_ = json.Unmarshal(raw, &body)

	if status >= 400 && status < 500 && (body.Error != "" || len(body.MissingFeatures) > 0) {
		return &ValidationError{
			Message:       body.Error,
			MissingFields: body.MissingFeatures,
		}
	}

	return &TransportError{
		StatusCode: status,
		Message:    body.Error,
	}
}
