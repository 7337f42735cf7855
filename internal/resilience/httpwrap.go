package resilience

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps an http.Client with a per-call timeout and a circuit
// breaker. It performs no retries of its own: the payments API client runs
// each request exactly once, and status-poll retry policy belongs to the
// polling engine.
type HTTPClient struct {
	Client  *http.Client
	Breaker *Breaker
	Timeout time.Duration
}

// Do executes the request once, reporting the outcome to the breaker. The
// request body is buffered so callers may reuse the request. When the
// breaker is open ErrOpenCircuit is returned without touching the network.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	breaker := cl.Breaker
	if breaker == nil {
		// closed breaker that never trips
		breaker = NewBreaker(1, 1, time.Second)
	}
	if !breaker.Allow(ctx) {
		return nil, ErrOpenCircuit
	}

	if err := ensureReplayableBody(req); err != nil {
		breaker.Report(ctx, false)
		return nil, err
	}

	resp, err := cl.doOnce(ctx, req)
	if err != nil {
		breaker.Report(ctx, false)
		return nil, err
	}
	breaker.Report(ctx, resp.StatusCode < 500)
	return resp, nil
}

func (cl HTTPClient) doOnce(ctx context.Context, req *http.Request) (*http.Response, error) {
	timeout := cl.Timeout
	if timeout <= 0 {
		timeout = cl.Client.Timeout
	}
	var callCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	return cl.Client.Do(req.WithContext(callCtx))
}

func ensureReplayableBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	source := req.Body
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return err
		}
		source = body
	}
	data, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	_ = source.Close()
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}
