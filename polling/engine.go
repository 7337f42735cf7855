// Package polling implements the status-poll primitive shared by the
// asynchronous payment methods: query a status URL until it reports
// completion, retrying transient network failures with bounded backoff and
// honouring cancellation at every step.
package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/internal/obs"
	"github.com/corepay/checkout-sdk-go/internal/resilience"
)

// ErrExhausted is returned when the bounded attempt budget runs out before
// the status endpoint reports completion.
var ErrExhausted = errors.New("polling: attempt budget exhausted")

// Engine polls a status endpoint until a terminal state or cancellation.
// One Engine instance serves one wait; it holds no state beyond that wait.
type Engine struct {
	Client      api.Client
	Interval    time.Duration
	MaxAttempts int
	RetryBase   time.Duration
	Logger      zerolog.Logger

	mu        sync.Mutex
	cancelErr error
	cancelCh  chan struct{}
}

// New constructs an Engine with the given tunables. Zero values fall back
// to a 1s interval, 180 attempts and a 500ms transient-retry base.
func New(client api.Client, interval time.Duration, maxAttempts int, logger zerolog.Logger) *Engine {
	if interval <= 0 {
		interval = time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 180
	}
	return &Engine{
		Client:      client,
		Interval:    interval,
		MaxAttempts: maxAttempts,
		RetryBase:   500 * time.Millisecond,
		Logger:      logger,
		cancelCh:    make(chan struct{}),
	}
}

// Start polls statusURL until the endpoint reports completion, returning
// the resume token id. Transient network failures are retried in place with
// exponential backoff; both pending responses and transient retries count
// against the bounded attempt budget. An unrecognized status is a protocol
// error. Cancellation — via Cancel or ctx — wins over any in-flight
// attempt.
func (e *Engine) Start(ctx context.Context, statusURL string) (string, error) {
	if statusURL == "" {
		return "", errors.New("polling: status url is empty")
	}
	started := time.Now()
	defer func() {
		if obs.PollingDuration != nil {
			obs.PollingDuration.Observe(float64(time.Since(started).Milliseconds()))
		}
	}()

	retries := 0
	for attempt := 1; attempt <= e.MaxAttempts; attempt++ {
		if err := e.interrupted(ctx); err != nil {
			return "", err
		}

		result, err := e.Client.PollStatus(ctx, statusURL)
		if err != nil {
			if !api.IsTransient(err) {
				obs.CountPollAttempt("fatal")
				return "", fmt.Errorf("polling status: %w", err)
			}
			retries++
			obs.CountPollAttempt("transient")
			e.Logger.Debug().Int("attempt", attempt).Int("retries", retries).Err(err).Msg("polling_transient_retry")
			if err := e.sleep(ctx, resilience.Backoff(e.RetryBase, retries, 0.2)); err != nil {
				return "", err
			}
			continue
		}
		retries = 0

		switch result.Status {
		case api.PollComplete:
			if err := e.interrupted(ctx); err != nil {
				return "", err
			}
			obs.CountPollAttempt("complete")
			return result.ID, nil
		case api.PollPending:
			obs.CountPollAttempt("pending")
			if err := e.sleep(ctx, e.Interval); err != nil {
				return "", err
			}
		default:
			obs.CountPollAttempt("protocol_error")
			return "", fmt.Errorf("polling: unrecognized status %q", result.Status)
		}
	}
	return "", ErrExhausted
}

// Cancel stops the poll loop and rejects the outstanding wait with err, or
// with a default cancellation error when err is nil. Safe to call more than
// once; the first call wins.
func (e *Engine) Cancel(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	select {
	case <-e.cancelCh:
		return
	default:
	}
	if err == nil {
		err = &checkout.CancelledError{}
	}
	e.cancelErr = err
	close(e.cancelCh)
}

func (e *Engine) interrupted(ctx context.Context) error {
	select {
	case <-e.cancelCh:
		return e.cancelError()
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.cancelCh:
		return e.cancelError()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) cancelError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelErr != nil {
		return e.cancelErr
	}
	return &checkout.CancelledError{}
}
