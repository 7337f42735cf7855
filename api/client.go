package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	checkout "github.com/corepay/checkout-sdk-go"
)

// Client is the payments API boundary the orchestration depends on. All
// calls are async (context-aware) and perform exactly one request; retry
// policy lives with the caller.
type Client interface {
	FetchConfiguration(ctx context.Context) ([]checkout.PaymentMethodConfig, error)
	Tokenize(ctx context.Context, req TokenizeRequest) (checkout.TokenData, error)
	ExchangeToken(ctx context.Context, req ExchangeTokenRequest) (checkout.TokenData, error)
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (checkout.Payment, error)
	ResumePayment(ctx context.Context, paymentID string, req ResumePaymentRequest) (checkout.Payment, error)
	PollStatus(ctx context.Context, statusURL string) (PollResult, error)
	ListBanks(ctx context.Context, methodType string) ([]Bank, error)
	DispatchActions(ctx context.Context, req ActionsRequest) (string, error)
	CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
}

// Error is a typed payments API failure carrying the HTTP status and the
// backend diagnostics identifier.
type Error struct {
	Status        int
	Code          string
	Message       string
	DiagnosticsID string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: %s (%d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api: request failed with status %d: %s", e.Status, e.Message)
}

// IsTransient classifies an error as retry-worthy: network timeouts,
// connection failures, and gateway-class 5xx responses. Everything else is
// treated as fatal by the polling engine.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case 500, 502, 503, 504:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// connection refused/reset and friends arrive wrapped in url.Error
		return !errors.Is(err, context.Canceled)
	}
	return false
}
