package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/internal/resilience"
)

const sessionTokenHeader = "X-Session-Token"

// HTTPClient implements Client against the payments API over HTTP/JSON.
// The session token is read per request so a swapped client token is picked
// up by every subsequent call.
type HTTPClient struct {
	BaseURL      string
	SessionToken func() string
	HTTP         resilience.HTTPClient
	Logger       zerolog.Logger
}

// NewHTTPClient builds an HTTPClient with the otelhttp-instrumented
// transport and a breaker guarding the payments API.
func NewHTTPClient(baseURL string, sessionToken func() string, timeout time.Duration, logger zerolog.Logger) *HTTPClient {
	breaker := resilience.NewBreaker(10, 0.5, 30*time.Second).
		WithTarget("payments-api").
		WithLogger(logger)
	return &HTTPClient{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		SessionToken: sessionToken,
		HTTP: resilience.HTTPClient{
			Client:  &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker: breaker,
			Timeout: timeout,
		},
		Logger: logger,
	}
}

func (c *HTTPClient) FetchConfiguration(ctx context.Context) ([]checkout.PaymentMethodConfig, error) {
	var resp ConfigurationResponse
	if err := c.do(ctx, http.MethodGet, c.BaseURL+"/client-session/configuration", nil, &resp); err != nil {
		return nil, err
	}
	return resp.ToConfigs(), nil
}

func (c *HTTPClient) Tokenize(ctx context.Context, req TokenizeRequest) (checkout.TokenData, error) {
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/payment-instruments", req, &resp); err != nil {
		return checkout.TokenData{}, err
	}
	return resp.ToTokenData(), nil
}

func (c *HTTPClient) ExchangeToken(ctx context.Context, req ExchangeTokenRequest) (checkout.TokenData, error) {
	var resp TokenResponse
	endpoint := fmt.Sprintf("%s/payment-instruments/%s/exchange", c.BaseURL, url.PathEscape(req.VaultedTokenID))
	if err := c.do(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return checkout.TokenData{}, err
	}
	return resp.ToTokenData(), nil
}

func (c *HTTPClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (checkout.Payment, error) {
	var resp PaymentResponse
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/payments", req, &resp); err != nil {
		return checkout.Payment{}, err
	}
	return resp.ToPayment(), nil
}

func (c *HTTPClient) ResumePayment(ctx context.Context, paymentID string, req ResumePaymentRequest) (checkout.Payment, error) {
	var resp PaymentResponse
	endpoint := fmt.Sprintf("%s/payments/%s/resume", c.BaseURL, url.PathEscape(paymentID))
	if err := c.do(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return checkout.Payment{}, err
	}
	return resp.ToPayment(), nil
}

func (c *HTTPClient) PollStatus(ctx context.Context, statusURL string) (PollResult, error) {
	var resp PollResult
	if err := c.do(ctx, http.MethodGet, statusURL, nil, &resp); err != nil {
		return PollResult{}, err
	}
	return resp, nil
}

func (c *HTTPClient) ListBanks(ctx context.Context, methodType string) ([]Bank, error) {
	var resp struct {
		Banks []Bank `json:"result"`
	}
	endpoint := fmt.Sprintf("%s/payment-methods/%s/banks", c.BaseURL, url.PathEscape(methodType))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Banks, nil
}

func (c *HTTPClient) DispatchActions(ctx context.Context, req ActionsRequest) (string, error) {
	var resp ActionsResponse
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/client-session/actions", req, &resp); err != nil {
		return "", err
	}
	return resp.ClientToken, nil
}

func (c *HTTPClient) CreateSession(ctx context.Context, req SessionRequest) (SessionResponse, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, c.BaseURL+"/sessions", req, &resp); err != nil {
		return SessionResponse{}, err
	}
	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body, out any) error {
	ctx, span := otel.Tracer("api.HTTPClient").Start(ctx, fmt.Sprintf("api.%s", method))
	defer span.End()
	span.SetAttributes(attribute.String("http.url", endpoint))

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		span.RecordError(err)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "checkout-sdk-go/1.0")
	if c.SessionToken != nil {
		if tok := c.SessionToken(); tok != "" {
			req.Header.Set(sessionTokenHeader, tok)
		}
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		span.RecordError(err)
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if resp.StatusCode >= 400 {
		apiErr := decodeError(resp.StatusCode, data)
		c.Logger.Warn().
			Str("method", method).
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("diagnostics_id", apiErr.DiagnosticsID).
			Msg("api_request_failed")
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) *Error {
	var wire struct {
		Error struct {
			Code          string `json:"code"`
			Message       string `json:"message"`
			DiagnosticsID string `json:"diagnosticsId"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &wire)
	msg := wire.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &Error{
		Status:        status,
		Code:          wire.Error.Code,
		Message:       msg,
		DiagnosticsID: wire.Error.DiagnosticsID,
	}
}
