package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Settings holds merchant-supplied SDK configuration. It is an explicit
// value threaded through every component, never a process-wide global.
type Settings struct {
	APIBaseURL      string
	ClientToken     string
	PaymentHandling PaymentHandling
	Intent          Intent
	Amount          int64
	CurrencyCode    string
	OrderID         string
	ReturnURL       string
	Locale          string

	RequestTimeout   time.Duration
	PollInterval     time.Duration
	PollMaxAttempts  int
	DecisionWatchdog time.Duration
}

// SettingsFromEnv reads settings from environment variables and optional
// .env files. Only the demo binary and integration harnesses use this; SDK
// embedders normally construct Settings directly.
func SettingsFromEnv() (Settings, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return Settings{}, fmt.Errorf("load env: %w", err)
	}

	s := Settings{
		APIBaseURL:       k.String("CHECKOUT_API_BASE_URL"),
		ClientToken:      k.String("CHECKOUT_CLIENT_TOKEN"),
		PaymentHandling:  PaymentHandling(valueOrDefault(k.String("CHECKOUT_PAYMENT_HANDLING"), string(HandlingAuto))),
		Intent:           Intent(valueOrDefault(k.String("CHECKOUT_INTENT"), string(IntentCheckout))),
		Amount:           k.Int64("CHECKOUT_AMOUNT"),
		CurrencyCode:     k.String("CHECKOUT_CURRENCY"),
		OrderID:          k.String("CHECKOUT_ORDER_ID"),
		ReturnURL:        k.String("CHECKOUT_RETURN_URL"),
		Locale:           valueOrDefault(k.String("CHECKOUT_LOCALE"), "en-US"),
		RequestTimeout:   parseDuration(k.String("CHECKOUT_REQUEST_TIMEOUT"), "30s"),
		PollInterval:     parseDuration(k.String("CHECKOUT_POLL_INTERVAL"), "1s"),
		PollMaxAttempts:  int(k.Int64("CHECKOUT_POLL_MAX_ATTEMPTS")),
		DecisionWatchdog: parseDuration(k.String("CHECKOUT_DECISION_WATCHDOG"), "5s"),
	}
	return s.WithDefaults(), s.Validate()
}

// WithDefaults fills zero-valued tunables with their defaults.
func (s Settings) WithDefaults() Settings {
	if s.PaymentHandling == "" {
		s.PaymentHandling = HandlingAuto
	}
	if s.Intent == "" {
		s.Intent = IntentCheckout
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = 30 * time.Second
	}
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
	if s.PollMaxAttempts <= 0 {
		s.PollMaxAttempts = 180
	}
	if s.DecisionWatchdog <= 0 {
		s.DecisionWatchdog = 5 * time.Second
	}
	if s.Locale == "" {
		s.Locale = "en-US"
	}
	return s
}

// Validate checks the fields every flow requires before any network call.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.APIBaseURL) == "" {
		return errors.New("CHECKOUT_API_BASE_URL is required")
	}
	if strings.TrimSpace(s.ClientToken) == "" {
		return errors.New("CHECKOUT_CLIENT_TOKEN is required")
	}
	if s.Intent == IntentCheckout {
		if s.Amount <= 0 {
			return errors.New("CHECKOUT_AMOUNT must be positive for checkout intent")
		}
		if strings.TrimSpace(s.CurrencyCode) == "" {
			return errors.New("CHECKOUT_CURRENCY is required for checkout intent")
		}
	}
	return nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
