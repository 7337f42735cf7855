// checkout-demo runs one end-to-end checkout attempt against a sandbox
// payments backend using the headless test method. It exists to verify
// wiring: settings, client token decoding, configuration fetch, the full
// tokenization/payment cycle, and terminal reporting.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/internal/obs"
	"github.com/corepay/checkout-sdk-go/methods"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/rs/zerolog"
)

func main() {
	settings, err := checkout.SettingsFromEnv()
	logFormat := envOrDefault("OBS_LOG_FORMAT", "console")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("app", "checkout-demo").Logger()
	if err != nil {
		logger.Fatal().Err(err).Msg("load settings")
	}

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "checkout"), nil)
	if addr := os.Getenv("OBS_METRICS_ADDR"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if envBool("OBS_ENABLE_TRACING", false) {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "checkout-demo",
			Endpoint:      os.Getenv("OBS_OTLP_ENDPOINT"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   envOrDefault("APP_ENV", "sandbox"),
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	tokens, err := clienttoken.NewStore(settings.ClientToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("decode client token")
	}

	client := api.NewHTTPClient(settings.APIBaseURL, func() string {
		tok, _ := tokens.Current()
		return tok.Raw
	}, settings.RequestTimeout, logger)

	configs := &session.ConfigCache{}
	if err := configs.Refresh(ctx, client); err != nil {
		logger.Fatal().Err(err).Msg("fetch configuration")
	}
	logger.Info().Int("methods", len(configs.All())).Msg("configuration loaded")

	deps := methods.Deps{
		Session:   session.Context{Settings: settings, Tokens: tokens, Configs: configs},
		Client:    client,
		Actions:   &session.Actions{Client: client, Tokens: tokens, Configs: configs, Logger: logger},
		Presenter: consolePresenter{logger: logger},
		Delegate:  loggingDelegate{logger: logger},
		Logger:    logger,
	}

	orch := flow.NewOrchestrator(methods.NewMock(deps))
	data, err := orch.Start(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("checkout attempt failed")
	}
	if data != nil && data.Payment != nil {
		logger.Info().
			Str("payment_id", data.Payment.ID).
			Str("status", string(data.Payment.Status)).
			Msg("checkout attempt finished")
	}
}

// consolePresenter satisfies the presentation contract with log lines.
type consolePresenter struct {
	logger zerolog.Logger
}

func (p consolePresenter) Present(_ context.Context, methodType string) error {
	p.logger.Info().Str("method", methodType).Msg("present")
	return nil
}

func (p consolePresenter) Dismiss(context.Context) error {
	p.logger.Info().Msg("dismiss")
	return nil
}

func (p consolePresenter) ShowLoading(context.Context) error {
	p.logger.Info().Msg("loading")
	return nil
}

func (p consolePresenter) EnableInteraction(enabled bool) {}

func (p consolePresenter) ShowResult(_ context.Context, success bool, message string) error {
	p.logger.Info().Bool("success", success).Str("message", message).Msg("result")
	return nil
}

// loggingDelegate accepts everything and logs lifecycle callbacks.
type loggingDelegate struct {
	logger zerolog.Logger
}

func (d loggingDelegate) WillCreatePayment(data checkout.PaymentMethodData) checkout.CreateDecision {
	d.logger.Info().Str("method", data.Type).Msg("will create payment")
	return checkout.ContinuePayment()
}

func (d loggingDelegate) DidTokenize(data checkout.TokenData) checkout.ResumeDecision {
	d.logger.Info().Str("instrument", data.InstrumentType).Msg("tokenized")
	return checkout.Succeed()
}

func (d loggingDelegate) DidResume(resumeToken string) checkout.ResumeDecision {
	d.logger.Info().Msg("resumed")
	return checkout.Succeed()
}

func (d loggingDelegate) DidFail(err error, data *checkout.CheckoutData) string {
	d.logger.Error().Err(err).Msg("checkout failed")
	return ""
}

func (d loggingDelegate) DidCompleteCheckout(data checkout.CheckoutData) {
	if data.Payment != nil {
		d.logger.Info().Str("payment_id", data.Payment.ID).Msg("checkout complete")
	}
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
