package tokenization

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/internal/obs"
)

// Step performs the tokenization call for one flow attempt. A Step instance
// is single use: the second Tokenize or Exchange call on the same instance
// fails without touching the network.
type Step struct {
	Client     api.Client
	MethodType string
	Logger     zerolog.Logger

	mu       sync.Mutex
	consumed bool
}

// Tokenize validates the instrument and exchanges it for token data via
// exactly one API call.
func (s *Step) Tokenize(ctx context.Context, inst Instrument) (checkout.TokenData, error) {
	if err := s.consume(); err != nil {
		return checkout.TokenData{}, err
	}
	if err := ValidateInstrument(inst); err != nil {
		return checkout.TokenData{}, &checkout.ValidationError{Field: inst.InstrumentType(), Reason: err.Error()}
	}

	ctx, span := otel.Tracer("tokenization.Step").Start(ctx, "Step.Tokenize")
	defer span.End()

	data, err := s.Client.Tokenize(ctx, api.TokenizeRequest{PaymentInstrument: inst})
	if err != nil {
		obs.CountTokenization(s.MethodType, "error")
		span.RecordError(err)
		return checkout.TokenData{}, &checkout.TokenizationError{MethodType: s.MethodType, Err: err}
	}
	obs.CountTokenization(s.MethodType, "ok")
	s.Logger.Info().Str("method", s.MethodType).Str("instrument", inst.InstrumentType()).Msg("tokenized")
	return data, nil
}

// Exchange swaps a previously vaulted token for fresh token data, optionally
// with re-entered additional data such as a CVV.
func (s *Step) Exchange(ctx context.Context, vaultedTokenID string, additional map[string]string) (checkout.TokenData, error) {
	if err := s.consume(); err != nil {
		return checkout.TokenData{}, err
	}
	if vaultedTokenID == "" {
		return checkout.TokenData{}, &checkout.ValidationError{Field: "vaultedTokenId", Reason: "must not be empty"}
	}

	ctx, span := otel.Tracer("tokenization.Step").Start(ctx, "Step.Exchange")
	defer span.End()

	data, err := s.Client.ExchangeToken(ctx, api.ExchangeTokenRequest{
		VaultedTokenID: vaultedTokenID,
		AdditionalData: additional,
	})
	if err != nil {
		obs.CountTokenization(s.MethodType, "error")
		span.RecordError(err)
		return checkout.TokenData{}, &checkout.TokenizationError{MethodType: s.MethodType, Err: err}
	}
	obs.CountTokenization(s.MethodType, "ok")
	s.Logger.Info().Str("method", s.MethodType).Str("vaulted_token", vaultedTokenID).Msg("vaulted_token_exchanged")
	return data, nil
}

func (s *Step) consume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.consumed {
		return fmt.Errorf("tokenization: step already consumed for %s", s.MethodType)
	}
	s.consumed = true
	return nil
}
