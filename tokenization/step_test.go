package tokenization_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

type tokenizeClient struct {
	api.Client

	mu       sync.Mutex
	calls    int
	lastReq  api.TokenizeRequest
	response checkout.TokenData
	err      error
}

func (c *tokenizeClient) Tokenize(ctx context.Context, req api.TokenizeRequest) (checkout.TokenData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastReq = req
	return c.response, c.err
}

func (c *tokenizeClient) ExchangeToken(ctx context.Context, req api.ExchangeTokenRequest) (checkout.TokenData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.response, c.err
}

func validCard() tokenization.CardInstrument {
	return tokenization.CardInstrument{
		Number:          "4242424242424242",
		ExpirationMonth: "12",
		ExpirationYear:  "2030",
		CVV:             "123",
		CardholderName:  "J Doe",
	}
}

func TestTokenizeHappyPath(t *testing.T) {
	client := &tokenizeClient{response: checkout.TokenData{Token: "tok_abc", InstrumentType: "PAYMENT_CARD", Last4: "4242"}}
	step := &tokenization.Step{Client: client, MethodType: "PAYMENT_CARD", Logger: zerolog.Nop()}

	data, err := step.Tokenize(context.Background(), validCard())
	require.NoError(t, err)
	require.Equal(t, "tok_abc", data.Token)
	require.Equal(t, "4242", data.Last4)
	require.Equal(t, 1, client.calls)
}

func TestTokenizeValidatesBeforeNetwork(t *testing.T) {
	client := &tokenizeClient{}
	step := &tokenization.Step{Client: client, MethodType: "PAYMENT_CARD", Logger: zerolog.Nop()}

	card := validCard()
	card.CVV = "x"
	_, err := step.Tokenize(context.Background(), card)

	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, client.calls, "invalid instrument must not reach the API")
}

func TestTokenizeIsSingleUse(t *testing.T) {
	client := &tokenizeClient{response: checkout.TokenData{Token: "tok_abc"}}
	step := &tokenization.Step{Client: client, MethodType: "PAYMENT_CARD", Logger: zerolog.Nop()}

	_, err := step.Tokenize(context.Background(), validCard())
	require.NoError(t, err)

	_, err = step.Tokenize(context.Background(), validCard())
	require.Error(t, err)
	require.Equal(t, 1, client.calls, "second call must not hit the API")
}

func TestTokenizeWrapsAPIFailures(t *testing.T) {
	apiErr := &api.Error{Status: 422, Code: "INVALID_CARD", Message: "rejected"}
	client := &tokenizeClient{err: apiErr}
	step := &tokenization.Step{Client: client, MethodType: "PAYMENT_CARD", Logger: zerolog.Nop()}

	_, err := step.Tokenize(context.Background(), validCard())

	var terr *checkout.TokenizationError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "PAYMENT_CARD", terr.MethodType)
	require.True(t, errors.Is(err, apiErr))
}

func TestExchangeRequiresVaultedTokenID(t *testing.T) {
	client := &tokenizeClient{}
	step := &tokenization.Step{Client: client, MethodType: "PAYMENT_CARD", Logger: zerolog.Nop()}

	_, err := step.Exchange(context.Background(), "", nil)

	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, client.calls)
}

func TestExchangeSharesTheSingleUseBudget(t *testing.T) {
	client := &tokenizeClient{response: checkout.TokenData{Token: "tok_abc"}}
	step := &tokenization.Step{Client: client, MethodType: "PAYMENT_CARD", Logger: zerolog.Nop()}

	_, err := step.Exchange(context.Background(), "vault_1", map[string]string{"cvv": "123"})
	require.NoError(t, err)

	_, err = step.Tokenize(context.Background(), validCard())
	require.Error(t, err)
	require.Equal(t, 1, client.calls)
}

func TestInstrumentValidationVariants(t *testing.T) {
	require.NoError(t, tokenization.ValidateInstrument(tokenization.BankInstrument{
		MethodType: "IDEAL", ConfigID: "cfg_1", BankID: "bank_1",
	}))
	require.Error(t, tokenization.ValidateInstrument(tokenization.BankInstrument{
		MethodType: "IDEAL", ConfigID: "cfg_1",
	}))
	require.Error(t, tokenization.ValidateInstrument(tokenization.WalletInstrument{MethodType: "APPLE_PAY"}))
	require.Error(t, tokenization.ValidateInstrument(tokenization.KlarnaInstrument{AuthorizationToken: "auth"}))
}
