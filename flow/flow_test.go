package flow_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

const testMethod = "TEST_METHOD"

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("sig"))
}

// fakeClient is a scriptable payments API double shared by the flow and
// orchestrator tests.
type fakeClient struct {
	api.Client

	mu sync.Mutex

	tokenizeCalls int
	tokenizeErr   error

	createCalls    int
	createResponse checkout.Payment
	createErr      error

	resumeCalls     int
	resumeID        string
	resumeResponses []checkout.Payment

	pollResults []api.PollResult
	pollCalls   int

	actions []api.SessionAction
}

func (c *fakeClient) Tokenize(ctx context.Context, req api.TokenizeRequest) (checkout.TokenData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenizeCalls++
	if c.tokenizeErr != nil {
		return checkout.TokenData{}, c.tokenizeErr
	}
	return checkout.TokenData{Token: "tok_1", InstrumentType: "OFF_SESSION_PAYMENT"}, nil
}

func (c *fakeClient) CreatePayment(ctx context.Context, req api.CreatePaymentRequest) (checkout.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createCalls++
	return c.createResponse, c.createErr
}

func (c *fakeClient) ResumePayment(ctx context.Context, paymentID string, req api.ResumePaymentRequest) (checkout.Payment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumeID = paymentID
	idx := c.resumeCalls
	c.resumeCalls++
	if idx < len(c.resumeResponses) {
		return c.resumeResponses[idx], nil
	}
	return checkout.Payment{ID: paymentID, Status: checkout.StatusSuccess}, nil
}

func (c *fakeClient) PollStatus(ctx context.Context, statusURL string) (api.PollResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.pollCalls
	c.pollCalls++
	if idx < len(c.pollResults) {
		return c.pollResults[idx], nil
	}
	return api.PollResult{Status: api.PollComplete, ID: "resume_poll"}, nil
}

func (c *fakeClient) DispatchActions(ctx context.Context, req api.ActionsRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, req.Actions...)
	return "", nil
}

func (c *fakeClient) dispatched(actionType string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, a := range c.actions {
		if a.Type == actionType {
			return true
		}
	}
	return false
}

func newSession(t *testing.T, intent checkout.Intent, handling checkout.PaymentHandling) session.Context {
	t.Helper()
	raw := makeToken(t, map[string]any{
		"intent": "CHECKOUT",
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	tokens, err := clienttoken.NewStore(raw)
	require.NoError(t, err)

	configs := &session.ConfigCache{}
	configs.Seed([]checkout.PaymentMethodConfig{
		{ID: "cfg_1", Type: testMethod, Name: "Test Method", Category: checkout.CategoryNative},
	})

	settings := checkout.Settings{
		APIBaseURL:      "https://api.example.com",
		ClientToken:     raw,
		PaymentHandling: handling,
		Intent:          intent,
		Amount:          1000,
		CurrencyCode:    "EUR",
		PollInterval:    time.Millisecond,
		PollMaxAttempts: 20,
	}.WithDefaults()

	return session.Context{Settings: settings, Tokens: tokens, Configs: configs}
}

func basicHooks() flow.Hooks {
	return flow.Hooks{
		MethodType: testMethod,
		Category:   checkout.CategoryNative,
		BuildInstrument: func(_ context.Context, _ session.Context) (tokenization.Instrument, error) {
			return tokenization.OffSessionInstrument{MethodType: testMethod, ConfigID: "cfg_1"}, nil
		},
	}
}

type recordingNotifier struct {
	mu       sync.Mutex
	started  int
	finished int
	lastErr  error
}

func (n *recordingNotifier) TokenizationStarted(string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started++
}

func (n *recordingNotifier) TokenizationFinished(_ string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.finished++
	n.lastErr = err
}

type panickyNotifier struct{}

func (panickyNotifier) TokenizationStarted(string)         { panic("notifier exploded") }
func (panickyNotifier) TokenizationFinished(string, error) { panic("notifier exploded") }

func TestStartTokenizationFlowHappyPath(t *testing.T) {
	client := &fakeClient{}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())

	data, err := f.StartTokenizationFlow(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok_1", data.Token)
	require.Equal(t, 1, client.tokenizeCalls)
	require.Equal(t, flow.StatePostTokenization, f.State())
}

func TestTokenizationHappensExactlyOnce(t *testing.T) {
	client := &fakeClient{}
	release := make(chan struct{})
	entered := make(chan struct{})

	hooks := basicHooks()
	hooks.AwaitUserInput = func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, hooks, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := f.StartTokenizationFlow(context.Background())
		done <- err
	}()
	<-entered

	// a second attempt on the same flow is rejected without side effects
	_, err := f.StartTokenizationFlow(context.Background())
	require.Error(t, err)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, client.tokenizeCalls)
}

func TestTerminalFlowRejectsRestart(t *testing.T) {
	client := &fakeClient{}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())
	f.Cancel()

	_, err := f.StartTokenizationFlow(context.Background())
	require.True(t, checkout.IsCancelled(err))

	_, err = f.StartTokenizationFlow(context.Background())
	require.Error(t, err)
	require.Zero(t, client.tokenizeCalls)
}

func TestCancelDuringUserInputSkipsTokenization(t *testing.T) {
	client := &fakeClient{}
	hooks := basicHooks()
	var f *flow.Flow
	hooks.AwaitUserInput = func(ctx context.Context) error {
		f.Cancel()
		return nil
	}
	f = flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, hooks, zerolog.Nop())

	_, err := f.StartTokenizationFlow(context.Background())
	require.True(t, checkout.IsCancelled(err), "got %v", err)
	require.Zero(t, client.tokenizeCalls)
	require.Equal(t, flow.StateCancelled, f.State())
}

func TestCancellationWinsOverLateSuccess(t *testing.T) {
	client := &fakeClient{}
	hooks := basicHooks()
	var f *flow.Flow
	// cancellation lands after tokenization already succeeded
	hooks.PostTokenization = func(ctx context.Context) error {
		f.Cancel()
		return nil
	}
	f = flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, hooks, zerolog.Nop())

	_, err := f.StartTokenizationFlow(context.Background())
	require.True(t, checkout.IsCancelled(err), "got %v", err)
	require.Equal(t, 1, client.tokenizeCalls)
	require.Equal(t, flow.StateCancelled, f.State())
}

func TestValidateRejectsUnknownMethod(t *testing.T) {
	client := &fakeClient{}
	hooks := basicHooks()
	hooks.MethodType = "UNKNOWN_METHOD"
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, hooks, zerolog.Nop())

	_, err := f.StartTokenizationFlow(context.Background())
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Zero(t, client.tokenizeCalls)
}

func TestValidateRejectsWalletVaulting(t *testing.T) {
	sctx := newSession(t, checkout.IntentVault, checkout.HandlingAuto)
	sctx.Configs.Seed([]checkout.PaymentMethodConfig{
		{ID: "cfg_1", Type: testMethod, Category: checkout.CategoryWallet},
	})
	f := flow.New(sctx, &fakeClient{}, basicHooks(), zerolog.Nop())

	_, err := f.StartTokenizationFlow(context.Background())
	var verr *checkout.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "intent", verr.Field)
}

func TestNotifierFiresAroundTokenization(t *testing.T) {
	notifier := &recordingNotifier{}
	client := &fakeClient{}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())
	f.Notifier = notifier

	_, err := f.StartTokenizationFlow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, notifier.started)
	require.Equal(t, 1, notifier.finished)
	require.NoError(t, notifier.lastErr)
}

func TestNotifierReceivesTokenizationError(t *testing.T) {
	notifier := &recordingNotifier{}
	client := &fakeClient{tokenizeErr: &api.Error{Status: 422, Message: "rejected"}}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())
	f.Notifier = notifier

	_, err := f.StartTokenizationFlow(context.Background())
	var terr *checkout.TokenizationError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, 1, notifier.started)
	require.Equal(t, 1, notifier.finished)
	require.Error(t, notifier.lastErr)
}

func TestPanickingNotifierDoesNotFailTheFlow(t *testing.T) {
	client := &fakeClient{}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())
	f.Notifier = panickyNotifier{}

	data, err := f.StartTokenizationFlow(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tok_1", data.Token)
}

func TestWillCreatePaymentVeto(t *testing.T) {
	client := &fakeClient{}
	f := flow.New(newSession(t, checkout.IntentCheckout, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())
	f.Delegate = &fakeDelegate{
		willCreate: func(checkout.PaymentMethodData) checkout.CreateDecision {
			return checkout.AbortPayment("out of stock")
		},
	}

	_, err := f.StartTokenizationFlow(context.Background())
	var merr *checkout.MerchantDecisionError
	require.ErrorAs(t, err, &merr)
	require.Equal(t, "out of stock", merr.Message)
	require.Zero(t, client.tokenizeCalls)
}

func TestVaultIntentSkipsWillCreatePayment(t *testing.T) {
	client := &fakeClient{}
	called := false
	f := flow.New(newSession(t, checkout.IntentVault, checkout.HandlingAuto), client, basicHooks(), zerolog.Nop())
	f.Delegate = &fakeDelegate{
		willCreate: func(checkout.PaymentMethodData) checkout.CreateDecision {
			called = true
			return checkout.ContinuePayment()
		},
	}

	_, err := f.StartTokenizationFlow(context.Background())
	require.NoError(t, err)
	require.False(t, called, "vault intent must not ask about payment creation")
}
