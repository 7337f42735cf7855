// Package flow implements the tokenization/payment lifecycle state machine
// and the orchestrator that drives the create/required-action/resume cycle
// against the payments API. Payment methods plug in through a fixed set of
// lifecycle hooks rather than subclassing: each method supplies closures
// for instrument building, UI presentation and required-action handling.
package flow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/polling"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// State is the lifecycle state of one payment attempt.
type State string

const (
	StateIdle             State = "IDLE"
	StateValidating       State = "VALIDATING"
	StatePreTokenization  State = "PRE_TOKENIZATION"
	StateTokenizing       State = "TOKENIZING"
	StatePostTokenization State = "POST_TOKENIZATION"
	StateAwaitingPayment  State = "AWAITING_PAYMENT"
	StateAwaitingAction   State = "AWAITING_REQUIRED_ACTION"
	StateResuming         State = "RESUMING"
	StateSucceeded        State = "SUCCEEDED"
	StateFailed           State = "FAILED"
	StateCancelled        State = "CANCELLED"
)

// The required-action intents the default handler understands.
const (
	IntentThreeDSAuth = "3DS_AUTHENTICATION"
)

// Presenter is the presentation surface collaborator. Opaque to the core:
// presentation is async and dismissable, nothing more is assumed.
type Presenter interface {
	Present(ctx context.Context, methodType string) error
	Dismiss(ctx context.Context) error
	ShowLoading(ctx context.Context) error
	EnableInteraction(enabled bool)
	ShowResult(ctx context.Context, success bool, message string) error
}

// EventNotifier receives fire-and-forget lifecycle notifications. Calls
// must return promptly; a panicking notifier never fails the flow.
type EventNotifier interface {
	TokenizationStarted(methodType string)
	TokenizationFinished(methodType string, err error)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) TokenizationStarted(string)         {}
func (NopNotifier) TokenizationFinished(string, error) {}

// ThreeDSAuthenticator sequences a 3-D Secure step-up. The concrete
// challenge UI belongs to the collaborator; the flow only needs the
// resulting resume token.
type ThreeDSAuthenticator interface {
	Authenticate(ctx context.Context, token clienttoken.Decoded) (string, error)
}

// Hooks are the per-method lifecycle extension points. Only MethodType and
// BuildInstrument are mandatory; nil hooks fall back to defaults.
type Hooks struct {
	MethodType string
	Category   checkout.MethodCategory

	// Validate runs extra method-specific precondition checks.
	Validate func(sctx session.Context) error

	// BuildInstrument produces the instrument consumed by tokenization.
	BuildInstrument func(ctx context.Context, sctx session.Context) (tokenization.Instrument, error)

	// VaultedTokenID, when set, switches the tokenization step to a
	// vaulted-token exchange; BuildInstrument is not consulted.
	// VaultedAdditionalData carries re-entered fields such as a CVV.
	VaultedTokenID        string
	VaultedAdditionalData map[string]string

	// PresentUI shows the method's capture surface before tokenization.
	PresentUI func(ctx context.Context) error

	// AwaitUserInput blocks until the user completed the capture surface.
	AwaitUserInput func(ctx context.Context) error

	// DecodeRequiredAction handles a freshly decoded client token and
	// returns the resume token, or "" when the payment needs no further
	// step. When nil the flow falls back to the default 3DS handling.
	DecodeRequiredAction func(ctx context.Context, token clienttoken.Decoded, f *Flow) (string, error)

	// PostTokenization runs method-specific cleanup after tokenization.
	PostTokenization func(ctx context.Context) error
}

// Flow is the per-attempt state machine. One Flow runs at most one attempt;
// re-entry while an attempt is in flight is rejected.
type Flow struct {
	Session   session.Context
	Client    api.Client
	Actions   *session.Actions
	Presenter Presenter
	Notifier  EventNotifier
	Delegate  checkout.HostDelegate
	ThreeDS   ThreeDSAuthenticator
	Hooks     Hooks
	Logger    zerolog.Logger

	mu          sync.Mutex
	state       State
	running     bool
	cancelled   bool
	cancelCause error
	cancellers  []func(error)

	attemptID      string
	tokenData      *checkout.TokenData
	additionalInfo *checkout.AdditionalInfo
}

// New constructs a Flow around the given hooks and collaborators.
func New(sctx session.Context, client api.Client, hooks Hooks, logger zerolog.Logger) *Flow {
	f := &Flow{
		Session:   sctx,
		Client:    client,
		Hooks:     hooks,
		Notifier:  NopNotifier{},
		Logger:    logger.With().Str("method", hooks.MethodType).Logger(),
		state:     StateIdle,
		attemptID: uuid.NewString(),
	}
	return f
}

// State returns the current lifecycle state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// TokenData returns the token produced by the current attempt, if any.
func (f *Flow) TokenData() *checkout.TokenData {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tokenData
}

// SetAdditionalInfo records method-specific completion details (voucher
// reference, QR payload) for inclusion in the terminal CheckoutData.
func (f *Flow) SetAdditionalInfo(info *checkout.AdditionalInfo) {
	f.mu.Lock()
	f.additionalInfo = info
	f.mu.Unlock()
}

// AdditionalInfo returns recorded completion details, if any.
func (f *Flow) AdditionalInfo() *checkout.AdditionalInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.additionalInfo
}

// Cancel requests cancellation. Safe from any state and from any
// goroutine: the flag is observed before every subsequent continuation, any
// registered waiter (e.g. an in-flight poll) is rejected immediately, and a
// cancellation requested before terminal resolution wins over a late
// success.
func (f *Flow) Cancel() {
	cause := &checkout.CancelledError{MethodType: f.Hooks.MethodType}
	f.mu.Lock()
	if f.cancelled {
		f.mu.Unlock()
		return
	}
	f.cancelled = true
	f.cancelCause = cause
	cancellers := f.cancellers
	f.cancellers = nil
	f.mu.Unlock()

	f.Logger.Info().Str("attempt", f.attemptID).Msg("flow_cancel_requested")
	for _, cancel := range cancellers {
		cancel(cause)
	}
}

// Validate performs the synchronous precondition check: a valid decoded
// session token, required settings, a known method configuration, and
// intent compatibility. It never mutates state and never touches the
// network.
func (f *Flow) Validate() error {
	tok, ok := f.Session.Token()
	if !ok || !tok.Valid() {
		return &checkout.ValidationError{Field: "clientToken", Reason: "missing or expired session token"}
	}
	if err := f.Session.Settings.Validate(); err != nil {
		return &checkout.ValidationError{Field: "settings", Reason: err.Error()}
	}
	cfg, ok := f.Session.Configs.Lookup(f.Hooks.MethodType)
	if !ok {
		return &checkout.ValidationError{Field: "paymentMethodConfig", Reason: "no configuration for " + f.Hooks.MethodType}
	}
	if f.Session.Settings.Intent == checkout.IntentVault && cfg.Category == checkout.CategoryWallet {
		return &checkout.ValidationError{Field: "intent", Reason: "wallet methods cannot be vaulted"}
	}
	if f.Hooks.Validate != nil {
		if err := f.Hooks.Validate(f.Session); err != nil {
			return err
		}
	}
	return nil
}

// PerformPreTokenizationSteps selects the method on the session, fires the
// willCreatePayment veto hook, and presents the capture UI when the method
// needs user interaction. If cancellation arrives mid-way any presented UI
// is unwound before the cancellation error is returned.
func (f *Flow) PerformPreTokenizationSteps(ctx context.Context) error {
	if err := f.checkCancelled(); err != nil {
		return err
	}
	if f.Actions != nil {
		if err := f.Actions.SelectPaymentMethod(ctx, f.Hooks.MethodType, nil); err != nil {
			return err
		}
	}
	if f.Session.Settings.Intent == checkout.IntentCheckout {
		if err := f.fireWillCreatePayment(); err != nil {
			return err
		}
	}
	if err := f.checkCancelled(); err != nil {
		return err
	}

	presented := false
	if f.Hooks.PresentUI != nil {
		if err := f.Hooks.PresentUI(ctx); err != nil {
			return err
		}
		presented = true
	}
	if f.Hooks.AwaitUserInput != nil {
		if err := f.Hooks.AwaitUserInput(ctx); err != nil {
			if presented && f.Presenter != nil {
				_ = f.Presenter.Dismiss(ctx)
			}
			return err
		}
	}
	if err := f.checkCancelled(); err != nil {
		if presented && f.Presenter != nil {
			_ = f.Presenter.Dismiss(ctx)
		}
		return err
	}
	return nil
}

// PerformTokenizationStep invokes the tokenization step exactly once and
// stores the resulting token data. Freshly captured instruments are
// tokenized; a configured vaulted token is exchanged instead. The
// started/finished notifications fire around the step and can neither
// block nor fail it.
func (f *Flow) PerformTokenizationStep(ctx context.Context) error {
	if err := f.checkCancelled(); err != nil {
		return err
	}
	if f.Hooks.BuildInstrument == nil && f.Hooks.VaultedTokenID == "" {
		return &checkout.ValidationError{Field: "hooks", Reason: "method supplies no instrument builder"}
	}

	f.safeNotify(func() { f.Notifier.TokenizationStarted(f.Hooks.MethodType) })

	step := &tokenization.Step{Client: f.Client, MethodType: f.Hooks.MethodType, Logger: f.Logger}
	var (
		data checkout.TokenData
		err  error
	)
	if f.Hooks.VaultedTokenID != "" {
		data, err = step.Exchange(ctx, f.Hooks.VaultedTokenID, f.Hooks.VaultedAdditionalData)
	} else {
		var instrument tokenization.Instrument
		instrument, err = f.Hooks.BuildInstrument(ctx, f.Session)
		if err != nil {
			f.safeNotify(func() { f.Notifier.TokenizationFinished(f.Hooks.MethodType, err) })
			return err
		}
		data, err = step.Tokenize(ctx, instrument)
	}
	f.safeNotify(func() { f.Notifier.TokenizationFinished(f.Hooks.MethodType, err) })
	if err != nil {
		return err
	}
	if cerr := f.checkCancelled(); cerr != nil {
		return cerr
	}

	f.mu.Lock()
	f.tokenData = &data
	f.mu.Unlock()
	return nil
}

// PerformPostTokenizationSteps runs method-specific cleanup. Default is a
// no-op success; on an already-terminal flow it does nothing at all, so a
// stray call cannot re-invoke tokenization or mutate the stored token.
func (f *Flow) PerformPostTokenizationSteps(ctx context.Context) error {
	switch f.State() {
	case StateSucceeded, StateFailed, StateCancelled:
		return nil
	}
	if f.Hooks.PostTokenization == nil {
		return nil
	}
	return f.Hooks.PostTokenization(ctx)
}

// StartTokenizationFlow sequences validate → pre-tokenization →
// tokenization → post-tokenization. Any failure short-circuits; an
// explicit cancellation takes priority over a late success.
func (f *Flow) StartTokenizationFlow(ctx context.Context) (checkout.TokenData, error) {
	if err := f.enter(); err != nil {
		return checkout.TokenData{}, err
	}
	ctx, span := otel.Tracer("flow.Flow").Start(ctx, "Flow.StartTokenizationFlow")
	defer span.End()
	span.SetAttributes(attribute.String("payment.method", f.Hooks.MethodType))

	f.setState(StateValidating)
	if err := f.Validate(); err != nil {
		return checkout.TokenData{}, f.finish(err)
	}

	f.setState(StatePreTokenization)
	if err := f.PerformPreTokenizationSteps(ctx); err != nil {
		return checkout.TokenData{}, f.finish(err)
	}

	f.setState(StateTokenizing)
	if err := f.PerformTokenizationStep(ctx); err != nil {
		return checkout.TokenData{}, f.finish(err)
	}

	f.setState(StatePostTokenization)
	if err := f.PerformPostTokenizationSteps(ctx); err != nil {
		return checkout.TokenData{}, f.finish(err)
	}

	if err := f.checkCancelled(); err != nil {
		return checkout.TokenData{}, f.finish(err)
	}
	f.exit()
	return *f.TokenData(), nil
}

// HandleDecodedClientTokenIfNeeded decides whether a freshly decoded client
// token demands a further step. It returns the resume token, or "" when the
// payment is already complete. Methods override the behaviour through the
// DecodeRequiredAction hook; the default understands only the 3DS intent.
func (f *Flow) HandleDecodedClientTokenIfNeeded(ctx context.Context, token clienttoken.Decoded) (string, error) {
	if err := f.checkCancelled(); err != nil {
		return "", err
	}
	f.setState(StateAwaitingAction)

	if f.Hooks.DecodeRequiredAction != nil {
		return f.Hooks.DecodeRequiredAction(ctx, token, f)
	}
	if token.Intent == IntentThreeDSAuth {
		if f.ThreeDS == nil {
			return "", &checkout.RequiredActionError{MethodType: f.Hooks.MethodType, Missing: "3DS authenticator"}
		}
		return f.ThreeDS.Authenticate(ctx, token)
	}
	return "", &checkout.RequiredActionError{MethodType: f.Hooks.MethodType, Missing: "handler for intent " + token.Intent}
}

// Poll runs the polling engine against statusURL with the flow's tunables,
// wiring cancellation so Cancel rejects the wait immediately.
func (f *Flow) Poll(ctx context.Context, statusURL string) (string, error) {
	engine := polling.New(f.Client, f.Session.Settings.PollInterval, f.Session.Settings.PollMaxAttempts, f.Logger)
	unregister, err := f.registerCanceller(func(cause error) { engine.Cancel(cause) })
	if err != nil {
		return "", err
	}
	defer unregister()
	return engine.Start(ctx, statusURL)
}

// --- internals ---

func (f *Flow) enter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return errors.New("flow: attempt already in flight")
	}
	switch f.state {
	case StateSucceeded, StateFailed, StateCancelled:
		return errors.New("flow: attempt already terminal; build a new flow")
	}
	f.running = true
	return nil
}

func (f *Flow) exit() {
	f.mu.Lock()
	f.running = false
	f.mu.Unlock()
}

// finish resolves the tokenization sub-flow to a terminal-ish state for the
// failed/cancelled cases. Success states are only set by the orchestrator
// once the payment cycle completes.
func (f *Flow) finish(err error) error {
	f.exit()
	// cancellation wins over whatever error the losing step produced
	if cause := f.cancellationCause(); cause != nil {
		f.setState(StateCancelled)
		return cause
	}
	if checkout.IsCancelled(err) {
		f.setState(StateCancelled)
		return err
	}
	f.setState(StateFailed)
	return err
}

func (f *Flow) cancellationCause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.cancelled {
		return nil
	}
	if f.cancelCause != nil {
		return f.cancelCause
	}
	return &checkout.CancelledError{MethodType: f.Hooks.MethodType}
}

func (f *Flow) checkCancelled() error {
	return f.cancellationCause()
}

func (f *Flow) setState(next State) {
	f.mu.Lock()
	prev := f.state
	f.state = next
	f.mu.Unlock()
	f.Logger.Debug().
		Str("attempt", f.attemptID).
		Str("from_state", string(prev)).
		Str("to_state", string(next)).
		Msg("flow_state")
}

// registerCanceller adds a waiter rejected on Cancel. If cancellation has
// already been requested the waiter is not registered and the cause is
// returned directly.
func (f *Flow) registerCanceller(cancel func(error)) (func(), error) {
	f.mu.Lock()
	if f.cancelled {
		cause := f.cancelCause
		f.mu.Unlock()
		if cause == nil {
			cause = &checkout.CancelledError{MethodType: f.Hooks.MethodType}
		}
		return func() {}, cause
	}
	f.cancellers = append(f.cancellers, cancel)
	idx := len(f.cancellers) - 1
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		if idx < len(f.cancellers) {
			f.cancellers[idx] = func(error) {}
		}
		f.mu.Unlock()
	}, nil
}

func (f *Flow) safeNotify(fn func()) {
	if f.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.Logger.Warn().Interface("panic", r).Msg("event_notifier_panic")
		}
	}()
	fn()
}

// fireWillCreatePayment asks the host for permission to create a payment.
// A watchdog logs a warning if the host's decision takes longer than the
// configured interval; it never resolves on the host's behalf.
func (f *Flow) fireWillCreatePayment() error {
	if f.Delegate == nil {
		return nil
	}
	decision := awaitWithWatchdog(f.Logger, "WillCreatePayment", f.Session.Settings.DecisionWatchdog, func() checkout.CreateDecision {
		return f.Delegate.WillCreatePayment(checkout.PaymentMethodData{Type: f.Hooks.MethodType})
	})
	if decision.Abort {
		return &checkout.MerchantDecisionError{Message: decision.Message}
	}
	return nil
}

// awaitWithWatchdog invokes call and waits for its result, logging a
// warning each time the watchdog interval elapses without an answer.
func awaitWithWatchdog[T any](logger zerolog.Logger, name string, interval time.Duration, call func() T) T {
	if interval <= 0 {
		return call()
	}
	done := make(chan T, 1)
	go func() { done <- call() }()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case v := <-done:
			return v
		case <-ticker.C:
			logger.Warn().
				Str("decision", name).
				Dur("waited", interval).
				Msg("decision_handler_not_called")
		}
	}
}
