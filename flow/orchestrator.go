package flow

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/internal/obs"
)

// Orchestrator drives one complete checkout attempt around a Flow: the
// tokenization sub-flow, the create/required-action/resume payment cycle,
// and terminal reporting to the host. Payment handling duality lives here:
// in manual mode the host's DidTokenize/DidResume decisions steer the
// cycle, in auto mode the orchestrator calls the payments API itself.
type Orchestrator struct {
	flow *Flow

	resumePaymentID string
	paymentData     *checkout.CheckoutData
}

// NewOrchestrator wraps a flow for a full checkout run.
func NewOrchestrator(f *Flow) *Orchestrator {
	return &Orchestrator{flow: f}
}

// Flow exposes the underlying flow, e.g. for cancellation.
func (o *Orchestrator) Flow() *Flow { return o.flow }

// Start runs the attempt end to end and reports the terminal outcome
// exactly once: DidCompleteCheckout or the failure pipeline, plus a result
// surface on every exit path.
func (o *Orchestrator) Start(ctx context.Context) (*checkout.CheckoutData, error) {
	started := time.Now()
	ctx, span := otel.Tracer("flow.Orchestrator").Start(ctx, "Orchestrator.Start")
	defer span.End()
	span.SetAttributes(
		attribute.String("payment.method", o.flow.Hooks.MethodType),
		attribute.String("payment.handling", string(o.flow.Session.Settings.PaymentHandling)),
	)

	if p := o.flow.Presenter; p != nil {
		p.EnableInteraction(false)
		defer p.EnableInteraction(true)
	}

	tokenData, err := o.flow.StartTokenizationFlow(ctx)
	if err != nil {
		return nil, o.reportFailure(ctx, err, started)
	}

	if o.flow.Session.Settings.Intent == checkout.IntentVault {
		return o.finishVault(ctx, tokenData, started)
	}

	data, err := o.runPaymentCycle(ctx, tokenData)
	if err != nil {
		return nil, o.reportFailure(ctx, err, started)
	}
	return o.reportSuccess(ctx, data, started), nil
}

// runPaymentCycle performs create → (required action → resume)* until the
// payment settles or fails. Consecutive required actions are supported; each
// new client token replaces the previous one wholesale before the next step.
func (o *Orchestrator) runPaymentCycle(ctx context.Context, tokenData checkout.TokenData) (*checkout.CheckoutData, error) {
	o.flow.setState(StateAwaitingPayment)
	if p := o.flow.Presenter; p != nil {
		_ = p.ShowLoading(ctx)
	}

	decoded, err := o.createPayment(ctx, tokenData)
	if err != nil {
		return nil, err
	}
	for decoded != nil {
		resumeToken, err := o.flow.HandleDecodedClientTokenIfNeeded(ctx, *decoded)
		if err != nil {
			return nil, err
		}
		if resumeToken == "" {
			break
		}
		o.flow.setState(StateResuming)
		decoded, err = o.resumePayment(ctx, resumeToken)
		if err != nil {
			return nil, err
		}
	}

	// a cancellation that raced the final response still wins
	if err := o.flow.checkCancelled(); err != nil {
		return nil, err
	}
	return o.snapshot(), nil
}

// createPayment runs the post-tokenization step of the cycle. It returns
// the decoded required-action client token when a further step is needed,
// or nil when the payment is already settled.
func (o *Orchestrator) createPayment(ctx context.Context, tokenData checkout.TokenData) (*clienttoken.Decoded, error) {
	if o.flow.Session.Settings.PaymentHandling == checkout.HandlingManual {
		return o.manualDecision(func() checkout.ResumeDecision {
			return o.flow.Delegate.DidTokenize(tokenData)
		}, "DidTokenize")
	}

	payment, err := o.flow.Client.CreatePayment(ctx, api.CreatePaymentRequest{PaymentMethodToken: tokenData.Token})
	if err != nil {
		return nil, err
	}
	return o.advance(payment)
}

// resumePayment feeds a resume token back into the cycle.
func (o *Orchestrator) resumePayment(ctx context.Context, resumeToken string) (*clienttoken.Decoded, error) {
	if o.flow.Session.Settings.PaymentHandling == checkout.HandlingManual {
		return o.manualDecision(func() checkout.ResumeDecision {
			return o.flow.Delegate.DidResume(resumeToken)
		}, "DidResume")
	}

	if o.resumePaymentID == "" {
		return nil, errors.New("flow: no payment in flight to resume")
	}
	payment, err := o.flow.Client.ResumePayment(ctx, o.resumePaymentID, api.ResumePaymentRequest{ResumeToken: resumeToken})
	if err != nil {
		return nil, err
	}
	return o.advance(payment)
}

// advance records the payment resource and classifies the response: failed
// status, a required action, or settled.
func (o *Orchestrator) advance(payment checkout.Payment) (*clienttoken.Decoded, error) {
	o.resumePaymentID = payment.ID
	o.paymentData = checkout.PaymentFromSummary(payment)

	if payment.Status == checkout.StatusFailed {
		return nil, &checkout.PaymentFailedError{
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			FailureReason: payment.FailureReason,
			Data:          o.snapshot(),
		}
	}
	if action := payment.RequiredAction; action != nil {
		if action.ClientToken == "" {
			return nil, &checkout.RequiredActionError{MethodType: o.flow.Hooks.MethodType, Missing: "client token"}
		}
		if err := o.flow.Session.Tokens.Swap(action.ClientToken); err != nil {
			return nil, err
		}
		decoded, _ := o.flow.Session.Tokens.Current()
		return &decoded, nil
	}
	return nil, nil
}

// manualDecision routes a lifecycle event through the host's decision
// handler and translates the answer into the cycle's terms.
func (o *Orchestrator) manualDecision(ask func() checkout.ResumeDecision, name string) (*clienttoken.Decoded, error) {
	if o.flow.Delegate == nil {
		return nil, &checkout.ValidationError{Field: "delegate", Reason: "manual payment handling requires a host delegate"}
	}
	decision := awaitWithWatchdog(o.flow.Logger, name, o.flow.Session.Settings.DecisionWatchdog, ask)
	switch decision.Kind {
	case checkout.DecisionSucceed:
		return nil, nil
	case checkout.DecisionContinue:
		if err := o.flow.Session.Tokens.Swap(decision.ClientToken); err != nil {
			return nil, err
		}
		decoded, _ := o.flow.Session.Tokens.Current()
		return &decoded, nil
	case checkout.DecisionFail:
		return nil, &checkout.MerchantDecisionError{Message: decision.Message}
	default:
		return nil, &checkout.MerchantDecisionError{Message: "unknown host decision"}
	}
}

// finishVault completes a vault-intent attempt: the token is the whole
// journey, the host just gets told about it.
func (o *Orchestrator) finishVault(ctx context.Context, tokenData checkout.TokenData, started time.Time) (*checkout.CheckoutData, error) {
	if o.flow.Delegate != nil {
		decision := awaitWithWatchdog(o.flow.Logger, "DidTokenize", o.flow.Session.Settings.DecisionWatchdog, func() checkout.ResumeDecision {
			return o.flow.Delegate.DidTokenize(tokenData)
		})
		if decision.Kind == checkout.DecisionFail {
			return nil, o.reportFailure(ctx, &checkout.MerchantDecisionError{Message: decision.Message}, started)
		}
	}
	return o.reportSuccess(ctx, o.snapshot(), started), nil
}

// reportSuccess resolves the attempt as succeeded: state, metrics, the
// auto-mode completion callback, and the result surface.
func (o *Orchestrator) reportSuccess(ctx context.Context, data *checkout.CheckoutData, started time.Time) *checkout.CheckoutData {
	o.flow.setState(StateSucceeded)
	method := o.flow.Hooks.MethodType
	obs.CountPayment(method, "success")
	obs.ObserveFlowDuration(method, "success", float64(time.Since(started).Milliseconds()))

	if o.flow.Delegate != nil && o.flow.Session.Settings.PaymentHandling == checkout.HandlingAuto && data != nil {
		o.flow.Delegate.DidCompleteCheckout(*data)
	}
	if p := o.flow.Presenter; p != nil {
		_ = p.ShowResult(ctx, true, "")
	}
	o.flow.Logger.Info().
		Str("attempt", o.flow.attemptID).
		Str("payment_id", o.resumePaymentID).
		Msg("checkout_succeeded")
	return data
}

// reportFailure resolves the attempt as cancelled or failed. A cancelled
// flow unselects the method on the session; without a delegate (or for
// redirect/wallet categories) it then returns quietly to selection instead
// of raising a result screen. Every other failure runs the full pipeline:
// unselect, DidFail with partial checkout data, result surface.
func (o *Orchestrator) reportFailure(ctx context.Context, err error, started time.Time) error {
	method := o.flow.Hooks.MethodType
	cancelled := checkout.IsCancelled(err)
	if cancelled {
		o.flow.setState(StateCancelled)
		obs.CountPayment(method, "cancelled")
	} else {
		o.flow.setState(StateFailed)
		obs.CountPayment(method, "failed")
	}
	obs.ObserveFlowDuration(method, result(cancelled), float64(time.Since(started).Milliseconds()))

	if o.flow.Actions != nil {
		if uerr := o.flow.Actions.UnselectPaymentMethod(ctx); uerr != nil {
			o.flow.Logger.Warn().Err(uerr).Msg("unselect_payment_method_failed")
		}
	}

	quietCategory := o.flow.Hooks.Category == checkout.CategoryWebRedirect || o.flow.Hooks.Category == checkout.CategoryWallet
	if cancelled && (o.flow.Delegate == nil || quietCategory) {
		if p := o.flow.Presenter; p != nil {
			_ = p.Dismiss(ctx)
		}
		o.flow.Logger.Info().Str("attempt", o.flow.attemptID).Msg("checkout_cancelled")
		return err
	}

	data := o.failureData(err)
	message := ""
	if o.flow.Delegate != nil {
		message = awaitWithWatchdog(o.flow.Logger, "DidFail", o.flow.Session.Settings.DecisionWatchdog, func() string {
			return o.flow.Delegate.DidFail(err, data)
		})
	}
	if p := o.flow.Presenter; p != nil {
		_ = p.ShowResult(ctx, false, message)
	}
	o.flow.Logger.Warn().
		Err(err).
		Str("attempt", o.flow.attemptID).
		Str("payment_id", o.resumePaymentID).
		Msg("checkout_failed")
	return err
}

// failureData extracts the partial checkout snapshot to hand to DidFail.
func (o *Orchestrator) failureData(err error) *checkout.CheckoutData {
	var pf *checkout.PaymentFailedError
	if errors.As(err, &pf) {
		return pf.CheckoutData()
	}
	return o.snapshot()
}

// snapshot merges the latest payment resource with any method-recorded
// additional info into the host-visible CheckoutData.
func (o *Orchestrator) snapshot() *checkout.CheckoutData {
	data := o.paymentData
	if data == nil {
		data = &checkout.CheckoutData{}
	}
	if info := o.flow.AdditionalInfo(); info != nil {
		data.AdditionalInfo = info
	}
	return data
}

func result(cancelled bool) string {
	if cancelled {
		return "cancelled"
	}
	return "failed"
}
