package checkout

// PaymentMethodData identifies the method a payment is about to be created
// for, handed to the host before the create-payment call.
type PaymentMethodData struct {
	Type string
}

// CreateDecision is the host's answer to WillCreatePayment.
type CreateDecision struct {
	Abort   bool
	Message string
}

// ContinuePayment allows the SDK to proceed with payment creation.
func ContinuePayment() CreateDecision { return CreateDecision{} }

// AbortPayment vetoes payment creation with an optional merchant message.
func AbortPayment(message string) CreateDecision {
	return CreateDecision{Abort: true, Message: message}
}

// ResumeDecisionKind enumerates the manual-mode decisions a host can take
// after tokenization or after a resume token arrives.
type ResumeDecisionKind int

const (
	// DecisionSucceed completes the flow without further SDK-side calls.
	DecisionSucceed ResumeDecisionKind = iota
	// DecisionContinue supplies a new client token to continue with.
	DecisionContinue
	// DecisionFail aborts with a merchant-supplied message.
	DecisionFail
)

// ResumeDecision is the manual-mode escape hatch: the host decides how the
// flow proceeds after tokenization (DidTokenize) or resumption (DidResume).
type ResumeDecision struct {
	Kind        ResumeDecisionKind
	ClientToken string
	Message     string
}

// Succeed completes the flow on the host's authority.
func Succeed() ResumeDecision { return ResumeDecision{Kind: DecisionSucceed} }

// ContinueWithClientToken resumes the flow with a fresh client token.
func ContinueWithClientToken(token string) ResumeDecision {
	return ResumeDecision{Kind: DecisionContinue, ClientToken: token}
}

// FailWithMessage aborts the flow with a merchant message.
func FailWithMessage(message string) ResumeDecision {
	return ResumeDecision{Kind: DecisionFail, Message: message}
}

// HostDelegate is implemented by the integrating application. All callbacks
// run on the flow goroutine; decision-returning callbacks may take as long
// as they need — the SDK logs a warning if one exceeds the configured
// watchdog interval but never resolves on the host's behalf.
type HostDelegate interface {
	// WillCreatePayment fires once per attempt before payment creation.
	// Returning an abort decision vetoes the payment.
	WillCreatePayment(data PaymentMethodData) CreateDecision

	// DidTokenize fires in manual payment handling after tokenization.
	DidTokenize(data TokenData) ResumeDecision

	// DidResume fires in manual payment handling when a resume token
	// arrives from a required action.
	DidResume(resumeToken string) ResumeDecision

	// DidFail reports a terminal failure together with whatever partial
	// CheckoutData is available. The returned message, if any, is shown on
	// the result surface.
	DidFail(err error, data *CheckoutData) string

	// DidCompleteCheckout reports terminal success.
	DidCompleteCheckout(data CheckoutData)
}
