package checkout

import (
	"errors"
	"fmt"
)

// ValidationError reports a precondition failure detected before any network
// call: missing session token, missing required settings, or incompatible
// method configuration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("checkout: validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("checkout: validation failed: %s: %s", e.Field, e.Reason)
}

// TokenizationError wraps a transport or server rejection during the
// tokenize call. Recoverable only by restarting the attempt from validation.
type TokenizationError struct {
	MethodType string
	Err        error
}

func (e *TokenizationError) Error() string {
	return fmt.Sprintf("checkout: tokenization failed for %s: %v", e.MethodType, e.Err)
}

func (e *TokenizationError) Unwrap() error { return e.Err }

// PaymentFailedError reports a terminal FAILED payment status. It always
// carries the partial CheckoutData produced before the failure.
type PaymentFailedError struct {
	PaymentID     string
	OrderID       string
	FailureReason string
	Data          *CheckoutData
}

func (e *PaymentFailedError) Error() string {
	if e.FailureReason == "" {
		return fmt.Sprintf("checkout: payment %s failed", e.PaymentID)
	}
	return fmt.Sprintf("checkout: payment %s failed: %s", e.PaymentID, e.FailureReason)
}

// CheckoutData returns the partial checkout snapshot captured at failure
// time, synthesising one from the payment id if none was recorded.
func (e *PaymentFailedError) CheckoutData() *CheckoutData {
	if e.Data != nil {
		return e.Data
	}
	return &CheckoutData{Payment: &PaymentSummary{
		ID:            e.PaymentID,
		OrderID:       e.OrderID,
		Status:        StatusFailed,
		FailureReason: e.FailureReason,
	}}
}

// RequiredActionError reports a malformed required-action client token, e.g.
// a redirect intent without a status URL.
type RequiredActionError struct {
	MethodType string
	Missing    string
}

func (e *RequiredActionError) Error() string {
	return fmt.Sprintf("checkout: required action for %s is missing %s", e.MethodType, e.Missing)
}

// CancelledError reports a user- or system-initiated cancellation. It takes
// priority over any concurrently resolving success.
type CancelledError struct {
	MethodType string
}

func (e *CancelledError) Error() string {
	if e.MethodType == "" {
		return "checkout: flow cancelled"
	}
	return fmt.Sprintf("checkout: flow cancelled for %s", e.MethodType)
}

// MerchantDecisionError reports that the host aborted via a decision handler.
type MerchantDecisionError struct {
	Message string
}

func (e *MerchantDecisionError) Error() string {
	if e.Message == "" {
		return "checkout: merchant aborted the payment"
	}
	return fmt.Sprintf("checkout: merchant aborted the payment: %s", e.Message)
}

// IsCancelled reports whether err is, or wraps, a cancellation.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
