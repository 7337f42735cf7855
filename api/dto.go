// Package api defines the payments API boundary: the Client interface the
// orchestration depends on, the opaque request/response DTOs that cross it,
// and an HTTP implementation. No retry policy lives here — status-poll
// retries belong to the polling package.
package api

import (
	checkout "github.com/corepay/checkout-sdk-go"
)

// TokenizeRequest exchanges a payment instrument for a token.
type TokenizeRequest struct {
	PaymentInstrument any    `json:"paymentInstrument"`
	TokenType         string `json:"tokenType,omitempty"`
}

// ExchangeTokenRequest exchanges a previously vaulted token, optionally with
// re-entered additional data such as a CVV.
type ExchangeTokenRequest struct {
	VaultedTokenID string            `json:"vaultedTokenId"`
	AdditionalData map[string]string `json:"additionalData,omitempty"`
}

// TokenResponse is the wire form of a tokenization result.
type TokenResponse struct {
	Token                 string `json:"token"`
	AnalyticsID           string `json:"analyticsId"`
	PaymentInstrumentType string `json:"paymentInstrumentType"`
	PaymentInstrumentData struct {
		Network     string `json:"network"`
		Last4Digits string `json:"last4Digits"`
	} `json:"paymentInstrumentData"`
}

// CreatePaymentRequest creates a payment from a payment-method token.
type CreatePaymentRequest struct {
	PaymentMethodToken string `json:"paymentMethodToken"`
}

// ResumePaymentRequest resumes a pending payment with a resume token.
type ResumePaymentRequest struct {
	ResumeToken string `json:"resumeToken"`
}

// PaymentResponse is the wire form of the payment resource.
type PaymentResponse struct {
	ID             string `json:"id"`
	OrderID        string `json:"orderId"`
	Status         string `json:"status"`
	CurrencyCode   string `json:"currencyCode"`
	Amount         int64  `json:"amount"`
	FailureReason  string `json:"paymentFailureReason,omitempty"`
	RequiredAction *struct {
		Name        string `json:"name"`
		ClientToken string `json:"clientToken"`
		Description string `json:"description,omitempty"`
	} `json:"requiredAction,omitempty"`
}

// PollStatus is the status reported by the status-check endpoint.
type PollStatus string

const (
	PollPending  PollStatus = "PENDING"
	PollComplete PollStatus = "COMPLETE"
)

// PollResult is the transient result of a single status poll.
type PollResult struct {
	Status PollStatus `json:"status"`
	ID     string     `json:"id"`
}

// SessionAction is one named client-session mutation.
type SessionAction struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// ActionsRequest batches session actions for a single dispatch.
type ActionsRequest struct {
	Actions []SessionAction `json:"actions"`
}

// ActionsResponse echoes the refreshed client token after session mutation.
type ActionsResponse struct {
	ClientToken string `json:"clientToken"`
}

// Bank is one entry of the bank-selector list.
type Bank struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IconURL string `json:"iconUrl,omitempty"`
}

// SessionRequest creates a provider-side session for wallet-style methods.
type SessionRequest struct {
	MethodType string         `json:"paymentMethodType"`
	Params     map[string]any `json:"params,omitempty"`
}

// SessionResponse carries the provider session handle.
type SessionResponse struct {
	SessionID   string `json:"sessionId"`
	SessionData string `json:"sessionData,omitempty"`
}

// ConfigurationResponse is the merchant configuration snapshot.
type ConfigurationResponse struct {
	PaymentMethods []struct {
		ID       string            `json:"id"`
		Type     string            `json:"type"`
		Name     string            `json:"name"`
		Category string            `json:"implementationCategory"`
		Options  map[string]string `json:"options,omitempty"`
	} `json:"paymentMethods"`
}

// ToConfigs converts the wire snapshot into domain configs.
func (c ConfigurationResponse) ToConfigs() []checkout.PaymentMethodConfig {
	out := make([]checkout.PaymentMethodConfig, 0, len(c.PaymentMethods))
	for _, m := range c.PaymentMethods {
		out = append(out, checkout.PaymentMethodConfig{
			ID:       m.ID,
			Type:     m.Type,
			Name:     m.Name,
			Category: checkout.MethodCategory(m.Category),
			Options:  m.Options,
		})
	}
	return out
}

// ToTokenData converts the wire tokenization result into domain token data.
func (r TokenResponse) ToTokenData() checkout.TokenData {
	return checkout.TokenData{
		Token:          r.Token,
		AnalyticsID:    r.AnalyticsID,
		InstrumentType: r.PaymentInstrumentType,
		Network:        r.PaymentInstrumentData.Network,
		Last4:          r.PaymentInstrumentData.Last4Digits,
	}
}

// ToPayment converts the wire payment resource into the domain type.
func (r PaymentResponse) ToPayment() checkout.Payment {
	p := checkout.Payment{
		ID:            r.ID,
		OrderID:       r.OrderID,
		Status:        checkout.PaymentStatus(r.Status),
		CurrencyCode:  r.CurrencyCode,
		Amount:        r.Amount,
		FailureReason: r.FailureReason,
	}
	if r.RequiredAction != nil {
		p.RequiredAction = &checkout.RequiredAction{
			Name:        r.RequiredAction.Name,
			ClientToken: r.RequiredAction.ClientToken,
			Description: r.RequiredAction.Description,
		}
	}
	return p
}
