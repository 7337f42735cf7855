// Package session owns client-session state on the SDK side: the batched
// session actions dispatched to the backend, the payment-method
// configuration cache, and the session context value threaded through every
// flow step.
package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
)

// Action type identifiers understood by the client-session endpoint.
const (
	ActionSelectPaymentMethod   = "SELECT_PAYMENT_METHOD"
	ActionUnselectPaymentMethod = "UNSELECT_PAYMENT_METHOD"
	ActionSetBillingAddress     = "SET_BILLING_ADDRESS"
	ActionSetShippingDetails    = "SET_SHIPPING_DETAILS"
)

// Address is the billing/shipping address shape accepted by the session.
type Address struct {
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	CountryCode  string `json:"countryCode,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

// Actions dispatches named client-session mutations as a batch. A refreshed
// client token in the response replaces the current one before the call
// returns.
type Actions struct {
	Client api.Client
	Tokens *clienttoken.Store
	// Configs, when set, is refreshed after a token swap so the method
	// snapshot tracks the new session state.
	Configs *ConfigCache
	Logger  zerolog.Logger
}

// SelectPaymentMethod marks the method as selected on the session,
// optionally with display metadata (e.g. card network for surcharging).
func (a *Actions) SelectPaymentMethod(ctx context.Context, methodType string, metadata map[string]any) error {
	params := map[string]any{"paymentMethodType": methodType}
	for k, v := range metadata {
		params[k] = v
	}
	return a.dispatch(ctx, api.SessionAction{Type: ActionSelectPaymentMethod, Params: params})
}

// UnselectPaymentMethod clears the selected method on the session.
func (a *Actions) UnselectPaymentMethod(ctx context.Context) error {
	return a.dispatch(ctx, api.SessionAction{Type: ActionUnselectPaymentMethod})
}

// UpdateBillingAddress replaces the session billing address.
func (a *Actions) UpdateBillingAddress(ctx context.Context, addr Address) error {
	return a.dispatch(ctx, api.SessionAction{Type: ActionSetBillingAddress, Params: map[string]any{"billingAddress": addr}})
}

// UpdateShippingDetails replaces the session shipping details.
func (a *Actions) UpdateShippingDetails(ctx context.Context, addr Address) error {
	return a.dispatch(ctx, api.SessionAction{Type: ActionSetShippingDetails, Params: map[string]any{"shippingAddress": addr}})
}

func (a *Actions) dispatch(ctx context.Context, actions ...api.SessionAction) error {
	if a.Client == nil {
		return fmt.Errorf("session: api client not configured")
	}
	newToken, err := a.Client.DispatchActions(ctx, api.ActionsRequest{Actions: actions})
	if err != nil {
		return fmt.Errorf("dispatch session actions: %w", err)
	}
	if newToken != "" && a.Tokens != nil {
		if err := a.Tokens.Swap(newToken); err != nil {
			return fmt.Errorf("store refreshed client token: %w", err)
		}
		if a.Configs != nil {
			if err := a.Configs.Refresh(ctx, a.Client); err != nil {
				a.Logger.Warn().Err(err).Msg("configuration refresh after token swap failed")
			}
		}
	}
	for _, act := range actions {
		a.Logger.Debug().Str("action", act.Type).Msg("session_action_dispatched")
	}
	return nil
}

// Context is the explicit session context threaded through every step call:
// settings, the decoded client token, and the configuration snapshot. It
// replaces mutable process-wide session singletons.
type Context struct {
	Settings checkout.Settings
	Tokens   *clienttoken.Store
	Configs  *ConfigCache
}

// Token returns the current decoded client token.
func (c Context) Token() (clienttoken.Decoded, bool) {
	if c.Tokens == nil {
		return clienttoken.Decoded{}, false
	}
	return c.Tokens.Current()
}

// RawToken returns the current raw client token, or "" when unset.
func (c Context) RawToken() string {
	tok, ok := c.Token()
	if !ok {
		return ""
	}
	return tok.Raw
}
