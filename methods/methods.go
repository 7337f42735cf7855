// Package methods wires concrete payment methods onto the flow lifecycle.
// Each constructor assembles the hook set for one method family: card,
// web redirect, bank selector, wallet, Klarna, QR/voucher, plus a mock
// method for integration testing. Methods extend the flow only through
// hooks and collaborator interfaces; none of them reaches into the state
// machine.
package methods

import (
	"context"

	"github.com/rs/zerolog"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
)

// Well-known method type identifiers.
const (
	TypeCard     = "PAYMENT_CARD"
	TypeApplePay = "APPLE_PAY"
	TypeKlarna   = "KLARNA"
	TypeMock     = "TEST_PAYMENT_METHOD"
)

// Deps bundles the collaborators every method needs to assemble a flow.
type Deps struct {
	Session   session.Context
	Client    api.Client
	Actions   *session.Actions
	Presenter flow.Presenter
	Delegate  checkout.HostDelegate
	Notifier  flow.EventNotifier
	ThreeDS   flow.ThreeDSAuthenticator
	Logger    zerolog.Logger
}

// RedirectOpener hands a redirect URL to the host's browser surface. Open
// returns once the redirect has been launched, not when it completes;
// completion is observed by polling the status URL.
type RedirectOpener interface {
	Open(ctx context.Context, url string) error
}

// WalletAuthorizer runs the native wallet authorization sheet and returns
// the opaque wallet token on approval.
type WalletAuthorizer interface {
	Authorize(ctx context.Context, sctx session.Context) (string, error)
}

// KlarnaAuthorizer drives the external Klarna SDK against a provider
// session and returns the authorization token.
type KlarnaAuthorizer interface {
	Authorize(ctx context.Context, sessionData string) (string, error)
}

func (d Deps) newFlow(hooks flow.Hooks) *flow.Flow {
	f := flow.New(d.Session, d.Client, hooks, d.Logger)
	f.Actions = d.Actions
	f.Presenter = d.Presenter
	f.Delegate = d.Delegate
	f.ThreeDS = d.ThreeDS
	if d.Notifier != nil {
		f.Notifier = d.Notifier
	}
	return f
}

func (d Deps) configFor(methodType string) (checkout.PaymentMethodConfig, bool) {
	if d.Session.Configs == nil {
		return checkout.PaymentMethodConfig{}, false
	}
	return d.Session.Configs.Lookup(methodType)
}

// handleRedirect is the shared required-action handler for redirect-style
// methods: launch the redirect URL, then poll the status URL until the
// backend reports completion. The poll result is the resume token.
func handleRedirect(opener RedirectOpener, methodType string) func(context.Context, clienttoken.Decoded, *flow.Flow) (string, error) {
	return func(ctx context.Context, token clienttoken.Decoded, f *flow.Flow) (string, error) {
		if !token.IsRedirection() {
			return "", &checkout.RequiredActionError{MethodType: methodType, Missing: "redirect intent, got " + token.Intent}
		}
		if token.StatusURL == "" {
			return "", &checkout.RequiredActionError{MethodType: methodType, Missing: "status URL"}
		}
		if token.RedirectURL != "" && opener != nil {
			if err := opener.Open(ctx, token.RedirectURL); err != nil {
				return "", err
			}
		}
		return f.Poll(ctx, token.StatusURL)
	}
}
