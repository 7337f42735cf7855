package methods

import (
	"context"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// NewVoucher assembles the voucher flow (OXXO-style pay-at-store methods):
// the required-action token carries the voucher entity/reference, which is
// surfaced to the host as additional info while the status URL is polled
// for settlement.
func NewVoucher(deps Deps, methodType string) *flow.Flow {
	return deps.newFlow(offSessionHooks(deps, methodType, voucherInfo))
}

// NewQRCode assembles the QR-code flow (PromptPay-style methods): the
// required-action token carries the QR payload to display while polling.
func NewQRCode(deps Deps, methodType string) *flow.Flow {
	return deps.newFlow(offSessionHooks(deps, methodType, qrInfo))
}

func voucherInfo(token clienttoken.Decoded) *checkout.AdditionalInfo {
	if token.Entity == "" && token.Reference == "" {
		return nil
	}
	return &checkout.AdditionalInfo{
		Entity:    token.Entity,
		Reference: token.Reference,
		ExpiresAt: token.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func qrInfo(token clienttoken.Decoded) *checkout.AdditionalInfo {
	if token.QRCode == "" {
		return nil
	}
	return &checkout.AdditionalInfo{QRCode: token.QRCode}
}

// offSessionHooks builds the shared voucher/QR hook set: off-session
// tokenization, then a required-action handler that records the display
// payload and polls for completion.
func offSessionHooks(deps Deps, methodType string, info func(clienttoken.Decoded) *checkout.AdditionalInfo) flow.Hooks {
	return flow.Hooks{
		MethodType: methodType,
		Category:   checkout.CategoryWebRedirect,
		BuildInstrument: func(ctx context.Context, sctx session.Context) (tokenization.Instrument, error) {
			cfg, ok := deps.configFor(methodType)
			if !ok {
				return nil, &checkout.ValidationError{Field: "paymentMethodConfig", Reason: "no configuration for " + methodType}
			}
			return tokenization.OffSessionInstrument{
				MethodType:  methodType,
				ConfigID:    cfg.ID,
				SessionInfo: map[string]any{"platform": "WEB", "locale": sctx.Settings.Locale},
			}, nil
		},
		DecodeRequiredAction: func(ctx context.Context, token clienttoken.Decoded, f *flow.Flow) (string, error) {
			payload := info(token)
			if payload == nil {
				return "", &checkout.RequiredActionError{MethodType: methodType, Missing: "display payload"}
			}
			f.SetAdditionalInfo(payload)
			if deps.Presenter != nil {
				if err := deps.Presenter.Present(ctx, methodType); err != nil {
					return "", err
				}
			}
			if token.StatusURL == "" {
				return "", &checkout.RequiredActionError{MethodType: methodType, Missing: "status URL"}
			}
			return f.Poll(ctx, token.StatusURL)
		},
	}
}
