package methods

import (
	"context"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// NewWebRedirect assembles the generic web-redirect flow used by the long
// tail of APM (alternative payment method) types: tokenize an off-session
// instrument, open the redirect URL from the required-action token, then
// poll the status URL until the backend reports completion.
func NewWebRedirect(deps Deps, methodType string, opener RedirectOpener) *flow.Flow {
	hooks := flow.Hooks{
		MethodType: methodType,
		Category:   checkout.CategoryWebRedirect,
		Validate: func(sctx session.Context) error {
			if _, ok := deps.configFor(methodType); !ok {
				return &checkout.ValidationError{Field: "paymentMethodConfig", Reason: "no configuration for " + methodType}
			}
			return nil
		},
		BuildInstrument: func(ctx context.Context, sctx session.Context) (tokenization.Instrument, error) {
			cfg, _ := deps.configFor(methodType)
			return tokenization.OffSessionInstrument{
				MethodType:  methodType,
				ConfigID:    cfg.ID,
				SessionInfo: map[string]any{
					"platform":       "WEB",
					"locale":         sctx.Settings.Locale,
					"redirectionUrl": sctx.Settings.ReturnURL,
				},
			}, nil
		},
		DecodeRequiredAction: handleRedirect(opener, methodType),
	}
	return deps.newFlow(hooks)
}
