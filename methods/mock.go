package methods

import (
	"context"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// NewMock assembles a headless test method: no UI, an off-session
// instrument, default required-action handling. Sandbox backends map it to
// a configurable outcome, which makes it the method of choice for
// end-to-end wiring checks.
func NewMock(deps Deps) *flow.Flow {
	hooks := flow.Hooks{
		MethodType: TypeMock,
		Category:   checkout.CategoryNative,
		BuildInstrument: func(_ context.Context, sctx session.Context) (tokenization.Instrument, error) {
			cfg, _ := deps.configFor(TypeMock)
			return tokenization.OffSessionInstrument{
				MethodType:  TypeMock,
				ConfigID:    cfg.ID,
				SessionInfo: map[string]any{"locale": sctx.Settings.Locale},
			}, nil
		},
	}
	return deps.newFlow(hooks)
}
