package methods

import (
	"context"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// NewApplePay assembles the wallet flow: the authorizer runs the native
// payment sheet and the returned wallet token is tokenized like any other
// instrument. Wallet methods refuse vault intent up front.
func NewApplePay(deps Deps, authorizer WalletAuthorizer) *flow.Flow {
	hooks := flow.Hooks{
		MethodType: TypeApplePay,
		Category:   checkout.CategoryWallet,
		Validate: func(sctx session.Context) error {
			if sctx.Settings.Intent == checkout.IntentVault {
				return &checkout.ValidationError{Field: "intent", Reason: "wallet methods cannot be vaulted"}
			}
			if authorizer == nil {
				return &checkout.ValidationError{Field: "authorizer", Reason: "wallet authorizer is required"}
			}
			return nil
		},
		BuildInstrument: func(ctx context.Context, sctx session.Context) (tokenization.Instrument, error) {
			walletToken, err := authorizer.Authorize(ctx, sctx)
			if err != nil {
				return nil, err
			}
			cfg, _ := deps.configFor(TypeApplePay)
			return tokenization.WalletInstrument{
				MethodType:  TypeApplePay,
				WalletToken: walletToken,
				MerchantID:  cfg.Option("merchantId"),
			}, nil
		},
	}
	return deps.newFlow(hooks)
}
