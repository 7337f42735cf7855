package methods

import (
	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/flow"
)

// NewVaultedCard assembles a checkout flow that exchanges a previously
// vaulted card for a single-use token instead of collecting card data.
// cvv is optional; when non-empty it is sent alongside the exchange so
// the processor can re-verify the security code.
func NewVaultedCard(deps Deps, vaultedTokenID, cvv string) *flow.Flow {
	var additional map[string]string
	if cvv != "" {
		additional = map[string]string{"cvv": cvv}
	}
	hooks := flow.Hooks{
		MethodType:            TypeCard,
		Category:              checkout.CategoryNative,
		VaultedTokenID:        vaultedTokenID,
		VaultedAdditionalData: additional,
		// No UI step: the instrument already exists server-side. 3DS
		// step-ups fall through to the flow's default handling.
	}
	return deps.newFlow(hooks)
}
