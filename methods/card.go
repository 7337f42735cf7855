package methods

import (
	"context"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// CardInput supplies the captured card fields once the user submits the
// form. It blocks until submission or cancellation.
type CardInput func(ctx context.Context) (tokenization.CardInstrument, error)

// NewCard assembles the raw-card flow: present the card form, tokenize the
// captured fields, and hand 3DS step-ups to the configured authenticator.
func NewCard(deps Deps, input CardInput) *flow.Flow {
	hooks := flow.Hooks{
		MethodType: TypeCard,
		Category:   checkout.CategoryNative,
		PresentUI: func(ctx context.Context) error {
			if deps.Presenter == nil {
				return nil
			}
			return deps.Presenter.Present(ctx, TypeCard)
		},
		BuildInstrument: func(ctx context.Context, _ session.Context) (tokenization.Instrument, error) {
			card, err := input(ctx)
			if err != nil {
				return nil, err
			}
			return card, nil
		},
		// DecodeRequiredAction left nil: the flow's default 3DS handling
		// covers cards.
	}
	return deps.newFlow(hooks)
}
