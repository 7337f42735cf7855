package methods

import (
	"context"
	"sync"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/flow"
	"github.com/corepay/checkout-sdk-go/session"
	"github.com/corepay/checkout-sdk-go/tokenization"
)

// BankPicker presents the bank list and blocks until the user picks one.
type BankPicker func(ctx context.Context, banks []api.Bank) (api.Bank, error)

// NewBankSelector assembles the bank-selector flow (iDEAL-style methods):
// fetch the issuer list, let the user choose, tokenize the choice, then
// run the shared redirect/poll cycle.
func NewBankSelector(deps Deps, methodType string, picker BankPicker, opener RedirectOpener) *flow.Flow {
	var (
		mu       sync.Mutex
		selected *api.Bank
	)

	hooks := flow.Hooks{
		MethodType: methodType,
		Category:   checkout.CategoryWebRedirect,
		PresentUI: func(ctx context.Context) error {
			if deps.Presenter == nil {
				return nil
			}
			return deps.Presenter.Present(ctx, methodType)
		},
		AwaitUserInput: func(ctx context.Context) error {
			banks, err := deps.Client.ListBanks(ctx, methodType)
			if err != nil {
				return err
			}
			if len(banks) == 0 {
				return &checkout.ValidationError{Field: "banks", Reason: "issuer list is empty for " + methodType}
			}
			bank, err := picker(ctx, banks)
			if err != nil {
				return err
			}
			mu.Lock()
			selected = &bank
			mu.Unlock()
			return nil
		},
		BuildInstrument: func(ctx context.Context, _ session.Context) (tokenization.Instrument, error) {
			mu.Lock()
			bank := selected
			mu.Unlock()
			if bank == nil {
				return nil, &checkout.ValidationError{Field: "bank", Reason: "no bank selected"}
			}
			cfg, _ := deps.configFor(methodType)
			return tokenization.BankInstrument{
				MethodType: methodType,
				ConfigID:   cfg.ID,
				BankID:     bank.ID,
			}, nil
		},
		DecodeRequiredAction: handleRedirect(opener, methodType),
	}
	return deps.newFlow(hooks)
}
