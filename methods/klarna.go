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

// NewKlarna assembles the Klarna flow: create a provider session, hand its
// session data to the external Klarna SDK for authorization, then tokenize
// the authorization result.
func NewKlarna(deps Deps, authorizer KlarnaAuthorizer) *flow.Flow {
	var (
		mu      sync.Mutex
		created api.SessionResponse
	)

	hooks := flow.Hooks{
		MethodType: TypeKlarna,
		Category:   checkout.CategoryNative,
		Validate: func(_ session.Context) error {
			if authorizer == nil {
				return &checkout.ValidationError{Field: "authorizer", Reason: "klarna authorizer is required"}
			}
			return nil
		},
		PresentUI: func(ctx context.Context) error {
			resp, err := deps.Client.CreateSession(ctx, api.SessionRequest{MethodType: TypeKlarna})
			if err != nil {
				return err
			}
			mu.Lock()
			created = resp
			mu.Unlock()
			if deps.Presenter == nil {
				return nil
			}
			return deps.Presenter.Present(ctx, TypeKlarna)
		},
		BuildInstrument: func(ctx context.Context, _ session.Context) (tokenization.Instrument, error) {
			mu.Lock()
			sessionData := created.SessionData
			mu.Unlock()
			if sessionData == "" {
				return nil, &checkout.ValidationError{Field: "session", Reason: "klarna session was not created"}
			}
			authToken, err := authorizer.Authorize(ctx, sessionData)
			if err != nil {
				return nil, err
			}
			return tokenization.KlarnaInstrument{
				AuthorizationToken: authToken,
				SessionData:        sessionData,
			}, nil
		},
	}
	return deps.newFlow(hooks)
}
