package session_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	checkout "github.com/corepay/checkout-sdk-go"
	"github.com/corepay/checkout-sdk-go/api"
	"github.com/corepay/checkout-sdk-go/clienttoken"
	"github.com/corepay/checkout-sdk-go/session"
)

func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("sig"))
}

type actionsClient struct {
	api.Client

	mu          sync.Mutex
	requests    []api.ActionsRequest
	refreshed   string
	configs     []checkout.PaymentMethodConfig
	configCalls int
}

func (c *actionsClient) DispatchActions(ctx context.Context, req api.ActionsRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return c.refreshed, nil
}

func (c *actionsClient) FetchConfiguration(ctx context.Context) ([]checkout.PaymentMethodConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configCalls++
	return c.configs, nil
}

func TestSelectPaymentMethodDispatchesAction(t *testing.T) {
	client := &actionsClient{}
	actions := &session.Actions{Client: client, Logger: zerolog.Nop()}

	err := actions.SelectPaymentMethod(context.Background(), "IDEAL", map[string]any{"network": "VISA"})
	require.NoError(t, err)
	require.Len(t, client.requests, 1)
	require.Len(t, client.requests[0].Actions, 1)

	act := client.requests[0].Actions[0]
	require.Equal(t, session.ActionSelectPaymentMethod, act.Type)
	require.Equal(t, "IDEAL", act.Params["paymentMethodType"])
	require.Equal(t, "VISA", act.Params["network"])
}

func TestDispatchSwapsRefreshedToken(t *testing.T) {
	oldToken := makeToken(t, map[string]any{"intent": "CHECKOUT", "reference": "old"})
	newToken := makeToken(t, map[string]any{
		"intent":    "CHECKOUT",
		"reference": "new",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	tokens, err := clienttoken.NewStore(oldToken)
	require.NoError(t, err)

	client := &actionsClient{refreshed: newToken}
	actions := &session.Actions{Client: client, Tokens: tokens, Logger: zerolog.Nop()}

	require.NoError(t, actions.UnselectPaymentMethod(context.Background()))

	cur, ok := tokens.Current()
	require.True(t, ok)
	require.Equal(t, "new", cur.Reference)
}

func TestDispatchRefreshesConfigsAfterTokenSwap(t *testing.T) {
	oldToken := makeToken(t, map[string]any{"intent": "CHECKOUT", "reference": "old"})
	newToken := makeToken(t, map[string]any{
		"intent":    "CHECKOUT",
		"reference": "new",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	tokens, err := clienttoken.NewStore(oldToken)
	require.NoError(t, err)

	client := &actionsClient{
		refreshed: newToken,
		configs:   []checkout.PaymentMethodConfig{{ID: "cfg_1", Type: "IDEAL"}},
	}
	cache := &session.ConfigCache{}
	actions := &session.Actions{Client: client, Tokens: tokens, Configs: cache, Logger: zerolog.Nop()}

	require.NoError(t, actions.UnselectPaymentMethod(context.Background()))

	client.mu.Lock()
	calls := client.configCalls
	client.mu.Unlock()
	require.Equal(t, 1, calls)

	cfg, ok := cache.Lookup("IDEAL")
	require.True(t, ok)
	require.Equal(t, "cfg_1", cfg.ID)
}

func TestDispatchRejectsBadRefreshedToken(t *testing.T) {
	oldToken := makeToken(t, map[string]any{"intent": "CHECKOUT", "reference": "old"})
	tokens, err := clienttoken.NewStore(oldToken)
	require.NoError(t, err)

	client := &actionsClient{refreshed: "not-a-token"}
	actions := &session.Actions{Client: client, Tokens: tokens, Logger: zerolog.Nop()}

	require.Error(t, actions.UnselectPaymentMethod(context.Background()))

	// the previous token survives a failed refresh
	cur, ok := tokens.Current()
	require.True(t, ok)
	require.Equal(t, "old", cur.Reference)
}

func TestUpdateBillingAddress(t *testing.T) {
	client := &actionsClient{}
	actions := &session.Actions{Client: client, Logger: zerolog.Nop()}

	err := actions.UpdateBillingAddress(context.Background(), session.Address{City: "Amsterdam", CountryCode: "NL"})
	require.NoError(t, err)
	require.Equal(t, session.ActionSetBillingAddress, client.requests[0].Actions[0].Type)
}

func TestConfigCacheRefreshAndLookup(t *testing.T) {
	client := &actionsClient{configs: []checkout.PaymentMethodConfig{
		{ID: "cfg_1", Type: "IDEAL", Category: checkout.CategoryWebRedirect},
		{ID: "cfg_2", Type: "PAYMENT_CARD", Category: checkout.CategoryNative},
	}}

	cache := &session.ConfigCache{}
	require.NoError(t, cache.Refresh(context.Background(), client))

	cfg, ok := cache.Lookup("IDEAL")
	require.True(t, ok)
	require.Equal(t, "cfg_1", cfg.ID)

	_, ok = cache.Lookup("KLARNA")
	require.False(t, ok)
	require.Len(t, cache.All(), 2)
}

func TestConfigCacheRefreshReplacesSnapshot(t *testing.T) {
	client := &actionsClient{configs: []checkout.PaymentMethodConfig{{ID: "cfg_1", Type: "IDEAL"}}}
	cache := &session.ConfigCache{}
	require.NoError(t, cache.Refresh(context.Background(), client))

	client.mu.Lock()
	client.configs = []checkout.PaymentMethodConfig{{ID: "cfg_9", Type: "KLARNA"}}
	client.mu.Unlock()
	require.NoError(t, cache.Refresh(context.Background(), client))

	_, ok := cache.Lookup("IDEAL")
	require.False(t, ok, "old snapshot must be replaced wholesale")
	cfg, ok := cache.Lookup("KLARNA")
	require.True(t, ok)
	require.Equal(t, "cfg_9", cfg.ID)
}
