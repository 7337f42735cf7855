package clienttoken_test

import (
	"encoding/base64"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corepay/checkout-sdk-go/clienttoken"
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

func TestDecodeExtractsSessionClaims(t *testing.T) {
	raw := makeToken(t, map[string]any{
		"intent":      "CHECKOUT",
		"pciUrl":      "https://pci.example.com",
		"coreUrl":     "https://core.example.com",
		"redirectUrl": "https://redirect.example.com/go",
		"statusUrl":   "https://core.example.com/status/abc",
		"qrCode":      "qr-payload",
		"entity":      "Store 42",
		"reference":   "REF-123",
		"exp":         time.Now().Add(time.Hour).Unix(),
	})

	d, err := clienttoken.Decode(raw)
	require.NoError(t, err)
	require.Equal(t, "CHECKOUT", d.Intent)
	require.Equal(t, "https://pci.example.com", d.PCIURL)
	require.Equal(t, "https://core.example.com", d.CoreURL)
	require.Equal(t, "https://redirect.example.com/go", d.RedirectURL)
	require.Equal(t, "https://core.example.com/status/abc", d.StatusURL)
	require.Equal(t, "qr-payload", d.QRCode)
	require.Equal(t, "Store 42", d.Entity)
	require.Equal(t, "REF-123", d.Reference)
	require.Equal(t, raw, d.Raw)
	require.True(t, d.Valid())
}

func TestDecodeWithoutSignatureVerification(t *testing.T) {
	// the signature segment is garbage on purpose; decoding must not care
	raw := makeToken(t, map[string]any{"intent": "CHECKOUT"})
	_, err := clienttoken.Decode(raw)
	require.NoError(t, err)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		_, err := clienttoken.Decode(raw)
		require.ErrorIs(t, err, clienttoken.ErrInvalidToken, "raw=%q", raw)
	}
}

func TestDecodeRejectsExpiredToken(t *testing.T) {
	raw := makeToken(t, map[string]any{
		"intent": "CHECKOUT",
		"exp":    time.Now().Add(-time.Minute).Unix(),
	})
	_, err := clienttoken.Decode(raw)
	require.ErrorIs(t, err, clienttoken.ErrInvalidToken)
}

func TestDecodeRejectsMissingIntent(t *testing.T) {
	raw := makeToken(t, map[string]any{"coreUrl": "https://core.example.com"})
	_, err := clienttoken.Decode(raw)
	require.ErrorIs(t, err, clienttoken.ErrInvalidToken)
}

func TestIsRedirection(t *testing.T) {
	redirect := makeToken(t, map[string]any{"intent": "IDEAL_REDIRECTION"})
	d, err := clienttoken.Decode(redirect)
	require.NoError(t, err)
	require.True(t, d.IsRedirection())

	plain := makeToken(t, map[string]any{"intent": "CHECKOUT"})
	d, err = clienttoken.Decode(plain)
	require.NoError(t, err)
	require.False(t, d.IsRedirection())
}

func TestStoreSwapReplacesWholesale(t *testing.T) {
	first := makeToken(t, map[string]any{"intent": "CHECKOUT", "coreUrl": "https://one.example.com"})
	second := makeToken(t, map[string]any{"intent": "3DS_AUTHENTICATION", "statusUrl": "https://two.example.com/status"})

	store, err := clienttoken.NewStore(first)
	require.NoError(t, err)

	cur, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, "https://one.example.com", cur.CoreURL)

	require.NoError(t, store.Swap(second))
	cur, ok = store.Current()
	require.True(t, ok)
	require.Equal(t, "3DS_AUTHENTICATION", cur.Intent)
	require.Equal(t, "https://two.example.com/status", cur.StatusURL)
	// the old token's fields must not leak through
	require.Empty(t, cur.CoreURL)
}

func TestStoreSwapKeepsCurrentOnDecodeError(t *testing.T) {
	first := makeToken(t, map[string]any{"intent": "CHECKOUT"})
	store, err := clienttoken.NewStore(first)
	require.NoError(t, err)

	require.Error(t, store.Swap("garbage"))
	cur, ok := store.Current()
	require.True(t, ok)
	require.Equal(t, "CHECKOUT", cur.Intent)
}

func TestStoreConcurrentReadersSeeCompleteToken(t *testing.T) {
	a := makeToken(t, map[string]any{"intent": "CHECKOUT", "reference": "A"})
	b := makeToken(t, map[string]any{"intent": "CHECKOUT", "reference": "B"})

	store, err := clienttoken.NewStore(a)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				cur, ok := store.Current()
				if !ok {
					t.Error("store lost its token")
					return
				}
				if cur.Reference != "A" && cur.Reference != "B" {
					t.Errorf("observed partial token: %+v", cur)
					return
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		tok := a
		if j%2 == 1 {
			tok = b
		}
		require.NoError(t, store.Swap(tok))
	}
	wg.Wait()
}
