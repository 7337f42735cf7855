// Package clienttoken decodes the session client token issued by the
// payments API and owns the process-wide token snapshot. The token is a
// JWT-formatted carrier of session state, not an authentication credential
// the SDK verifies, so it is parsed without signature verification. A new
// token always replaces the previous one as a unit.
package clienttoken

import (
	"errors"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// ErrInvalidToken is returned for tokens that cannot be decoded or that
// expired before decoding.
var ErrInvalidToken = errors.New("clienttoken: invalid client token")

// Decoded is the decoded view of a client token. Immutable; replaced
// wholesale whenever the backend issues a new token.
type Decoded struct {
	Raw         string
	Intent      string
	PCIURL      string
	CoreURL     string
	RedirectURL string
	StatusURL   string
	QRCode      string
	Entity      string
	Reference   string
	ExpiresAt   time.Time
}

// Valid reports whether the token decoded to a usable session token.
func (d Decoded) Valid() bool {
	if d.Intent == "" {
		return false
	}
	if !d.ExpiresAt.IsZero() && time.Now().After(d.ExpiresAt) {
		return false
	}
	return true
}

// IsRedirection reports whether the token demands a redirect step.
func (d Decoded) IsRedirection() bool {
	return strings.Contains(d.Intent, "_REDIRECTION") || d.Intent == "CHECKOUT_REDIRECTION"
}

// Decode parses a raw client token without signature verification and
// extracts the session fields the orchestration branches on.
func Decode(raw string) (Decoded, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Decoded{}, ErrInvalidToken
	}
	tok, err := jwt.ParseInsecure([]byte(trimmed))
	if err != nil {
		return Decoded{}, errors.Join(ErrInvalidToken, err)
	}

	d := Decoded{
		Raw:         trimmed,
		Intent:      stringClaim(tok, "intent"),
		PCIURL:      stringClaim(tok, "pciUrl"),
		CoreURL:     stringClaim(tok, "coreUrl"),
		RedirectURL: stringClaim(tok, "redirectUrl"),
		StatusURL:   stringClaim(tok, "statusUrl"),
		QRCode:      stringClaim(tok, "qrCode"),
		Entity:      stringClaim(tok, "entity"),
		Reference:   stringClaim(tok, "reference"),
		ExpiresAt:   tok.Expiration(),
	}
	if !d.Valid() {
		return Decoded{}, ErrInvalidToken
	}
	return d, nil
}

func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
