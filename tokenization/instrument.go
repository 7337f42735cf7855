// Package tokenization turns a captured payment instrument into a
// payment-method token through a single payments API call. Instruments are
// a tagged union: each payment method builds exactly one variant, and the
// step consumes it exactly once per attempt.
package tokenization

import (
	"github.com/go-playground/validator/v10"
)

// Instrument is the sealed union of payment-method-specific session info.
type Instrument interface {
	// InstrumentType names the wire discriminator for this variant.
	InstrumentType() string
}

// CardInstrument carries raw card fields captured from the user.
type CardInstrument struct {
	Number          string `json:"number" validate:"required,numeric,min=12,max=19"`
	ExpirationMonth string `json:"expirationMonth" validate:"required,len=2,numeric"`
	ExpirationYear  string `json:"expirationYear" validate:"required,len=4,numeric"`
	CVV             string `json:"cvv" validate:"required,numeric,min=3,max=4"`
	CardholderName  string `json:"cardholderName,omitempty"`
}

func (CardInstrument) InstrumentType() string { return "PAYMENT_CARD" }

// OffSessionInstrument covers redirect, QR and voucher methods where the
// instrument is just the method type plus opaque session info.
type OffSessionInstrument struct {
	MethodType  string         `json:"paymentMethodType" validate:"required"`
	ConfigID    string         `json:"paymentMethodConfigId" validate:"required"`
	SessionInfo map[string]any `json:"sessionInfo,omitempty"`
}

func (OffSessionInstrument) InstrumentType() string { return "OFF_SESSION_PAYMENT" }

// BankInstrument carries the user's bank choice for bank-selector methods.
type BankInstrument struct {
	MethodType string `json:"paymentMethodType" validate:"required"`
	ConfigID   string `json:"paymentMethodConfigId" validate:"required"`
	BankID     string `json:"bankId" validate:"required"`
}

func (BankInstrument) InstrumentType() string { return "BANK_SELECTOR" }

// WalletInstrument carries an external wallet authorization payload.
type WalletInstrument struct {
	MethodType  string `json:"paymentMethodType" validate:"required"`
	WalletToken string `json:"walletToken" validate:"required"`
	MerchantID  string `json:"merchantIdentifier,omitempty"`
}

func (WalletInstrument) InstrumentType() string { return "WALLET" }

// KlarnaInstrument carries the Klarna authorization produced by the
// external SDK collaborator.
type KlarnaInstrument struct {
	AuthorizationToken string `json:"klarnaAuthorizationToken" validate:"required"`
	SessionData        string `json:"sessionData" validate:"required"`
}

func (KlarnaInstrument) InstrumentType() string { return "KLARNA_AUTHORIZATION" }

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateInstrument runs field validation for an instrument variant.
func ValidateInstrument(inst Instrument) error {
	return validate.Struct(inst)
}
