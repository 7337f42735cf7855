// Package checkout holds the domain types shared across the SDK: payment
// method configuration, payment resources, checkout results, merchant-facing
// settings and the host delegate contract. Subpackages implement the
// tokenization and payment lifecycle on top of these types.
package checkout

// Intent describes what the current client session is for.
type Intent string

const (
	// IntentCheckout runs a payment after tokenization.
	IntentCheckout Intent = "CHECKOUT"
	// IntentVault stores the tokenized instrument without paying.
	IntentVault Intent = "VAULT"
)

// PaymentHandling selects who drives the payment resource lifecycle after
// tokenization: the SDK (auto) or the host application (manual).
type PaymentHandling string

const (
	HandlingAuto   PaymentHandling = "AUTO"
	HandlingManual PaymentHandling = "MANUAL"
)

// MethodCategory groups payment method implementations by how the user
// completes them.
type MethodCategory string

const (
	CategoryNative      MethodCategory = "NATIVE"
	CategoryWebRedirect MethodCategory = "WEB_REDIRECT"
	CategoryWallet      MethodCategory = "WALLET"
)

// PaymentMethodConfig is the merchant-configured descriptor of one payment
// method. Immutable once fetched; a configuration snapshot is replaced
// wholesale when a new client token arrives.
type PaymentMethodConfig struct {
	ID       string
	Type     string
	Name     string
	Category MethodCategory
	Options  map[string]string
}

// Option returns a per-method option value, or "" when absent.
func (c PaymentMethodConfig) Option(key string) string {
	if c.Options == nil {
		return ""
	}
	return c.Options[key]
}

// PaymentStatus is the server-side payment resource status.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "PENDING"
	StatusSuccess PaymentStatus = "SUCCESS"
	StatusFailed  PaymentStatus = "FAILED"
)

// RequiredAction signals that a further step is needed before the payment
// can settle. The embedded client token fully replaces the previous session
// token before any subsequent step runs.
type RequiredAction struct {
	Name        string
	ClientToken string
	Description string
}

// Payment is the server-side payment resource as the orchestration needs to
// see it. It is created by createPayment and mutated only by resumePayment
// responses, never locally.
type Payment struct {
	ID             string
	OrderID        string
	Status         PaymentStatus
	CurrencyCode   string
	Amount         int64
	FailureReason  string
	RequiredAction *RequiredAction
}

// TokenData is the result of one tokenization attempt: the opaque token plus
// echoed instrument metadata. Exactly one TokenData is produced per attempt.
type TokenData struct {
	Token          string
	AnalyticsID    string
	InstrumentType string
	Network        string
	Last4          string
}

// PaymentSummary is the host-visible echo of a payment inside CheckoutData.
type PaymentSummary struct {
	ID            string
	OrderID       string
	Status        PaymentStatus
	FailureReason string
}

// AdditionalInfo carries method-specific completion details surfaced to the
// host, e.g. voucher entity/reference or a QR code payload.
type AdditionalInfo struct {
	Entity    string
	Reference string
	ExpiresAt string
	QRCode    string
}

// CheckoutData is the terminal, host-visible summary of a checkout attempt.
// Constructed once and handed to the host callback; a failed payment still
// yields a snapshot with whatever was obtained before the failure.
type CheckoutData struct {
	Payment        *PaymentSummary
	AdditionalInfo *AdditionalInfo
}

// PaymentFromSummary builds CheckoutData around a payment resource.
func PaymentFromSummary(p Payment) *CheckoutData {
	return &CheckoutData{Payment: &PaymentSummary{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Status:        p.Status,
		FailureReason: p.FailureReason,
	}}
}
