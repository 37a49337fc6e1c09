package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentMethod names how a charge is settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// ParsePaymentMethod accepts the known methods case-insensitively.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentCash, PaymentCard, PaymentUPI:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", ErrInvalid, s)
}

// PaymentRequest is what quote and charge are computed from. Method is only
// sent with a charge.
type PaymentRequest struct {
	Items    []CartItem
	TaxRate  decimal.Decimal
	Discount decimal.Decimal
	Method   PaymentMethod
}

// Quote is the server-computed, non-binding price breakdown.
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Charge is the response of POST /payments/charge.
type Charge struct {
	PaymentID string `json:"payment_id"`
	Quote
}
