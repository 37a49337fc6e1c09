package cart

import (
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
)

var (
	// ShippingFee is the flat shipping added to every total.
	ShippingFee = decimal.RequireFromString("5.00")
	// PromoRate is the display-only promotional discount.
	PromoRate = decimal.RequireFromString("0.10")

	promoFactor = decimal.NewFromInt(1).Sub(PromoRate)
)

// Summary is the client-side price breakdown of a cart. It is computed
// independently of the server quote and the two are never reconciled.
type Summary struct {
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Total           decimal.Decimal
	DiscountedTotal decimal.Decimal
	Savings         decimal.Decimal
}

// Summarize computes
//
//	subtotal         = Σ price·quantity
//	total            = subtotal + shipping
//	discounted total = subtotal·(1 - promo) + shipping
//	savings          = subtotal·promo
//
// Values are exact; round with Money for display.
func Summarize(items []models.CartItem) Summary {
	subtotal := decimal.Zero
	for _, ci := range items {
		subtotal = subtotal.Add(ci.LineTotal())
	}
	return Summary{
		Subtotal:        subtotal,
		Shipping:        ShippingFee,
		Total:           subtotal.Add(ShippingFee),
		DiscountedTotal: subtotal.Mul(promoFactor).Add(ShippingFee),
		Savings:         subtotal.Mul(PromoRate),
	}
}

// DiscountedPrice is the per-unit price after the promotional discount.
func DiscountedPrice(price decimal.Decimal) decimal.Decimal {
	return price.Mul(promoFactor)
}

// Money formats d with two decimals, rounding half away from zero.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
