package cart

import (
	"testing"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(brand, price string, qty int) models.CartItem {
	return models.CartItem{Brand: brand, Name: brand, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestSummarize_Example(t *testing.T) {
	s := Summarize([]models.CartItem{line("A", "10", 2), line("B", "5", 1)})

	assert.Equal(t, "25.00", Money(s.Subtotal))
	assert.Equal(t, "5.00", Money(s.Shipping))
	assert.Equal(t, "30.00", Money(s.Total))
	assert.Equal(t, "27.50", Money(s.DiscountedTotal))
	assert.Equal(t, "2.50", Money(s.Savings))
}

func TestSummarize_Formulas(t *testing.T) {
	tests := []struct {
		name  string
		items []models.CartItem
	}{
		{"empty", nil},
		{"zero quantity line", []models.CartItem{line("A", "19.99", 0)}},
		{"fractions", []models.CartItem{line("A", "0.335", 3), line("B", "12.10", 7)}},
		{"many", []models.CartItem{line("A", "1.01", 1), line("B", "2.02", 2), line("C", "3.03", 3), line("D", "99.99", 11)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := decimal.Zero
			for _, ci := range tt.items {
				want = want.Add(ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity))))
			}
			s := Summarize(tt.items)
			assert.True(t, want.Equal(s.Subtotal))
			assert.Equal(t, Money(want.Mul(decimal.RequireFromString("0.9")).Add(decimal.NewFromInt(5))), Money(s.DiscountedTotal))
			assert.Equal(t, Money(want.Mul(decimal.RequireFromString("0.1"))), Money(s.Savings))
			assert.True(t, s.Total.Equal(s.Subtotal.Add(ShippingFee)))
		})
	}
}

func TestDiscountedPrice(t *testing.T) {
	assert.Equal(t, "9.00", Money(DiscountedPrice(decimal.NewFromInt(10))))
	assert.Equal(t, "0.30", Money(DiscountedPrice(decimal.RequireFromString("0.335"))))
}

func TestMoney_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, "0.13", Money(decimal.RequireFromString("0.125")))
	assert.Equal(t, "2.00", Money(decimal.NewFromInt(2)))
}
