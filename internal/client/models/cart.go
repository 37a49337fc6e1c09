package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CartItem is one line of a cart. Quantity 0 keeps the line.
type CartItem struct {
	ItemID   string          `json:"item_id,omitempty"`
	Brand    string          `json:"brand"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// LineTotal is Price × Quantity.
func (ci CartItem) LineTotal() decimal.Decimal {
	return ci.Price.Mul(decimal.NewFromInt(int64(ci.Quantity)))
}

// Cart is the response of GET /cart.
type Cart struct {
	Username string     `json:"username"`
	Items    []CartItem `json:"items"`
}

// Line returns the line keyed by brand.
func (c Cart) Line(brand string) (CartItem, bool) {
	for _, ci := range c.Items {
		if ci.Brand == brand {
			return ci, true
		}
	}
	return CartItem{}, false
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Validate checks the line invariants: unique non-empty brands, prices and
// quantities not negative.
func (c Cart) Validate() error {
	seen := make(map[string]struct{}, len(c.Items))
	for _, ci := range c.Items {
		if strings.TrimSpace(ci.Brand) == "" {
			return fmt.Errorf("%w: cart line without brand", ErrInvalid)
		}
		if _, dup := seen[ci.Brand]; dup {
			return fmt.Errorf("%w: duplicate cart line %q", ErrInvalid, ci.Brand)
		}
		seen[ci.Brand] = struct{}{}
		if ci.Price.IsNegative() {
			return fmt.Errorf("%w: cart line %q has negative price", ErrInvalid, ci.Brand)
		}
		if ci.Quantity < 0 {
			return fmt.Errorf("%w: cart line %q has negative quantity", ErrInvalid, ci.Brand)
		}
	}
	return nil
}

// CheckoutStatusOK tags a line the backend purchased; anything else is an
// error tag.
const CheckoutStatusOK = "ok"

// CheckoutLine is the per-line outcome of POST /cart/checkout.
type CheckoutLine struct {
	Brand  string `json:"brand"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (l CheckoutLine) OK() bool {
	return l.Status == CheckoutStatusOK
}

// CheckoutResult is the response of POST /cart/checkout. Lines fail
// independently.
type CheckoutResult struct {
	Results []CheckoutLine `json:"results"`
}

// Purchased counts the lines tagged ok.
func (r CheckoutResult) Purchased() int {
	n := 0
	for _, l := range r.Results {
		if l.OK() {
			n++
		}
	}
	return n
}

func (r CheckoutResult) Total() int {
	return len(r.Results)
}

// Failed returns the lines not tagged ok.
func (r CheckoutResult) Failed() []CheckoutLine {
	var out []CheckoutLine
	for _, l := range r.Results {
		if !l.OK() {
			out = append(out, l)
		}
	}
	return out
}
