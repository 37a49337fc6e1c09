package cli

import (
	"context"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
)

// Cart refetches the cart and shows the panel.
func (a *App) Cart(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context) error {
		if err := a.cart.FetchCart(ctx); err != nil {
			a.println(client.Detail(err, "Error fetching cart"))
			return err
		}
		a.cart.SetOpen(true)
		a.showCart()
		return nil
	})
}

func (a *App) showCart() {
	renderCart(a.out, a.cart.State().Cart, a.dash.State().Items)
}

func (a *App) Add(ctx context.Context, brand string, quantity int) error {
	return a.protect(ctx, func(ctx context.Context) error {
		a.notify(a.cart.AddToCart(ctx, brand, quantity))
		return nil
	})
}

func (a *App) Update(ctx context.Context, brand string, quantity int) error {
	return a.protect(ctx, func(ctx context.Context) error {
		n := a.cart.UpdateQuantity(ctx, brand, quantity)
		a.notify(n)
		if !n.Error {
			a.showCart()
		}
		return nil
	})
}

func (a *App) Step(ctx context.Context, brand string, delta int) error {
	return a.protect(ctx, func(ctx context.Context) error {
		n := a.cart.Step(ctx, brand, delta)
		a.notify(n)
		if !n.Error {
			a.showCart()
		}
		return nil
	})
}

func (a *App) Clear(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context) error {
		a.notify(a.cart.ClearCart(ctx))
		return nil
	})
}

func (a *App) Checkout(ctx context.Context) error {
	return a.protect(ctx, func(ctx context.Context) error {
		a.notify(a.cart.Checkout(ctx))
		return nil
	})
}

// Quote prices the cart on the server. The payment panel is offered to
// admins only.
func (a *App) Quote(ctx context.Context, taxRate, discount decimal.Decimal) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		a.cart.SetPayOpen(true)
		n := a.cart.GetQuote(ctx, taxRate, discount)
		a.notify(n)
		renderQuote(a.out, a.cart.State().Quote)
		return nil
	})
}

func (a *App) Charge(ctx context.Context, method models.PaymentMethod, taxRate, discount decimal.Decimal) error {
	return a.protectAdmin(ctx, func(ctx context.Context) error {
		a.notify(a.cart.Charge(ctx, taxRate, discount, method))
		return nil
	})
}
