package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI keeps a server-side cart and counts calls.
type fakeAPI struct {
	mu sync.Mutex

	cart     models.Cart
	checkout *models.CheckoutResult
	quote    *models.Quote
	charge   *models.Charge

	getErr, addErr, updateErr, clearErr, checkoutErr, quoteErr, chargeErr error

	getCalls     int
	updates      []int
	lastPayment  models.PaymentRequest
	paymentCalls int
}

func (f *fakeAPI) GetCart(context.Context) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	c := f.cart
	c.Items = append([]models.CartItem(nil), f.cart.Items...)
	return &c, nil
}

func (f *fakeAPI) AddToCart(_ context.Context, brand string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	for i := range f.cart.Items {
		if f.cart.Items[i].Brand == brand {
			f.cart.Items[i].Quantity += qty
			return nil
		}
	}
	f.cart.Items = append(f.cart.Items, models.CartItem{Brand: brand, Name: brand, Price: decimal.NewFromInt(1), Quantity: qty})
	return nil
}

func (f *fakeAPI) UpdateCart(_ context.Context, brand string, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, qty)
	if f.updateErr != nil {
		return f.updateErr
	}
	for i := range f.cart.Items {
		if f.cart.Items[i].Brand == brand {
			f.cart.Items[i].Quantity = qty
		}
	}
	return nil
}

func (f *fakeAPI) ClearCart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.cart.Items = nil
	return nil
}

func (f *fakeAPI) Checkout(context.Context) (*models.CheckoutResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkout, f.checkoutErr
}

func (f *fakeAPI) Quote(_ context.Context, req models.PaymentRequest) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPayment = req
	f.paymentCalls++
	return f.quote, f.quoteErr
}

func (f *fakeAPI) Charge(_ context.Context, req models.PaymentRequest) (*models.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPayment = req
	f.paymentCalls++
	return f.charge, f.chargeErr
}

func twoLineCart() models.Cart {
	return models.Cart{Username: "alice", Items: []models.CartItem{line("A", "10", 2), line("B", "5", 1)}}
}

func TestEngine_FetchCartReplaces(t *testing.T) {
	api := &fakeAPI{cart: twoLineCart()}
	e := NewEngine(api)

	require.NoError(t, e.FetchCart(context.Background()))
	st := e.State()
	assert.Equal(t, "alice", st.Cart.Username)
	assert.Len(t, st.Cart.Items, 2)

	api.getErr = &client.TransportError{Op: "GET /cart", Err: errors.New("refused")}
	require.ErrorIs(t, e.FetchCart(context.Background()), client.ErrUnavailable)
	assert.Len(t, e.State().Cart.Items, 2, "failed fetch keeps the old cart")
}

func TestEngine_AddToCart(t *testing.T) {
	api := &fakeAPI{}
	e := NewEngine(api)

	n := e.AddToCart(context.Background(), "A", 2)
	assert.Equal(t, models.Success("Added A to cart"), n)
	st := e.State()
	assert.True(t, st.Open)
	require.Len(t, st.Cart.Items, 1)
	assert.Equal(t, 2, st.Cart.Items[0].Quantity)
	assert.Equal(t, 1, api.getCalls)
}

func TestEngine_AddToCartFailure(t *testing.T) {
	api := &fakeAPI{addErr: &client.ServiceError{StatusCode: 400, Detail: "Out of stock"}}
	e := NewEngine(api)

	assert.Equal(t, models.Failure("Out of stock"), e.AddToCart(context.Background(), "A", 1))
	assert.False(t, e.State().Open)
	assert.Zero(t, api.getCalls)

	api.addErr = &client.TransportError{Op: "POST /cart/add", Err: errors.New("refused")}
	assert.Equal(t, models.Failure("Error adding to cart"), e.AddToCart(context.Background(), "A", 1))
}

func TestEngine_UpdateQuantityClampsAndKeepsLine(t *testing.T) {
	api := &fakeAPI{cart: twoLineCart()}
	e := NewEngine(api)
	ctx := context.Background()
	require.NoError(t, e.FetchCart(ctx))

	for _, q := range []int{-1, -7, -1000} {
		n := e.UpdateQuantity(ctx, "A", q)
		assert.True(t, n.IsZero())
	}
	assert.Equal(t, []int{0, 0, 0}, api.updates)

	l, ok := e.State().Cart.Line("A")
	require.True(t, ok, "line kept at zero")
	assert.Equal(t, 0, l.Quantity)
}

func TestEngine_Step(t *testing.T) {
	api := &fakeAPI{cart: models.Cart{Items: []models.CartItem{line("A", "1", 0), line("B", "1", 3)}}}
	e := NewEngine(api)
	ctx := context.Background()
	require.NoError(t, e.FetchCart(ctx))

	e.Step(ctx, "A", +1)
	e.Step(ctx, "B", -1)
	assert.Equal(t, []int{2, 2}, api.updates)

	n := e.Step(ctx, "Z", 1)
	assert.True(t, n.Error)
}

func TestEngine_UpdateFailureKeepsState(t *testing.T) {
	api := &fakeAPI{cart: twoLineCart()}
	e := NewEngine(api)
	ctx := context.Background()
	require.NoError(t, e.FetchCart(ctx))
	before := e.State()

	api.updateErr = &client.ServiceError{StatusCode: 422}
	assert.Equal(t, models.Failure("Error updating cart"), e.UpdateQuantity(ctx, "A", 5))
	assert.Equal(t, before, e.State())
}

func TestEngine_ClearCart(t *testing.T) {
	api := &fakeAPI{cart: twoLineCart()}
	e := NewEngine(api)
	ctx := context.Background()
	require.NoError(t, e.FetchCart(ctx))

	assert.Equal(t, models.Success("Cart cleared"), e.ClearCart(ctx))
	assert.True(t, e.State().Cart.IsEmpty())

	api.clearErr = errors.New("boom")
	assert.Equal(t, models.Failure("Error clearing cart"), e.ClearCart(ctx))
}

func TestEngine_CheckoutPartial(t *testing.T) {
	api := &fakeAPI{
		cart: models.Cart{Items: []models.CartItem{line("A", "1", 1), line("B", "1", 1), line("C", "1", 1)}},
		checkout: &models.CheckoutResult{Results: []models.CheckoutLine{
			{Brand: "A", Status: "ok"},
			{Brand: "B", Status: "out_of_stock", Detail: "Out of stock"},
			{Brand: "C", Status: "ok"},
		}},
	}
	catalog := 0
	e := NewEngine(api, WithCatalogRefresh(func(context.Context) { catalog++ }))

	n := e.Checkout(context.Background())
	assert.Equal(t, models.Success("Checkout complete: 2/3 items purchased"), n)
	assert.Equal(t, 1, api.getCalls)
	assert.Equal(t, 1, catalog)
}

func TestEngine_CheckoutFailureStillRefetches(t *testing.T) {
	api := &fakeAPI{checkoutErr: &client.ServiceError{StatusCode: 400, Detail: "Cart is empty"}}
	catalog := 0
	e := NewEngine(api, WithCatalogRefresh(func(context.Context) { catalog++ }))

	assert.Equal(t, models.Failure("Cart is empty"), e.Checkout(context.Background()))
	assert.Equal(t, 1, api.getCalls)
	assert.Equal(t, 1, catalog)

	api.checkoutErr = &client.TransportError{Op: "POST /cart/checkout", Err: errors.New("reset")}
	assert.Equal(t, models.Failure("Error on checkout"), e.Checkout(context.Background()))
	assert.Equal(t, 2, api.getCalls)
	assert.Equal(t, 2, catalog)
}

func TestEngine_UnauthorizedHook(t *testing.T) {
	api := &fakeAPI{addErr: &client.ServiceError{StatusCode: 401, Detail: "Invalid or expired token"}}
	hits := 0
	e := NewEngine(api, WithUnauthorized(func(context.Context) { hits++ }))

	n := e.AddToCart(context.Background(), "A", 1)
	assert.Equal(t, models.Failure("Invalid or expired token"), n)
	assert.Equal(t, 1, hits)

	api.addErr = &client.ServiceError{StatusCode: 400, Detail: "x"}
	e.AddToCart(context.Background(), "A", 1)
	assert.Equal(t, 1, hits)
}

func TestEngine_QuoteFromSnapshot(t *testing.T) {
	api := &fakeAPI{
		cart:  twoLineCart(),
		quote: &models.Quote{Subtotal: decimal.NewFromInt(25), Total: decimal.RequireFromString("26.5")},
	}
	e := NewEngine(api)
	ctx := context.Background()
	require.NoError(t, e.FetchCart(ctx))

	tax := decimal.RequireFromString("0.1")
	n := e.GetQuote(ctx, tax, decimal.NewFromInt(1))
	assert.True(t, n.IsZero())
	require.NotNil(t, e.State().Quote)
	assert.Equal(t, "26.5", e.State().Quote.Total.String())

	assert.Equal(t, twoLineCart().Items, api.lastPayment.Items)
	assert.True(t, api.lastPayment.TaxRate.Equal(tax))
	assert.Empty(t, api.lastPayment.Method)

	api.quoteErr = &client.ServiceError{StatusCode: 422}
	assert.Equal(t, models.Failure("Error getting quote"), e.GetQuote(ctx, tax, decimal.Zero))
	assert.Nil(t, e.State().Quote)
}

func TestEngine_Charge(t *testing.T) {
	api := &fakeAPI{
		cart:   twoLineCart(),
		quote:  &models.Quote{Total: decimal.NewFromInt(30)},
		charge: &models.Charge{PaymentID: "pay-42"},
	}
	e := NewEngine(api)
	ctx := context.Background()
	require.NoError(t, e.FetchCart(ctx))
	e.SetPayOpen(true)
	e.GetQuote(ctx, decimal.Zero, decimal.Zero)

	assert.Equal(t, models.Success("Payment recorded: pay-42"), e.Charge(ctx, decimal.Zero, decimal.Zero, models.PaymentCard))
	st := e.State()
	assert.Nil(t, st.Quote)
	assert.False(t, st.PayOpen)
	assert.Equal(t, models.PaymentCard, api.lastPayment.Method)
}

func TestEngine_ChargeFailureKeepsQuote(t *testing.T) {
	api := &fakeAPI{
		quote:     &models.Quote{Total: decimal.NewFromInt(5)},
		chargeErr: &client.TransportError{Op: "POST /payments/charge", Err: errors.New("timeout")},
	}
	e := NewEngine(api)
	ctx := context.Background()
	e.SetPayOpen(true)
	e.GetQuote(ctx, decimal.Zero, decimal.Zero)

	assert.Equal(t, models.Failure("Payment failed"), e.Charge(ctx, decimal.Zero, decimal.Zero, models.PaymentCash))
	st := e.State()
	assert.NotNil(t, st.Quote)
	assert.True(t, st.PayOpen)
	assert.Equal(t, 2, api.paymentCalls, "one quote, one charge, no retry")
}

func TestEngine_ChargeNeedsQuote(t *testing.T) {
	api := &fakeAPI{charge: &models.Charge{PaymentID: "x"}}
	e := NewEngine(api)

	assert.Equal(t, models.Failure("Get a quote before charging"), e.Charge(context.Background(), decimal.Zero, decimal.Zero, models.PaymentCash))
	assert.Zero(t, api.paymentCalls)
}

func TestEngine_StateIsSnapshot(t *testing.T) {
	api := &fakeAPI{cart: twoLineCart()}
	e := NewEngine(api)
	require.NoError(t, e.FetchCart(context.Background()))

	st := e.State()
	st.Cart.Items[0].Quantity = 99
	l, _ := e.State().Cart.Line("A")
	assert.Equal(t, 2, l.Quantity)
}
