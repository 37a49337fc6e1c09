// Package cart holds the cart view: its state container, the client-side
// pricing and the operations that talk to the cart and payment endpoints.
//
// State follows replace-on-success: every mutation is followed by a refetch
// and the fetched cart replaces the local one. No optimistic merge is
// attempted, so the last completed write wins. A failed operation leaves
// the state as it was and reports a Notice.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/logging"
	"github.com/shopspring/decimal"
)

// API is the part of the backend the cart view uses.
type API interface {
	GetCart(ctx context.Context) (*models.Cart, error)
	AddToCart(ctx context.Context, brand string, quantity int) error
	UpdateCart(ctx context.Context, brand string, quantity int) error
	ClearCart(ctx context.Context) error
	Checkout(ctx context.Context) (*models.CheckoutResult, error)
	Quote(ctx context.Context, req models.PaymentRequest) (*models.Quote, error)
	Charge(ctx context.Context, req models.PaymentRequest) (*models.Charge, error)
}

// State is the cart view state. Quote is nil until a quote was obtained.
type State struct {
	Cart    models.Cart
	Open    bool
	Quote   *models.Quote
	PayOpen bool
}

const (
	msgAddFailed      = "Error adding to cart"
	msgUpdateFailed   = "Error updating cart"
	msgClearFailed    = "Error clearing cart"
	msgCheckoutFailed = "Error on checkout"
	msgQuoteFailed    = "Error getting quote"
	msgChargeFailed   = "Payment failed"
	msgQuoteRequired  = "Get a quote before charging"
)

type Option func(*Engine)

// WithCatalogRefresh sets what checkout runs to refetch the catalog.
func WithCatalogRefresh(fn func(ctx context.Context)) Option {
	return func(e *Engine) { e.refreshCatalog = fn }
}

// WithUnauthorized sets the hook called when the backend answers 401.
func WithUnauthorized(fn func(ctx context.Context)) Option {
	return func(e *Engine) { e.onUnauthorized = fn }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine is the cart state container. It is safe for concurrent use; the
// lock is never held across a request.
type Engine struct {
	api            API
	log            logging.Logger
	refreshCatalog func(ctx context.Context)
	onUnauthorized func(ctx context.Context)

	mu    sync.Mutex
	state State
}

func NewEngine(api API, opts ...Option) *Engine {
	e := &Engine{
		api:            api,
		log:            logging.Discard(),
		refreshCatalog: func(context.Context) {},
		onUnauthorized: func(context.Context) {},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns a snapshot; the caller may keep it.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.state
	st.Cart.Items = append([]models.CartItem(nil), e.state.Cart.Items...)
	if e.state.Quote != nil {
		q := *e.state.Quote
		st.Quote = &q
	}
	return st
}

func (e *Engine) SetOpen(open bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.Open = open
}

func (e *Engine) SetPayOpen(open bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.PayOpen = open
}

// Summary prices the current cart.
func (e *Engine) Summary() Summary {
	return Summarize(e.State().Cart.Items)
}

// FetchCart replaces the local cart with the server's. On failure the local
// cart is kept.
func (e *Engine) FetchCart(ctx context.Context) error {
	c, err := e.api.GetCart(ctx)
	if err != nil {
		e.log.Warn(ctx, "failed to fetch cart", "error", err)
		e.unauthorized(ctx, err)
		return fmt.Errorf("fetch cart: %w", err)
	}
	e.mu.Lock()
	e.state.Cart = *c
	e.mu.Unlock()
	return nil
}

func (e *Engine) AddToCart(ctx context.Context, brand string, quantity int) models.Notice {
	if err := e.api.AddToCart(ctx, brand, quantity); err != nil {
		return e.fail(ctx, "add to cart", err, msgAddFailed)
	}
	_ = e.FetchCart(ctx)
	e.SetOpen(true)
	return models.Success(fmt.Sprintf("Added %s to cart", brand))
}

// UpdateQuantity sets the quantity of a line. Negative quantities are
// clamped to zero; a zero line is kept.
func (e *Engine) UpdateQuantity(ctx context.Context, brand string, quantity int) models.Notice {
	quantity = max(quantity, 0)
	if err := e.api.UpdateCart(ctx, brand, quantity); err != nil {
		return e.fail(ctx, "update cart", err, msgUpdateFailed)
	}
	_ = e.FetchCart(ctx)
	return models.Notice{}
}

// Step changes a line's quantity by delta. A missing quantity counts as 1,
// the way the panel's +/- buttons treat it.
func (e *Engine) Step(ctx context.Context, brand string, delta int) models.Notice {
	line, ok := e.State().Cart.Line(brand)
	if !ok {
		return models.Failure(fmt.Sprintf("%s is not in the cart", brand))
	}
	q := line.Quantity
	if q == 0 {
		q = 1
	}
	return e.UpdateQuantity(ctx, brand, q+delta)
}

func (e *Engine) ClearCart(ctx context.Context) models.Notice {
	if err := e.api.ClearCart(ctx); err != nil {
		return e.fail(ctx, "clear cart", err, msgClearFailed)
	}
	_ = e.FetchCart(ctx)
	return models.Success("Cart cleared")
}

// Checkout purchases every line; lines fail independently. Afterwards the
// cart and the catalog are refetched exactly once each, whatever the
// outcome.
func (e *Engine) Checkout(ctx context.Context) models.Notice {
	res, err := e.api.Checkout(ctx)

	_ = e.FetchCart(ctx)
	e.refreshCatalog(ctx)

	if err != nil {
		return e.fail(ctx, "checkout", err, msgCheckoutFailed)
	}
	for _, l := range res.Failed() {
		e.log.Info(ctx, "checkout line failed", "brand", l.Brand, "status", l.Status, "detail", l.Detail)
	}
	return models.Success(fmt.Sprintf("Checkout complete: %d/%d items purchased", res.Purchased(), res.Total()))
}

func (e *Engine) paymentRequest(taxRate, discount decimal.Decimal, method models.PaymentMethod) models.PaymentRequest {
	return models.PaymentRequest{
		Items:    e.State().Cart.Items,
		TaxRate:  taxRate,
		Discount: discount,
		Method:   method,
	}
}

// GetQuote asks the server to price the cart. The previous quote is dropped
// on failure.
func (e *Engine) GetQuote(ctx context.Context, taxRate, discount decimal.Decimal) models.Notice {
	q, err := e.api.Quote(ctx, e.paymentRequest(taxRate, discount, ""))
	if err != nil {
		e.mu.Lock()
		e.state.Quote = nil
		e.mu.Unlock()
		return e.fail(ctx, "quote", err, msgQuoteFailed)
	}
	e.mu.Lock()
	e.state.Quote = q
	e.mu.Unlock()
	return models.Notice{}
}

// Charge settles the cart. It needs a quote first, is sent once and is
// never retried.
func (e *Engine) Charge(ctx context.Context, taxRate, discount decimal.Decimal, method models.PaymentMethod) models.Notice {
	if e.State().Quote == nil {
		return models.Failure(msgQuoteRequired)
	}
	ch, err := e.api.Charge(ctx, e.paymentRequest(taxRate, discount, method))
	if err != nil {
		return e.fail(ctx, "charge", err, msgChargeFailed)
	}
	e.mu.Lock()
	e.state.Quote = nil
	e.state.PayOpen = false
	e.mu.Unlock()
	return models.Success("Payment recorded: " + ch.PaymentID)
}

func (e *Engine) fail(ctx context.Context, op string, err error, fallback string) models.Notice {
	e.log.Warn(ctx, op+" failed", "error", err)
	e.unauthorized(ctx, err)
	return models.Failure(client.Detail(err, fallback))
}

func (e *Engine) unauthorized(ctx context.Context, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		e.onUnauthorized(ctx)
	}
}
