package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/dmitrijs2005/gophstore/internal/logging"
	"github.com/google/uuid"
)

const maxResponseBody = 4 << 20

// Options configures an HTTPClient. Zero RetryCount or RetryDelay disables
// retries.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
	Tokens     TokenSource
	Logger     logging.Logger
	// Transport is the innermost round tripper; http.DefaultTransport's
	// clone when nil.
	Transport http.RoundTripper
}

// HTTPClient talks to the store backend over its REST API.
type HTTPClient struct {
	baseURL    string
	http       *http.Client
	retryCount uint64
	retryDelay time.Duration
	log        logging.Logger
	newID      func() string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(opts Options) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", opts.BaseURL)
	}

	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	retryCount := 0
	if opts.RetryCount > 0 {
		retryCount = opts.RetryCount
	}

	return &HTTPClient{
		baseURL: base,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: newTransport(opts.Transport, opts.Tokens),
		},
		retryCount: uint64(retryCount),
		retryDelay: opts.RetryDelay,
		log:        log.With("component", "http-client"),
		newID:      uuid.NewString,
	}, nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

type call struct {
	method string
	path   string
	query  url.Values
	json   any
	form   url.Values
	header http.Header
	// retry marks the call idempotent: transport failures are retried.
	retry bool
}

func (c *HTTPClient) do(ctx context.Context, cl call, out any) error {
	op := cl.method + " " + cl.path
	if !cl.retry {
		return c.once(ctx, op, cl, out)
	}
	return c.withRetry(ctx, op, func(ctx context.Context) error {
		return c.once(ctx, op, cl, out)
	})
}

func (c *HTTPClient) newRequest(ctx context.Context, cl call) (*http.Request, error) {
	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case cl.form != nil:
		body = strings.NewReader(cl.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case cl.json != nil:
		b, err := json.Marshal(cl.json)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range cl.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *HTTPClient) once(ctx context.Context, op string, cl call, out any) error {
	req, err := c.newRequest(ctx, cl)
	if err != nil {
		return err
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapError(ctx, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return c.mapError(ctx, op, err)
	}

	c.log.Debug(ctx, "request done", "op", op, "status", resp.StatusCode, "elapsed", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newServiceError(resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, op, err)
	}
	return nil
}

// mapError turns an error from http.Client.Do into the package taxonomy.
// The caller's own cancellation is returned as is.
func (c *HTTPClient) mapError(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, ErrLocalDataNotAvailable) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

func itemPath(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func brandQuantity(brand string, quantity int) url.Values {
	return url.Values{
		"brand":    {brand},
		"quantity": {strconv.Itoa(quantity)},
	}
}

// Auth

func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) (*models.Token, error) {
	form := url.Values{
		"username": {username},
		"password": {string(password)},
	}
	var tok models.Token
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/token", form: form, retry: true}, &tok); err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrMalformedResponse)
	}
	return &tok, nil
}

func (c *HTTPClient) Register(ctx context.Context, reg models.Registration) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, call{method: http.MethodPost, path: "/auth/users", json: reg}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *HTTPClient) Me(ctx context.Context) (*models.Identity, error) {
	var id models.Identity
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", retry: true}, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// VerifyToken is a single attempt: the guard decides what a transport
// failure means, so it is not retried here.
func (c *HTTPClient) VerifyToken(ctx context.Context, token string) (*models.Identity, error) {
	h := http.Header{}
	h.Set(common.AuthorizationHeader, common.BearerToken(token))
	var id models.Identity
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", header: h}, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// Catalog

func (c *HTTPClient) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := c.do(ctx, call{method: http.MethodGet, path: "/items", retry: true}, &items); err != nil {
		return nil, err
	}
	return validItems(items)
}

func (c *HTTPClient) CountItems(ctx context.Context) (*models.ItemStats, error) {
	var st models.ItemStats
	if err := c.do(ctx, call{method: http.MethodGet, path: "/items/count", retry: true}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *HTTPClient) SearchItems(ctx context.Context, query string) ([]models.Item, error) {
	var items []models.Item
	cl := call{method: http.MethodGet, path: "/items/search", query: url.Values{"q": {query}}, retry: true}
	if err := c.do(ctx, cl, &items); err != nil {
		return nil, err
	}
	return validItems(items)
}

func (c *HTTPClient) GetItem(ctx context.Context, brand string) (*models.Item, error) {
	var it models.Item
	if err := c.do(ctx, call{method: http.MethodGet, path: itemPath("items", brand), retry: true}, &it); err != nil {
		return nil, err
	}
	if err := it.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &it, nil
}

func (c *HTTPClient) CreateItem(ctx context.Context, item models.Item) (*models.Item, error) {
	var it models.Item
	if err := c.do(ctx, call{method: http.MethodPost, path: "/items", json: newItemPayload(item)}, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *HTTPClient) UpdateItem(ctx context.Context, brand string, item models.Item) (*models.ItemUpdate, error) {
	var upd models.ItemUpdate
	cl := call{method: http.MethodPut, path: itemPath("items", brand), json: newItemPayload(item)}
	if err := c.do(ctx, cl, &upd); err != nil {
		return nil, err
	}
	return &upd, nil
}

func (c *HTTPClient) DeleteItem(ctx context.Context, brand string) (*models.ItemDeletion, error) {
	var del models.ItemDeletion
	if err := c.do(ctx, call{method: http.MethodDelete, path: itemPath("items", brand)}, &del); err != nil {
		return nil, err
	}
	return &del, nil
}

func (c *HTTPClient) BuyItem(ctx context.Context, brand string) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, call{method: http.MethodPost, path: itemPath("items", "buy", brand)}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func validItems(items []models.Item) ([]models.Item, error) {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}

// Cart

func (c *HTTPClient) GetCart(ctx context.Context) (*models.Cart, error) {
	var cart models.Cart
	if err := c.do(ctx, call{method: http.MethodGet, path: "/cart", retry: true}, &cart); err != nil {
		return nil, err
	}
	if err := cart.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &cart, nil
}

func (c *HTTPClient) AddToCart(ctx context.Context, brand string, quantity int) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/cart/add", query: brandQuantity(brand, quantity)}, nil)
}

func (c *HTTPClient) UpdateCart(ctx context.Context, brand string, quantity int) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/cart/update", query: brandQuantity(brand, quantity)}, nil)
}

func (c *HTTPClient) ClearCart(ctx context.Context) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/cart/clear"}, nil)
}

func (c *HTTPClient) Checkout(ctx context.Context) (*models.CheckoutResult, error) {
	var res models.CheckoutResult
	if err := c.do(ctx, call{method: http.MethodPost, path: "/cart/checkout"}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Notifications

func (c *HTTPClient) Notifications(ctx context.Context) ([]models.Notification, error) {
	var n models.Notifications
	if err := c.do(ctx, call{method: http.MethodGet, path: "/notifications", retry: true}, &n); err != nil {
		return nil, err
	}
	if n.Notifications == nil {
		return []models.Notification{}, nil
	}
	return n.Notifications, nil
}

func (c *HTTPClient) ClearNotifications(ctx context.Context) (*models.Message, error) {
	var msg models.Message
	if err := c.do(ctx, call{method: http.MethodDelete, path: "/notifications/clear"}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Payments

func (c *HTTPClient) Quote(ctx context.Context, req models.PaymentRequest) (*models.Quote, error) {
	var q models.Quote
	cl := call{method: http.MethodPost, path: "/payments/quote", json: newPaymentPayload(req, false)}
	if err := c.do(ctx, cl, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Charge is never retried; the Idempotency-Key lets the backend recognise a
// replay should the caller choose to resend.
func (c *HTTPClient) Charge(ctx context.Context, req models.PaymentRequest) (*models.Charge, error) {
	h := http.Header{}
	h.Set(common.IdempotencyKeyHeader, c.newID())
	var ch models.Charge
	cl := call{method: http.MethodPost, path: "/payments/charge", json: newPaymentPayload(req, true), header: h}
	if err := c.do(ctx, cl, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}
