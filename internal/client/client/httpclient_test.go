package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) { return s.token, s.err }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// flakyTransport fails the first n round trips with a network error.
func flakyTransport(n int32, calls *int32) http.RoundTripper {
	base := http.DefaultTransport
	return roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if atomic.AddInt32(calls, 1) <= n {
			return nil, errors.New("connection refused")
		}
		return base.RoundTrip(r)
	})
}

func newTestClient(t *testing.T, srv *httptest.Server, mod func(*Options)) *HTTPClient {
	t.Helper()
	opts := Options{
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		RetryCount: 3,
		RetryDelay: time.Millisecond,
		Tokens:     staticTokens{token: "stored"},
	}
	if mod != nil {
		mod(&opts)
	}
	c, err := NewHTTPClient(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient(Options{BaseURL: "not a url"})
	require.Error(t, err)
	_, err = NewHTTPClient(Options{BaseURL: ""})
	require.Error(t, err)
}

func TestTransport_InjectsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AuthorizationHeader)
		gotID = r.Header.Get(common.RequestIDHeader)
		_, _ = io.WriteString(w, `{"username":"alice","items":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	cart, err := c.GetCart(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", cart.Username)
	assert.Equal(t, "Bearer stored", gotAuth)
	assert.NotEmpty(t, gotID)
}

func TestTransport_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get(common.AuthorizationHeader)
		_, _ = io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(o *Options) { o.Tokens = staticTokens{} })
	items, err := c.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items)
	assert.Empty(t, gotAuth)
}

func TestTransport_StoreFailureIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, func(o *Options) { o.Tokens = staticTokens{err: errors.New("disk gone")} })
	_, err := c.ListItems(context.Background())
	require.ErrorIs(t, err, ErrLocalDataNotAvailable)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestVerifyToken_ExplicitTokenWins(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		gotAuth = r.Header.Get(common.AuthorizationHeader)
		_, _ = io.WriteString(w, `{"username":"bob","role":"admin"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	id, err := c.VerifyToken(context.Background(), "explicit")
	require.NoError(t, err)
	assert.Equal(t, "Bearer explicit", gotAuth)
	assert.Equal(t, models.RoleAdmin, id.Role)
}

func TestLogin_FormEncoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/token", r.URL.Path)
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "alice", r.PostForm.Get("username"))
		assert.Equal(t, "s3cret&x", r.PostForm.Get("password"))
		_, _ = io.WriteString(w, `{"access_token":"T","token_type":"bearer"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	tok, err := c.Login(context.Background(), "alice", []byte("s3cret&x"))
	require.NoError(t, err)
	assert.Equal(t, "T", tok.AccessToken)
}

func TestLogin_EmptyTokenIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"token_type":"bearer"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Login(context.Background(), "alice", []byte("pw"))
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRetry_IdempotentReadRecovers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total_items":3,"in_stock":2,"out_of_stock":1}`)
	}))
	defer srv.Close()

	var calls int32
	c := newTestClient(t, srv, func(o *Options) { o.Transport = flakyTransport(2, &calls) })
	st, err := c.CountItems(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalItems)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRetry_GivesUpAfterCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	var calls int32
	c := newTestClient(t, srv, func(o *Options) { o.Transport = flakyTransport(100, &calls) })
	_, err := c.ListItems(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestRetry_NeverForMutations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx := context.Background()
	tests := []struct {
		name string
		fn   func(c *HTTPClient) error
	}{
		{"checkout", func(c *HTTPClient) error { _, err := c.Checkout(ctx); return err }},
		{"charge", func(c *HTTPClient) error { _, err := c.Charge(ctx, models.PaymentRequest{}); return err }},
		{"add", func(c *HTTPClient) error { return c.AddToCart(ctx, "A", 1) }},
		{"update", func(c *HTTPClient) error { return c.UpdateCart(ctx, "A", 1) }},
		{"clear", func(c *HTTPClient) error { return c.ClearCart(ctx) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			c := newTestClient(t, srv, func(o *Options) { o.Transport = flakyTransport(100, &calls) })
			require.ErrorIs(t, tt.fn(c), ErrUnavailable)
			assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		})
	}
}

func TestRetry_ServiceErrorIsFinal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.ListItems(context.Background())
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTimeout_IsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, srv, func(o *Options) {
		o.Timeout = 20 * time.Millisecond
		o.RetryCount = 0
	})
	_, err := c.VerifyToken(context.Background(), "x")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.True(t, IsTimeout(err))
}

func TestServiceError_Details(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		unauth     bool
	}{
		{"string detail", 400, `{"detail":"Out of stock"}`, "Out of stock", false},
		{"validation list", 422, `{"detail":[{"loc":["query","quantity"],"msg":"field required"},{"loc":["body"],"msg":"bad"}]}`, "quantity: field required; body: bad", false},
		{"unauthorized", 401, `{"detail":"Invalid or expired token"}`, "Invalid or expired token", true},
		{"no body", 500, ``, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, nil)
			err := c.AddToCart(context.Background(), "A", 1)
			require.Error(t, err)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, tt.unauth, errors.Is(err, ErrUnauthorized))
			assert.Equal(t, tt.wantDetail, Detail(err, ""))
			if tt.wantDetail == "" {
				assert.Equal(t, "fallback", Detail(err, "fallback"))
			}
		})
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cart":
			_, _ = io.WriteString(w, `{"items":[{"brand":"A","quantity":-1}]}`)
		default:
			_, _ = io.WriteString(w, `{"items":`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.GetCart(context.Background())
	require.ErrorIs(t, err, ErrMalformedResponse)
	_, err = c.CountItems(context.Background())
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestCartMutations_QueryParams(t *testing.T) {
	type hit struct{ path, brand, qty string }
	var got []hit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		got = append(got, hit{r.URL.Path, q.Get("brand"), q.Get("quantity")})
		_, _ = io.WriteString(w, `{"msg":"ok"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	ctx := context.Background()
	require.NoError(t, c.AddToCart(ctx, "A&B", 2))
	require.NoError(t, c.UpdateCart(ctx, "A&B", 0))
	require.NoError(t, c.ClearCart(ctx))

	assert.Equal(t, []hit{
		{"/cart/add", "A&B", "2"},
		{"/cart/update", "A&B", "0"},
		{"/cart/clear", "", ""},
	}, got)
}

func TestItemPaths_EscapeBrand(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"msg":"Purchased X successfully"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	msg, err := c.BuyItem(context.Background(), "Big Co/1")
	require.NoError(t, err)
	assert.Equal(t, "Purchased X successfully", msg.Msg)
	assert.Equal(t, "/items/buy/Big%20Co%2F1", gotPath)
}

func TestCharge_PayloadAndIdempotencyKey(t *testing.T) {
	var body map[string]any
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get(common.IdempotencyKeyHeader)
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		require.NoError(t, dec.Decode(&body))
		_, _ = io.WriteString(w, `{"payment_id":"p-9","subtotal":"20.10","tax":0,"discount":0,"total":20.1}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	req := models.PaymentRequest{
		Items: []models.CartItem{
			{ItemID: "i1", Brand: "A", Name: "Apple", Price: decimal.RequireFromString("10.05"), Quantity: 2},
			{Brand: "B", Name: "Banana", Price: decimal.RequireFromString("3"), Quantity: 0},
		},
		TaxRate:  decimal.RequireFromString("0.07"),
		Discount: decimal.Zero,
		Method:   models.PaymentCard,
	}
	ch, err := c.Charge(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "p-9", ch.PaymentID)
	assert.True(t, ch.Total.Equal(decimal.RequireFromString("20.1")))
	assert.NotEmpty(t, key)

	assert.Equal(t, "card", body["method"])
	assert.Equal(t, json.Number("0.07"), body["tax_rate"])
	items := body["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, json.Number("10.05"), first["price"])
	second := items[1].(map[string]any)
	assert.Equal(t, "", second["item_id"])
	assert.Equal(t, json.Number("0"), second["quantity"])
}

func TestQuote_OmitsMethod(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get(common.IdempotencyKeyHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, `{"subtotal":25,"tax":2.5,"discount":1,"total":26.5}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	q, err := c.Quote(context.Background(), models.PaymentRequest{Method: models.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, "26.5", q.Total.String())
	_, has := body["method"]
	assert.False(t, has)
	assert.Equal(t, []any{}, body["items"])
}

func TestNotifications_ForbiddenMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"detail":"Admins or Superadmins only"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.Notifications(context.Background())
	require.ErrorIs(t, err, ErrForbidden)
	require.NotErrorIs(t, err, ErrUnauthorized)
}

func TestGetItem_MissingMatchesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"detail":"Item not found"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	_, err := c.GetItem(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Item not found", Detail(err, ""))
}
