package client

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// authTransport stamps every request with a request id and, unless the
// caller already set one, the bearer token from the token source.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
	newID  func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())

	if r.Header.Get(common.RequestIDHeader) == "" {
		r.Header.Set(common.RequestIDHeader, t.newID())
	}

	if r.Header.Get(common.AuthorizationHeader) == "" && t.tokens != nil {
		token, err := t.tokens.Token(r.Context())
		if err != nil {
			if req.Body != nil {
				_ = req.Body.Close()
			}
			return nil, fmt.Errorf("%w: %v", ErrLocalDataNotAvailable, err)
		}
		if token != "" {
			r.Header.Set(common.AuthorizationHeader, common.BearerToken(token))
		}
	}

	return t.base.RoundTrip(r)
}

func newTransport(base http.RoundTripper, tokens TokenSource) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}
	auth := &authTransport{base: base, tokens: tokens, newID: uuid.NewString}
	return otelhttp.NewTransport(auth)
}
