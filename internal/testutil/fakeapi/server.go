// Package fakeapi is an in-memory store backend speaking the REST API the
// client talks to. Tests mount Handler under httptest.
//
// Behaviour follows the real backend where the client can observe it: the
// same paths and status codes, {"detail": ...} error bodies, per-line
// checkout results and low-stock notifications on buy.
package fakeapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	// LowStock is the quantity below which a buy reports low stock.
	LowStock = 3

	adminItemLimit = 10
)

type user struct {
	password passwordHash
	role     models.Role
}

type failure struct {
	status int
	detail string
}

type ctxKey struct{}

// Server is safe for concurrent use.
type Server struct {
	secret []byte
	ttl    time.Duration

	mu            sync.Mutex
	users         map[string]user
	items         []models.Item
	itemIDs       map[string]string
	carts         map[string][]models.CartItem
	notifications map[string]models.Notification
	charges       map[string]models.Charge
	hits          map[string]int
	failures      map[string]failure
	headers       map[string]http.Header
}

func New() *Server {
	return &Server{
		secret:        []byte(uuid.NewString()),
		ttl:           30 * time.Minute,
		users:         map[string]user{},
		itemIDs:       map[string]string{},
		carts:         map[string][]models.CartItem{},
		notifications: map[string]models.Notification{},
		charges:       map[string]models.Charge{},
		hits:          map[string]int{},
		failures:      map[string]failure{},
		headers:       map[string]http.Header{},
	}
}

// AddUser creates an account directly, bypassing POST /auth/users.
func (s *Server) AddUser(username, password string, role models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = user{password: hashPassword(password), role: role}
}

// AddItem puts an item into the catalog. InStock is derived from Quantity.
func (s *Server) AddItem(it models.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putItemLocked(it)
}

// Items returns a copy of the catalog.
func (s *Server) Items() []models.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Item(nil), s.items...)
}

// Token issues a token for username valid for ttl. A negative ttl yields an
// expired token.
func (s *Server) Token(username string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	role := s.users[username].role
	s.mu.Unlock()
	return generateToken(username, role, s.secret, ttl)
}

// Fail makes the route answer status with detail until Restore is called.
// The route is named the way it is registered, e.g. "GET /auth/me".
func (s *Server) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, detail: detail}
}

func (s *Server) Restore(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, route)
}

// Hits counts the requests a route received, injected failures included.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// LastHeader returns the headers of the latest request a route received.
func (s *Server) LastHeader(route string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[route].Clone()
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s.route(r, http.MethodPost, "/auth/token", s.login)
	s.route(r, http.MethodPost, "/auth/users", s.register)
	s.route(r, http.MethodGet, "/items", s.listItems)
	s.route(r, http.MethodGet, "/items/count", s.countItems)
	s.route(r, http.MethodGet, "/items/search", s.searchItems)
	s.route(r, http.MethodGet, "/items/{brand}", s.getItem)
	s.route(r, http.MethodPost, "/items/buy/{brand}", s.buyItem)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticated)

		s.route(r, http.MethodGet, "/auth/me", s.me)
		s.route(r, http.MethodPost, "/items", s.createItem)
		s.route(r, http.MethodGet, "/cart", s.getCart)
		s.route(r, http.MethodPost, "/cart/add", s.addToCart)
		s.route(r, http.MethodPost, "/cart/update", s.updateCart)
		s.route(r, http.MethodPost, "/cart/clear", s.clearCart)
		s.route(r, http.MethodPost, "/cart/checkout", s.checkout)
		s.route(r, http.MethodPost, "/payments/quote", s.quote)
		s.route(r, http.MethodPost, "/payments/charge", s.charge)
		s.route(r, http.MethodGet, "/notifications", s.listNotifications)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)

			s.route(r, http.MethodPut, "/items/{brand}", s.updateItem)
			s.route(r, http.MethodDelete, "/items/{brand}", s.deleteItem)
			s.route(r, http.MethodDelete, "/notifications/clear", s.clearNotifications)
		})
	})

	return r
}

func (s *Server) route(r chi.Router, method, pattern string, h http.HandlerFunc) {
	name := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.mu.Lock()
		s.hits[name]++
		s.headers[name] = req.Header.Clone()
		f, failing := s.failures[name]
		s.mu.Unlock()

		if failing {
			writeDetail(w, f.status, f.detail)
			return
		}
		h(w, req)
	}))
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := common.ParseBearer(r.Header.Get(common.AuthorizationHeader))
		if !ok {
			w.Header().Set("WWW-Authenticate", common.BearerScheme)
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		username, err := usernameFromToken(token, s.secret)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		s.mu.Lock()
		_, exists := s.users[username]
		s.mu.Unlock()
		if !exists {
			writeDetail(w, http.StatusNotFound, "User not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, username)))
	})
}

func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.roleOf(r).IsAdmin() {
			writeDetail(w, http.StatusForbidden, "Admins only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func usernameFrom(r *http.Request) string {
	u, _ := r.Context().Value(ctxKey{}).(string)
	return u
}

func (s *Server) roleOf(r *http.Request) models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[usernameFrom(r)].role
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

// validationError mimics the list-shaped detail of a request that failed
// schema validation.
func validationError(w http.ResponseWriter, field, msg string) {
	writeDetail(w, http.StatusUnprocessableEntity, []map[string]any{{
		"loc":  []string{"body", field},
		"msg":  msg,
		"type": "value_error",
	}})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		validationError(w, "body", "Invalid JSON")
		return false
	}
	return true
}

func (s *Server) findItemLocked(brand string) int {
	for i, it := range s.items {
		if it.Brand == brand {
			return i
		}
	}
	return -1
}

func (s *Server) putItemLocked(it models.Item) {
	it.InStock = it.Quantity > 0
	if i := s.findItemLocked(it.Brand); i >= 0 {
		s.items[i] = it
		return
	}
	s.items = append(s.items, it)
	s.itemIDs[it.Brand] = uuid.NewString()
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
