package fakeapi

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/dmitrijs2005/gophstore/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Auth

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		validationError(w, "username", "Field required")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		validationError(w, "username", "Field required")
		return
	}

	s.mu.Lock()
	u, ok := s.users[username]
	s.mu.Unlock()
	if !ok || !u.password.matches(password) {
		writeDetail(w, http.StatusBadRequest, "Incorrect username or password")
		return
	}

	token, err := generateToken(username, u.role, s.secret, s.ttl)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, models.Token{AccessToken: token, TokenType: "bearer"})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var reg models.Registration
	if !decode(w, r, &reg) {
		return
	}
	if reg.Username == "" || reg.Password == "" {
		validationError(w, "username", "Field required")
		return
	}
	if reg.Role == "" {
		reg.Role = models.RoleUser
	}
	switch reg.Role {
	case models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		validationError(w, "role", "Input should be 'user', 'admin' or 'superadmin'")
		return
	}

	hash := hashPassword(reg.Password)

	s.mu.Lock()
	_, exists := s.users[reg.Username]
	if !exists {
		s.users[reg.Username] = user{password: hash, role: reg.Role}
	}
	s.mu.Unlock()

	if exists {
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	role := string(reg.Role)
	writeJSON(w, http.StatusOK, models.Message{Msg: strings.ToUpper(role[:1]) + role[1:] + " created successfully"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Identity{Username: usernameFrom(r), Role: s.roleOf(r)})
}

// Catalog

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Items())
}

func (s *Server) countItems(w http.ResponseWriter, r *http.Request) {
	var st models.ItemStats
	for _, it := range s.Items() {
		st.TotalItems++
		if it.InStock {
			st.InStock++
		} else {
			st.OutOfStock++
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) searchItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	found := []models.Item{}
	for _, it := range s.Items() {
		if containsFold(it.Brand, q) || containsFold(it.Name, q) || containsFold(it.Description, q) {
			found = append(found, it)
		}
	}
	writeJSON(w, http.StatusOK, found)
}

// getItem matches the brand case-insensitively.
func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")
	for _, it := range s.Items() {
		if strings.EqualFold(it.Brand, brand) {
			writeJSON(w, http.StatusOK, it)
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Item not found")
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var it models.Item
	if !decode(w, r, &it) {
		return
	}
	if it.Brand == "" {
		validationError(w, "brand", "Field required")
		return
	}
	username := usernameFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	role := s.users[username].role
	if !role.IsAdmin() {
		writeDetail(w, http.StatusForbidden, "Users cannot create items")
		return
	}
	owned := 0
	for _, existing := range s.items {
		if existing.CreatedBy == username {
			owned++
		}
	}
	if role == models.RoleAdmin && owned >= adminItemLimit {
		writeDetail(w, http.StatusForbidden, "Reached your limit")
		return
	}
	if s.findItemLocked(it.Brand) >= 0 {
		writeDetail(w, http.StatusBadRequest, "Item already exists")
		return
	}

	it.CreatedBy = username
	s.putItemLocked(it)
	writeJSON(w, http.StatusOK, s.items[s.findItemLocked(it.Brand)])
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")
	var it models.Item
	if !decode(w, r, &it) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findItemLocked(brand)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	before := s.items[i]
	it.Brand = brand
	it.CreatedBy = before.CreatedBy
	s.putItemLocked(it)
	after := s.items[i]

	writeJSON(w, http.StatusOK, models.ItemUpdate{
		Msg:          "Item updated successfully",
		BeforeUpdate: &before,
		AfterUpdate:  &after,
	})
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findItemLocked(brand)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	deleted := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.itemIDs, brand)

	writeJSON(w, http.StatusOK, models.ItemDeletion{Msg: "Item deleted successfully", DeletedItem: &deleted})
}

// buyItem takes one unit off the stock and upserts the item's notification.
func (s *Server) buyItem(w http.ResponseWriter, r *http.Request) {
	brand := chi.URLParam(r, "brand")

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findItemLocked(brand)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	it := s.items[i]
	if it.Quantity <= 0 {
		writeDetail(w, http.StatusBadRequest, "Out of stock")
		return
	}
	it.Quantity--
	s.putItemLocked(it)
	s.notifyLocked(s.items[i])

	writeJSON(w, http.StatusOK, models.Message{Msg: fmt.Sprintf("Purchased %s successfully", it.Name)})
}

func (s *Server) notifyLocked(it models.Item) {
	msg := it.Name + " updated stock"
	if it.Quantity < LowStock {
		msg = fmt.Sprintf("%s stock is low: %d left", it.Name, it.Quantity)
	}
	s.notifications[it.Brand] = models.Notification{
		Brand:      it.Brand,
		Name:       it.Name,
		Quantity:   it.Quantity,
		InStock:    it.InStock,
		Msg:        msg,
		NotifiedAt: models.Timestamp{Time: time.Now().UTC()},
		CreatedBy:  it.CreatedBy,
	}
}

// Notifications

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	if !s.roleOf(r).IsAdmin() {
		writeDetail(w, http.StatusForbidden, "Admins or Superadmins only")
		return
	}
	username := usernameFrom(r)

	s.mu.Lock()
	out := []models.Notification{}
	for _, n := range s.notifications {
		if n.CreatedBy == username {
			out = append(out, n)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b models.Notification) int { return strings.Compare(a.Brand, b.Brand) })
	writeJSON(w, http.StatusOK, models.Notifications{Notifications: out})
}

func (s *Server) clearNotifications(w http.ResponseWriter, r *http.Request) {
	username := usernameFrom(r)

	s.mu.Lock()
	for brand, n := range s.notifications {
		if n.CreatedBy == username {
			delete(s.notifications, brand)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.Message{Msg: "Notifications cleared"})
}

// Cart

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	username := usernameFrom(r)

	s.mu.Lock()
	items := append([]models.CartItem{}, s.carts[username]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.Cart{Username: username, Items: items})
}

func brandQuantity(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	q := r.URL.Query()
	brand := q.Get("brand")
	if brand == "" {
		validationError(w, "brand", "Field required")
		return "", 0, false
	}
	n, err := strconv.Atoi(q.Get("quantity"))
	if err != nil {
		validationError(w, "quantity", "Input should be a valid integer")
		return "", 0, false
	}
	return brand, n, true
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	brand, qty, ok := brandQuantity(w, r)
	if !ok {
		return
	}
	if qty <= 0 {
		writeDetail(w, http.StatusBadRequest, "Quantity must be positive")
		return
	}
	username := usernameFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findItemLocked(brand)
	if i < 0 {
		writeDetail(w, http.StatusNotFound, "Item not found")
		return
	}
	it := s.items[i]
	cart := s.carts[username]
	for j := range cart {
		if cart[j].Brand == brand {
			cart[j].Quantity += qty
			writeJSON(w, http.StatusOK, models.Message{Msg: "Added to cart"})
			return
		}
	}
	s.carts[username] = append(cart, models.CartItem{
		ItemID:   s.itemIDs[brand],
		Brand:    it.Brand,
		Name:     it.Name,
		Price:    it.Price,
		Quantity: qty,
	})
	writeJSON(w, http.StatusOK, models.Message{Msg: "Added to cart"})
}

// updateCart sets a line's quantity. Zero keeps the line.
func (s *Server) updateCart(w http.ResponseWriter, r *http.Request) {
	brand, qty, ok := brandQuantity(w, r)
	if !ok {
		return
	}
	if qty < 0 {
		writeDetail(w, http.StatusBadRequest, "Quantity cannot be negative")
		return
	}
	username := usernameFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[username]
	for j := range cart {
		if cart[j].Brand == brand {
			cart[j].Quantity = qty
			writeJSON(w, http.StatusOK, models.Message{Msg: "Cart updated"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Item not in cart")
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delete(s.carts, usernameFrom(r))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, models.Message{Msg: "Cart cleared"})
}

// checkout buys every line on its own. Purchased lines leave the cart; the
// rest stay for another attempt.
func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	username := usernameFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		results []models.CheckoutLine
		kept    []models.CartItem
	)
	for _, line := range s.carts[username] {
		res := models.CheckoutLine{Brand: line.Brand, Status: "error"}
		i := s.findItemLocked(line.Brand)
		switch {
		case i < 0:
			res.Detail = "Item not found"
		case line.Quantity <= 0:
			res.Detail = "Invalid quantity"
		case s.items[i].Quantity < line.Quantity:
			res.Detail = "Insufficient stock"
		default:
			it := s.items[i]
			it.Quantity -= line.Quantity
			s.putItemLocked(it)
			s.notifyLocked(s.items[i])
			res.Status = models.CheckoutStatusOK
		}
		if !res.OK() {
			kept = append(kept, line)
		}
		results = append(results, res)
	}
	s.carts[username] = kept

	if results == nil {
		results = []models.CheckoutLine{}
	}
	writeJSON(w, http.StatusOK, models.CheckoutResult{Results: results})
}

// Payments

type paymentBody struct {
	Items []struct {
		Brand    string          `json:"brand"`
		Price    decimal.Decimal `json:"price"`
		Quantity int             `json:"quantity"`
	} `json:"items"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Discount decimal.Decimal `json:"discount"`
	Method   string          `json:"method"`
}

func (b paymentBody) quote() models.Quote {
	subtotal := decimal.Zero
	for _, it := range b.Items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	tax := subtotal.Mul(b.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(tax).Sub(b.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return models.Quote{
		Subtotal: subtotal.Round(2),
		Tax:      tax,
		Discount: b.Discount.Round(2),
		Total:    total.Round(2),
	}
}

func readPayment(w http.ResponseWriter, r *http.Request) (paymentBody, bool) {
	var body paymentBody
	if !decode(w, r, &body) {
		return body, false
	}
	if len(body.Items) == 0 {
		writeDetail(w, http.StatusBadRequest, "Cart is empty")
		return body, false
	}
	if body.TaxRate.IsNegative() {
		validationError(w, "tax_rate", "Input should be greater than or equal to 0")
		return body, false
	}
	if body.Discount.IsNegative() {
		validationError(w, "discount", "Input should be greater than or equal to 0")
		return body, false
	}
	return body, true
}

func (s *Server) quote(w http.ResponseWriter, r *http.Request) {
	body, ok := readPayment(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, body.quote())
}

// charge records a payment. A repeated Idempotency-Key returns the payment
// recorded the first time.
func (s *Server) charge(w http.ResponseWriter, r *http.Request) {
	body, ok := readPayment(w, r)
	if !ok {
		return
	}
	if _, err := models.ParsePaymentMethod(body.Method); err != nil {
		validationError(w, "method", "Input should be 'cash', 'card' or 'upi'")
		return
	}

	key := r.Header.Get(common.IdempotencyKeyHeader)

	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, seen := s.charges[key]; seen && key != "" {
		writeJSON(w, http.StatusOK, ch)
		return
	}
	ch := models.Charge{PaymentID: "pay_" + uuid.NewString(), Quote: body.quote()}
	if key != "" {
		s.charges[key] = ch
	}
	writeJSON(w, http.StatusOK, ch)
}

// Charges is the number of distinct payments recorded.
func (s *Server) Charges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.charges)
}
