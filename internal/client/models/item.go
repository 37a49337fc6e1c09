package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a catalog entry; Brand is its key.
type Item struct {
	Brand       string          `json:"brand"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Description string          `json:"description"`
	InStock     bool            `json:"in_stock"`
	CreatedBy   string          `json:"created_by,omitempty"`
}

func (i Item) Validate() error {
	if strings.TrimSpace(i.Brand) == "" {
		return fmt.Errorf("%w: item without brand", ErrInvalid)
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("%w: item %q has negative price", ErrInvalid, i.Brand)
	}
	if i.Quantity < 0 {
		return fmt.Errorf("%w: item %q has negative quantity", ErrInvalid, i.Brand)
	}
	return nil
}

// ItemStats is the response of GET /items/count.
type ItemStats struct {
	TotalItems int `json:"total_items"`
	InStock    int `json:"in_stock"`
	OutOfStock int `json:"out_of_stock"`
}

// ItemUpdate is the response of PUT /items/{brand}.
type ItemUpdate struct {
	Msg          string `json:"msg"`
	BeforeUpdate *Item  `json:"before_update"`
	AfterUpdate  *Item  `json:"after_update"`
}

// ItemDeletion is the response of DELETE /items/{brand}.
type ItemDeletion struct {
	Msg         string `json:"msg"`
	DeletedItem *Item  `json:"deleted_item"`
}

// Notification is a low-stock alert.
type Notification struct {
	Brand      string    `json:"brand"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	InStock    bool      `json:"in_stock"`
	Msg        string    `json:"msg"`
	NotifiedAt Timestamp `json:"notified_at"`
	CreatedBy  string    `json:"created_by"`
}

// Notifications is the response of GET /notifications.
type Notifications struct {
	Notifications []Notification `json:"notifications"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO form the backend
// emits for UTC datetimes ("2024-05-01T10:00:00.123456").
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: bad timestamp %q", ErrInvalid, s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
