package client

import (
	"encoding/json"

	"github.com/dmitrijs2005/gophstore/internal/client/models"
	"github.com/shopspring/decimal"
)

// Wire bodies sent to the backend. Money goes out as a bare JSON number
// built from the decimal string so no precision is lost on the way.

type itemPayload struct {
	Brand       string      `json:"brand"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Quantity    int         `json:"quantity"`
	Description string      `json:"description"`
}

func newItemPayload(it models.Item) itemPayload {
	return itemPayload{
		Brand:       it.Brand,
		Name:        it.Name,
		Price:       number(it.Price),
		Quantity:    it.Quantity,
		Description: it.Description,
	}
}

type paymentItemPayload struct {
	ItemID   string      `json:"item_id"`
	Brand    string      `json:"brand"`
	Name     string      `json:"name"`
	Price    json.Number `json:"price"`
	Quantity int         `json:"quantity"`
}

type paymentPayload struct {
	Items    []paymentItemPayload `json:"items"`
	TaxRate  json.Number          `json:"tax_rate"`
	Discount json.Number          `json:"discount"`
	Method   string               `json:"method,omitempty"`
}

func newPaymentPayload(req models.PaymentRequest, withMethod bool) paymentPayload {
	items := make([]paymentItemPayload, 0, len(req.Items))
	for _, ci := range req.Items {
		items = append(items, paymentItemPayload{
			ItemID:   ci.ItemID,
			Brand:    ci.Brand,
			Name:     ci.Name,
			Price:    number(ci.Price),
			Quantity: ci.Quantity,
		})
	}
	p := paymentPayload{
		Items:    items,
		TaxRate:  number(req.TaxRate),
		Discount: number(req.Discount),
	}
	if withMethod {
		p.Method = string(req.Method)
	}
	return p
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
