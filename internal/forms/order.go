package forms

import (
	"encoding/json"
	"errors"
	"io"
)

// Order error messages shown to site visitors.
const (
	MsgOrderFieldsMissing = "Required fields are missing"
	MsgOrderBadPhone      = "Invalid phone format"
)

// Order is the cart checkout payload posted by the shop page.
type Order struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Comment string `json:"comment"`
	Cart    Cart   `json:"order"`
}

type Cart struct {
	Items []OrderItem `json:"items"`
	Total json.Number `json:"total"`
}

type OrderItem struct {
	Name         string      `json:"name"`
	Quantity     json.Number `json:"quantity"`
	Unit         string      `json:"unit"`
	PricePerUnit json.Number `json:"pricePerUnit"`
	Price        json.Number `json:"price"`
}

// ParseOrder decodes the checkout payload. The phone is expected already
// digits-only from the client; it is not normalized here.
func ParseOrder(r io.Reader) (Order, error) {
	var o Order
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&o); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ValidateOrder checks the required fields. The shop page expects a single
// error message, so the first failure wins.
func ValidateOrder(o Order) error {
	if o.Name == "" || o.Phone == "" {
		return errors.New(MsgOrderFieldsMissing)
	}
	if len(o.Phone) != 10 || !allDigits(o.Phone) {
		return errors.New(MsgOrderBadPhone)
	}
	return nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
