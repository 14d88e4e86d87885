package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/google/uuid"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
)

type CartItem struct {
	ProductID  uuid.UUID   `json:"product_id"`
	CategoryID uuid.UUID   `json:"category_id"`
	Name       string      `json:"name"`
	UnitPrice  money.Money `json:"unit_price"`
	Quantity   int         `json:"quantity"`
}

func (i CartItem) Subtotal() money.Money {
	return i.UnitPrice.Times(i.Quantity)
}

// Cart holds at most one line per product. Totals are always derived from
// the lines and never stored.
type Cart struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Currency  string     `json:"currency"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewCart(userID uuid.UUID, currency string) *Cart {
	now := time.Now()

	return &Cart{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (c *Cart) indexOf(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}

	return -1
}

// AddItem appends a line, or increments the quantity of an existing line for
// the same product and refreshes its price snapshot.
func (c *Cart) AddItem(item CartItem) error {
	if item.Quantity < 1 {
		return ErrInvalidQuantity
	}

	if item.UnitPrice.Currency != c.Currency {
		return money.ErrCurrencyMismatch
	}

	if i := c.indexOf(item.ProductID); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		c.Items[i].UnitPrice = item.UnitPrice
		c.Items[i].Name = item.Name
		c.Items[i].CategoryID = item.CategoryID
	} else {
		c.Items = append(c.Items, item)
	}

	c.UpdatedAt = time.Now()

	return nil
}

// SetQuantity replaces the quantity of a line; zero removes it.
func (c *Cart) SetQuantity(productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}

	if quantity == 0 {
		return c.RemoveItem(productID)
	}

	i := c.indexOf(productID)
	if i < 0 {
		return ErrCartItemNotFound
	}

	c.Items[i].Quantity = quantity
	c.UpdatedAt = time.Now()

	return nil
}

func (c *Cart) RemoveItem(productID uuid.UUID) error {
	i := c.indexOf(productID)
	if i < 0 {
		return ErrCartItemNotFound
	}

	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.UpdatedAt = time.Now()

	return nil
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.UpdatedAt = time.Now()
}

func (c *Cart) Quantity(productID uuid.UUID) int {
	if i := c.indexOf(productID); i >= 0 {
		return c.Items[i].Quantity
	}

	return 0
}

func (c *Cart) TotalAmount() money.Money {
	total := money.Zero(c.Currency)
	for _, item := range c.Items {
		total.Amount += item.Subtotal().Amount
	}

	return total
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}

	return n
}

func (c *Cart) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ProductID)
	}

	return ids
}

func (c *Cart) CategoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Items))
	for _, item := range c.Items {
		if item.CategoryID != uuid.Nil {
			ids = append(ids, item.CategoryID)
		}
	}

	return ids
}

// MarshalJSON adds the derived totals to the wire form.
func (c Cart) MarshalJSON() ([]byte, error) {
	type cartAlias Cart

	return json.Marshal(struct {
		cartAlias
		TotalAmount money.Money `json:"totalAmount"`
		TotalItems  int         `json:"totalItems"`
	}{
		cartAlias:   cartAlias(c),
		TotalAmount: c.TotalAmount(),
		TotalItems:  c.TotalItems(),
	})
}

type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=100"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0,max=100"`
}
