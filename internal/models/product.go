package models

import (
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/google/uuid"
)

type ProductStatus string

const (
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

type Product struct {
	ID            uuid.UUID     `json:"id"`
	CategoryID    uuid.UUID     `json:"category_id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Price         money.Money   `json:"price"`
	StockQuantity int           `json:"stock_quantity"`
	SKU           string        `json:"sku"`
	Status        ProductStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusActive
}

type CreateProductRequest struct {
	CategoryID    uuid.UUID `json:"category_id" validate:"required"`
	Name          string    `json:"name" validate:"required,min=3,max=200"`
	Description   string    `json:"description,omitempty" validate:"max=2000"`
	Price         int64     `json:"price" validate:"required,gt=0"`
	Currency      string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	StockQuantity int       `json:"stock_quantity" validate:"gte=0"`
	SKU           string    `json:"sku" validate:"required,min=3,max=50"`
}
