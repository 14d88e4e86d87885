package service

import (
	"context"
	stdErrors "errors"
	"fmt"

	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
)

type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	currency    string
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, currency string) CartService {
	return &cartService{cartRepo: cartRepo, productRepo: productRepo, currency: currency}
}

// GetCart returns the user's cart, or a new empty one that is not yet stored.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.cartRepo.GetCartByUserID(ctx, userID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return models.NewCart(userID, s.currency), nil
		}

		return nil, errors.DatabaseError("Failed to load cart").WithError(err)
	}

	return cart, nil
}

func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, req *models.AddItemRequest) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Product not found")
		}

		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	if !product.Purchasable() {
		return nil, errors.BadRequestError("Product is not available for purchase")
	}

	if product.StockQuantity < cart.Quantity(product.ID)+req.Quantity {
		return nil, errors.InsufficientStockError(fmt.Sprintf("Only %d units of %s are available", product.StockQuantity, product.Name))
	}

	err = cart.AddItem(models.CartItem{
		ProductID:  product.ID,
		CategoryID: product.CategoryID,
		Name:       product.Name,
		UnitPrice:  product.Price,
		Quantity:   req.Quantity,
	})
	if err != nil {
		return nil, cartError(err)
	}

	return s.save(ctx, cart)
}

func (s *cartService) UpdateQuantity(ctx context.Context, userID, productID uuid.UUID, req *models.UpdateQuantityRequest) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Quantity > 0 {
		product, err := s.productRepo.GetProductByID(ctx, productID)
		if err != nil && !stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.DatabaseError("Failed to load product").WithError(err)
		}

		if product != nil && product.StockQuantity < req.Quantity {
			return nil, errors.InsufficientStockError(fmt.Sprintf("Only %d units of %s are available", product.StockQuantity, product.Name))
		}
	}

	if err := cart.SetQuantity(productID, req.Quantity); err != nil {
		return nil, cartError(err)
	}

	return s.save(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := cart.RemoveItem(productID); err != nil {
		return nil, cartError(err)
	}

	return s.save(ctx, cart)
}

func (s *cartService) ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart.Clear()

	return s.save(ctx, cart)
}

func (s *cartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := s.cartRepo.SaveCart(ctx, cart); err != nil {
		return nil, errors.DatabaseError("Failed to save cart").WithError(err)
	}

	return cart, nil
}

func cartError(err error) error {
	switch {
	case stdErrors.Is(err, models.ErrCartItemNotFound):
		return errors.NotFoundError("Item not found in cart")
	case stdErrors.Is(err, models.ErrInvalidQuantity):
		return errors.ValidationError("Quantity must be at least 1")
	case stdErrors.Is(err, money.ErrCurrencyMismatch):
		return errors.CurrencyMismatchError("Product currency does not match the cart").WithError(err)
	default:
		return errors.InternalError("Failed to update cart").WithError(err)
	}
}
