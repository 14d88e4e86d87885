package service

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/google/uuid"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context, page, size int) (*models.PaginatedResponse, error)
}

type productService struct {
	repo     repository.ProductRepository
	cache    cache.Cache
	ttl      time.Duration
	currency string
}

func NewProductService(repo repository.ProductRepository, c cache.Cache, ttl time.Duration, currency string) ProductService {
	return &productService{repo: repo, cache: c, ttl: ttl, currency: currency}
}

func (s *productService) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	currency := s.currency
	if req.Currency != "" {
		normalized, err := money.NormalizeCurrency(req.Currency)
		if err != nil {
			return nil, errors.BadRequestError("Invalid currency").WithError(err)
		}

		currency = normalized
	}

	product := &models.Product{
		ID:            uuid.New(),
		CategoryID:    req.CategoryID,
		Name:          utils.SanitizeText(req.Name),
		Description:   utils.SanitizeText(req.Description),
		Price:         money.New(req.Price, currency),
		StockQuantity: req.StockQuantity,
		SKU:           strings.ToUpper(strings.TrimSpace(req.SKU)),
		Status:        models.ProductStatusActive,
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, errors.DatabaseError("Failed to create product").WithError(err)
	}

	return product, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := cache.Remember(ctx, s.cache, cache.Key(cache.ProductKeyPrefix, id.String()), s.ttl,
		func(ctx context.Context) (*models.Product, error) {
			return s.repo.GetProductByID(ctx, id)
		})
	if err != nil {
		if stdErrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFoundError("Product not found")
		}

		return nil, errors.DatabaseError("Failed to load product").WithError(err)
	}

	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, page, size int) (*models.PaginatedResponse, error) {
	products, total, err := s.repo.ListProducts(ctx, page, size)
	if err != nil {
		return nil, errors.DatabaseError("Failed to list products").WithError(err)
	}

	resp := models.NewPaginatedResponse(products, total, page, size)

	return &resp, nil
}
