package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aaravmahajanofficial/storefront/internal/api/handlers"
	appErrors "github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	"github.com/aaravmahajanofficial/storefront/internal/services/mocks"
	"github.com/aaravmahajanofficial/storefront/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProductHandler_CreateProduct(t *testing.T) {
	t.Run("Success - Product created", func(t *testing.T) {
		// Arrange
		productService := mocks.NewProductService(t)
		handler := handlers.NewProductHandler(productService)

		body, _ := json.Marshal(models.CreateProductRequest{CategoryID: uuid.New(), Name: "Mug", Price: 25000, StockQuantity: 10, SKU: "MUG-001"})
		req := testutils.CreateAdminTestRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(body), uuid.New(), nil)
		rr := httptest.NewRecorder()

		productService.On("CreateProduct", mock.Anything, mock.MatchedBy(func(r *models.CreateProductRequest) bool {
			return r.SKU == "MUG-001" && r.Price == 25000
		})).Return(&models.Product{ID: uuid.New(), Name: "Mug", Price: money.New(25000, "INR"), Status: models.ProductStatusActive}, nil).Once()

		// Act
		handler.CreateProduct()(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)

		var got models.Product
		decodeResponse(t, rr, &got)
		assert.Equal(t, int64(25000), got.Price.Amount)
	})

	t.Run("Failure - Price must be positive", func(t *testing.T) {
		// Arrange
		productService := mocks.NewProductService(t)
		handler := handlers.NewProductHandler(productService)

		body, _ := json.Marshal(models.CreateProductRequest{CategoryID: uuid.New(), Name: "Mug", Price: -1, SKU: "MUG-001"})
		req := testutils.CreateAdminTestRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(body), uuid.New(), nil)
		rr := httptest.NewRecorder()

		// Act
		handler.CreateProduct()(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestProductHandler_GetProduct(t *testing.T) {
	t.Run("Success - Product found", func(t *testing.T) {
		// Arrange
		productService := mocks.NewProductService(t)
		handler := handlers.NewProductHandler(productService)
		id := uuid.New()

		req := testutils.CreateTestRequestWithoutContext(http.MethodGet, "/api/v1/products/"+id.String(), nil, map[string]string{"id": id.String()})
		rr := httptest.NewRecorder()

		productService.On("GetProductByID", mock.Anything, id).Return(&models.Product{ID: id, Name: "Mug"}, nil).Once()

		// Act
		handler.GetProduct()(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Failure - Not found", func(t *testing.T) {
		// Arrange
		productService := mocks.NewProductService(t)
		handler := handlers.NewProductHandler(productService)
		id := uuid.New()

		req := testutils.CreateTestRequestWithoutContext(http.MethodGet, "/api/v1/products/"+id.String(), nil, map[string]string{"id": id.String()})
		rr := httptest.NewRecorder()

		productService.On("GetProductByID", mock.Anything, id).Return(nil, appErrors.NotFoundError("Product not found")).Once()

		// Act
		handler.GetProduct()(rr, req)

		// Assert
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestProductHandler_ListProducts(t *testing.T) {
	// Arrange
	productService := mocks.NewProductService(t)
	handler := handlers.NewProductHandler(productService)

	req := testutils.CreateTestRequestWithoutContext(http.MethodGet, "/api/v1/products?pageSize=500", nil, nil)
	rr := httptest.NewRecorder()

	page := models.NewPaginatedResponse([]*models.Product{}, 0, 1, 10)
	productService.On("ListProducts", mock.Anything, 1, 10).Return(&page, nil).Once()

	// Act
	handler.ListProducts()(rr, req)

	// Assert
	assert.Equal(t, http.StatusOK, rr.Code)
}
