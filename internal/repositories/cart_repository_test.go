package repository_test

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/aaravmahajanofficial/storefront/internal/money"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartRepository(t *testing.T) {
	columns := []string{"id", "user_id", "currency", "items", "created_at", "updated_at"}

	t.Run("Success - Get cart", func(t *testing.T) {
		// Arrange
		repos, mock := newMockDB(t)
		userID := uuid.New()
		cartID := uuid.New()
		now := time.Now()
		items := []models.CartItem{{ProductID: uuid.New(), Name: "Mug", UnitPrice: money.New(25000, "INR"), Quantity: 2}}
		itemsJSON, err := json.Marshal(items)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM carts`)).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(cartID.String(), userID.String(), "INR", itemsJSON, now, now))

		// Act
		cart, err := repos.Cart.GetCartByUserID(t.Context(), userID)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, cartID, cart.ID)
		assert.Equal(t, items, cart.Items)
		assert.Equal(t, money.New(50000, "INR"), cart.TotalAmount())
	})

	t.Run("Success - Empty items decode to an empty slice", func(t *testing.T) {
		// Arrange
		repos, mock := newMockDB(t)
		userID := uuid.New()
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`FROM carts`)).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(uuid.NewString(), userID.String(), "INR", []byte("null"), now, now))

		// Act
		cart, err := repos.Cart.GetCartByUserID(t.Context(), userID)

		// Assert
		require.NoError(t, err)
		assert.NotNil(t, cart.Items)
		assert.Empty(t, cart.Items)
	})

	t.Run("Failure - Cart not found", func(t *testing.T) {
		// Arrange
		repos, mock := newMockDB(t)
		userID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`FROM carts`)).WithArgs(userID).WillReturnRows(sqlmock.NewRows(columns))

		// Act
		_, err := repos.Cart.GetCartByUserID(t.Context(), userID)

		// Assert
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("Success - Save cart upserts by user", func(t *testing.T) {
		// Arrange
		repos, mock := newMockDB(t)
		cart := models.NewCart(uuid.New(), "INR")
		existingID := uuid.New()
		now := time.Now()
		itemsJSON, err := json.Marshal(cart.Items)
		require.NoError(t, err)

		mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (user_id) DO UPDATE`)).
			WithArgs(cart.ID, cart.UserID, "INR", itemsJSON).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(existingID.String(), now, now))

		// Act
		err = repos.Cart.SaveCart(t.Context(), cart)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, existingID, cart.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
