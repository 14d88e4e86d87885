package models_test

import (
	"testing"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingOrder() *models.Order {
	return &models.Order{
		OrderStatus:   models.OrderStatusPending,
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestOrderApply(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Success - Payment verified moves both statuses with one entry", func(t *testing.T) {
		order := newPendingOrder()

		changed, err := order.Apply(models.StatusChange{
			Order:   models.OrderStatusProcessing,
			Payment: models.PaymentStatusCompleted,
			Note:    "payment verified",
			At:      now,
		})

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, models.OrderStatusProcessing, order.OrderStatus)
		assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
		require.Len(t, order.StatusHistory, 1)
		assert.Equal(t, now, order.StatusHistory[0].Timestamp)
	})

	t.Run("Success - Same state is a no-op", func(t *testing.T) {
		order := newPendingOrder()

		changed, err := order.Apply(models.StatusChange{Order: models.OrderStatusPending})

		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, order.StatusHistory)
	})

	t.Run("Success - Repeated failure is recorded", func(t *testing.T) {
		order := newPendingOrder()
		order.PaymentStatus = models.PaymentStatusFailed

		changed, err := order.Apply(models.StatusChange{Payment: models.PaymentStatusFailed, Note: "declined again"})

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Len(t, order.StatusHistory, 1)
	})

	t.Run("Failure - Edge not in table leaves order untouched", func(t *testing.T) {
		order := newPendingOrder()
		order.OrderStatus = models.OrderStatusShipped

		_, err := order.Apply(models.StatusChange{Order: models.OrderStatusCancelled})

		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.Equal(t, models.OrderStatusShipped, order.OrderStatus)
		assert.Empty(t, order.StatusHistory)
	})

	t.Run("Failure - Valid order edge with invalid payment edge is atomic", func(t *testing.T) {
		order := newPendingOrder()

		_, err := order.Apply(models.StatusChange{Order: models.OrderStatusProcessing, Payment: models.PaymentStatusRefunded})

		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
		assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	})
}

func TestTransitionTables(t *testing.T) {
	terminal := []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusReturned}
	all := []models.OrderStatus{
		models.OrderStatusPending, models.OrderStatusProcessing, models.OrderStatusShipped,
		models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusReturned,
	}

	for _, from := range terminal {
		for _, to := range all {
			assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, models.OrderStatusDelivered.CanTransitionTo(models.OrderStatusReturned))
	assert.False(t, models.OrderStatusDelivered.CanTransitionTo(models.OrderStatusCancelled))
	assert.True(t, models.OrderStatusPending.Cancellable())
	assert.True(t, models.OrderStatusProcessing.Cancellable())
	assert.False(t, models.OrderStatusShipped.Cancellable())

	assert.True(t, models.PaymentStatusCompleted.CanTransitionTo(models.PaymentStatusRefunded))
	assert.False(t, models.PaymentStatusCompleted.CanTransitionTo(models.PaymentStatusFailed))
	assert.False(t, models.PaymentStatusRefunded.CanTransitionTo(models.PaymentStatusCompleted))
	assert.False(t, models.PaymentStatusPending.CanTransitionTo(models.PaymentStatusRefunded))
}
