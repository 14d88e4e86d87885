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
	"github.com/aaravmahajanofficial/storefront/internal/services/mocks"
	"github.com/aaravmahajanofficial/storefront/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNotificationHandler_SendEmail(t *testing.T) {
	request := models.EmailNotificationRequest{To: "alice@example.com", Subject: "Hello", Content: "Your order shipped"}

	t.Run("Success - Notification sent", func(t *testing.T) {
		// Arrange
		notificationService := mocks.NewNotificationService(t)
		handler := handlers.NewNotificationHandler(notificationService)

		body, _ := json.Marshal(request)
		req := testutils.CreateAdminTestRequest(http.MethodPost, "/api/v1/admin/notifications/email", bytes.NewReader(body), uuid.New(), nil)
		rr := httptest.NewRecorder()

		notificationService.On("SendEmail", mock.Anything, &request).Return(&models.Notification{
			ID: uuid.New(), Type: models.NotificationTypeEmail, Recipient: request.To, Status: models.StatusSent,
		}, nil).Once()

		// Act
		handler.SendEmail()(rr, req)

		// Assert
		assert.Equal(t, http.StatusCreated, rr.Code)

		var got models.Notification
		decodeResponse(t, rr, &got)
		assert.Equal(t, models.StatusSent, got.Status)
	})

	t.Run("Failure - Invalid recipient", func(t *testing.T) {
		// Arrange
		notificationService := mocks.NewNotificationService(t)
		handler := handlers.NewNotificationHandler(notificationService)

		body, _ := json.Marshal(models.EmailNotificationRequest{To: "not-an-email", Subject: "Hello", Content: "x"})
		req := testutils.CreateAdminTestRequest(http.MethodPost, "/api/v1/admin/notifications/email", bytes.NewReader(body), uuid.New(), nil)
		rr := httptest.NewRecorder()

		// Act
		handler.SendEmail()(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		notificationService.AssertNotCalled(t, "SendEmail")
	})

	t.Run("Failure - Provider error", func(t *testing.T) {
		// Arrange
		notificationService := mocks.NewNotificationService(t)
		handler := handlers.NewNotificationHandler(notificationService)

		body, _ := json.Marshal(request)
		req := testutils.CreateAdminTestRequest(http.MethodPost, "/api/v1/admin/notifications/email", bytes.NewReader(body), uuid.New(), nil)
		rr := httptest.NewRecorder()

		notificationService.On("SendEmail", mock.Anything, mock.Anything).Return(nil, appErrors.ThirdPartyError("Failed to send email")).Once()

		// Act
		handler.SendEmail()(rr, req)

		// Assert
		assert.Equal(t, http.StatusBadGateway, rr.Code)
	})
}
