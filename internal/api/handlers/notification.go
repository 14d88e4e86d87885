package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/utils"
	"github.com/aaravmahajanofficial/storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type NotificationHandler struct {
	notificationService service.NotificationService
	validator           *validator.Validate
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, validator: validator.New()}
}

// SendEmail godoc
//
//	@Summary		Send an email notification (Admin)
//	@Description	Records the notification and sends it through SendGrid. Failed deliveries stay recorded with their error.
//	@Tags			Notifications
//	@Accept			json
//	@Produce		json
//	@Param			notification	body		models.EmailNotificationRequest	true	"Recipient and content"
//	@Success		201				{object}	models.Notification				"Notification sent"
//	@Failure		400				{object}	response.ErrorResponse			"Validation error"
//	@Failure		403				{object}	response.ErrorResponse			"Admin access required"
//	@Failure		502				{object}	response.ErrorResponse			"Email provider error"
//	@Security		BearerAuth
//	@Router			/admin/notifications/email [post]
func (h *NotificationHandler) SendEmail() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.EmailNotificationRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid notification input")

			return
		}

		notification, err := h.notificationService.SendEmail(r.Context(), &req)
		if err != nil {
			logger.Error("Failed to send notification", slog.String("type", "email"), slog.Any("error", err))
			response.Error(w, err)

			return
		}

		logger.Info("Notification sent", slog.String("notificationId", notification.ID.String()))
		response.Success(w, http.StatusCreated, notification)
	}
}
