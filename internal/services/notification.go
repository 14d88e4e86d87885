package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/errors"
	"github.com/aaravmahajanofficial/storefront/internal/models"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	"github.com/aaravmahajanofficial/storefront/pkg/sendgrid"
	"github.com/google/uuid"
)

type NotificationService interface {
	SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error)
	NotifyOrderPlaced(ctx context.Context, order *models.Order) error
}

type notificationService struct {
	repo         repository.NotificationRepository
	userRepo     repository.UserRepository
	emailService sendgrid.EmailService
}

func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository, emailService sendgrid.EmailService) NotificationService {
	return &notificationService{repo: repo, userRepo: userRepo, emailService: emailService}
}

// SendEmail records the notification before sending so failed deliveries stay
// visible with their error.
func (s *notificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error) {
	logger := middleware.LoggerFromContext(ctx)

	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      models.NotificationTypeEmail,
		Recipient: req.To,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    models.StatusPending,
		OrderID:   req.OrderID,
	}

	if err := s.repo.CreateNotification(ctx, notification); err != nil {
		return nil, errors.DatabaseError("Failed to create notification").WithError(err)
	}

	sendErr := s.emailService.Send(ctx, &sendgrid.Message{
		To:      req.To,
		Subject: req.Subject,
		Text:    req.Content,
		HTML:    req.HTMLContent,
	})

	if sendErr != nil {
		notification.Status = models.StatusFailed
		notification.Error = sendErr.Error()

		if err := s.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusFailed, sendErr.Error(), nil); err != nil {
			logger.Error("Failed to record notification failure", slog.String("notificationId", notification.ID.String()), slog.String("error", err.Error()))
		}

		return notification, errors.ThirdPartyError("Failed to send email").WithError(sendErr)
	}

	sentAt := time.Now()
	notification.Status = models.StatusSent
	notification.SentAt = &sentAt

	if err := s.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusSent, "", &sentAt); err != nil {
		return notification, errors.DatabaseError("Failed to update notification status").WithError(err)
	}

	return notification, nil
}

func (s *notificationService) NotifyOrderPlaced(ctx context.Context, order *models.Order) error {
	user, err := s.userRepo.GetUserByID(ctx, order.UserID)
	if err != nil {
		return errors.DatabaseError("Failed to load order owner").WithError(err)
	}

	var lines strings.Builder

	for _, item := range order.Items {
		fmt.Fprintf(&lines, "%d x %s  %s\n", item.Quantity, item.Name, item.LineSubtotal)
	}

	content := fmt.Sprintf("Hi %s,\n\nThanks for your order %s.\n\n%s\nSubtotal: %s\nShipping: %s\nTax: %s\nDiscount: %s\nTotal: %s\n",
		user.Name, order.OrderNumber, lines.String(),
		order.Subtotal, order.ShippingCharges, order.TaxAmount, order.DiscountAmount, order.TotalAmount)

	orderID := order.ID

	_, err = s.SendEmail(ctx, &models.EmailNotificationRequest{
		To:      user.Email,
		Subject: "Order confirmation " + order.OrderNumber,
		Content: content,
		OrderID: &orderID,
	})

	return err
}
