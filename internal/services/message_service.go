package services

import (
	"context"
	"fmt"
	"strings"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"
	"vhs_converter/internal/repository"

	"go.uber.org/zap"
)

const maxMessageLength = 4000

type MessageService interface {
	List(ctx context.Context, orderID uint, user *models.User) ([]models.OrderMessage, error)
	Post(ctx context.Context, orderID uint, user *models.User, body string) (*models.OrderMessage, error)
	UnreadCount(ctx context.Context, user *models.User) (int64, error)
}

type messageService struct {
	orders        OrderService
	messageRepo   repository.OrderMessageRepository
	notifications NotificationService
	studioEmail   string
}

func NewMessageService(orders OrderService, messageRepo repository.OrderMessageRepository, notifications NotificationService, studioEmail string) MessageService {
	return &messageService{
		orders:        orders,
		messageRepo:   messageRepo,
		notifications: notifications,
		studioEmail:   studioEmail,
	}
}

func (s *messageService) List(ctx context.Context, orderID uint, user *models.User) ([]models.OrderMessage, error) {
	if _, err := s.orders.GetOrderForUser(ctx, orderID, user); err != nil {
		return nil, err
	}
	return s.messageRepo.GetByOrderID(ctx, orderID)
}

// Post stores a message on the order thread and emails the other side.
func (s *messageService) Post(ctx context.Context, orderID uint, user *models.User, body string) (*models.OrderMessage, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: message body is required", ErrInvalidInput)
	}
	if len(body) > maxMessageLength {
		return nil, fmt.Errorf("%w: message is longer than %d characters", ErrInvalidInput, maxMessageLength)
	}

	order, err := s.orders.GetOrderForUser(ctx, orderID, user)
	if err != nil {
		return nil, err
	}

	message := &models.OrderMessage{
		OrderID:  order.ID,
		AuthorID: user.ID,
		IsAdmin:  user.IsAdmin(),
		Body:     body,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	to := s.studioEmail
	if message.IsAdmin {
		to = order.ContactEmail
	}
	if err := s.notifications.MessagePosted(ctx, order, message, to); err != nil {
		logger.Log.Warn("message email failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
	return message, nil
}

// UnreadCount always reports zero; messages carry no read state yet.
func (s *messageService) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	return 0, nil
}
