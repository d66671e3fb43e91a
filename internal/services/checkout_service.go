package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"
	"vhs_converter/internal/redis"
	"vhs_converter/pkg/payment"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const checkoutDraftTTL = 48 * time.Hour

// PaymentGateway creates and verifies hosted checkout sessions.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error)
	GetSession(ctx context.Context, id string) (*payment.Session, error)
	ParseWebhook(payload []byte, signature string) (*payment.Session, error)
}

// checkoutDraft is the priced order waiting for its payment to clear.
type checkoutDraft struct {
	Reference string       `json:"reference"`
	Order     models.Order `json:"order"`
	CreatedAt time.Time    `json:"created_at"`
}

type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Subtotal  string `json:"subtotal"`
	RushFee   string `json:"rush_fee"`
	Total     string `json:"total"`
}

type CheckoutService interface {
	CreateSession(ctx context.Context, req *OrderRequest, user *models.User) (*CheckoutSession, error)
	VerifySession(ctx context.Context, sessionID string) (*models.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.Order, error)
}

type checkoutService struct {
	orders   OrderService
	gateway  PaymentGateway
	drafts   TempStore
	baseURL  string
	currency string
}

func NewCheckoutService(orders OrderService, gateway PaymentGateway, drafts TempStore, baseURL, currency string) CheckoutService {
	return &checkoutService{
		orders:   orders,
		gateway:  gateway,
		drafts:   drafts,
		baseURL:  strings.TrimRight(baseURL, "/"),
		currency: currency,
	}
}

func draftKey(sessionID string) string {
	return "checkout:" + sessionID
}

// CreateSession prices the order server side and opens a payment session for
// that amount. Nothing is persisted in the database until payment clears.
func (s *checkoutService) CreateSession(ctx context.Context, req *OrderRequest, user *models.User) (*CheckoutSession, error) {
	var userID *uint
	if user != nil {
		userID = &user.ID
	}

	order, err := s.orders.PriceOrder(ctx, req, userID)
	if err != nil {
		return nil, err
	}
	if !order.Total.IsPositive() {
		return nil, fmt.Errorf("%w: order total must be positive", ErrInvalidConfiguration)
	}

	reference := uuid.NewString()
	session, err := s.gateway.CreateSession(ctx, payment.CheckoutRequest{
		Reference:     reference,
		CustomerEmail: order.ContactEmail,
		Currency:      s.currency,
		Description:   fmt.Sprintf("%d tapes, about %d hours", order.TotalTapes, order.EstimatedHours),
		Amount:        order.Total,
		SuccessURL:    s.baseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     s.baseURL + "/checkout/cancel",
		Metadata:      map[string]string{"draft": reference},
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	draft := checkoutDraft{Reference: reference, Order: *order, CreatedAt: time.Now()}
	if err := s.drafts.SetTempData(ctx, draftKey(session.ID), draft, checkoutDraftTTL); err != nil {
		return nil, fmt.Errorf("failed to store checkout draft: %w", err)
	}

	logger.Log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("total", order.Total.StringFixed(2)))

	return &CheckoutSession{
		SessionID: session.ID,
		URL:       session.URL,
		Subtotal:  order.Subtotal.StringFixed(2),
		RushFee:   order.RushFee.StringFixed(2),
		Total:     order.Total.StringFixed(2),
	}, nil
}

// VerifySession is called from the success page. It is safe to call any
// number of times, and concurrently with the webhook.
func (s *checkoutService) VerifySession(ctx context.Context, sessionID string) (*models.Order, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	if existing, err := s.orders.GetByStripeSession(ctx, sessionID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return s.materialize(ctx, session)
}

// HandleWebhook returns the materialized order, or nil for events that carry none.
func (s *checkoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.Order, error) {
	session, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if session == nil || !session.Paid {
		return nil, nil
	}

	order, err := s.materialize(ctx, session)
	if errors.Is(err, ErrCheckoutExpired) {
		logger.Log.Warn("paid session has no draft", zap.String("session_id", session.ID))
		return nil, nil
	}
	return order, err
}

func (s *checkoutService) materialize(ctx context.Context, session *payment.Session) (*models.Order, error) {
	if !session.Paid {
		return nil, ErrPaymentNotCompleted
	}
	if existing, err := s.orders.GetByStripeSession(ctx, session.ID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var draft checkoutDraft
	if err := s.drafts.GetTempData(ctx, draftKey(session.ID), &draft); err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			// a concurrent caller may have just placed it and dropped the draft
			if existing, lookupErr := s.orders.GetByStripeSession(ctx, session.ID); lookupErr == nil {
				return existing, nil
			}
			return nil, ErrCheckoutExpired
		}
		return nil, fmt.Errorf("failed to load checkout draft: %w", err)
	}

	order := draft.Order
	order.ID = 0
	order.PaymentStatus = string(models.PaymentPaid)
	order.StripeSessionID = &session.ID
	if payment.ToMinorUnits(order.Total) != session.AmountTotal {
		logger.Log.Warn("paid amount differs from quoted total",
			zap.String("session_id", session.ID),
			zap.String("quoted", order.Total.StringFixed(2)),
			zap.Int64("paid_minor", session.AmountTotal))
	}

	placed, created, err := s.orders.PlaceOrder(ctx, &order)
	if err != nil {
		return nil, err
	}
	if !created {
		return placed, nil
	}

	if err := s.drafts.DeleteTempData(ctx, draftKey(session.ID)); err != nil {
		logger.Log.Warn("failed to delete checkout draft", zap.String("session_id", session.ID), zap.Error(err))
	}
	s.orders.Confirm(ctx, placed)
	return placed, nil
}
