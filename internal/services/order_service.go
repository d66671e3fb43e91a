package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/models"
	"vhs_converter/internal/pricing"
	"vhs_converter/internal/repository"
	"vhs_converter/pkg/filestore"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const orderNumberAttempts = 5

// OrderRequest is a configuration plus the customer's contact and return address.
type OrderRequest struct {
	Configuration models.OrderConfiguration `json:"configuration" binding:"required"`
	Shipping      models.ShippingInfo       `json:"shipping" binding:"required"`
}

// OrderUpdate holds the admin-editable fields; nil means unchanged.
type OrderUpdate struct {
	Status         *string    `json:"status"`
	PaymentStatus  *string    `json:"payment_status"`
	TrackingNumber *string    `json:"tracking_number"`
	LabelURL       *string    `json:"label_url"`
	DownloadURL    *string    `json:"download_url"`
	FileLink       *string    `json:"file_link"`
	DueDate        *time.Time `json:"due_date"`
}

type OrderService interface {
	PriceOrder(ctx context.Context, req *OrderRequest, userID *uint) (*models.Order, error)
	CreateManualOrder(ctx context.Context, req *OrderRequest, userID *uint) (*models.Order, error)
	PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error)
	Confirm(ctx context.Context, order *models.Order)

	GetOrderByID(ctx context.Context, id uint) (*models.Order, error)
	GetOrderForUser(ctx context.Context, id uint, user *models.User) (*models.Order, error)
	GetOrdersByUser(ctx context.Context, userID uint) ([]models.Order, error)
	GetByStripeSession(ctx context.Context, sessionID string) (*models.Order, error)
	LookupOrder(ctx context.Context, orderNumber, email string) (*models.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error)

	UpdateOrder(ctx context.Context, id uint, update OrderUpdate) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uint) error
	AddNote(ctx context.Context, orderID, authorID uint, body string) (*models.OrderNote, error)
	GetNotes(ctx context.Context, orderID uint) ([]models.OrderNote, error)
	BookLabel(ctx context.Context, id uint) (*models.Order, error)
	AttachFile(ctx context.Context, id uint, filename, contentType string, r io.Reader) (*models.Order, error)
}

type orderService struct {
	orderRepo     repository.OrderRepository
	noteRepo      repository.OrderNoteRepository
	pricing       PricingService
	shipping      ShippingService
	notifications NotificationService
	files         filestore.Store
	now           func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	noteRepo repository.OrderNoteRepository,
	pricingService PricingService,
	shippingService ShippingService,
	notifications NotificationService,
	files filestore.Store,
) OrderService {
	return &orderService{
		orderRepo:     orderRepo,
		noteRepo:      noteRepo,
		pricing:       pricingService,
		shipping:      shippingService,
		notifications: notifications,
		files:         files,
		now:           time.Now,
	}
}

// NewOrderNumber returns an id like VHS-260314-9F2C1A.
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("VHS-%s-%s", now.Format("060102"), suffix)
}

// PriceOrder builds an unsaved order priced from the current database rates.
func (s *orderService) PriceOrder(ctx context.Context, req *OrderRequest, userID *uint) (*models.Order, error) {
	snap, err := s.pricing.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := snap.Price(&req.Configuration)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:        userID,
		Status:        string(models.OrderPending),
		PaymentStatus: string(models.PaymentUnpaid),
		Subtotal:      quote.Subtotal,
		RushFee:       quote.RushFee,
		Total:         quote.Total,
	}
	order.ApplyConfiguration(&req.Configuration)
	order.ApplyShipping(&req.Shipping)

	due := s.now().AddDate(0, 0, pricing.TurnaroundDays(req.Configuration.ProcessingSpeed, snap.Rates))
	order.DueDate = &due
	return order, nil
}

// CreateManualOrder records an unpaid order submitted without checkout.
func (s *orderService) CreateManualOrder(ctx context.Context, req *OrderRequest, userID *uint) (*models.Order, error) {
	order, err := s.PriceOrder(ctx, req, userID)
	if err != nil {
		return nil, err
	}
	order, _, err = s.PlaceOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	s.Confirm(ctx, order)
	return order, nil
}

// PlaceOrder persists a new order under a fresh number. When the order carries a
// payment session that was already materialized, the existing order is returned
// with created=false.
func (s *orderService) PlaceOrder(ctx context.Context, order *models.Order) (*models.Order, bool, error) {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		order.OrderNumber = NewOrderNumber(s.now())
		err = s.orderRepo.Create(ctx, order)
		if err == nil {
			logger.Log.Info("order placed",
				zap.String("order_number", order.OrderNumber),
				zap.String("total", order.Total.StringFixed(2)),
				zap.String("payment_status", order.PaymentStatus))
			return order, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, false, fmt.Errorf("failed to create order: %w", err)
		}
		if order.StripeSessionID != nil {
			existing, lookupErr := s.orderRepo.GetByStripeSessionID(ctx, *order.StripeSessionID)
			if lookupErr == nil {
				return existing, false, nil
			}
		}
	}
	return nil, false, fmt.Errorf("failed to allocate order number: %w", err)
}

// Confirm books the inbound label when a shipping method was chosen and sends
// the confirmation email. Both are best-effort.
func (s *orderService) Confirm(ctx context.Context, order *models.Order) {
	if order.ShippingMethodID != 0 && order.LabelURL == "" {
		if err := s.attachLabel(ctx, order); err != nil {
			logger.Log.Warn("label booking failed",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
	}
	if err := s.notifications.OrderPlaced(ctx, order); err != nil {
		logger.Log.Warn("confirmation email failed",
			zap.String("order_number", order.OrderNumber), zap.Error(err))
	}
}

func (s *orderService) attachLabel(ctx context.Context, order *models.Order) error {
	label, err := s.shipping.BookInboundLabel(ctx, order)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"parcel_id":       label.ParcelID,
		"tracking_number": label.TrackingNumber,
		"label_url":       label.LabelURL,
	}
	if order.Status == string(models.OrderPending) {
		fields["status"] = string(models.OrderLabelSent)
	}
	if err := s.orderRepo.UpdateFields(ctx, order.ID, fields); err != nil {
		return fmt.Errorf("failed to save label for %s: %w", order.OrderNumber, err)
	}

	order.ParcelID = &label.ParcelID
	order.TrackingNumber = label.TrackingNumber
	order.LabelURL = label.LabelURL
	if status, ok := fields["status"].(string); ok {
		order.Status = status
	}
	return nil
}

func (s *orderService) GetOrderByID(ctx context.Context, id uint) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// GetOrderForUser returns the order when the user owns it or is an admin.
// Guest orders are reachable only through LookupOrder.
func (s *orderService) GetOrderForUser(ctx context.Context, id uint, user *models.User) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin() {
		return order, nil
	}
	if order.UserID != nil && *order.UserID == user.ID {
		return order, nil
	}
	return nil, ErrForbidden
}

func (s *orderService) GetOrdersByUser(ctx context.Context, userID uint) ([]models.Order, error) {
	return s.orderRepo.GetByUserID(ctx, userID)
}

func (s *orderService) GetByStripeSession(ctx context.Context, sessionID string) (*models.Order, error) {
	return s.orderRepo.GetByStripeSessionID(ctx, sessionID)
}

// LookupOrder finds an order by number for guests; the email must match the
// contact email, otherwise the order is reported as missing.
func (s *orderService) LookupOrder(ctx context.Context, orderNumber, email string) (*models.Order, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	email = normalizeEmail(email)
	if orderNumber == "" || email == "" {
		return nil, fmt.Errorf("%w: order number and email are required", ErrInvalidInput)
	}

	order, err := s.orderRepo.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(order.ContactEmail, email) {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, int64, error) {
	if filter.Status != "" && !models.OrderStatus(filter.Status).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.orderRepo.List(ctx, filter)
}

func (s *orderService) UpdateOrder(ctx context.Context, id uint, update OrderUpdate) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	statusChanged := false
	if update.Status != nil && !models.OrderStatus(*update.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *update.Status)
	}
	if update.Status != nil && *update.Status != order.Status {
		next := models.OrderStatus(*update.Status)
		if err := models.OrderStatus(order.Status).CanTransition(next); err != nil {
			return nil, err
		}
		fields["status"] = string(next)
		if next == models.OrderComplete && order.CompletedAt == nil {
			fields["completed_at"] = s.now()
		}
		statusChanged = true
	}
	if update.PaymentStatus != nil {
		switch models.PaymentStatus(*update.PaymentStatus) {
		case models.PaymentPaid, models.PaymentUnpaid:
			fields["payment_status"] = *update.PaymentStatus
		default:
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, *update.PaymentStatus)
		}
	}
	if update.TrackingNumber != nil {
		fields["tracking_number"] = strings.TrimSpace(*update.TrackingNumber)
	}
	if update.LabelURL != nil {
		fields["label_url"] = strings.TrimSpace(*update.LabelURL)
	}
	if update.DownloadURL != nil {
		fields["download_url"] = strings.TrimSpace(*update.DownloadURL)
	}
	if update.FileLink != nil {
		fields["file_link"] = strings.TrimSpace(*update.FileLink)
	}
	if update.DueDate != nil {
		fields["due_date"] = *update.DueDate
	}

	if len(fields) == 0 {
		return order, nil
	}
	if err := s.orderRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}

	updated, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if statusChanged {
		logger.Log.Info("order status changed",
			zap.String("order_number", updated.OrderNumber),
			zap.String("from", order.Status),
			zap.String("to", updated.Status))
		if err := s.notifications.StatusChanged(ctx, updated); err != nil {
			logger.Log.Warn("status email failed",
				zap.String("order_number", updated.OrderNumber), zap.Error(err))
		}
	}
	return updated, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, id uint) error {
	return s.orderRepo.Delete(ctx, id)
}

func (s *orderService) AddNote(ctx context.Context, orderID, authorID uint, body string) (*models.OrderNote, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: note body is required", ErrInvalidInput)
	}
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	note := &models.OrderNote{OrderID: orderID, AuthorID: authorID, Body: body}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}
	return note, nil
}

func (s *orderService) GetNotes(ctx context.Context, orderID uint) ([]models.OrderNote, error) {
	if _, err := s.orderRepo.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.noteRepo.GetByOrderID(ctx, orderID)
}

// BookLabel retries inbound label booking for an order and emails the label.
func (s *orderService) BookLabel(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.OrderStatus(order.Status).IsTerminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
	}

	previous := order.Status
	if err := s.attachLabel(ctx, order); err != nil {
		return nil, err
	}
	if order.Status != previous {
		if err := s.notifications.StatusChanged(ctx, order); err != nil {
			logger.Log.Warn("label email failed",
				zap.String("order_number", order.OrderNumber), zap.Error(err))
		}
	}
	return order, nil
}

// AttachFile uploads a deliverable into the order's folder and records the link.
func (s *orderService) AttachFile(ctx context.Context, id uint, filename, contentType string, r io.Reader) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	link, err := s.files.Upload(ctx, order.OrderNumber, filename, contentType, r)
	if err != nil {
		if errors.Is(err, filestore.ErrNotConfigured) {
			return nil, ErrNotConfigured
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	fields := map[string]interface{}{"file_link": link}
	if order.DownloadURL == "" {
		fields["download_url"] = link
		order.DownloadURL = link
	}
	if err := s.orderRepo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	order.FileLink = link

	logger.Log.Info("file attached",
		zap.String("order_number", order.OrderNumber),
		zap.String("file", filestore.SanitizeName(filename)))
	return order, nil
}
