package services

import (
	"context"
	"fmt"
	"strings"
	"vhs_converter/internal/models"
	"vhs_converter/pkg/mailer"
)

// NotificationService renders and sends customer and studio emails.
// Callers decide whether a failure matters; most log it and move on.
type NotificationService interface {
	OrderPlaced(ctx context.Context, order *models.Order) error
	StatusChanged(ctx context.Context, order *models.Order) error
	MessagePosted(ctx context.Context, order *models.Order, message *models.OrderMessage, to string) error
}

type notificationService struct {
	mailer  mailer.Mailer
	baseURL string
}

func NewNotificationService(m mailer.Mailer, baseURL string) NotificationService {
	return &notificationService{mailer: m, baseURL: strings.TrimRight(baseURL, "/")}
}

var statusTemplates = map[models.OrderStatus]struct{ subject, body string }{
	models.OrderLabelSent: {
		"Your shipping label for %s",
		"Your prepaid shipping label is ready. Pack your tapes and send them our way.\n\nLabel: %s",
	},
	models.OrderTapesReceived: {
		"We received your tapes (%s)",
		"Your tapes have arrived at our studio and are queued for digitizing.",
	},
	models.OrderInProgress: {
		"Digitizing has started on %s",
		"We are now transferring your tapes.",
	},
	models.OrderQualityCheck: {
		"%s is in quality check",
		"Your transfers are done and are being reviewed before delivery.",
	},
	models.OrderReadyForDownload: {
		"Your files are ready (%s)",
		"Your digitized files are ready.\n\nDownload: %s",
	},
	models.OrderShipped: {
		"%s has shipped",
		"Your tapes and media are on their way back to you.\n\nTracking: %s",
	},
	models.OrderComplete: {
		"%s is complete",
		"Your order is complete. Thank you for trusting us with your memories.",
	},
	models.OrderCancelled: {
		"%s was cancelled",
		"Your order has been cancelled. Reply to this email if this is unexpected.",
	},
}

func (s *notificationService) orderLink(order *models.Order) string {
	return fmt.Sprintf("%s/orders/%s", s.baseURL, order.OrderNumber)
}

func (s *notificationService) OrderPlaced(ctx context.Context, order *models.Order) error {
	if order.ContactEmail == "" {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", order.ContactName)
	fmt.Fprintf(&b, "Thanks for your order %s.\n\n", order.OrderNumber)
	fmt.Fprintf(&b, "Tapes: %d\nEstimated hours: %d\nOutputs: %s\n",
		order.TotalTapes, order.EstimatedHours, strings.Join(order.OutputFormats.Data(), ", "))
	fmt.Fprintf(&b, "Subtotal: %s\n", order.Subtotal.StringFixed(2))
	if order.RushFee.IsPositive() {
		fmt.Fprintf(&b, "Rush fee: %s\n", order.RushFee.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s (%s)\n", order.Total.StringFixed(2), order.PaymentStatus)
	if order.DueDate != nil {
		fmt.Fprintf(&b, "Estimated completion: %s\n", order.DueDate.Format("January 2, 2006"))
	}
	if order.LabelURL != "" {
		fmt.Fprintf(&b, "\nYour shipping label: %s\n", order.LabelURL)
	}
	fmt.Fprintf(&b, "\nTrack your order at %s\n", s.orderLink(order))

	return s.mailer.Send(ctx, mailer.Email{
		To:      order.ContactEmail,
		ToName:  order.ContactName,
		Subject: fmt.Sprintf("Order confirmation %s", order.OrderNumber),
		Text:    b.String(),
	})
}

func (s *notificationService) StatusChanged(ctx context.Context, order *models.Order) error {
	if order.ContactEmail == "" {
		return nil
	}

	status := models.OrderStatus(order.Status)
	subject := fmt.Sprintf("Update on %s", order.OrderNumber)
	body := fmt.Sprintf("Your order status is now %s.", strings.ReplaceAll(order.Status, "_", " "))
	if tpl, ok := statusTemplates[status]; ok {
		subject = fmt.Sprintf(tpl.subject, order.OrderNumber)
		switch status {
		case models.OrderLabelSent:
			body = fmt.Sprintf(tpl.body, order.LabelURL)
		case models.OrderReadyForDownload:
			link := order.DownloadURL
			if link == "" {
				link = order.FileLink
			}
			body = fmt.Sprintf(tpl.body, link)
		case models.OrderShipped:
			body = fmt.Sprintf(tpl.body, order.TrackingNumber)
		default:
			body = tpl.body
		}
	}

	text := fmt.Sprintf("Hi %s,\n\n%s\n\nOrder details: %s\n", order.ContactName, body, s.orderLink(order))
	return s.mailer.Send(ctx, mailer.Email{
		To:      order.ContactEmail,
		ToName:  order.ContactName,
		Subject: subject,
		Text:    text,
	})
}

func (s *notificationService) MessagePosted(ctx context.Context, order *models.Order, message *models.OrderMessage, to string) error {
	if to == "" {
		return nil
	}

	from := "the studio"
	if !message.IsAdmin {
		from = order.ContactName
	}
	return s.mailer.Send(ctx, mailer.Email{
		To:      to,
		Subject: fmt.Sprintf("New message on %s", order.OrderNumber),
		Text:    fmt.Sprintf("New message from %s:\n\n%s\n\n%s\n", from, message.Body, s.orderLink(order)),
	})
}
