package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"vhs_converter/internal/models"
	"vhs_converter/pkg/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutService_CreateSession(t *testing.T) {
	e := newTestEnv()
	user := &models.User{ID: 7, Email: "jo@example.com"}

	session, err := e.checkout.CreateSession(context.Background(), sampleRequest(), user)
	require.NoError(t, err)
	assert.Equal(t, "65.00", session.Total)

	require.Len(t, e.gateway.created, 1)
	req := e.gateway.created[0]
	assert.Equal(t, "65", req.Amount.String())
	assert.Equal(t, "usd", req.Currency)
	assert.Equal(t, "https://vhs.example/checkout/success?session_id={CHECKOUT_SESSION_ID}", req.SuccessURL)
	assert.True(t, e.redis.has(draftKey(session.SessionID)))
	assert.Empty(t, e.orderRepo.orders, "nothing is persisted before payment")
}

func TestCheckoutService_CreateSession_GatewayErrors(t *testing.T) {
	e := newTestEnv()

	e.gateway.err = payment.ErrNotConfigured
	_, err := e.checkout.CreateSession(context.Background(), sampleRequest(), nil)
	assert.True(t, errors.Is(err, ErrNotConfigured))

	e.gateway.err = errors.New("stripe 500")
	_, err = e.checkout.CreateSession(context.Background(), sampleRequest(), nil)
	assert.True(t, errors.Is(err, ErrUpstream))
}

func TestCheckoutService_VerifySession_Unpaid(t *testing.T) {
	e := newTestEnv()
	session, err := e.checkout.CreateSession(context.Background(), sampleRequest(), nil)
	require.NoError(t, err)

	_, err = e.checkout.VerifySession(context.Background(), session.SessionID)
	assert.True(t, errors.Is(err, ErrPaymentNotCompleted))
	assert.Empty(t, e.orderRepo.orders)
}

func TestCheckoutService_VerifySession_Materializes(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	user := &models.User{ID: 7, Email: "jo@example.com"}
	session, err := e.checkout.CreateSession(ctx, sampleRequest(), user)
	require.NoError(t, err)
	e.gateway.markPaid(session.SessionID)

	order, err := e.checkout.VerifySession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentPaid), order.PaymentStatus)
	assert.Equal(t, "65.00", order.Total.StringFixed(2))
	require.NotNil(t, order.UserID)
	assert.Equal(t, uint(7), *order.UserID)
	assert.Equal(t, 1, order.TapeFormats.Data()["vhs"])
	assert.Equal(t, string(models.OrderLabelSent), order.Status)
	assert.False(t, e.redis.has(draftKey(session.SessionID)))
	assert.Equal(t, 1, e.mail.count())

	again, err := e.checkout.VerifySession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, again.ID)
	assert.Len(t, e.orderRepo.orders, 1)
	assert.Equal(t, 1, e.mail.count())
}

func TestCheckoutService_VerifyAndWebhookRace(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	session, err := e.checkout.CreateSession(ctx, sampleRequest(), nil)
	require.NoError(t, err)
	e.gateway.markPaid(session.SessionID)
	paid, err := e.gateway.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	e.gateway.webhook = paid

	var wg sync.WaitGroup
	ids := make([]uint, 4)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var order *models.Order
			var err error
			if i%2 == 0 {
				order, err = e.checkout.VerifySession(ctx, session.SessionID)
			} else {
				order, err = e.checkout.HandleWebhook(ctx, []byte("{}"), "sig")
			}
			if assert.NoError(t, err) && order != nil {
				ids[i] = order.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, e.orderRepo.orders, 1)
	for _, id := range ids {
		if id != 0 {
			assert.Equal(t, ids[0], id)
		}
	}
}

func TestCheckoutService_ExpiredDraft(t *testing.T) {
	e := newTestEnv()
	ctx := context.Background()
	session, err := e.checkout.CreateSession(ctx, sampleRequest(), nil)
	require.NoError(t, err)
	e.gateway.markPaid(session.SessionID)
	require.NoError(t, e.redis.DeleteTempData(ctx, draftKey(session.SessionID)))

	_, err = e.checkout.VerifySession(ctx, session.SessionID)
	assert.True(t, errors.Is(err, ErrCheckoutExpired))

	paid, err := e.gateway.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	e.gateway.webhook = paid
	order, err := e.checkout.HandleWebhook(ctx, []byte("{}"), "sig")
	assert.NoError(t, err)
	assert.Nil(t, order)
}

func TestCheckoutService_HandleWebhook_IgnoredEvent(t *testing.T) {
	e := newTestEnv()
	order, err := e.checkout.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.NoError(t, err)
	assert.Nil(t, order)

	e.gateway.err = errors.New("bad signature")
	_, err = e.checkout.HandleWebhook(context.Background(), []byte("{}"), "sig")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
