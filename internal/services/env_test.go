package services

import (
	"time"
	"vhs_converter/internal/config"
	"vhs_converter/internal/models"
)

type testEnv struct {
	orderRepo    *fakeOrderRepo
	noteRepo     *fakeNoteRepo
	messageRepo  *fakeMessageRepo
	pricingRepo  *fakePricingRepo
	userRepo     *fakeUserRepo
	redis        *fakeRedis
	mail         *recordingMailer
	shipProvider *fakeShippingProvider
	gateway      *fakeGateway
	files        *fakeStore

	pricing  PricingService
	shipping ShippingService
	orders   OrderService
	checkout CheckoutService
	messages MessageService
	users    UserService
}

func newTestEnv() *testEnv {
	e := &testEnv{
		orderRepo:    newFakeOrderRepo(),
		noteRepo:     &fakeNoteRepo{},
		messageRepo:  &fakeMessageRepo{},
		pricingRepo:  newFakePricingRepo(),
		userRepo:     newFakeUserRepo(),
		redis:        newFakeRedis(),
		mail:         &recordingMailer{},
		shipProvider: &fakeShippingProvider{configured: true},
		gateway:      newFakeGateway(),
		files:        &fakeStore{},
	}

	notifications := NewNotificationService(e.mail, "https://vhs.example")
	e.pricing = NewPricingService(e.pricingRepo, e.redis, time.Minute)
	e.shipping = NewShippingService(e.shipProvider, config.StudioAddress{
		Name: "Studio", Address: "1 Main St", City: "Austin", PostalCode: "78701", Country: "US",
	})
	e.orders = NewOrderService(e.orderRepo, e.noteRepo, e.pricing, e.shipping, notifications, e.files)
	e.checkout = NewCheckoutService(e.orders, e.gateway, e.redis, "https://vhs.example/", "usd")
	e.messages = NewMessageService(e.orders, e.messageRepo, notifications, "studio@vhs.example")
	e.users = NewUserService(e.userRepo, e.redis, time.Hour)
	return e
}

// sampleRequest prices at 65.00 with default rates: 1 tape, 2 hours, usb, return.
func sampleRequest() *OrderRequest {
	return &OrderRequest{
		Configuration: models.OrderConfiguration{
			TapeFormats:     map[string]int{"VHS": 1},
			TotalTapes:      1,
			EstimatedHours:  2,
			OutputFormats:   []string{"usb"},
			TapeHandling:    "return",
			ProcessingSpeed: "standard",
		},
		Shipping: models.ShippingInfo{
			Name:             "Jo Customer",
			Email:            "Jo@Example.com",
			Address:          "5 Elm St",
			City:             "Denver",
			PostalCode:       "80202",
			Country:          "us",
			ShippingMethodID: 2,
		},
	}
}
