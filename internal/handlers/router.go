package handlers

import (
	"time"
	"vhs_converter/internal/logger"
	"vhs_converter/internal/services"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Users        services.UserService
	Orders       services.OrderService
	Pricing      services.PricingService
	Shipping     services.ShippingService
	Checkout     services.CheckoutService
	Messages     services.MessageService
	Health       map[string]HealthCheck
	Limiter      *RateLimiter
	SessionTTL   time.Duration
	CookieSecure bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	apiHandler := NewAPIHandler(cfg.Pricing, cfg.Orders, cfg.Shipping, cfg.Checkout, cfg.Health)
	authHandler := NewAuthHandler(cfg.Users, cfg.SessionTTL, cfg.CookieSecure)
	orderHandler := NewOrderHandler(cfg.Orders, cfg.Messages)
	adminHandler := NewAdminHandler(cfg.Orders, cfg.Pricing)
	limited := cfg.Limiter.Middleware()

	router := gin.New()
	router.Use(logger.WithLogging(), gin.Recovery())

	router.GET("/health", apiHandler.Health)

	// Stripe calls this directly; no session involved.
	router.POST("/api/checkout/webhook", apiHandler.CheckoutWebhook)

	api := router.Group("/api", LoadUser(cfg.Users))
	{
		api.GET("/pricing", apiHandler.GetPricing)
		api.POST("/pricing/quote", limited, apiHandler.Quote)

		api.GET("/orders/lookup/:orderNumber", limited, apiHandler.LookupOrder)
		api.POST("/orders", limited, apiHandler.CreateOrder)

		api.POST("/shipping/rates", apiHandler.ShippingRates)
		api.GET("/shipping/service-points", apiHandler.ServicePoints)

		api.POST("/checkout/session", apiHandler.CreateCheckoutSession)
		api.GET("/checkout/session/:sessionId", apiHandler.GetCheckoutSession)

		auth := api.Group("/auth")
		{
			auth.POST("/register", limited, authHandler.Register)
			auth.POST("/login", limited, authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", authHandler.Me)
		}

		my := api.Group("/my", RequireUser())
		{
			my.GET("/orders", orderHandler.MyOrders)
			my.GET("/orders/:id", orderHandler.MyOrder)
			my.GET("/orders/:id/messages", orderHandler.Messages)
			my.POST("/orders/:id/messages", orderHandler.PostMessage)
			my.GET("/messages/unread-count", orderHandler.UnreadCount)
		}

		admin := api.Group("/admin", RequireAdmin())
		{
			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/orders/:id", adminHandler.GetOrder)
			admin.PATCH("/orders/:id", adminHandler.UpdateOrder)
			admin.DELETE("/orders/:id", adminHandler.DeleteOrder)
			admin.GET("/orders/:id/notes", adminHandler.GetNotes)
			admin.POST("/orders/:id/notes", adminHandler.AddNote)
			admin.GET("/orders/:id/messages", orderHandler.Messages)
			admin.POST("/orders/:id/messages", orderHandler.PostMessage)
			admin.POST("/orders/:id/files", adminHandler.UploadFile)
			admin.POST("/orders/:id/label", adminHandler.BookLabel)

			admin.GET("/pricing", adminHandler.GetPricing)
			admin.PUT("/pricing/:key", adminHandler.UpdatePricing)

			admin.GET("/availability", adminHandler.ListAvailability)
			admin.POST("/availability", adminHandler.CreateAvailability)
			admin.PUT("/availability/:id", adminHandler.UpdateAvailability)
			admin.DELETE("/availability/:id", adminHandler.DeleteAvailability)
		}
	}

	return router
}
