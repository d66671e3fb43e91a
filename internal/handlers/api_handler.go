package handlers

import (
	"context"
	"net/http"
	"time"
	"vhs_converter/internal/models"
	"vhs_converter/internal/services"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether one backing service is reachable.
type HealthCheck func(ctx context.Context) error

// APIHandler serves the public storefront endpoints.
type APIHandler struct {
	pricingService  services.PricingService
	orderService    services.OrderService
	shippingService services.ShippingService
	checkoutService services.CheckoutService
	health          map[string]HealthCheck
}

func NewAPIHandler(
	pricingService services.PricingService,
	orderService services.OrderService,
	shippingService services.ShippingService,
	checkoutService services.CheckoutService,
	health map[string]HealthCheck,
) *APIHandler {
	return &APIHandler{
		pricingService:  pricingService,
		orderService:    orderService,
		shippingService: shippingService,
		checkoutService: checkoutService,
		health:          health,
	}
}

func (h *APIHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func (h *APIHandler) GetPricing(c *gin.Context) {
	listing, err := h.pricingService.PublicListing(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *APIHandler) Quote(c *gin.Context) {
	var cfg models.OrderConfiguration
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondBindError(c, err)
		return
	}

	quote, err := h.pricingService.Quote(c.Request.Context(), &cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subtotal": quote.Subtotal.StringFixed(2),
		"rush_fee": quote.RushFee.StringFixed(2),
		"total":    quote.Total.StringFixed(2),
		"lines":    quote.Lines,
	})
}

func (h *APIHandler) LookupOrder(c *gin.Context) {
	order, err := h.orderService.LookupOrder(c.Request.Context(), c.Param("orderNumber"), c.Query("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// CreateOrder records an order without payment. Signed-in customers get it
// linked to their account.
func (h *APIHandler) CreateOrder(c *gin.Context) {
	var req services.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	var userID *uint
	if user := currentUser(c); user != nil {
		userID = &user.ID
	}

	order, err := h.orderService.CreateManualOrder(c.Request.Context(), &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *APIHandler) ShippingRates(c *gin.Context) {
	var req services.RatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	rates, err := h.shippingService.Rates(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rates": rates})
}

func (h *APIHandler) ServicePoints(c *gin.Context) {
	points, err := h.shippingService.GetServicePoints(c.Request.Context(), c.Query("country"), c.Query("postal_code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service_points": points})
}

func (h *APIHandler) CreateCheckoutSession(c *gin.Context) {
	var req services.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.checkoutService.CreateSession(c.Request.Context(), &req, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *APIHandler) GetCheckoutSession(c *gin.Context) {
	order, err := h.checkoutService.VerifySession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *APIHandler) CheckoutWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := h.checkoutService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"received": true}
	if order != nil {
		resp["order_number"] = order.OrderNumber
	}
	c.JSON(http.StatusOK, resp)
}
