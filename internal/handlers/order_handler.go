package handlers

import (
	"net/http"
	"strconv"
	"vhs_converter/internal/services"

	"github.com/gin-gonic/gin"
)

// OrderHandler serves signed-in customers their orders and message threads.
type OrderHandler struct {
	orderService   services.OrderService
	messageService services.MessageService
}

func NewOrderHandler(orderService services.OrderService, messageService services.MessageService) *OrderHandler {
	return &OrderHandler{orderService: orderService, messageService: messageService}
}

type MessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}

func (h *OrderHandler) MyOrders(c *gin.Context) {
	orders, err := h.orderService.GetOrdersByUser(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *OrderHandler) MyOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrderForUser(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Messages and PostMessage are shared by the customer and admin routes;
// ownership is checked in the service.
func (h *OrderHandler) Messages(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	messages, err := h.messageService.List(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *OrderHandler) PostMessage(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := h.messageService.Post(c.Request.Context(), id, currentUser(c), req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *OrderHandler) UnreadCount(c *gin.Context) {
	count, err := h.messageService.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
