package handlers

import (
	"net/http"
	"strconv"
	"vhs_converter/internal/repository"
	"vhs_converter/internal/services"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	orderService   services.OrderService
	pricingService services.PricingService
}

func NewAdminHandler(orderService services.OrderService, pricingService services.PricingService) *AdminHandler {
	return &AdminHandler{orderService: orderService, pricingService: pricingService}
}

type NoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type PricingUpdateRequest struct {
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "25"))

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders":    orders,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *AdminHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *AdminHandler) UpdateOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var update services.OrderUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *AdminHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}

func (h *AdminHandler) GetNotes(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	notes, err := h.orderService.GetNotes(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

func (h *AdminHandler) AddNote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req NoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	note, err := h.orderService.AddNote(c.Request.Context(), id, currentUser(c).ID, req.Body)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *AdminHandler) UploadFile(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	order, err := h.orderService.AttachFile(c.Request.Context(), id, header.Filename, contentType, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"file_link": order.FileLink, "order": order})
}

func (h *AdminHandler) BookLabel(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	order, err := h.orderService.BookLabel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *AdminHandler) GetPricing(c *gin.Context) {
	configs, err := h.pricingService.ListConfigs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

func (h *AdminHandler) UpdatePricing(c *gin.Context) {
	var req PricingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	cfg, err := h.pricingService.UpdateConfig(c.Request.Context(), c.Param("key"), req.Value, req.Description, currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *AdminHandler) ListAvailability(c *gin.Context) {
	items, err := h.pricingService.ListAvailability(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *AdminHandler) CreateAvailability(c *gin.Context) {
	var req services.AvailabilityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	item, err := h.pricingService.CreateAvailability(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *AdminHandler) UpdateAvailability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.AvailabilityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	item, err := h.pricingService.UpdateAvailability(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *AdminHandler) DeleteAvailability(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.pricingService.DeleteAvailability(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "deleted"})
}
