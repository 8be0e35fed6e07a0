// internal/interfaces/http/handlers/order.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/interfaces/http/middleware"
	"github.com/your-org/factory-backend/internal/pkg/cache"
	"gorm.io/gorm"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
	invalidator  *cache.Invalidator
	config       *config.Config
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *OrderHandler {
	return &OrderHandler{
		orderService: order.NewService(db, cfg),
		invalidator:  cache.NewInvalidator(redisClient),
		config:       cfg,
	}
}

// CreateOrder handles POST /orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req order.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	o, err := h.orderService.CreateOrder(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewOrders)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"data":    o,
	})
}

// GetOrders handles GET /orders
func (h *OrderHandler) GetOrders(c *gin.Context) {
	var req order.OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	resp, err := h.orderService.GetOrders(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve orders",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": resp,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orderService.GetOrder(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": o,
	})
}

// GetOrderByNumber handles GET /orders/number/:number
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	number := c.Param("number")

	o, err := h.orderService.GetOrderByNumber(number)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": o,
	})
}

// ApproveOrder handles PUT /orders/:id/approve
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.orderService.ApproveOrder(id, userID); err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewOrders, cache.ViewOrderDetail)

	c.JSON(http.StatusOK, gin.H{
		"message": "Order approved successfully",
	})
}

// CancelOrder handles PUT /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request data",
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.orderService.CancelOrder(id, req.Reason, userID); err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewOrders, cache.ViewOrderDetail)

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
	})
}

// AdvanceStage handles PUT /orders/:id/stage. This is the manual
// supervisor override; the normal path is session close.
func (h *OrderHandler) AdvanceStage(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Stage order.Stage `json:"stage" binding:"required"`
		Notes string      `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	if !req.Stage.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown stage: " + string(req.Stage),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.orderService.AdvanceStage(id, req.Stage, userID, req.Notes); err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewOrders, cache.ViewOrderDetail)

	c.JSON(http.StatusOK, gin.H{
		"message": "Order stage updated successfully",
	})
}
