// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/inventory"
	"github.com/your-org/factory-backend/internal/interfaces/http/middleware"
	"github.com/your-org/factory-backend/internal/pkg/cache"
	"gorm.io/gorm"
)

// InventoryHandler handles raw material inventory endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	invalidator      *cache.Invalidator
	config           *config.Config
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventory.NewService(db, cfg),
		invalidator:      cache.NewInvalidator(redisClient),
		config:           cfg,
	}
}

// CreateItem handles POST /inventory/items
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req inventory.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	item, err := h.inventoryService.CreateItem(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewInventory)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Inventory item created successfully",
		"data":    item,
	})
}

// GetItems handles GET /inventory/items?category=
func (h *InventoryHandler) GetItems(c *gin.Context) {
	items, err := h.inventoryService.GetItems(c.Query("category"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve inventory items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
	})
}

// GetItem handles GET /inventory/items/:id
func (h *InventoryHandler) GetItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := h.inventoryService.GetItem(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": item,
	})
}

// GetLowStockItems handles GET /inventory/low-stock
func (h *InventoryHandler) GetLowStockItems(c *gin.Context) {
	items, err := h.inventoryService.GetLowStockItems()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve low stock items",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":  items,
		"count": len(items),
	})
}

// Restock handles POST /inventory/items/:id/restock
func (h *InventoryHandler) Restock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Quantity float64 `json:"quantity" binding:"required,gt=0"`
		Notes    string  `json:"notes,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	movement, err := h.inventoryService.Restock(id, req.Quantity, userID, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewInventory)

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock updated successfully",
		"data":    movement,
	})
}

// RecordConsumption handles POST /inventory/consumptions
func (h *InventoryHandler) RecordConsumption(c *gin.Context) {
	var req inventory.ConsumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	req.ConsumedBy = userID

	consumption, err := h.inventoryService.RecordConsumption(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewInventory)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Consumption recorded successfully",
		"data":    consumption,
	})
}

// RecordBulkConsumption handles POST /inventory/consumptions/bulk.
// Each entry succeeds or fails on its own; the response reports
// per-item outcomes.
func (h *InventoryHandler) RecordBulkConsumption(c *gin.Context) {
	var req struct {
		Consumptions []inventory.ConsumeRequest `json:"consumptions" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	for i := range req.Consumptions {
		req.Consumptions[i].ConsumedBy = userID
	}

	results := h.inventoryService.RecordBulkConsumption(req.Consumptions)

	h.invalidator.Bump(cache.ViewInventory)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	status := http.StatusOK
	if succeeded == 0 {
		status = http.StatusConflict
	} else if succeeded < len(results) {
		status = http.StatusMultiStatus
	}

	c.JSON(status, gin.H{
		"results":   results,
		"succeeded": succeeded,
		"failed":    len(results) - succeeded,
	})
}

// GetMovements handles GET /inventory/items/:id/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	movements, err := h.inventoryService.GetMovements(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve stock movements",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": movements,
	})
}

// GetConsumptionsByOrder handles GET /inventory/orders/:id/consumptions
func (h *InventoryHandler) GetConsumptionsByOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	consumptions, err := h.inventoryService.GetConsumptionsByOrder(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve consumptions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": consumptions,
	})
}
