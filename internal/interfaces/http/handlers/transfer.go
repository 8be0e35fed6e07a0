// internal/interfaces/http/handlers/transfer.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/domain/transfer"
	"github.com/your-org/factory-backend/internal/interfaces/http/middleware"
	"github.com/your-org/factory-backend/internal/pkg/cache"
	"gorm.io/gorm"
)

// TransferHandler handles stock transfer endpoints
type TransferHandler struct {
	transferService *transfer.Service
	invalidator     *cache.Invalidator
	config          *config.Config
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *TransferHandler {
	return &TransferHandler{
		transferService: transfer.NewService(db, cfg, masterdata.NewService(db)),
		invalidator:     cache.NewInvalidator(redisClient),
		config:          cfg,
	}
}

// CreateTransfer handles POST /transfers
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req transfer.CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	t, err := h.transferService.Create(&req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewStockTransfers)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Transfer created successfully",
		"data":    t,
	})
}

// MarkInTransit handles PUT /transfers/:id/transit
func (h *TransferHandler) MarkInTransit(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	if err := h.transferService.MarkInTransit(id, userID); err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewStockTransfers)

	c.JSON(http.StatusOK, gin.H{
		"message": "Transfer marked in transit",
	})
}

// ReceiveTransfer handles PUT /transfers/:id/receive
func (h *TransferHandler) ReceiveTransfer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	t, err := h.transferService.Receive(id, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewStockTransfers, cache.ViewStoreInventory)

	c.JSON(http.StatusOK, gin.H{
		"message": "Transfer received successfully",
		"data":    t,
	})
}

// CancelTransfer handles PUT /transfers/:id/cancel
func (h *TransferHandler) CancelTransfer(c *gin.Context) {
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

	if err := h.transferService.Cancel(id, userID, req.Reason); err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewStockTransfers)

	c.JSON(http.StatusOK, gin.H{
		"message": "Transfer cancelled successfully",
	})
}

// GetTransfer handles GET /transfers/:id
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	t, err := h.transferService.GetTransfer(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": t,
	})
}

// GetTransfers handles GET /transfers
func (h *TransferHandler) GetTransfers(c *gin.Context) {
	var req transfer.TransferListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	transfers, err := h.transferService.GetTransfers(&req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve transfers",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": transfers,
	})
}

// GetStoreInventory handles GET /transfers/stores/:id/inventory
func (h *TransferHandler) GetStoreInventory(c *gin.Context) {
	storeID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	items, err := h.transferService.GetStoreInventory(storeID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
	})
}
