// internal/interfaces/http/handlers/production.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/inventory"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/domain/production"
	"github.com/your-org/factory-backend/internal/interfaces/http/middleware"
	"github.com/your-org/factory-backend/internal/pkg/cache"
	"gorm.io/gorm"
)

// ProductionHandler handles production session endpoints
type ProductionHandler struct {
	productionService *production.Service
	invalidator       *cache.Invalidator
	config            *config.Config
}

// NewProductionHandler creates a new production handler
func NewProductionHandler(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ProductionHandler {
	inventoryService := inventory.NewService(db, cfg)
	orderService := order.NewService(db, cfg)
	masterdataService := masterdata.NewService(db)

	return &ProductionHandler{
		productionService: production.NewService(db, cfg, inventoryService, orderService, masterdataService),
		invalidator:       cache.NewInvalidator(redisClient),
		config:            cfg,
	}
}

// StartSessionRequest represents session start data. The operator is
// taken from the token when linked, otherwise from the body.
type StartSessionRequest struct {
	OperatorID uint `json:"operator_id"`
	MachineID  uint `json:"machine_id" binding:"required"`
	OrderID    uint `json:"order_id" binding:"required"`
}

// StartSession handles POST /production/sessions
func (h *ProductionHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	operatorID := req.OperatorID
	if employeeID, ok := middleware.GetEmployeeIDFromContext(c); ok {
		operatorID = employeeID
	}
	if operatorID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Operator ID required",
		})
		return
	}

	entry, err := h.productionService.StartSession(operatorID, req.MachineID, req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewProduction)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Production session started",
		"data":    entry,
	})
}

// CloseSession handles PUT /production/sessions/:id/close
func (h *ProductionHandler) CloseSession(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req production.CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": err.Error(),
		})
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)

	entry, err := h.productionService.CloseSession(id, &req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.invalidator.Bump(cache.ViewProduction, cache.ViewInventory, cache.ViewOrders, cache.ViewOrderDetail)

	c.JSON(http.StatusOK, gin.H{
		"message": "Production session closed",
		"data":    entry,
	})
}

// GetAllowedInput handles GET /production/orders/:id/allowed-input?stage=
func (h *ProductionHandler) GetAllowedInput(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	stage := order.Stage(c.Query("stage"))
	if !stage.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown stage: " + string(stage),
		})
		return
	}

	allowed, err := h.productionService.GetAllowedInput(orderID, stage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": allowed,
	})
}

// GetEntry handles GET /production/sessions/:id
func (h *ProductionHandler) GetEntry(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.productionService.GetEntry(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entry,
	})
}

// GetOpenSession handles GET /production/operators/:id/open-session
func (h *ProductionHandler) GetOpenSession(c *gin.Context) {
	operatorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.productionService.GetOpenSession(operatorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entry,
	})
}

// GetEntriesByOrder handles GET /production/orders/:id/entries
func (h *ProductionHandler) GetEntriesByOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	entries, err := h.productionService.GetEntriesByOrder(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve production entries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": entries,
	})
}

// GetStageSummaries handles GET /production/orders/:id/summary
func (h *ProductionHandler) GetStageSummaries(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	summaries, err := h.productionService.GetStageSummaries(orderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve stage summaries",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": summaries,
	})
}
