// internal/interfaces/http/handlers/masterdata.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"gorm.io/gorm"
)

// MasterdataHandler handles branch/machine/employee/store lookups
type MasterdataHandler struct {
	masterdataService *masterdata.Service
	config            *config.Config
}

// NewMasterdataHandler creates a new masterdata handler
func NewMasterdataHandler(db *gorm.DB, cfg *config.Config) *MasterdataHandler {
	return &MasterdataHandler{
		masterdataService: masterdata.NewService(db),
		config:            cfg,
	}
}

// GetBranches handles GET /masterdata/branches
func (h *MasterdataHandler) GetBranches(c *gin.Context) {
	branches, err := h.masterdataService.GetBranches()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve branches",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": branches,
	})
}

// GetMachines handles GET /masterdata/machines?branch_id=
func (h *MasterdataHandler) GetMachines(c *gin.Context) {
	var query struct {
		BranchID uint `form:"branch_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	machines, err := h.masterdataService.GetMachines(query.BranchID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve machines",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": machines,
	})
}

// GetMachine handles GET /masterdata/machines/:id
func (h *MasterdataHandler) GetMachine(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	machine, err := h.masterdataService.GetMachine(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": machine,
	})
}

// GetEmployee handles GET /masterdata/employees/:id
func (h *MasterdataHandler) GetEmployee(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	employee, err := h.masterdataService.GetEmployee(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": employee,
	})
}

// GetStores handles GET /masterdata/stores
func (h *MasterdataHandler) GetStores(c *gin.Context) {
	stores, err := h.masterdataService.GetStores()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to retrieve stores",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stores,
	})
}

// GetStore handles GET /masterdata/stores/:id
func (h *MasterdataHandler) GetStore(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	store, err := h.masterdataService.GetStore(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": store,
	})
}
