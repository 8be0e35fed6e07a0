// internal/domain/inventory/service.go
package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles the inventory ledger and material consumption
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new inventory service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateItemRequest represents inventory item creation data
type CreateItemRequest struct {
	Name         string  `json:"name" binding:"required"`
	Category     string  `json:"category"`
	Quantity     float64 `json:"quantity" binding:"gte=0"`
	Unit         string  `json:"unit"`
	ReorderLevel float64 `json:"reorder_level" binding:"gte=0"`
	UnitPrice    int64   `json:"unit_price" binding:"gte=0"`
}

// ConsumeRequest represents one material consumption
type ConsumeRequest struct {
	OrderID           uint        `json:"order_id" binding:"required"`
	InventoryItemID   uint        `json:"inventory_item_id" binding:"required"`
	Quantity          float64     `json:"quantity" binding:"required,gt=0"`
	Stage             order.Stage `json:"stage" binding:"required"`
	ConsumedBy        uint        `json:"-"`
	ProductionEntryID *uint       `json:"production_entry_id,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}

// BulkConsumeResult reports the outcome for one entry of a bulk request
type BulkConsumeResult struct {
	InventoryItemID uint                 `json:"inventory_item_id"`
	Success         bool                 `json:"success"`
	Error           string               `json:"error,omitempty"`
	Consumption     *MaterialConsumption `json:"consumption,omitempty"`
}

// CreateItem creates a new inventory item
func (s *Service) CreateItem(req *CreateItemRequest) (*InventoryItem, error) {
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	item := &InventoryItem{
		Name:         req.Name,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Unit:         unit,
		ReorderLevel: req.ReorderLevel,
		UnitPrice:    req.UnitPrice,
	}

	if err := s.db.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create inventory item: %w", err)
	}

	return item, nil
}

// GetItem retrieves an inventory item by ID
func (s *Service) GetItem(id uint) (*InventoryItem, error) {
	var item InventoryItem
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("inventory item", id)
		}
		return nil, fmt.Errorf("failed to retrieve inventory item: %w", err)
	}
	return &item, nil
}

// GetItems retrieves inventory items, optionally filtered by category
func (s *Service) GetItems(category string) ([]InventoryItem, error) {
	var items []InventoryItem
	query := s.db.Order("name asc")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve inventory items: %w", err)
	}
	return items, nil
}

// GetLowStockItems returns items at or below their reorder level, or
// below the configured default threshold when no level is set.
func (s *Service) GetLowStockItems() ([]InventoryItem, error) {
	var items []InventoryItem
	threshold := s.config.Production.DefaultLowStockThreshold
	err := s.db.
		Where("(reorder_level > 0 AND quantity <= reorder_level) OR (reorder_level = 0 AND quantity <= ?)", threshold).
		Order("quantity asc").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve low stock items: %w", err)
	}
	return items, nil
}

// Restock increments an item's quantity and records an IN movement
func (s *Service) Restock(itemID uint, quantity float64, restockedBy uint, notes string) (*StockMovement, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("restock quantity must be positive")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var item InventoryItem
	if err := tx.First(&item, itemID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("inventory item", itemID)
		}
		return nil, fmt.Errorf("failed to retrieve inventory item: %w", err)
	}

	if err := tx.Model(&item).UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to increment stock: %w", err)
	}

	// Ledger snapshots come from a read taken after the increment, so
	// concurrent restocks each record the quantities they produced.
	if err := tx.First(&item, itemID).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to reload inventory item: %w", err)
	}

	movement := &StockMovement{
		InventoryItemID:  itemID,
		MovementType:     MovementTypeIn,
		Reason:           ReasonRestock,
		Quantity:         quantity,
		PreviousQuantity: item.Quantity - quantity,
		NewQuantity:      item.Quantity,
		Notes:            notes,
		CreatedBy:        restockedBy,
	}
	if err := tx.Create(movement).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit restock: %w", err)
	}

	return movement, nil
}

// RecordConsumption logs one material consumption in its own
// transaction. Used for ad hoc logging without a live session; the
// session close path uses ConsumeInTx inside its own transaction.
func (s *Service) RecordConsumption(req *ConsumeRequest) (*MaterialConsumption, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	consumption, err := s.ConsumeInTx(tx, req)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit consumption: %w", err)
	}

	return consumption, nil
}

// RecordBulkConsumption processes each entry independently and reports
// per-item success or failure. One failing entry does not abort the
// rest; this intentionally differs from the all-or-nothing session
// close.
func (s *Service) RecordBulkConsumption(reqs []ConsumeRequest) []BulkConsumeResult {
	results := make([]BulkConsumeResult, 0, len(reqs))
	for i := range reqs {
		req := reqs[i]
		consumption, err := s.RecordConsumption(&req)
		result := BulkConsumeResult{
			InventoryItemID: req.InventoryItemID,
			Success:         err == nil,
			Consumption:     consumption,
		}
		if err != nil {
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

// ConsumeInTx verifies stock, decrements the item, and writes the
// consumption record plus the signed ledger movement inside the
// caller's transaction. The decrement is a single conditional update
// verified by affected-row count, so two concurrent consumptions can
// never jointly overdraw the same item.
func (s *Service) ConsumeInTx(tx *gorm.DB, req *ConsumeRequest) (*MaterialConsumption, error) {
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("consumption quantity must be positive")
	}
	if !req.Stage.IsValid() {
		return nil, fmt.Errorf("unknown stage %q", req.Stage)
	}

	result := tx.Model(&InventoryItem{}).
		Where("id = ? AND quantity >= ?", req.InventoryItemID, req.Quantity).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", req.Quantity))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to decrement stock: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Either the item is missing or the guard rejected the decrement.
		var item InventoryItem
		if err := tx.First(&item, req.InventoryItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NewNotFound("inventory item", req.InventoryItemID)
			}
			return nil, fmt.Errorf("failed to retrieve inventory item: %w", err)
		}
		return nil, &apperrors.InsufficientStockError{
			ItemName:  item.Name,
			Available: item.Quantity,
			Requested: req.Quantity,
		}
	}

	var item InventoryItem
	if err := tx.First(&item, req.InventoryItemID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload inventory item: %w", err)
	}

	referenceType := "order"
	referenceID := req.OrderID
	if req.ProductionEntryID != nil {
		referenceType = "production_entry"
		referenceID = *req.ProductionEntryID
	}

	movement := StockMovement{
		InventoryItemID:  item.ID,
		MovementType:     MovementTypeOut,
		Reason:           ReasonConsumption,
		Quantity:         -req.Quantity,
		PreviousQuantity: item.Quantity + req.Quantity,
		NewQuantity:      item.Quantity,
		ReferenceType:    referenceType,
		ReferenceID:      referenceID,
		Notes:            req.Notes,
		CreatedBy:        req.ConsumedBy,
	}
	if err := tx.Create(&movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record movement: %w", err)
	}

	consumption := &MaterialConsumption{
		ProductionEntryID: req.ProductionEntryID,
		OrderID:           req.OrderID,
		InventoryItemID:   item.ID,
		MaterialName:      item.Name,
		MaterialCategory:  item.Category,
		Quantity:          req.Quantity,
		Unit:              item.Unit,
		Stage:             req.Stage,
		ConsumedBy:        req.ConsumedBy,
		Notes:             req.Notes,
		CreatedAt:         time.Now().UTC(),
	}
	if err := tx.Create(consumption).Error; err != nil {
		return nil, fmt.Errorf("failed to record consumption: %w", err)
	}

	return consumption, nil
}

// GetMovements retrieves the movement ledger for an item
func (s *Service) GetMovements(itemID uint) ([]StockMovement, error) {
	var movements []StockMovement
	if err := s.db.Where("inventory_item_id = ?", itemID).Order("created_at DESC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve movements: %w", err)
	}
	return movements, nil
}

// GetConsumptionsByOrder retrieves all consumption records for an order
func (s *Service) GetConsumptionsByOrder(orderID uint) ([]MaterialConsumption, error) {
	var consumptions []MaterialConsumption
	if err := s.db.Where("order_id = ?", orderID).Order("created_at DESC").Find(&consumptions).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve consumptions: %w", err)
	}
	return consumptions, nil
}
