// internal/domain/transfer/service.go
package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service implements the stock transfer state machine and the
// store-side inventory upsert.
type Service struct {
	db         *gorm.DB
	config     *config.Config
	masterdata *masterdata.Service
}

// NewService creates a new transfer service
func NewService(db *gorm.DB, cfg *config.Config, masterdataService *masterdata.Service) *Service {
	return &Service{
		db:         db,
		config:     cfg,
		masterdata: masterdataService,
	}
}

// TransferItemRequest represents one requested transfer line
type TransferItemRequest struct {
	ProductName string  `json:"product_name" binding:"required"`
	SKU         string  `json:"sku" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	Unit        string  `json:"unit,omitempty"`
}

// CreateTransferRequest represents transfer creation data
type CreateTransferRequest struct {
	SourceType         SourceType            `json:"source_type" binding:"required"`
	SourceID           uint                  `json:"source_id" binding:"required"`
	DestinationStoreID uint                  `json:"destination_store_id" binding:"required"`
	OrderID            *uint                 `json:"order_id,omitempty"`
	Notes              string                `json:"notes,omitempty"`
	Items              []TransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

// TransferListRequest represents transfer list query parameters
type TransferListRequest struct {
	Status  TransferStatus `form:"status"`
	StoreID uint           `form:"store_id"`
	OrderID uint           `form:"order_id"`
	Limit   int            `form:"limit,default=50"`
}

// Create opens a new transfer in the Pending state with a transfer
// number derived from the inserted row's ID.
func (s *Service) Create(req *CreateTransferRequest, transferredBy uint) (*StockTransfer, error) {
	switch req.SourceType {
	case SourceTypeProduction, SourceTypeStore, SourceTypeBranch:
	default:
		return nil, fmt.Errorf("invalid source type: %s", req.SourceType)
	}

	if _, err := s.masterdata.GetStore(req.DestinationStoreID); err != nil {
		return nil, err
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	transfer := &StockTransfer{
		SourceType:         req.SourceType,
		SourceID:           req.SourceID,
		DestinationStoreID: req.DestinationStoreID,
		OrderID:            req.OrderID,
		Status:             TransferStatusPending,
		TransferredBy:      transferredBy,
		Notes:              req.Notes,
	}

	if err := tx.Create(transfer).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}

	// The row ID seeds the number, so concurrent creates cannot collide
	// on the unique index.
	transfer.TransferNumber = transfer.GenerateTransferNumber()
	if err := tx.Model(transfer).Update("transfer_number", transfer.TransferNumber).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to assign transfer number: %w", err)
	}

	for _, item := range req.Items {
		unit := item.Unit
		if unit == "" {
			unit = "pcs"
		}
		transferItem := StockTransferItem{
			StockTransferID: transfer.ID,
			ProductName:     item.ProductName,
			SKU:             item.SKU,
			Quantity:        item.Quantity,
			Unit:            unit,
		}
		if err := tx.Create(&transferItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create transfer item: %w", err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transfer creation: %w", err)
	}

	if err := s.db.Preload("Items").First(transfer, transfer.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load complete transfer: %w", err)
	}

	return transfer, nil
}

// MarkInTransit moves a pending transfer into the InTransit state. The
// status guard runs in the same conditional update as the mutation.
func (s *Service) MarkInTransit(id uint, actor uint) error {
	now := time.Now().UTC()
	result := s.db.Model(&StockTransfer{}).
		Where("id = ? AND status = ?", id, TransferStatusPending).
		Updates(map[string]interface{}{
			"status":        TransferStatusInTransit,
			"in_transit_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark transfer in transit: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return s.explainGuardFailure(id, "marked in transit")
	}

	return nil
}

// Receive applies a transfer to the destination store's inventory and
// moves it to the terminal Received state. The status guard and the
// per-item upserts commit together or not at all; a second call is
// rejected by the guard, never re-applied.
func (s *Service) Receive(id uint, receivedBy uint) (*StockTransfer, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	result := tx.Model(&StockTransfer{}).
		Where("id = ? AND status IN ?", id, []TransferStatus{TransferStatusPending, TransferStatusInTransit}).
		Updates(map[string]interface{}{
			"status":      TransferStatusReceived,
			"received_by": receivedBy,
			"received_at": now,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update transfer status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, s.explainGuardFailure(id, "received")
	}

	var transfer StockTransfer
	if err := tx.Preload("Items").First(&transfer, id).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to load transfer: %w", err)
	}

	for _, item := range transfer.Items {
		if err := s.upsertStoreInventory(tx, transfer.DestinationStoreID, item); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit transfer receipt: %w", err)
	}

	return &transfer, nil
}

// Cancel aborts a transfer that was never received. No inventory
// effect; the goods never arrived.
func (s *Service) Cancel(id uint, actor uint, reason string) error {
	now := time.Now().UTC()
	result := s.db.Model(&StockTransfer{}).
		Where("id = ? AND status IN ?", id, []TransferStatus{TransferStatusPending, TransferStatusInTransit}).
		Updates(map[string]interface{}{
			"status":        TransferStatusCancelled,
			"cancelled_at":  now,
			"cancel_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to cancel transfer: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return s.explainGuardFailure(id, "cancelled")
	}

	return nil
}

// GetTransfer retrieves a transfer with its items
func (s *Service) GetTransfer(id uint) (*StockTransfer, error) {
	var transfer StockTransfer
	if err := s.db.Preload("Items").First(&transfer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("stock transfer", id)
		}
		return nil, fmt.Errorf("failed to retrieve transfer: %w", err)
	}
	return &transfer, nil
}

// GetTransfers retrieves transfers with optional filters, newest first
func (s *Service) GetTransfers(req *TransferListRequest) ([]StockTransfer, error) {
	var transfers []StockTransfer
	query := s.db.Preload("Items").Order("created_at DESC")
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.StoreID > 0 {
		query = query.Where("destination_store_id = ?", req.StoreID)
	}
	if req.OrderID > 0 {
		query = query.Where("order_id = ?", req.OrderID)
	}
	limit := req.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if err := query.Limit(limit).Find(&transfers).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve transfers: %w", err)
	}
	return transfers, nil
}

// GetStoreInventory retrieves all stock lines of a store
func (s *Service) GetStoreInventory(storeID uint) ([]StoreInventory, error) {
	var items []StoreInventory
	if err := s.db.Where("store_id = ?", storeID).Order("product_name asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve store inventory: %w", err)
	}
	return items, nil
}

// upsertStoreInventory increments the (store, SKU) line or creates it
// with zeroed prices when absent.
func (s *Service) upsertStoreInventory(tx *gorm.DB, storeID uint, item StockTransferItem) error {
	result := tx.Model(&StoreInventory{}).
		Where("store_id = ? AND sku = ?", storeID, item.SKU).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity))
	if result.Error != nil {
		return fmt.Errorf("failed to increment store inventory: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		line := StoreInventory{
			StoreID:     storeID,
			SKU:         item.SKU,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
		}
		if err := tx.Create(&line).Error; err != nil {
			return fmt.Errorf("failed to create store inventory line: %w", err)
		}
	}

	return nil
}

// explainGuardFailure distinguishes a missing transfer from an illegal
// state transition after a guarded update touched no rows.
func (s *Service) explainGuardFailure(id uint, action string) error {
	var transfer StockTransfer
	if err := s.db.First(&transfer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("stock transfer", id)
		}
		return fmt.Errorf("failed to retrieve transfer: %w", err)
	}
	if transfer.IsTerminal() {
		return apperrors.NewInvalidState("transfer %s already processed", transfer.TransferNumber)
	}
	return apperrors.NewInvalidState("transfer %s cannot be %s from status %s", transfer.TransferNumber, action, transfer.Status)
}
