// internal/domain/transfer/entity.go
package transfer

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// TransferStatus represents the state of a stock transfer. Transitions
// are one-directional: Pending -> InTransit -> Received, or Cancelled
// from Pending/InTransit. Received and Cancelled are terminal.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusReceived  TransferStatus = "received"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// SourceType represents where the transferred goods come from
type SourceType string

const (
	SourceTypeProduction SourceType = "production"
	SourceTypeStore      SourceType = "store"
	SourceTypeBranch     SourceType = "branch"
)

// StockTransfer is a movement of finished goods from production or
// another store into a destination store's sellable inventory.
type StockTransfer struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	TransferNumber     string         `gorm:"uniqueIndex;not null;size:50" json:"transfer_number"`
	SourceType         SourceType     `gorm:"not null;size:20" json:"source_type"`
	SourceID           uint           `gorm:"not null" json:"source_id"`
	DestinationStoreID uint           `gorm:"not null;index" json:"destination_store_id"`
	OrderID            *uint          `gorm:"index" json:"order_id,omitempty"`
	Status             TransferStatus `gorm:"not null;default:'pending';index" json:"status"`
	TransferredBy      uint           `gorm:"not null" json:"transferred_by"`
	ReceivedBy         *uint          `json:"received_by,omitempty"`
	Notes              string         `gorm:"type:text" json:"notes"`
	CancelReason       string         `gorm:"type:text" json:"cancel_reason,omitempty"`

	InTransitAt *time.Time     `json:"in_transit_at,omitempty"`
	ReceivedAt  *time.Time     `json:"received_at,omitempty"`
	CancelledAt *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []StockTransferItem `gorm:"foreignKey:StockTransferID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// StockTransferItem is one transferred product line
type StockTransferItem struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StockTransferID uint      `gorm:"not null;index" json:"stock_transfer_id"`
	ProductName     string    `gorm:"not null;size:255" json:"product_name"`
	SKU             string    `gorm:"not null;size:100" json:"sku"`
	Quantity        float64   `gorm:"not null" json:"quantity"`
	Unit            string    `gorm:"size:20;default:'pcs'" json:"unit"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StoreInventory is a destination-side stock line keyed by (store, SKU).
// Created or incremented exactly when a transfer is received. Prices
// start zeroed; the destination sets them separately.
type StoreInventory struct {
	ID           uint      `gorm:"primaryKey;" json:"id"`
	StoreID      uint      `gorm:"not null;index;uniqueIndex:idx_store_sku" json:"store_id"`
	SKU          string    `gorm:"not null;size:100;uniqueIndex:idx_store_sku" json:"sku"`
	ProductName  string    `gorm:"not null;size:255" json:"product_name"`
	Quantity     float64   `gorm:"not null;default:0" json:"quantity"`
	Unit         string    `gorm:"size:20;default:'pcs'" json:"unit"`
	CostPrice    int64     `gorm:"default:0" json:"cost_price"`    // In cents
	SellingPrice int64     `gorm:"default:0" json:"selling_price"` // In cents
	ReorderLevel float64   `gorm:"default:0" json:"reorder_level"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides
func (StockTransfer) TableName() string     { return "stock_transfers" }
func (StockTransferItem) TableName() string { return "stock_transfer_items" }
func (StoreInventory) TableName() string    { return "store_inventory" }

// GenerateTransferNumber generates a unique transfer number
func (t *StockTransfer) GenerateTransferNumber() string {
	// Format: TRF<YY><MM><NNNNN>, sequenced by row ID
	return fmt.Sprintf("TRF%s%05d", time.Now().UTC().Format("0601"), t.ID)
}

// CanReceive reports whether the transfer may still be received.
// Skipping the in-transit marker is permitted.
func (t *StockTransfer) CanReceive() bool {
	return t.Status == TransferStatusPending || t.Status == TransferStatusInTransit
}

// CanCancel reports whether the transfer may still be cancelled
func (t *StockTransfer) CanCancel() bool {
	return t.Status == TransferStatusPending || t.Status == TransferStatusInTransit
}

// IsTerminal reports whether the transfer reached a terminal state
func (t *StockTransfer) IsTerminal() bool {
	return t.Status == TransferStatusReceived || t.Status == TransferStatusCancelled
}
