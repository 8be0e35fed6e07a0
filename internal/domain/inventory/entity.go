// internal/domain/inventory/entity.go
package inventory

import (
	"time"

	"github.com/your-org/factory-backend/internal/domain/order"
	"gorm.io/gorm"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeIn  MovementType = "IN"  // Restock, purchase, adjustment increase
	MovementTypeOut MovementType = "OUT" // Consumption, adjustment decrease
)

// MovementReason represents the reason for a stock movement
type MovementReason string

const (
	ReasonConsumption MovementReason = "consumption"
	ReasonRestock     MovementReason = "restock"
	ReasonAdjustment  MovementReason = "adjustment"
)

// InventoryItem is a raw-material or consumable stock line. Quantity
// never goes negative; every decrement is guarded inside the
// transaction that records it.
type InventoryItem struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"not null;size:255;index" json:"name"`
	Category     string         `gorm:"size:100;index" json:"category"`
	Quantity     float64        `gorm:"not null;default:0" json:"quantity"`
	Unit         string         `gorm:"size:20;default:'pcs'" json:"unit"`
	ReorderLevel float64        `gorm:"default:0" json:"reorder_level"` // 0 means not set
	UnitPrice    int64          `gorm:"default:0" json:"unit_price"`    // In cents
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Movements []StockMovement `gorm:"foreignKey:InventoryItemID" json:"movements,omitempty"`
}

// StockMovement is the signed ledger record written alongside every
// quantity mutation. OUT movements carry a negative quantity.
type StockMovement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	InventoryItemID  uint           `gorm:"not null;index" json:"inventory_item_id"`
	MovementType     MovementType   `gorm:"not null" json:"movement_type"`
	Reason           MovementReason `gorm:"not null" json:"reason"`
	Quantity         float64        `gorm:"not null" json:"quantity"` // Signed
	PreviousQuantity float64        `gorm:"not null" json:"previous_quantity"`
	NewQuantity      float64        `gorm:"not null" json:"new_quantity"`
	ReferenceType    string         `gorm:"size:50" json:"reference_type"` // "production_entry", "order", etc.
	ReferenceID      uint           `json:"reference_id"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedBy        uint           `gorm:"index" json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`

	// Relationships
	InventoryItem InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventory_item,omitempty"`
}

// MaterialConsumption records one material consumed for an order at a
// stage. Rows are immutable once created; corrections are logged as
// new consumptions, never edits.
type MaterialConsumption struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	ProductionEntryID *uint       `gorm:"index" json:"production_entry_id,omitempty"` // Nullable for ad hoc logging
	OrderID           uint        `gorm:"not null;index" json:"order_id"`
	InventoryItemID   uint        `gorm:"not null;index" json:"inventory_item_id"`
	MaterialName      string      `gorm:"size:255" json:"material_name"`
	MaterialCategory  string      `gorm:"size:100" json:"material_category"`
	Quantity          float64     `gorm:"not null" json:"quantity"`
	Unit              string      `gorm:"size:20" json:"unit"`
	Stage             order.Stage `gorm:"not null;index" json:"stage"`
	ConsumedBy        uint        `gorm:"not null;index" json:"consumed_by"`
	Notes             string      `gorm:"type:text" json:"notes"`
	CreatedAt         time.Time   `json:"created_at"`

	// Relationships
	InventoryItem InventoryItem `gorm:"foreignKey:InventoryItemID" json:"inventory_item,omitempty"`
}

// TableName overrides
func (InventoryItem) TableName() string       { return "inventory_items" }
func (StockMovement) TableName() string       { return "stock_movements" }
func (MaterialConsumption) TableName() string { return "material_consumptions" }

// IsLowStock checks the item against its reorder level, or the given
// default threshold when no reorder level is set.
func (ii *InventoryItem) IsLowStock(defaultThreshold float64) bool {
	if ii.ReorderLevel > 0 {
		return ii.Quantity <= ii.ReorderLevel
	}
	return ii.Quantity <= defaultThreshold
}

// CanConsume checks if there is enough stock for a requested quantity
func (ii *InventoryItem) CanConsume(quantity float64) bool {
	return ii.Quantity >= quantity
}
