// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending      OrderStatus = "pending"
	OrderStatusApproved     OrderStatus = "approved"
	OrderStatusInProduction OrderStatus = "in_production"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusDelivered    OrderStatus = "delivered"
	OrderStatusCancelled    OrderStatus = "cancelled"
)

// Order represents one customer job moving through the production pipeline
type Order struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	OrderNumber  string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	CustomerName string      `gorm:"size:255" json:"customer_name"`
	Status       OrderStatus `gorm:"not null;default:'pending';index" json:"status"`
	CurrentStage Stage       `gorm:"not null;default:'pending';index" json:"current_stage"`
	BranchID     uint        `gorm:"not null;index" json:"branch_id"`
	Notes        string      `gorm:"type:text" json:"notes"`
	CreatedBy    uint        `gorm:"index" json:"created_by"`

	DeliveryDate *time.Time     `json:"delivery_date,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items        []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	StageHistory []OrderStageHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"stage_history,omitempty"`
}

// OrderItem represents one ordered line item
type OrderItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OrderID     uint      `gorm:"not null;index" json:"order_id"`
	ProductName string    `gorm:"not null;size:255" json:"product_name"`
	SKU         string    `gorm:"size:100" json:"sku"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	Unit        string    `gorm:"size:20;default:'pcs'" json:"unit"`
	Dimensions  string    `gorm:"size:100" json:"dimensions"`
	Material    string    `gorm:"size:100" json:"material"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OrderStageHistory is the append-only audit trail of stage advances.
// Rows are never updated or deleted.
type OrderStageHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Stage     Stage       `gorm:"not null" json:"stage"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Notes     string      `gorm:"type:text" json:"notes"`
	CreatedBy uint        `gorm:"index" json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string             { return "orders" }
func (OrderItem) TableName() string         { return "order_items" }
func (OrderStageHistory) TableName() string { return "order_stage_history" }

// GenerateOrderNumber generates a unique order number
func (o *Order) GenerateOrderNumber() string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", time.Now().Format("20060102"), o.ID)
}

// IsTerminal checks whether the order is in a terminal status
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted ||
		o.Status == OrderStatusDelivered ||
		o.Status == OrderStatusCancelled
}

// CanBeCancelled checks if the order can still be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending ||
		o.Status == OrderStatusApproved ||
		o.Status == OrderStatusInProduction
}

// InProduction checks whether production sessions may run for the order
func (o *Order) InProduction() bool {
	return o.Status == OrderStatusApproved || o.Status == OrderStatusInProduction
}
