// internal/domain/masterdata/entity.go
package masterdata

import (
	"time"

	"github.com/your-org/factory-backend/internal/domain/order"
	"gorm.io/gorm"
)

// Branch represents a factory branch
type Branch struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Address   string         `gorm:"type:text" json:"address"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Machine is a production machine bound to exactly one stage. The
// binding decides which stage a session runs at; operators never pick
// the stage directly.
type Machine struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Stage     order.Stage    `gorm:"not null;index" json:"stage"`
	BranchID  uint           `gorm:"not null;index" json:"branch_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Branch Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

// Employee represents an operator or supervisor
type Employee struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"not null;size:100" json:"name"`
	Code           string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Role           string         `gorm:"size:50" json:"role"`
	AssignedStages string         `gorm:"size:255" json:"assigned_stages"` // comma separated stage names
	BranchID       uint           `gorm:"not null;index" json:"branch_id"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Store is a destination for finished-goods stock transfers
type Store struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Name      string         `gorm:"not null;size:100" json:"name"`
	Code      string         `gorm:"uniqueIndex;not null;size:20" json:"code"`
	Address   string         `gorm:"type:text" json:"address"`
	BranchID  uint           `gorm:"index" json:"branch_id"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (Branch) TableName() string   { return "branches" }
func (Machine) TableName() string  { return "machines" }
func (Employee) TableName() string { return "employees" }
func (Store) TableName() string    { return "stores" }
