// internal/domain/user/entity.go
package user

import (
	"time"

	"gorm.io/gorm"
)

// Role names used for authorization gating
const (
	RoleAdmin                = "admin"
	RoleProductionSupervisor = "production_supervisor"
	RoleStoreManager         = "store_manager"
	RoleOperator             = "operator"
)

// User is an authenticated actor. Operators are linked to their
// employee record through EmployeeID.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string         `gorm:"not null;size:255" json:"-"`
	Name         string         `gorm:"size:100" json:"name"`
	Role         string         `gorm:"not null;size:50;default:'operator'" json:"role"`
	EmployeeID   *uint          `gorm:"index" json:"employee_id,omitempty"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName override
func (User) TableName() string { return "users" }

// IsAdmin checks for the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
