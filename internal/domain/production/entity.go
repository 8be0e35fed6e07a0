// internal/domain/production/entity.go
package production

import (
	"time"

	"github.com/your-org/factory-backend/internal/domain/order"
)

// ProductionEntry is one operator's timed unit of work: one operator,
// one machine, one order, one stage. Created open at session start and
// mutated exactly once, at close, inside a single transaction. Never
// deleted.
type ProductionEntry struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	OrderID    uint        `gorm:"not null;index" json:"order_id"`
	MachineID  uint        `gorm:"not null;index" json:"machine_id"`
	OperatorID uint        `gorm:"not null;index" json:"operator_id"`
	Stage      order.Stage `gorm:"not null;index" json:"stage"`

	InputQuantity     int     `gorm:"not null;default:0" json:"input_quantity"`
	OutputQuantity    int     `gorm:"not null;default:0" json:"output_quantity"`
	RejectedQuantity  int     `gorm:"not null;default:0" json:"rejected_quantity"`
	WastageQuantity   int     `gorm:"not null;default:0" json:"wastage_quantity"`
	WastagePercentage float64 `gorm:"not null;default:0" json:"wastage_percentage"`

	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `gorm:"index" json:"end_time,omitempty"` // Null while the session is open
	DurationMinutes int        `gorm:"not null;default:0" json:"duration_minutes"`
	Notes           string     `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName override
func (ProductionEntry) TableName() string { return "production_entries" }

// IsOpen reports whether the session has not been closed yet
func (e *ProductionEntry) IsOpen() bool {
	return e.EndTime == nil
}

// TotalAccounted returns output + rejected + wastage
func (e *ProductionEntry) TotalAccounted() int {
	return e.OutputQuantity + e.RejectedQuantity + e.WastageQuantity
}

// stageMaterialCategories maps each production stage to the material
// categories it may consume. Explicit configuration data; consumption
// outside the mapping is allowed but logged, matching shop-floor
// practice where a stage occasionally pulls general consumables.
var stageMaterialCategories = map[order.Stage][]string{
	order.StageCutting:      {"sheet_metal", "pipe", "blade"},
	order.StageShaping:      {"sheet_metal", "die"},
	order.StageBending:      {"pipe", "die"},
	order.StageWeldingInner: {"welding_wire", "welding_gas", "electrode"},
	order.StageWeldingOuter: {"welding_wire", "welding_gas", "electrode"},
	order.StageGrinding:     {"grinding_disc", "abrasive"},
	order.StageFinishing:    {"abrasive", "polish"},
	order.StagePainting:     {"paint", "thinner", "primer"},
}

// MaterialCategoriesFor returns the material categories configured for
// a stage; an empty slice means no mapping is configured.
func MaterialCategoriesFor(stage order.Stage) []string {
	categories, ok := stageMaterialCategories[stage]
	if !ok {
		return nil
	}
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// StageAllowsCategory reports whether the category is configured for
// the stage.
func StageAllowsCategory(stage order.Stage, category string) bool {
	for _, c := range stageMaterialCategories[stage] {
		if c == category {
			return true
		}
	}
	return false
}
