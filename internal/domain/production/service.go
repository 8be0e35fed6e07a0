// internal/domain/production/service.go
package production

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/inventory"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service manages the lifecycle of production sessions and the
// input-quantity derivation across stages.
type Service struct {
	db               *gorm.DB
	config           *config.Config
	inventoryService *inventory.Service
	orderService     *order.Service
	masterdata       *masterdata.Service
}

// NewService creates a new production service
func NewService(db *gorm.DB, cfg *config.Config, inventoryService *inventory.Service, orderService *order.Service, masterdataService *masterdata.Service) *Service {
	return &Service{
		db:               db,
		config:           cfg,
		inventoryService: inventoryService,
		orderService:     orderService,
		masterdata:       masterdataService,
	}
}

// MaterialUsage represents one material consumed during a session
type MaterialUsage struct {
	InventoryItemID uint    `json:"inventory_item_id" binding:"required"`
	Quantity        float64 `json:"quantity" binding:"required,gt=0"`
	Notes           string  `json:"notes,omitempty"`
}

// CloseSessionRequest represents session close data
type CloseSessionRequest struct {
	OutputQuantity   int             `json:"output_quantity" binding:"gte=0"`
	RejectedQuantity int             `json:"rejected_quantity" binding:"gte=0"`
	WastageQuantity  int             `json:"wastage_quantity" binding:"gte=0"`
	Materials        []MaterialUsage `json:"materials,omitempty"`
	Notes            string          `json:"notes,omitempty"`
}

// AllowedInput is the input ceiling for a stage of an order.
// FirstStage means the operator supplies raw input directly and no
// upstream ceiling applies.
type AllowedInput struct {
	FirstStage    bool        `json:"first_stage"`
	Quantity      int         `json:"quantity"`
	PreviousStage order.Stage `json:"previous_stage,omitempty"`
}

// StageSummary aggregates closed-session quantities per stage
type StageSummary struct {
	Stage            order.Stage `json:"stage"`
	InputQuantity    int         `json:"input_quantity"`
	OutputQuantity   int         `json:"output_quantity"`
	RejectedQuantity int         `json:"rejected_quantity"`
	WastageQuantity  int         `json:"wastage_quantity"`
	Sessions         int         `json:"sessions"`
}

// StartSession opens a production entry for an operator on a machine.
// The machine's bound stage becomes the entry's stage. An operator may
// hold at most one open session; the partial unique index on
// production_entries backs the application check.
func (s *Service) StartSession(operatorID, machineID, orderID uint) (*ProductionEntry, error) {
	var open ProductionEntry
	err := s.db.Where("operator_id = ? AND end_time IS NULL", operatorID).First(&open).Error
	if err == nil {
		return nil, apperrors.NewConflict("active session exists: entry %d is still open for this operator", open.ID)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check open sessions: %w", err)
	}

	machine, err := s.masterdata.GetMachine(machineID)
	if err != nil {
		return nil, err
	}
	if machine.Stage == order.StagePending || machine.Stage == order.StageCompleted || !machine.Stage.IsValid() {
		return nil, fmt.Errorf("machine %s is not bound to a production stage", machine.Code)
	}

	ord, err := s.orderService.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if ord.Status == order.OrderStatusCancelled || ord.Status == order.OrderStatusDelivered {
		return nil, apperrors.NewInvalidState("order %s is %s and cannot enter production", ord.OrderNumber, ord.Status)
	}

	entry := &ProductionEntry{
		OrderID:    orderID,
		MachineID:  machineID,
		OperatorID: operatorID,
		Stage:      machine.Stage,
		StartTime:  time.Now().UTC(),
	}

	if err := s.db.Create(entry).Error; err != nil {
		// The partial unique index on open entries stops a second
		// session that slipped past the check above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.NewConflict("active session exists: operator %d already holds an open session", operatorID)
		}
		return nil, fmt.Errorf("failed to create production entry: %w", err)
	}

	return entry, nil
}

// GetAllowedInput computes the input ceiling for a stage of an order:
// verified output of the previous stage minus input already claimed at
// this stage, floored at zero. Recomputed on every call because
// concurrent sessions at the previous stage may still be open.
func (s *Service) GetAllowedInput(orderID uint, stage order.Stage) (*AllowedInput, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	return s.allowedInputTx(s.db, orderID, stage)
}

func (s *Service) allowedInputTx(tx *gorm.DB, orderID uint, stage order.Stage) (*AllowedInput, error) {
	if stage.IsFirstProduction() {
		return &AllowedInput{FirstStage: true}, nil
	}

	previous, ok := order.PreviousOf(stage)
	if !ok || previous == order.StagePending {
		return &AllowedInput{FirstStage: true}, nil
	}

	var previousOutput int64
	err := tx.Model(&ProductionEntry{}).
		Where("order_id = ? AND stage = ? AND end_time IS NOT NULL", orderID, previous).
		Select("COALESCE(SUM(output_quantity), 0)").
		Scan(&previousOutput).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum previous stage output: %w", err)
	}

	var claimedInput int64
	err = tx.Model(&ProductionEntry{}).
		Where("order_id = ? AND stage = ?", orderID, stage).
		Select("COALESCE(SUM(input_quantity), 0)").
		Scan(&claimedInput).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum claimed input: %w", err)
	}

	allowed := previousOutput - claimedInput
	if allowed < 0 {
		allowed = 0
	}

	return &AllowedInput{
		Quantity:      int(allowed),
		PreviousStage: previous,
	}, nil
}

// CloseSession records a session's results in a single transaction:
// the entry update, every material consumption with its guarded stock
// decrement, and the order stage advance. Any failure rolls back all
// of it.
func (s *Service) CloseSession(entryID uint, req *CloseSessionRequest, actor uint) (*ProductionEntry, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var entry ProductionEntry
	if err := tx.First(&entry, entryID).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("production entry", entryID)
		}
		return nil, fmt.Errorf("failed to retrieve production entry: %w", err)
	}

	if !entry.IsOpen() {
		tx.Rollback()
		return nil, apperrors.NewInvalidState("session already closed")
	}

	accounted := req.OutputQuantity + req.RejectedQuantity + req.WastageQuantity

	input := accounted
	if !entry.Stage.IsFirstProduction() {
		allowed, err := s.allowedInputTx(tx, entry.OrderID, entry.Stage)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if accounted > allowed.Quantity {
			if s.config.Production.StrictConservation {
				tx.Rollback()
				return nil, &apperrors.InsufficientStockError{
					ItemName:  fmt.Sprintf("%s output", allowed.PreviousStage),
					Available: float64(allowed.Quantity),
					Requested: float64(accounted),
				}
			}
			// Lenient mode: clamp the stored input to what the
			// previous stage verified and let the close proceed.
			logrus.WithFields(logrus.Fields{
				"entry_id":  entry.ID,
				"order_id":  entry.OrderID,
				"stage":     entry.Stage,
				"accounted": accounted,
				"allowed":   allowed.Quantity,
			}).Warn("session close exceeds available input, clamping")
			input = allowed.Quantity
		}
	}

	now := time.Now().UTC()
	duration := int(now.Sub(entry.StartTime).Minutes())
	wastagePct := 0.0
	if input > 0 {
		wastagePct = float64(req.WastageQuantity) / float64(input) * 100
	}

	updates := map[string]interface{}{
		"input_quantity":     input,
		"output_quantity":    req.OutputQuantity,
		"rejected_quantity":  req.RejectedQuantity,
		"wastage_quantity":   req.WastageQuantity,
		"wastage_percentage": wastagePct,
		"end_time":           now,
		"duration_minutes":   duration,
	}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	// The update itself re-checks that the entry is still open, so a
	// close that committed after our read matches zero rows instead of
	// applying its effects twice.
	result := tx.Model(&ProductionEntry{}).
		Where("id = ? AND end_time IS NULL", entry.ID).
		Updates(updates)
	if result.Error != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to close production entry: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, apperrors.NewInvalidState("session already closed")
	}

	for _, usage := range req.Materials {
		consumeReq := &inventory.ConsumeRequest{
			OrderID:           entry.OrderID,
			InventoryItemID:   usage.InventoryItemID,
			Quantity:          usage.Quantity,
			Stage:             entry.Stage,
			ConsumedBy:        entry.OperatorID,
			ProductionEntryID: &entry.ID,
			Notes:             usage.Notes,
		}
		if _, err := s.inventoryService.ConsumeInTx(tx, consumeReq); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	note := fmt.Sprintf("Stage %s completed: output %d, rejected %d, wastage %d", entry.Stage, req.OutputQuantity, req.RejectedQuantity, req.WastageQuantity)
	if err := s.orderService.AdvanceStageInTx(tx, entry.OrderID, entry.Stage, actor, note); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit session close: %w", err)
	}

	if err := s.db.First(&entry, entryID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload production entry: %w", err)
	}

	return &entry, nil
}

// GetEntry retrieves a production entry by ID
func (s *Service) GetEntry(id uint) (*ProductionEntry, error) {
	var entry ProductionEntry
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("production entry", id)
		}
		return nil, fmt.Errorf("failed to retrieve production entry: %w", err)
	}
	return &entry, nil
}

// GetOpenSession returns the operator's open session, if any
func (s *Service) GetOpenSession(operatorID uint) (*ProductionEntry, error) {
	var entry ProductionEntry
	err := s.db.Where("operator_id = ? AND end_time IS NULL", operatorID).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("open session for operator", operatorID)
		}
		return nil, fmt.Errorf("failed to retrieve open session: %w", err)
	}
	return &entry, nil
}

// GetEntriesByOrder retrieves all entries for an order, oldest first
func (s *Service) GetEntriesByOrder(orderID uint) ([]ProductionEntry, error) {
	var entries []ProductionEntry
	if err := s.db.Where("order_id = ?", orderID).Order("start_time asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve production entries: %w", err)
	}
	return entries, nil
}

// GetStageSummaries aggregates closed sessions per stage for an order,
// in stage order. This is the aggregate history the input ceiling
// derives from.
func (s *Service) GetStageSummaries(orderID uint) ([]StageSummary, error) {
	var rows []StageSummary
	err := s.db.Model(&ProductionEntry{}).
		Select("stage, COALESCE(SUM(input_quantity),0) as input_quantity, COALESCE(SUM(output_quantity),0) as output_quantity, COALESCE(SUM(rejected_quantity),0) as rejected_quantity, COALESCE(SUM(wastage_quantity),0) as wastage_quantity, COUNT(*) as sessions").
		Where("order_id = ? AND end_time IS NOT NULL", orderID).
		Group("stage").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stage summaries: %w", err)
	}

	byStage := make(map[order.Stage]StageSummary, len(rows))
	for _, r := range rows {
		byStage[r.Stage] = r
	}
	ordered := make([]StageSummary, 0, len(rows))
	for _, stage := range order.Stages() {
		if summary, ok := byStage[stage]; ok {
			ordered = append(ordered, summary)
		}
	}
	return ordered, nil
}
