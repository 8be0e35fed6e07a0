// internal/domain/order/service.go
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/gorm"
)

// Service handles order intake and the stage tracker
type Service struct {
	db     *gorm.DB
	config *config.Config
}

// NewService creates a new order service
func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:     db,
		config: cfg,
	}
}

// CreateOrderRequest represents order creation data
type CreateOrderRequest struct {
	CustomerName string             `json:"customer_name" binding:"required"`
	BranchID     uint               `json:"branch_id" binding:"required"`
	Notes        string             `json:"notes,omitempty"`
	DeliveryDate *time.Time         `json:"delivery_date,omitempty"`
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderItemRequest represents one requested line item
type OrderItemRequest struct {
	ProductName string `json:"product_name" binding:"required"`
	SKU         string `json:"sku,omitempty"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
	Unit        string `json:"unit,omitempty"`
	Dimensions  string `json:"dimensions,omitempty"`
	Material    string `json:"material,omitempty"`
}

// OrderListRequest represents order list query parameters
type OrderListRequest struct {
	Page      int         `form:"page,default=1"`
	Limit     int         `form:"limit,default=20"`
	Status    OrderStatus `form:"status"`
	Stage     Stage       `form:"stage"`
	BranchID  uint        `form:"branch_id"`
	SortBy    string      `form:"sort_by,default=created_at"`
	SortOrder string      `form:"sort_order,default=desc"`
}

// OrderResponse represents order response with pagination
type OrderResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// CreateOrder creates a new order with its line items
func (s *Service) CreateOrder(req *CreateOrderRequest, createdBy uint) (*Order, error) {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	order := Order{
		CustomerName: req.CustomerName,
		Status:       OrderStatusPending,
		CurrentStage: StagePending,
		BranchID:     req.BranchID,
		Notes:        req.Notes,
		DeliveryDate: req.DeliveryDate,
		CreatedBy:    createdBy,
	}

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	order.OrderNumber = order.GenerateOrderNumber()
	if err := tx.Model(&order).Update("order_number", order.OrderNumber).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to update order number: %w", err)
	}

	for _, item := range req.Items {
		unit := item.Unit
		if unit == "" {
			unit = "pcs"
		}
		orderItem := OrderItem{
			OrderID:     order.ID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			Unit:        unit,
			Dimensions:  item.Dimensions,
			Material:    item.Material,
		}
		if err := tx.Create(&orderItem).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
	}

	history := OrderStageHistory{
		OrderID:   order.ID,
		Stage:     StagePending,
		Status:    OrderStatusPending,
		Notes:     "Order created",
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create stage history: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}

	if err := s.db.Preload("Items").First(&order, order.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load complete order: %w", err)
	}

	return &order, nil
}

// GetOrders retrieves orders with filtering and pagination
func (s *Service) GetOrders(req *OrderListRequest) (*OrderResponse, error) {
	var orders []Order
	var total int64

	query := s.db.Model(&Order{}).
		Preload("Items").
		Preload("StageHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		})

	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.Stage != "" {
		query = query.Where("current_stage = ?", req.Stage)
	}
	if req.BranchID > 0 {
		query = query.Where("branch_id = ?", req.BranchID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	query = query.Order(s.buildOrderClause(req.SortBy, req.SortOrder))

	offset := (req.Page - 1) * req.Limit
	if err := query.Offset(offset).Limit(req.Limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	totalPages := int((total + int64(req.Limit) - 1) / int64(req.Limit))
	pagination := Pagination{
		Page:       req.Page,
		Limit:      req.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    req.Page < totalPages,
		HasPrev:    req.Page > 1,
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: pagination,
	}, nil
}

// GetOrder retrieves a single order by ID
func (s *Service) GetOrder(id uint) (*Order, error) {
	var order Order
	result := s.db.
		Preload("Items").
		Preload("StageHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("id = ?", id).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("order", id)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// GetOrderByNumber retrieves a single order by order number
func (s *Service) GetOrderByNumber(orderNumber string) (*Order, error) {
	var order Order
	result := s.db.
		Preload("Items").
		Preload("StageHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("order_number = ?", orderNumber).
		First(&order)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("order", orderNumber)
		}
		return nil, fmt.Errorf("failed to retrieve order: %w", result.Error)
	}

	return &order, nil
}

// ApproveOrder moves a pending order into the approved status so
// production can pick it up.
func (s *Service) ApproveOrder(orderID uint, approvedBy uint) error {
	var order Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("order", orderID)
		}
		return fmt.Errorf("failed to retrieve order: %w", err)
	}

	if order.Status != OrderStatusPending {
		return apperrors.NewInvalidState("order %s cannot be approved from status %s", order.OrderNumber, order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&order).Update("status", OrderStatusApproved).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to approve order: %w", err)
	}

	history := OrderStageHistory{
		OrderID:   orderID,
		Stage:     order.CurrentStage,
		Status:    OrderStatusApproved,
		Notes:     "Order approved for production",
		CreatedBy: approvedBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create stage history: %w", err)
	}

	return tx.Commit().Error
}

// CancelOrder cancels an order
func (s *Service) CancelOrder(orderID uint, reason string, cancelledBy uint) error {
	var order Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("order", orderID)
		}
		return fmt.Errorf("failed to retrieve order: %w", err)
	}

	if !order.CanBeCancelled() {
		return apperrors.NewInvalidState("order %s cannot be cancelled in status %s", order.OrderNumber, order.Status)
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Model(&order).Update("status", OrderStatusCancelled).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to cancel order: %w", err)
	}

	history := OrderStageHistory{
		OrderID:   orderID,
		Stage:     order.CurrentStage,
		Status:    OrderStatusCancelled,
		Notes:     fmt.Sprintf("Order cancelled: %s", reason),
		CreatedBy: cancelledBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := tx.Create(&history).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to create stage history: %w", err)
	}

	return tx.Commit().Error
}

// AdvanceStage records the completion of a stage for an order and is
// the manual override path. Engine-driven advances go through
// AdvanceStageInTx inside the session-close transaction.
func (s *Service) AdvanceStage(orderID uint, completedStage Stage, actor uint, notes string) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := s.AdvanceStageInTx(tx, orderID, completedStage, actor, notes); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// AdvanceStageInTx sets the order's current stage, derives the next
// status from the sequencer and appends an audit record, all inside
// the caller's transaction. It does not validate that completedStage
// is adjacent to the order's prior stage; the session manager is the
// sole caller on the happy path.
func (s *Service) AdvanceStageInTx(tx *gorm.DB, orderID uint, completedStage Stage, actor uint, notes string) error {
	if !completedStage.IsValid() {
		return fmt.Errorf("unknown stage %q", completedStage)
	}

	var order Order
	if err := tx.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NewNotFound("order", orderID)
		}
		return fmt.Errorf("failed to retrieve order: %w", err)
	}

	nextStatus := NextOrderStatus(completedStage)

	updates := map[string]interface{}{
		"current_stage": completedStage,
		"status":        nextStatus,
	}
	now := time.Now().UTC()
	if nextStatus == OrderStatusCompleted && order.CompletedAt == nil {
		updates["completed_at"] = now
	}

	if err := tx.Model(&order).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update order stage: %w", err)
	}

	history := OrderStageHistory{
		OrderID:   orderID,
		Stage:     completedStage,
		Status:    nextStatus,
		Notes:     notes,
		CreatedBy: actor,
		CreatedAt: now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return fmt.Errorf("failed to create stage history: %w", err)
	}

	return nil
}

func (s *Service) buildOrderClause(sortBy, sortOrder string) string {
	validSortFields := map[string]bool{
		"created_at":    true,
		"updated_at":    true,
		"order_number":  true,
		"status":        true,
		"current_stage": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return fmt.Sprintf("%s %s", sortBy, sortOrder)
}
