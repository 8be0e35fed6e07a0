package order

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&Order{}, &OrderItem{}, &OrderStageHistory{}))

	return NewService(db, &config.Config{})
}

func createTestOrder(t *testing.T, svc *Service) *Order {
	t.Helper()

	o, err := svc.CreateOrder(&CreateOrderRequest{
		CustomerName: "Acme Fabrication",
		BranchID:     1,
		Items: []OrderItemRequest{
			{ProductName: "Steel Door", SKU: "SD-100", Quantity: 50},
			{ProductName: "Window Frame", Quantity: 20, Unit: "pcs"},
		},
	}, 1)
	require.NoError(t, err)
	return o
}

func TestCreateOrder(t *testing.T) {
	svc := setupTestService(t)

	o := createTestOrder(t, svc)
	assert.True(t, strings.HasPrefix(o.OrderNumber, "ORD-"))
	assert.Equal(t, OrderStatusPending, o.Status)
	assert.Equal(t, StagePending, o.CurrentStage)
	assert.Len(t, o.Items, 2)

	// Creation leaves an audit record.
	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.StageHistory, 1)
	assert.Equal(t, StagePending, reloaded.StageHistory[0].Stage)
}

func TestGetOrderByNumber(t *testing.T) {
	svc := setupTestService(t)
	o := createTestOrder(t, svc)

	found, err := svc.GetOrderByNumber(o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, o.ID, found.ID)

	_, err = svc.GetOrderByNumber("ORD-00000000-99999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestApproveOrder(t *testing.T) {
	svc := setupTestService(t)
	o := createTestOrder(t, svc)

	require.NoError(t, svc.ApproveOrder(o.ID, 2))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusApproved, reloaded.Status)

	// Approval is single-shot.
	err = svc.ApproveOrder(o.ID, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestCancelOrder(t *testing.T) {
	svc := setupTestService(t)
	o := createTestOrder(t, svc)

	require.NoError(t, svc.CancelOrder(o.ID, "customer withdrew", 2))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, reloaded.Status)

	err = svc.CancelOrder(o.ID, "again", 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestAdvanceStage(t *testing.T) {
	svc := setupTestService(t)
	o := createTestOrder(t, svc)

	require.NoError(t, svc.AdvanceStage(o.ID, StageCutting, 2, "cutting done"))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, StageCutting, reloaded.CurrentStage)
	assert.Equal(t, OrderStatusInProduction, reloaded.Status)
	assert.Nil(t, reloaded.CompletedAt)

	// History grows by one per advance, newest first.
	require.Len(t, reloaded.StageHistory, 2)
	assert.Equal(t, StageCutting, reloaded.StageHistory[0].Stage)
}

func TestAdvanceStage_FinalStageSetsCompletedAt(t *testing.T) {
	svc := setupTestService(t)
	o := createTestOrder(t, svc)

	require.NoError(t, svc.AdvanceStage(o.ID, StagePainting, 2, "painting done"))

	reloaded, err := svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCompleted, reloaded.Status)
	assert.Equal(t, StagePainting, reloaded.CurrentStage)
	require.NotNil(t, reloaded.CompletedAt)

	firstCompletion := *reloaded.CompletedAt

	// Re-recording the final stage keeps the original completion time.
	require.NoError(t, svc.AdvanceStage(o.ID, StagePainting, 2, "rework check"))
	reloaded, err = svc.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, firstCompletion.Unix(), reloaded.CompletedAt.Unix())
}

func TestAdvanceStage_UnknownStage(t *testing.T) {
	svc := setupTestService(t)
	o := createTestOrder(t, svc)

	err := svc.AdvanceStage(o.ID, Stage("polishing"), 2, "")
	assert.Error(t, err)
}

func TestGetOrders_FilterAndPagination(t *testing.T) {
	svc := setupTestService(t)
	first := createTestOrder(t, svc)
	createTestOrder(t, svc)
	createTestOrder(t, svc)

	require.NoError(t, svc.AdvanceStage(first.ID, StageCutting, 2, ""))

	all, err := svc.GetOrders(&OrderListRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all.Orders, 2)
	assert.Equal(t, int64(3), all.Pagination.Total)
	assert.True(t, all.Pagination.HasNext)

	inProduction, err := svc.GetOrders(&OrderListRequest{
		Page:   1,
		Limit:  20,
		Status: OrderStatusInProduction,
	})
	require.NoError(t, err)
	require.Len(t, inProduction.Orders, 1)
	assert.Equal(t, first.ID, inProduction.Orders[0].ID)
}
