package inventory

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&InventoryItem{}, &StockMovement{}, &MaterialConsumption{}))

	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	cfg := &config.Config{
		Production: config.ProductionConfig{
			DefaultLowStockThreshold: 10,
		},
	}
	return NewService(setupTestDB(t), cfg)
}

func createItem(t *testing.T, s *Service, name string, quantity, reorderLevel float64) *InventoryItem {
	t.Helper()

	item, err := s.CreateItem(&CreateItemRequest{
		Name:         name,
		Category:     "sheet_metal",
		Quantity:     quantity,
		Unit:         "kg",
		ReorderLevel: reorderLevel,
	})
	require.NoError(t, err)
	return item
}

func TestRecordConsumption_DecrementsAndWritesLedger(t *testing.T) {
	svc := newTestService(t)
	item := createItem(t, svc, "Steel Sheet 2mm", 10, 0)

	consumption, err := svc.RecordConsumption(&ConsumeRequest{
		OrderID:         1,
		InventoryItemID: item.ID,
		Quantity:        4,
		Stage:           order.StageCutting,
		ConsumedBy:      7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Steel Sheet 2mm", consumption.MaterialName)
	assert.Equal(t, "sheet_metal", consumption.MaterialCategory)
	assert.Equal(t, 4.0, consumption.Quantity)
	assert.Equal(t, order.StageCutting, consumption.Stage)

	reloaded, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, reloaded.Quantity)

	movements, err := svc.GetMovements(item.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, MovementTypeOut, movements[0].MovementType)
	assert.Equal(t, ReasonConsumption, movements[0].Reason)
	assert.Equal(t, -4.0, movements[0].Quantity)
	assert.Equal(t, 10.0, movements[0].PreviousQuantity)
	assert.Equal(t, 6.0, movements[0].NewQuantity)
}

func TestRecordConsumption_InsufficientStock(t *testing.T) {
	svc := newTestService(t)
	item := createItem(t, svc, "Welding Wire", 5, 0)

	_, err := svc.RecordConsumption(&ConsumeRequest{
		OrderID:         1,
		InventoryItemID: item.ID,
		Quantity:        6,
		Stage:           order.StageWeldingInner,
		ConsumedBy:      7,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))

	var insufficient *apperrors.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "Welding Wire", insufficient.ItemName)
	assert.Equal(t, 5.0, insufficient.Available)
	assert.Equal(t, 6.0, insufficient.Requested)

	// Nothing changed and nothing was written to the ledger.
	reloaded, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, reloaded.Quantity)

	movements, err := svc.GetMovements(item.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestRecordConsumption_UnknownItem(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.RecordConsumption(&ConsumeRequest{
		OrderID:         1,
		InventoryItemID: 999,
		Quantity:        1,
		Stage:           order.StageCutting,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestRecordBulkConsumption_PartialFailure(t *testing.T) {
	svc := newTestService(t)
	steel := createItem(t, svc, "Steel Sheet 2mm", 20, 0)
	wire := createItem(t, svc, "Welding Wire", 2, 0)

	results := svc.RecordBulkConsumption([]ConsumeRequest{
		{OrderID: 1, InventoryItemID: steel.ID, Quantity: 5, Stage: order.StageCutting},
		{OrderID: 1, InventoryItemID: wire.ID, Quantity: 3, Stage: order.StageCutting},
	})
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	require.NotNil(t, results[0].Consumption)

	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "insufficient stock")
	assert.Nil(t, results[1].Consumption)

	// The failing line does not roll back the successful one.
	reloadedSteel, err := svc.GetItem(steel.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, reloadedSteel.Quantity)

	reloadedWire, err := svc.GetItem(wire.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, reloadedWire.Quantity)
}

func TestRestock(t *testing.T) {
	svc := newTestService(t)
	item := createItem(t, svc, "Primer", 3, 0)

	movement, err := svc.Restock(item.ID, 7, 2, "weekly delivery")
	require.NoError(t, err)
	assert.Equal(t, MovementTypeIn, movement.MovementType)
	assert.Equal(t, ReasonRestock, movement.Reason)
	assert.Equal(t, 3.0, movement.PreviousQuantity)
	assert.Equal(t, 10.0, movement.NewQuantity)

	reloaded, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, reloaded.Quantity)
}

func TestRestock_LedgerSnapshotsReadAfterIncrement(t *testing.T) {
	svc := newTestService(t)
	item := createItem(t, svc, "Primer", 3, 0)

	// Another restock lands between the initial read and the increment.
	// The ledger must record the quantities this increment produced, not
	// the stale read.
	var fired bool
	err := svc.db.Callback().Update().Before("gorm:update").Register("competing_restock", func(d *gorm.DB) {
		if fired || d.Statement.Table != "inventory_items" {
			return
		}
		fired = true
		d.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE inventory_items SET quantity = quantity + 100 WHERE id = ?", item.ID)
	})
	require.NoError(t, err)

	movement, err := svc.Restock(item.ID, 7, 2, "")
	require.NoError(t, err)
	require.True(t, fired)
	assert.Equal(t, 103.0, movement.PreviousQuantity)
	assert.Equal(t, 110.0, movement.NewQuantity)

	reloaded, err := svc.GetItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, 110.0, reloaded.Quantity)
}

func TestRestock_RejectsNonPositive(t *testing.T) {
	svc := newTestService(t)
	item := createItem(t, svc, "Primer", 3, 0)

	_, err := svc.Restock(item.ID, 0, 2, "")
	assert.Error(t, err)

	_, err = svc.Restock(item.ID, -1, 2, "")
	assert.Error(t, err)
}

func TestGetLowStockItems(t *testing.T) {
	svc := newTestService(t)

	createItem(t, svc, "Steel Sheet 2mm", 50, 20)    // above its own level
	low := createItem(t, svc, "Welding Wire", 4, 5)  // below its own level
	defaulted := createItem(t, svc, "Thinner", 8, 0) // below the default threshold
	createItem(t, svc, "Paint White", 30, 0)         // above the default threshold

	items, err := svc.GetLowStockItems()
	require.NoError(t, err)
	require.Len(t, items, 2)

	names := []string{items[0].Name, items[1].Name}
	assert.Contains(t, names, low.Name)
	assert.Contains(t, names, defaulted.Name)
}
