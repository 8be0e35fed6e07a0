package production

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/inventory"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	svc       *Service
	inventory *inventory.Service
	orders    *order.Service
}

func setupTestEnv(t *testing.T, strict bool) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&masterdata.Branch{}, &masterdata.Machine{}, &masterdata.Employee{}, &masterdata.Store{},
		&order.Order{}, &order.OrderItem{}, &order.OrderStageHistory{},
		&inventory.InventoryItem{}, &inventory.StockMovement{}, &inventory.MaterialConsumption{},
		&ProductionEntry{},
	))

	// Same partial unique index the production schema carries.
	require.NoError(t, db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_one_open_entry_per_operator ON production_entries(operator_id) WHERE end_time IS NULL").Error)

	cfg := &config.Config{
		Production: config.ProductionConfig{
			StrictConservation:       strict,
			DefaultLowStockThreshold: 10,
		},
	}

	inventoryService := inventory.NewService(db, cfg)
	orderService := order.NewService(db, cfg)
	masterdataService := masterdata.NewService(db)

	return &testEnv{
		db:        db,
		svc:       NewService(db, cfg, inventoryService, orderService, masterdataService),
		inventory: inventoryService,
		orders:    orderService,
	}
}

func (e *testEnv) createMachine(t *testing.T, code string, stage order.Stage) *masterdata.Machine {
	t.Helper()

	machine := &masterdata.Machine{
		Name:     "Machine " + code,
		Code:     code,
		Stage:    stage,
		BranchID: 1,
		IsActive: true,
	}
	require.NoError(t, e.db.Create(machine).Error)
	return machine
}

func (e *testEnv) createOrder(t *testing.T) *order.Order {
	t.Helper()

	o, err := e.orders.CreateOrder(&order.CreateOrderRequest{
		CustomerName: "Test Customer",
		BranchID:     1,
		Items: []order.OrderItemRequest{
			{ProductName: "Steel Door", Quantity: 100},
		},
	}, 1)
	require.NoError(t, err)
	return o
}

// closedEntry inserts a finished session directly, bypassing the
// lifecycle, to shape the aggregate history a test needs.
func (e *testEnv) closedEntry(t *testing.T, orderID uint, stage order.Stage, input, output int) {
	t.Helper()

	now := time.Now().UTC()
	entry := &ProductionEntry{
		OrderID:        orderID,
		MachineID:      1,
		OperatorID:     99,
		Stage:          stage,
		InputQuantity:  input,
		OutputQuantity: output,
		StartTime:      now.Add(-time.Hour),
		EndTime:        &now,
	}
	require.NoError(t, e.db.Create(entry).Error)
}

func TestStartSession_SecondOpenSessionRejected(t *testing.T) {
	env := setupTestEnv(t, false)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)

	_, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	_, err = env.svc.StartSession(5, machine.ID, o.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))

	// A different operator is unaffected.
	_, err = env.svc.StartSession(6, machine.ID, o.ID)
	assert.NoError(t, err)
}

func TestStartSession_InsertRaceTranslatedToConflict(t *testing.T) {
	env := setupTestEnv(t, false)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)

	// Slip a competing open entry in after the open-session check has
	// passed, so only the partial unique index can stop the insert.
	var fired bool
	err := env.db.Callback().Create().Before("gorm:create").Register("competing_open_entry", func(d *gorm.DB) {
		if fired || d.Statement.Table != "production_entries" {
			return
		}
		fired = true
		rival := &ProductionEntry{
			OrderID:    o.ID,
			MachineID:  machine.ID,
			OperatorID: 5,
			Stage:      order.StageCutting,
			StartTime:  time.Now().UTC(),
		}
		require.NoError(t, d.Session(&gorm.Session{NewDB: true}).Create(rival).Error)
	})
	require.NoError(t, err)

	_, err = env.svc.StartSession(5, machine.ID, o.ID)
	require.Error(t, err)
	require.True(t, fired)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestStartSession_StageComesFromMachine(t *testing.T) {
	env := setupTestEnv(t, false)
	machine := env.createMachine(t, "WLD-01", order.StageWeldingInner)
	o := env.createOrder(t)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StageWeldingInner, entry.Stage)
	assert.True(t, entry.IsOpen())
}

func TestStartSession_CancelledOrderRejected(t *testing.T) {
	env := setupTestEnv(t, false)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)
	require.NoError(t, env.orders.CancelOrder(o.ID, "customer withdrew", 1))

	_, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestGetAllowedInput_FirstStageHasNoCeiling(t *testing.T) {
	env := setupTestEnv(t, false)
	o := env.createOrder(t)

	allowed, err := env.svc.GetAllowedInput(o.ID, order.StageCutting)
	require.NoError(t, err)
	assert.True(t, allowed.FirstStage)
}

func TestGetAllowedInput_DerivedFromPreviousStageOutput(t *testing.T) {
	env := setupTestEnv(t, false)
	o := env.createOrder(t)

	// Two closed cutting sessions produced 95 good units in total.
	env.closedEntry(t, o.ID, order.StageCutting, 100, 60)
	env.closedEntry(t, o.ID, order.StageCutting, 40, 35)

	allowed, err := env.svc.GetAllowedInput(o.ID, order.StageShaping)
	require.NoError(t, err)
	assert.False(t, allowed.FirstStage)
	assert.Equal(t, order.StageCutting, allowed.PreviousStage)
	assert.Equal(t, 95, allowed.Quantity)

	// Shaping already claimed 30, leaving 65.
	env.closedEntry(t, o.ID, order.StageShaping, 30, 28)

	allowed, err = env.svc.GetAllowedInput(o.ID, order.StageShaping)
	require.NoError(t, err)
	assert.Equal(t, 65, allowed.Quantity)
}

func TestGetAllowedInput_FloorsAtZero(t *testing.T) {
	env := setupTestEnv(t, false)
	o := env.createOrder(t)

	env.closedEntry(t, o.ID, order.StageCutting, 20, 10)
	env.closedEntry(t, o.ID, order.StageShaping, 15, 12)

	allowed, err := env.svc.GetAllowedInput(o.ID, order.StageShaping)
	require.NoError(t, err)
	assert.Equal(t, 0, allowed.Quantity)
}

func TestCloseSession_Strict_RejectsOverclaim(t *testing.T) {
	env := setupTestEnv(t, true)
	machine := env.createMachine(t, "SHP-01", order.StageShaping)
	o := env.createOrder(t)
	env.closedEntry(t, o.ID, order.StageCutting, 100, 95)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	_, err = env.svc.CloseSession(entry.ID, &CloseSessionRequest{
		OutputQuantity:   90,
		RejectedQuantity: 6,
		WastageQuantity:  4,
	}, 1)
	require.Error(t, err)

	var insufficient *apperrors.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "cutting output", insufficient.ItemName)
	assert.Equal(t, 95.0, insufficient.Available)
	assert.Equal(t, 100.0, insufficient.Requested)

	// The session survives the rejection and stays open.
	reloaded, err := env.svc.GetEntry(entry.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsOpen())
}

func TestCloseSession_Lenient_ClampsToAllowed(t *testing.T) {
	env := setupTestEnv(t, false)
	machine := env.createMachine(t, "SHP-01", order.StageShaping)
	o := env.createOrder(t)
	env.closedEntry(t, o.ID, order.StageCutting, 10, 5)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	closed, err := env.svc.CloseSession(entry.ID, &CloseSessionRequest{
		OutputQuantity:  8,
		WastageQuantity: 2,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, closed.InputQuantity)
	assert.Equal(t, 8, closed.OutputQuantity)
	assert.False(t, closed.IsOpen())
}

func TestCloseSession_DoubleCloseRejected(t *testing.T) {
	env := setupTestEnv(t, true)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	_, err = env.svc.CloseSession(entry.ID, &CloseSessionRequest{OutputQuantity: 10}, 1)
	require.NoError(t, err)

	_, err = env.svc.CloseSession(entry.ID, &CloseSessionRequest{OutputQuantity: 10}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestCloseSession_CloseCommittedAfterReadRejected(t *testing.T) {
	env := setupTestEnv(t, true)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	// Close the entry out from under the service between its status
	// read and its update, the way a concurrent close would.
	var fired bool
	err = env.db.Callback().Update().Before("gorm:update").Register("competing_close", func(d *gorm.DB) {
		if fired || d.Statement.Table != "production_entries" {
			return
		}
		fired = true
		now := time.Now().UTC()
		d.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE production_entries SET end_time = ? WHERE id = ?", now, entry.ID)
	})
	require.NoError(t, err)

	_, err = env.svc.CloseSession(entry.ID, &CloseSessionRequest{OutputQuantity: 10}, 1)
	require.Error(t, err)
	require.True(t, fired)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))

	// The losing close applied none of its effects.
	reloadedOrder, err := env.orders.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StagePending, reloadedOrder.CurrentStage)
	assert.Equal(t, order.OrderStatusPending, reloadedOrder.Status)

	entries, err := env.svc.GetEntriesByOrder(o.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].OutputQuantity)
}

func TestCloseSession_MaterialShortageRollsBackEverything(t *testing.T) {
	env := setupTestEnv(t, true)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)

	steel, err := env.inventory.CreateItem(&inventory.CreateItemRequest{
		Name:     "Steel Sheet 2mm",
		Category: "sheet_metal",
		Quantity: 3,
		Unit:     "kg",
	})
	require.NoError(t, err)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	_, err = env.svc.CloseSession(entry.ID, &CloseSessionRequest{
		OutputQuantity: 10,
		Materials: []MaterialUsage{
			{InventoryItemID: steel.ID, Quantity: 5},
		},
	}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientStock))

	// Entry update, stock decrement and order advance all rolled back.
	reloadedEntry, err := env.svc.GetEntry(entry.ID)
	require.NoError(t, err)
	assert.True(t, reloadedEntry.IsOpen())
	assert.Zero(t, reloadedEntry.OutputQuantity)

	reloadedItem, err := env.inventory.GetItem(steel.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, reloadedItem.Quantity)

	reloadedOrder, err := env.orders.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StagePending, reloadedOrder.CurrentStage)
}

func TestCloseSession_ConsumesMaterialsAndAdvancesOrder(t *testing.T) {
	env := setupTestEnv(t, true)
	machine := env.createMachine(t, "CUT-01", order.StageCutting)
	o := env.createOrder(t)

	steel, err := env.inventory.CreateItem(&inventory.CreateItemRequest{
		Name:     "Steel Sheet 2mm",
		Category: "sheet_metal",
		Quantity: 20,
		Unit:     "kg",
	})
	require.NoError(t, err)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	closed, err := env.svc.CloseSession(entry.ID, &CloseSessionRequest{
		OutputQuantity:   90,
		RejectedQuantity: 6,
		WastageQuantity:  4,
		Materials: []MaterialUsage{
			{InventoryItemID: steel.ID, Quantity: 12.5},
		},
	}, 1)
	require.NoError(t, err)
	assert.False(t, closed.IsOpen())
	assert.Equal(t, 100, closed.InputQuantity)
	assert.InDelta(t, 4.0, closed.WastagePercentage, 0.001)

	reloadedItem, err := env.inventory.GetItem(steel.ID)
	require.NoError(t, err)
	assert.Equal(t, 7.5, reloadedItem.Quantity)

	consumptions, err := env.inventory.GetConsumptionsByOrder(o.ID)
	require.NoError(t, err)
	require.Len(t, consumptions, 1)
	require.NotNil(t, consumptions[0].ProductionEntryID)
	assert.Equal(t, entry.ID, *consumptions[0].ProductionEntryID)

	reloadedOrder, err := env.orders.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StageCutting, reloadedOrder.CurrentStage)
	assert.Equal(t, order.OrderStatusInProduction, reloadedOrder.Status)
}

func TestCloseSession_FinalStageCompletesOrder(t *testing.T) {
	env := setupTestEnv(t, true)
	machine := env.createMachine(t, "PNT-01", order.StagePainting)
	o := env.createOrder(t)
	env.closedEntry(t, o.ID, order.StageFinishing, 10, 10)

	entry, err := env.svc.StartSession(5, machine.ID, o.ID)
	require.NoError(t, err)

	_, err = env.svc.CloseSession(entry.ID, &CloseSessionRequest{OutputQuantity: 10}, 1)
	require.NoError(t, err)

	reloadedOrder, err := env.orders.GetOrder(o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCompleted, reloadedOrder.Status)
	assert.Equal(t, order.StagePainting, reloadedOrder.CurrentStage)
	require.NotNil(t, reloadedOrder.CompletedAt)
}

func TestGetStageSummaries(t *testing.T) {
	env := setupTestEnv(t, false)
	o := env.createOrder(t)

	env.closedEntry(t, o.ID, order.StageCutting, 100, 60)
	env.closedEntry(t, o.ID, order.StageCutting, 40, 35)
	env.closedEntry(t, o.ID, order.StageShaping, 30, 28)

	summaries, err := env.svc.GetStageSummaries(o.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Stage order, not insertion order.
	assert.Equal(t, order.StageCutting, summaries[0].Stage)
	assert.Equal(t, 140, summaries[0].InputQuantity)
	assert.Equal(t, 95, summaries[0].OutputQuantity)
	assert.Equal(t, 2, summaries[0].Sessions)

	assert.Equal(t, order.StageShaping, summaries[1].Stage)
	assert.Equal(t, 30, summaries[1].InputQuantity)
}

func TestMaterialCategoriesForStage(t *testing.T) {
	assert.Contains(t, MaterialCategoriesFor(order.StageCutting), "sheet_metal")
	assert.Contains(t, MaterialCategoriesFor(order.StageWeldingInner), "welding_wire")
	assert.Contains(t, MaterialCategoriesFor(order.StagePainting), "paint")

	assert.True(t, StageAllowsCategory(order.StageCutting, "sheet_metal"))
	assert.False(t, StageAllowsCategory(order.StageCutting, "paint"))
}
