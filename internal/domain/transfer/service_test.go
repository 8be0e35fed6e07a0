package transfer

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/pkg/apperrors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&masterdata.Store{},
		&StockTransfer{}, &StockTransferItem{}, &StoreInventory{},
	))

	store := &masterdata.Store{Name: "Factory Outlet", Code: "OUT-01", IsActive: true}
	require.NoError(t, db.Create(store).Error)

	return NewService(db, &config.Config{}, masterdata.NewService(db)), db
}

func createTransfer(t *testing.T, svc *Service) *StockTransfer {
	t.Helper()

	transfer, err := svc.Create(&CreateTransferRequest{
		SourceType:         SourceTypeProduction,
		SourceID:           1,
		DestinationStoreID: 1,
		Items: []TransferItemRequest{
			{ProductName: "Steel Door", SKU: "SD-100", Quantity: 10, Unit: "pcs"},
		},
	}, 2)
	require.NoError(t, err)
	return transfer
}

func TestCreate_PendingWithSequencedNumber(t *testing.T) {
	svc, _ := setupTestService(t)

	first := createTransfer(t, svc)
	assert.Equal(t, TransferStatusPending, first.Status)
	require.Len(t, first.Items, 1)

	prefix := "TRF" + time.Now().UTC().Format("0601")
	assert.Equal(t, prefix+"00001", first.TransferNumber)

	second := createTransfer(t, svc)
	assert.Equal(t, prefix+"00002", second.TransferNumber)
}

func TestCreate_NumbersNeverReused(t *testing.T) {
	svc, db := setupTestService(t)

	first := createTransfer(t, svc)
	second := createTransfer(t, svc)

	// A removed transfer keeps its number. A sequence derived from row
	// counts would hand it out again and collide on the unique index.
	require.NoError(t, db.Delete(&StockTransfer{}, first.ID).Error)

	third := createTransfer(t, svc)
	assert.NotEqual(t, first.TransferNumber, third.TransferNumber)
	assert.NotEqual(t, second.TransferNumber, third.TransferNumber)

	prefix := "TRF" + time.Now().UTC().Format("0601")
	assert.Equal(t, prefix+"00003", third.TransferNumber)
}

func TestCreate_UnknownStoreRejected(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Create(&CreateTransferRequest{
		SourceType:         SourceTypeProduction,
		SourceID:           1,
		DestinationStoreID: 99,
		Items:              []TransferItemRequest{{ProductName: "Steel Door", SKU: "SD-100", Quantity: 1}},
	}, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCreate_InvalidSourceType(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Create(&CreateTransferRequest{
		SourceType:         SourceType("warehouse"),
		SourceID:           1,
		DestinationStoreID: 1,
		Items:              []TransferItemRequest{{ProductName: "Steel Door", SKU: "SD-100", Quantity: 1}},
	}, 2)
	assert.Error(t, err)
}

func TestReceive_CreditsStoreInventory(t *testing.T) {
	svc, _ := setupTestService(t)
	transfer := createTransfer(t, svc)

	received, err := svc.Receive(transfer.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, TransferStatusReceived, received.Status)

	lines, err := svc.GetStoreInventory(1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "SD-100", lines[0].SKU)
	assert.Equal(t, 10.0, lines[0].Quantity)
}

func TestReceive_SecondCallRejectedWithoutReapplying(t *testing.T) {
	svc, _ := setupTestService(t)
	transfer := createTransfer(t, svc)

	_, err := svc.Receive(transfer.ID, 3)
	require.NoError(t, err)

	_, err = svc.Receive(transfer.ID, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))

	// The quantity was credited exactly once.
	lines, err := svc.GetStoreInventory(1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 10.0, lines[0].Quantity)
}

func TestReceive_LegalFromInTransit(t *testing.T) {
	svc, _ := setupTestService(t)
	transfer := createTransfer(t, svc)

	require.NoError(t, svc.MarkInTransit(transfer.ID, 2))

	received, err := svc.Receive(transfer.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, TransferStatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	require.NotNil(t, received.ReceivedBy)
	assert.Equal(t, uint(3), *received.ReceivedBy)
}

func TestReceive_IncrementsExistingLine(t *testing.T) {
	svc, db := setupTestService(t)
	transfer := createTransfer(t, svc)

	require.NoError(t, db.Create(&StoreInventory{
		StoreID:     1,
		SKU:         "SD-100",
		ProductName: "Steel Door",
		Quantity:    5,
		Unit:        "pcs",
	}).Error)

	_, err := svc.Receive(transfer.ID, 3)
	require.NoError(t, err)

	lines, err := svc.GetStoreInventory(1)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 15.0, lines[0].Quantity)
}

func TestMarkInTransit_OnlyFromPending(t *testing.T) {
	svc, _ := setupTestService(t)
	transfer := createTransfer(t, svc)

	require.NoError(t, svc.MarkInTransit(transfer.ID, 2))

	err := svc.MarkInTransit(transfer.ID, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestMarkInTransit_UnknownTransfer(t *testing.T) {
	svc, _ := setupTestService(t)

	err := svc.MarkInTransit(99, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCancel_NoInventoryEffect(t *testing.T) {
	svc, _ := setupTestService(t)
	transfer := createTransfer(t, svc)

	require.NoError(t, svc.Cancel(transfer.ID, 2, "damaged in dispatch"))

	reloaded, err := svc.GetTransfer(transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, TransferStatusCancelled, reloaded.Status)
	assert.Equal(t, "damaged in dispatch", reloaded.CancelReason)
	require.NotNil(t, reloaded.CancelledAt)

	lines, err := svc.GetStoreInventory(1)
	require.NoError(t, err)
	assert.Empty(t, lines)

	// A cancelled transfer can never be received.
	_, err = svc.Receive(transfer.ID, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
}

func TestGetTransfers_Filters(t *testing.T) {
	svc, _ := setupTestService(t)
	first := createTransfer(t, svc)
	createTransfer(t, svc)

	_, err := svc.Receive(first.ID, 3)
	require.NoError(t, err)

	pending, err := svc.GetTransfers(&TransferListRequest{Status: TransferStatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	received, err := svc.GetTransfers(&TransferListRequest{Status: TransferStatusReceived})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, first.ID, received[0].ID)
}
