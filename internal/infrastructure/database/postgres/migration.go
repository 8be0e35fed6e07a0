// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/your-org/factory-backend/internal/domain/inventory"
	"github.com/your-org/factory-backend/internal/domain/masterdata"
	"github.com/your-org/factory-backend/internal/domain/order"
	"github.com/your-org/factory-backend/internal/domain/production"
	"github.com/your-org/factory-backend/internal/domain/transfer"
	"github.com/your-org/factory-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Models in dependency order
	models := []interface{}{
		// Users and master data - base tables
		&user.User{},
		&masterdata.Branch{},
		&masterdata.Machine{},
		&masterdata.Employee{},
		&masterdata.Store{},

		// Order domain
		&order.Order{},
		&order.OrderItem{},
		&order.OrderStageHistory{},

		// Inventory domain
		&inventory.InventoryItem{},
		&inventory.StockMovement{},
		&inventory.MaterialConsumption{},

		// Production domain
		&production.ProductionEntry{},

		// Transfer domain
		&transfer.StockTransfer{},
		&transfer.StockTransferItem{},
		&transfer.StoreInventory{},
	}

	for _, model := range models {
		log.Printf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes beyond what the model tags
// declare. The partial unique index on production_entries is the
// storage-level enforcement of "one open session per operator".
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// One open production entry per operator
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_one_open_entry_per_operator ON production_entries(operator_id) WHERE end_time IS NULL",

		// Hot paths of the input-ceiling aggregation
		"CREATE INDEX IF NOT EXISTS idx_entries_order_stage ON production_entries(order_id, stage)",
		"CREATE INDEX IF NOT EXISTS idx_entries_order_stage_closed ON production_entries(order_id, stage) WHERE end_time IS NOT NULL",

		// Consumption and ledger lookups
		"CREATE INDEX IF NOT EXISTS idx_consumptions_order_stage ON material_consumptions(order_id, stage)",
		"CREATE INDEX IF NOT EXISTS idx_movements_item_created ON stock_movements(inventory_item_id, created_at DESC)",

		// Transfer listings
		"CREATE INDEX IF NOT EXISTS idx_transfers_store_status ON stock_transfers(destination_store_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_transfers_created_at ON stock_transfers(created_at DESC)",

		// Order listings
		"CREATE INDEX IF NOT EXISTS idx_orders_status_stage ON orders(status, current_stage)",
		"CREATE INDEX IF NOT EXISTS idx_stage_history_order_created ON order_stage_history(order_id, created_at DESC)",
	}

	for _, index := range indexes {
		if err := m.db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	log.Println("✅ Database indexes created successfully")
	return nil
}

// SeedInitialData seeds development data: an admin user, a branch with
// one machine per production stage, a store, and a starter set of
// materials.
func (m *Migration) SeedInitialData() error {
	log.Println("🔄 Seeding initial data...")

	var userCount int64
	if err := m.db.Model(&user.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if userCount > 0 {
		log.Println("Data already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	admin := user.User{
		Email:        "admin@factory.local",
		PasswordHash: string(hash),
		Name:         "Administrator",
		Role:         user.RoleAdmin,
		IsActive:     true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	branch := masterdata.Branch{Name: "Main Factory", Code: "MAIN", IsActive: true}
	if err := m.db.Create(&branch).Error; err != nil {
		return fmt.Errorf("failed to seed branch: %w", err)
	}

	store := masterdata.Store{Name: "Factory Outlet", Code: "OUTLET", BranchID: branch.ID, IsActive: true}
	if err := m.db.Create(&store).Error; err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	machineNo := 1
	for _, stage := range order.Stages() {
		if stage == order.StagePending || stage == order.StageCompleted {
			continue
		}
		machine := masterdata.Machine{
			Name:     fmt.Sprintf("%s machine", stage),
			Code:     fmt.Sprintf("MC-%02d", machineNo),
			Stage:    stage,
			BranchID: branch.ID,
			IsActive: true,
		}
		if err := m.db.Create(&machine).Error; err != nil {
			return fmt.Errorf("failed to seed machine: %w", err)
		}
		machineNo++
	}

	materials := []inventory.InventoryItem{
		{Name: "Steel Sheet 2mm", Category: "sheet_metal", Quantity: 500, Unit: "kg", ReorderLevel: 100},
		{Name: "Steel Pipe 25mm", Category: "pipe", Quantity: 300, Unit: "m", ReorderLevel: 50},
		{Name: "Welding Wire", Category: "welding_wire", Quantity: 50, Unit: "kg", ReorderLevel: 10},
		{Name: "Argon Gas", Category: "welding_gas", Quantity: 20, Unit: "bottle", ReorderLevel: 5},
		{Name: "Grinding Disc 115mm", Category: "grinding_disc", Quantity: 200, Unit: "pcs", ReorderLevel: 40},
		{Name: "Primer Grey", Category: "primer", Quantity: 80, Unit: "l", ReorderLevel: 20},
		{Name: "Paint Black Matte", Category: "paint", Quantity: 60, Unit: "l", ReorderLevel: 15},
	}
	for i := range materials {
		if err := m.db.Create(&materials[i]).Error; err != nil {
			return fmt.Errorf("failed to seed inventory item: %w", err)
		}
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

// GetTableInfo logs row counts of the core tables, development only
func (m *Migration) GetTableInfo() {
	tables := []string{
		"users", "branches", "machines", "employees", "stores",
		"orders", "order_items", "order_stage_history",
		"inventory_items", "stock_movements", "material_consumptions",
		"production_entries",
		"stock_transfers", "stock_transfer_items", "store_inventory",
	}

	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			continue
		}
		log.Printf("Table %s: %d rows", table, count)
	}
}
