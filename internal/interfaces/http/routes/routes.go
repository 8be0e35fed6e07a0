// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/factory-backend/internal/config"
	"github.com/your-org/factory-backend/internal/domain/user"
	"github.com/your-org/factory-backend/internal/interfaces/http/handlers"
	"github.com/your-org/factory-backend/internal/interfaces/http/middleware"
	"gorm.io/gorm"
)

// SetupRoutes wires all API routes
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	SetupAuthRoutes(rg, db, cfg)
	SetupOrderRoutes(rg, db, redisClient, cfg)
	SetupProductionRoutes(rg, db, redisClient, cfg)
	SetupInventoryRoutes(rg, db, redisClient, cfg)
	SetupTransferRoutes(rg, db, redisClient, cfg)
	SetupMasterdataRoutes(rg, db, cfg)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(db, cfg)

	auth := rg.Group("/auth")
	{
		// Public auth endpoints
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(middleware.AuthMiddleware(cfg))
		{
			protected.GET("/profile", authHandler.GetProfile)
		}
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	orderHandler := handlers.NewOrderHandler(db, redisClient, cfg)

	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(cfg))
	{
		orders.GET("", orderHandler.GetOrders)
		orders.GET("/:id", orderHandler.GetOrder)
		orders.GET("/number/:number", orderHandler.GetOrderByNumber)

		// Order lifecycle is supervisor territory
		manage := orders.Group("")
		manage.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleProductionSupervisor))
		{
			manage.POST("", orderHandler.CreateOrder)
			manage.PUT("/:id/approve", orderHandler.ApproveOrder)
			manage.PUT("/:id/cancel", orderHandler.CancelOrder)
		}

		// Manual stage correction bypasses the session engine
		override := orders.Group("")
		override.Use(middleware.RequireRoles(user.RoleAdmin))
		{
			override.PUT("/:id/stage", orderHandler.AdvanceStage)
		}
	}
}

// SetupProductionRoutes sets up production session routes
func SetupProductionRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	productionHandler := handlers.NewProductionHandler(db, redisClient, cfg)

	production := rg.Group("/production")
	production.Use(middleware.AuthMiddleware(cfg))
	{
		production.GET("/sessions/:id", productionHandler.GetEntry)
		production.GET("/operators/:id/open-session", productionHandler.GetOpenSession)
		production.GET("/orders/:id/allowed-input", productionHandler.GetAllowedInput)
		production.GET("/orders/:id/entries", productionHandler.GetEntriesByOrder)
		production.GET("/orders/:id/summary", productionHandler.GetStageSummaries)

		sessions := production.Group("")
		sessions.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleProductionSupervisor, user.RoleOperator))
		{
			sessions.POST("/sessions", productionHandler.StartSession)
			sessions.PUT("/sessions/:id/close", productionHandler.CloseSession)
		}
	}
}

// SetupInventoryRoutes sets up raw material inventory routes
func SetupInventoryRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	inventoryHandler := handlers.NewInventoryHandler(db, redisClient, cfg)

	inventory := rg.Group("/inventory")
	inventory.Use(middleware.AuthMiddleware(cfg))
	{
		inventory.GET("/items", inventoryHandler.GetItems)
		inventory.GET("/items/:id", inventoryHandler.GetItem)
		inventory.GET("/items/:id/movements", inventoryHandler.GetMovements)
		inventory.GET("/low-stock", inventoryHandler.GetLowStockItems)
		inventory.GET("/orders/:id/consumptions", inventoryHandler.GetConsumptionsByOrder)

		manage := inventory.Group("")
		manage.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleProductionSupervisor))
		{
			manage.POST("/items", inventoryHandler.CreateItem)
			manage.POST("/items/:id/restock", inventoryHandler.Restock)
		}

		consume := inventory.Group("")
		consume.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleProductionSupervisor, user.RoleOperator))
		{
			consume.POST("/consumptions", inventoryHandler.RecordConsumption)
			consume.POST("/consumptions/bulk", inventoryHandler.RecordBulkConsumption)
		}
	}
}

// SetupTransferRoutes sets up stock transfer routes
func SetupTransferRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	transferHandler := handlers.NewTransferHandler(db, redisClient, cfg)

	transfers := rg.Group("/transfers")
	transfers.Use(middleware.AuthMiddleware(cfg))
	{
		transfers.GET("", transferHandler.GetTransfers)
		transfers.GET("/:id", transferHandler.GetTransfer)
		transfers.GET("/stores/:id/inventory", transferHandler.GetStoreInventory)

		// Dispatch side
		dispatch := transfers.Group("")
		dispatch.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleProductionSupervisor))
		{
			dispatch.POST("", transferHandler.CreateTransfer)
			dispatch.PUT("/:id/transit", transferHandler.MarkInTransit)
			dispatch.PUT("/:id/cancel", transferHandler.CancelTransfer)
		}

		// Receiving side
		receive := transfers.Group("")
		receive.Use(middleware.RequireRoles(user.RoleAdmin, user.RoleStoreManager))
		{
			receive.PUT("/:id/receive", transferHandler.ReceiveTransfer)
		}
	}
}

// SetupMasterdataRoutes sets up branch/machine/employee/store lookups
func SetupMasterdataRoutes(rg *gin.RouterGroup, db *gorm.DB, cfg *config.Config) {
	masterdataHandler := handlers.NewMasterdataHandler(db, cfg)

	masterdata := rg.Group("/masterdata")
	masterdata.Use(middleware.AuthMiddleware(cfg))
	{
		masterdata.GET("/branches", masterdataHandler.GetBranches)
		masterdata.GET("/machines", masterdataHandler.GetMachines)
		masterdata.GET("/machines/:id", masterdataHandler.GetMachine)
		masterdata.GET("/employees/:id", masterdataHandler.GetEmployee)
		masterdata.GET("/stores", masterdataHandler.GetStores)
		masterdata.GET("/stores/:id", masterdataHandler.GetStore)
	}
}
