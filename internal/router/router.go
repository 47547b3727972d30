package router

import (
	"database/sql"

	"supply_map_backend/internal/handlers"
	"supply_map_backend/internal/middleware"
	"supply_map_backend/internal/repositories"
	"supply_map_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Setup initializes the routing for the application.
func Setup(engine *gin.Engine, db *sql.DB) {
	// Initialize Repositories
	materialRepo := repositories.NewMaterialRepository(db)
	siteRepo := repositories.NewSiteRepository(db)
	plannedNeedRepo := repositories.NewPlannedNeedRepository(db)
	receiptRepo := repositories.NewReceiptRepository(db)
	allocationRepo := repositories.NewAllocationRepository(db)
	changeLogRepo := repositories.NewChangeLogRepository(db)
	importBatchRepo := repositories.NewImportBatchRepository(db)

	// Initialize Services
	changeLogService := services.NewChangeLogService(changeLogRepo, db)
	materialService := services.NewMaterialService(materialRepo, changeLogService)
	plannedNeedService := services.NewPlannedNeedService(plannedNeedRepo, materialRepo, receiptRepo, siteRepo, changeLogService)
	receiptService := services.NewReceiptService(receiptRepo, allocationRepo, db)
	allocationService := services.NewAllocationService(allocationRepo, receiptRepo, siteRepo, changeLogRepo, db)
	importService := services.NewImportService(materialRepo, receiptRepo, plannedNeedRepo, allocationRepo, importBatchRepo, changeLogRepo, siteRepo, db)

	// Initialize Handlers
	materialHandler := handlers.NewMaterialHandler(materialService)
	siteHandler := handlers.NewSiteHandler(siteRepo)
	plannedNeedHandler := handlers.NewPlannedNeedHandler(plannedNeedService)
	receiptHandler := handlers.NewReceiptHandler(receiptService)
	allocationHandler := handlers.NewAllocationHandler(allocationService)
	importHandler := handlers.NewImportHandler(importService)
	changeLogHandler := handlers.NewChangeLogHandler(changeLogService)

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiV1 := engine.Group("/api/v1")
	authenticated := apiV1.Group("")
	authenticated.Use(middleware.AuthMiddleware())
	{
		SetupMaterialRoutes(authenticated, materialHandler)
		SetupSiteRoutes(authenticated, siteHandler)
		SetupPlannedNeedRoutes(authenticated, plannedNeedHandler)
		SetupReceiptRoutes(authenticated, receiptHandler)
		SetupAllocationRoutes(authenticated, allocationHandler)
		SetupImportRoutes(authenticated, importHandler)
		SetupChangeLogRoutes(authenticated, changeLogHandler)
	}
}
