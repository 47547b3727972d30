package router

import (
	"supply_map_backend/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupMaterialRoutes sets up the material catalog routes.
func SetupMaterialRoutes(authenticatedGroup *gin.RouterGroup, materialHandler *handlers.MaterialHandler) {
	materialRoutes := authenticatedGroup.Group("/materials")
	{
		materialRoutes.POST("", materialHandler.CreateMaterial)
		materialRoutes.GET("", materialHandler.ListMaterials)
		materialRoutes.GET("/:id", materialHandler.GetMaterial)
		materialRoutes.PUT("/:id", materialHandler.UpdateMaterial)
	}
}

// SetupSiteRoutes sets up the read-only site registry routes.
func SetupSiteRoutes(authenticatedGroup *gin.RouterGroup, siteHandler *handlers.SiteHandler) {
	siteRoutes := authenticatedGroup.Group("/sites")
	{
		siteRoutes.GET("", siteHandler.ListSites)
		siteRoutes.GET("/:id/locations", siteHandler.ListLocations)
	}
}

// SetupPlannedNeedRoutes sets up the planned need routes.
func SetupPlannedNeedRoutes(authenticatedGroup *gin.RouterGroup, plannedNeedHandler *handlers.PlannedNeedHandler) {
	plannedNeedRoutes := authenticatedGroup.Group("/planned-needs")
	{
		plannedNeedRoutes.POST("", plannedNeedHandler.CreatePlannedNeed)
		plannedNeedRoutes.GET("", plannedNeedHandler.ListPlannedNeeds)
		plannedNeedRoutes.GET("/:id", plannedNeedHandler.GetPlannedNeed)
		plannedNeedRoutes.PUT("/:id", plannedNeedHandler.UpdatePlannedNeed)
		plannedNeedRoutes.DELETE("/:id", plannedNeedHandler.DeletePlannedNeed)
	}
}

// SetupReceiptRoutes sets up the receipt ledger read routes.
func SetupReceiptRoutes(authenticatedGroup *gin.RouterGroup, receiptHandler *handlers.ReceiptHandler) {
	receiptRoutes := authenticatedGroup.Group("/receipts")
	{
		receiptRoutes.GET("", receiptHandler.ListReceipts)
		receiptRoutes.GET("/:id/balance", receiptHandler.GetReceiptBalance)
	}
}

// SetupAllocationRoutes sets up the allocation routes.
func SetupAllocationRoutes(authenticatedGroup *gin.RouterGroup, allocationHandler *handlers.AllocationHandler) {
	allocationRoutes := authenticatedGroup.Group("/allocations")
	{
		allocationRoutes.POST("", allocationHandler.CreateAllocation)
		allocationRoutes.POST("/consolidated", allocationHandler.CreateConsolidatedAllocation)
		allocationRoutes.GET("", allocationHandler.ListAllocationsByPlannedNeed)
		allocationRoutes.DELETE("/:id", allocationHandler.DeleteAllocation)
	}
}

// SetupImportRoutes sets up the reconciliation import routes.
func SetupImportRoutes(authenticatedGroup *gin.RouterGroup, importHandler *handlers.ImportHandler) {
	importRoutes := authenticatedGroup.Group("/imports")
	{
		importRoutes.POST("", importHandler.UploadFile)
		importRoutes.GET("/history", importHandler.History)
	}
}

// SetupChangeLogRoutes sets up the audit trail routes.
func SetupChangeLogRoutes(authenticatedGroup *gin.RouterGroup, changeLogHandler *handlers.ChangeLogHandler) {
	changeLogRoutes := authenticatedGroup.Group("/change-log")
	{
		changeLogRoutes.GET("", changeLogHandler.ListChangeLog)
	}
}
