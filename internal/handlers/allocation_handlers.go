package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"supply_map_backend/internal/metrics"
	"supply_map_backend/internal/middleware"
	"supply_map_backend/internal/repositories"
	"supply_map_backend/internal/services"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AllocationHandler holds the allocation service.
type AllocationHandler struct {
	allocationService services.AllocationService
}

// NewAllocationHandler creates a new AllocationHandler.
func NewAllocationHandler(as services.AllocationService) *AllocationHandler {
	return &AllocationHandler{allocationService: as}
}

func (h *AllocationHandler) CreateAllocation(c *gin.Context) {
	var req services.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
		return
	}
	req.Actor = middleware.Actor(c)

	allocation, err := h.allocationService.Allocate(req)
	if err != nil {
		respondAllocationError(c, err, "CreateAllocation")
		return
	}
	metrics.AllocationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.JSON(http.StatusCreated, allocation)
}

func (h *AllocationHandler) CreateConsolidatedAllocation(c *gin.Context) {
	var req services.AllocateConsolidatedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
		return
	}
	req.Actor = middleware.Actor(c)

	allocation, err := h.allocationService.AllocateConsolidated(req)
	if err != nil {
		respondAllocationError(c, err, "CreateConsolidatedAllocation")
		return
	}
	metrics.AllocationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	c.JSON(http.StatusCreated, allocation)
}

func (h *AllocationHandler) DeleteAllocation(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid allocation ID", err.Error()))
		return
	}

	if err := h.allocationService.Deallocate(id, middleware.Actor(c)); err != nil {
		respondAllocationError(c, err, "DeleteAllocation")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AllocationHandler) ListAllocationsByPlannedNeed(c *gin.Context) {
	plannedNeedID, err := strconv.ParseInt(c.Query("planned_need_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "planned_need_id query parameter is required", ""))
		return
	}

	allocations, total, err := h.allocationService.ListByPlannedNeed(plannedNeedID)
	if err != nil {
		utils.LogError(err, "ListAllocationsByPlannedNeed: service error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list allocations", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"allocations":     allocations,
		"total_allocated": total,
	})
}

// respondAllocationError maps rejection reasons onto status codes the UI can
// act on. Insufficient balance quotes the exact available quantity so the
// form can pre-fill a corrected amount.
func respondAllocationError(c *gin.Context, err error, operation string) {
	utils.LogError(err, operation+": service error")

	var insufficientErr *services.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficientErr):
		metrics.AllocationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{
			"code":      utils.ErrCodeConflict,
			"message":   insufficientErr.Error(),
			"requested": insufficientErr.Requested.String(),
			"available": insufficientErr.Available.String(),
		}})
		c.Abort()
	case errors.Is(err, services.ErrNoBalanceAvailable):
		metrics.AllocationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
	case errors.Is(err, repositories.ErrLockTimeout):
		metrics.LockTimeoutsTotal.Inc()
		metrics.AllocationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		utils.RespondWithError(c, utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeLockTimeout,
			"The receipt is locked by another allocation, retry shortly", ""))
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrLocationSiteMismatch):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
	default:
		metrics.AllocationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Allocation failed", ""))
	}
}
