package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"supply_map_backend/internal/middleware"
	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
	"supply_map_backend/internal/services"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PlannedNeedHandler holds the planned-need service.
type PlannedNeedHandler struct {
	plannedNeedService services.PlannedNeedService
}

// NewPlannedNeedHandler creates a new PlannedNeedHandler.
func NewPlannedNeedHandler(pns services.PlannedNeedService) *PlannedNeedHandler {
	return &PlannedNeedHandler{plannedNeedService: pns}
}

func (h *PlannedNeedHandler) CreatePlannedNeed(c *gin.Context) {
	var req services.CreatePlannedNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
		return
	}
	req.Actor = middleware.Actor(c)

	need, err := h.plannedNeedService.CreatePlannedNeed(req)
	if err != nil {
		utils.LogError(err, "CreatePlannedNeed: service error")
		respondPlannedNeedError(c, err)
		return
	}
	c.JSON(http.StatusCreated, need)
}

func (h *PlannedNeedHandler) GetPlannedNeed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid planned need ID", err.Error()))
		return
	}

	view, err := h.plannedNeedService.GetPlannedNeed(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Planned need not found", ""))
		} else {
			utils.LogError(err, "GetPlannedNeed: service error")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch planned need", ""))
		}
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PlannedNeedHandler) ListPlannedNeeds(c *gin.Context) {
	siteID, err := strconv.ParseInt(c.Query("site_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "site_id query parameter is required", ""))
		return
	}

	filters := models.PlannedNeedFilters{SiteID: siteID}
	if v := c.Query("location_id"); v != "" {
		locationID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid location_id format", err.Error()))
			return
		}
		filters.LocationID = &locationID
	}
	if v := c.Query("material_id"); v != "" {
		materialID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid material_id format", err.Error()))
			return
		}
		filters.MaterialID = &materialID
	}
	if v := c.Query("request_number"); v != "" {
		filters.RequestNumber = &v
	}
	if v := c.Query("category_tag"); v != "" {
		filters.CategoryTag = &v
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	views, total, err := h.plannedNeedService.ListPlannedNeeds(filters)
	if err != nil {
		utils.LogError(err, "ListPlannedNeeds: service error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list planned needs", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     views,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}

func (h *PlannedNeedHandler) UpdatePlannedNeed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid planned need ID", err.Error()))
		return
	}

	var req services.UpdatePlannedNeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
		return
	}
	req.Actor = middleware.Actor(c)

	need, err := h.plannedNeedService.UpdatePlannedNeed(id, req)
	if err != nil {
		utils.LogError(err, "UpdatePlannedNeed: service error")
		respondPlannedNeedError(c, err)
		return
	}
	c.JSON(http.StatusOK, need)
}

func (h *PlannedNeedHandler) DeletePlannedNeed(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid planned need ID", err.Error()))
		return
	}

	if err := h.plannedNeedService.DeletePlannedNeed(id, middleware.Actor(c)); err != nil {
		utils.LogError(err, "DeletePlannedNeed: service error")
		respondPlannedNeedError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func respondPlannedNeedError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Planned need not found", ""))
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
	case errors.Is(err, services.ErrLocationSiteMismatch):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
	default:
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Operation on planned need failed", ""))
	}
}
