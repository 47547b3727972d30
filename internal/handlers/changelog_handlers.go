package handlers

import (
	"net/http"
	"strconv"

	"supply_map_backend/internal/repositories"
	"supply_map_backend/internal/services"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ChangeLogHandler holds the change-log service.
type ChangeLogHandler struct {
	changeLogService services.ChangeLogService
}

// NewChangeLogHandler creates a new ChangeLogHandler.
func NewChangeLogHandler(cls services.ChangeLogService) *ChangeLogHandler {
	return &ChangeLogHandler{changeLogService: cls}
}

func (h *ChangeLogHandler) ListChangeLog(c *gin.Context) {
	siteID, err := strconv.ParseInt(c.Query("site_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "site_id query parameter is required", ""))
		return
	}

	filters := repositories.ChangeLogFilters{SiteID: siteID}
	if v := c.Query("planned_need_id"); v != "" {
		plannedNeedID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid planned_need_id format", err.Error()))
			return
		}
		filters.PlannedNeedID = &plannedNeedID
	}
	if v := c.Query("change_type"); v != "" {
		filters.ChangeType = &v
	}
	filters.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filters.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))

	entries, total, err := h.changeLogService.List(filters)
	if err != nil {
		utils.LogError(err, "ListChangeLog: service error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list change log", ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     entries,
		"total":     total,
		"page":      filters.Page,
		"page_size": filters.PageSize,
	})
}
