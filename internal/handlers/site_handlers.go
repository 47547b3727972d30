package handlers

import (
	"net/http"
	"strconv"

	"supply_map_backend/internal/repositories"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// SiteHandler exposes the read-only site registry.
type SiteHandler struct {
	siteRepo repositories.SiteRepository
}

// NewSiteHandler creates a new SiteHandler.
func NewSiteHandler(sr repositories.SiteRepository) *SiteHandler {
	return &SiteHandler{siteRepo: sr}
}

func (h *SiteHandler) ListSites(c *gin.Context) {
	onlyActive := c.Query("active") == "true"

	sites, err := h.siteRepo.ListSites(onlyActive)
	if err != nil {
		utils.LogError(err, "ListSites: repository error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list sites", ""))
		return
	}
	c.JSON(http.StatusOK, sites)
}

func (h *SiteHandler) ListLocations(c *gin.Context) {
	siteID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid site ID", err.Error()))
		return
	}

	locations, err := h.siteRepo.ListLocations(siteID)
	if err != nil {
		utils.LogError(err, "ListLocations: repository error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list locations", ""))
		return
	}
	c.JSON(http.StatusOK, locations)
}
