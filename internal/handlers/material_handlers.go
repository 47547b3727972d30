package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"supply_map_backend/internal/middleware"
	"supply_map_backend/internal/repositories"
	"supply_map_backend/internal/services"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// MaterialHandler holds the material service.
type MaterialHandler struct {
	materialService services.MaterialService
}

// NewMaterialHandler creates a new MaterialHandler.
func NewMaterialHandler(ms services.MaterialService) *MaterialHandler {
	return &MaterialHandler{materialService: ms}
}

func (h *MaterialHandler) CreateMaterial(c *gin.Context) {
	var req services.CreateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
		return
	}
	req.Actor = middleware.Actor(c)

	material, err := h.materialService.CreateMaterial(req)
	if err != nil {
		utils.LogError(err, "CreateMaterial: service error")
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
		} else if errors.Is(err, repositories.ErrDuplicateKey) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "A material with this external code already exists", ""))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to create material", ""))
		}
		return
	}
	c.JSON(http.StatusCreated, material)
}

func (h *MaterialHandler) GetMaterial(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid material ID", err.Error()))
		return
	}

	material, err := h.materialService.GetMaterialByID(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Material not found", ""))
		} else {
			utils.LogError(err, "GetMaterial: service error")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch material", ""))
		}
		return
	}
	c.JSON(http.StatusOK, material)
}

func (h *MaterialHandler) ListMaterials(c *gin.Context) {
	onlyActive := c.Query("active") == "true"
	search := c.Query("search")

	materials, err := h.materialService.ListMaterials(onlyActive, search)
	if err != nil {
		utils.LogError(err, "ListMaterials: service error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list materials", ""))
		return
	}
	c.JSON(http.StatusOK, materials)
}

func (h *MaterialHandler) UpdateMaterial(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid material ID", err.Error()))
		return
	}

	var req services.UpdateMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid request payload", err.Error()))
		return
	}
	req.Actor = middleware.Actor(c)

	material, err := h.materialService.UpdateMaterial(id, req)
	if err != nil {
		utils.LogError(err, "UpdateMaterial: service error")
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Material not found", ""))
		case errors.Is(err, services.ErrMaterialCodeImmutable):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, err.Error(), ""))
		case errors.Is(err, repositories.ErrDuplicateKey):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "A material with this external code already exists", ""))
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to update material", ""))
		}
		return
	}
	c.JSON(http.StatusOK, material)
}
