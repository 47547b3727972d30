package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"supply_map_backend/internal/metrics"
	"supply_map_backend/internal/middleware"
	"supply_map_backend/internal/services"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Spreadsheets from sites are small; this is just a sanity cap.
const maxImportFileSize = 32 << 20

// ImportHandler holds the import service.
type ImportHandler struct {
	importService services.ImportService
}

// NewImportHandler creates a new ImportHandler.
func NewImportHandler(is services.ImportService) *ImportHandler {
	return &ImportHandler{importService: is}
}

// UploadFile runs a reconciliation import from a multipart upload.
func (h *ImportHandler) UploadFile(c *gin.Context) {
	siteID, err := strconv.ParseInt(c.PostForm("site_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "site_id form field is required", ""))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "file form field is required", err.Error()))
		return
	}
	if fileHeader.Size > maxImportFileSize {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "file is too large", ""))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "failed to open uploaded file", err.Error()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "failed to read uploaded file", err.Error()))
		return
	}

	report, err := h.importService.ImportFile(siteID, fileHeader.Filename, data, middleware.Actor(c))
	if err != nil {
		utils.LogError(err, "UploadFile: import failed")
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		if errors.Is(err, services.ErrValidation) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, err.Error(), ""))
		} else {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Import failed", ""))
		}
		return
	}

	if report.SkippedDuplicate {
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeSkipped).Inc()
	} else {
		metrics.ImportsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
		metrics.ImportRowsTotal.WithLabelValues(metrics.RowKindCreated).Add(float64(report.Created))
		metrics.ImportRowsTotal.WithLabelValues(metrics.RowKindUpdated).Add(float64(report.Updated))
		metrics.ImportRowsTotal.WithLabelValues(metrics.RowKindRejected).Add(float64(report.Rejected))
	}
	c.JSON(http.StatusOK, report)
}

// History lists the recorded import batches of a site.
func (h *ImportHandler) History(c *gin.Context) {
	siteID, err := strconv.ParseInt(c.Query("site_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "site_id query parameter is required", ""))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	batches, err := h.importService.History(siteID, limit)
	if err != nil {
		utils.LogError(err, "History: service error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list import history", ""))
		return
	}
	c.JSON(http.StatusOK, batches)
}
