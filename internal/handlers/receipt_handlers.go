package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"supply_map_backend/internal/repositories"
	"supply_map_backend/internal/services"
	"supply_map_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ReceiptHandler holds the receipt service.
type ReceiptHandler struct {
	receiptService services.ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler.
func NewReceiptHandler(rs services.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: rs}
}

func (h *ReceiptHandler) ListReceipts(c *gin.Context) {
	siteID, err := strconv.ParseInt(c.Query("site_id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "site_id query parameter is required", ""))
		return
	}

	receipts, err := h.receiptService.ListReceipts(siteID, c.Query("request_number"))
	if err != nil {
		utils.LogError(err, "ListReceipts: service error")
		utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to list receipts", ""))
		return
	}
	c.JSON(http.StatusOK, receipts)
}

func (h *ReceiptHandler) GetReceiptBalance(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid receipt ID", err.Error()))
		return
	}

	balance, err := h.receiptService.GetReceiptBalance(id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Receipt not found", ""))
		} else {
			utils.LogError(err, "GetReceiptBalance: service error")
			utils.RespondWithError(c, utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Failed to fetch receipt balance", ""))
		}
		return
	}
	c.JSON(http.StatusOK, balance)
}
