package services

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// ReceiptBalance is the read-side view of one ledger row and what remains
// allocatable on it.
type ReceiptBalance struct {
	Receipt          models.ReceiptEntry `json:"receipt"`
	AllocatedTotal   decimal.Decimal     `json:"allocated_total"`
	AvailableBalance decimal.Decimal     `json:"available_balance"`
}

// ReceiptService exposes read access to the receipt ledger. All writes go
// through the importer.
type ReceiptService interface {
	ListReceipts(siteID int64, requestNumber string) ([]models.ReceiptEntry, error)
	GetReceiptBalance(receiptID int64) (*ReceiptBalance, error)
}

type receiptService struct {
	receiptRepo    repositories.ReceiptRepository
	allocationRepo repositories.AllocationRepository
	db             *sql.DB
}

// NewReceiptService creates a new instance of ReceiptService.
func NewReceiptService(rr repositories.ReceiptRepository, ar repositories.AllocationRepository, db *sql.DB) ReceiptService {
	return &receiptService{receiptRepo: rr, allocationRepo: ar, db: db}
}

func (s *receiptService) ListReceipts(siteID int64, requestNumber string) ([]models.ReceiptEntry, error) {
	return s.receiptRepo.ListBySite(siteID, requestNumber)
}

// GetReceiptBalance reads without locking; the figure is advisory and the
// allocation service recomputes under its own lock before committing.
func (s *receiptService) GetReceiptBalance(receiptID int64) (*ReceiptBalance, error) {
	receipt, err := s.receiptRepo.GetByID(receiptID)
	if err != nil {
		return nil, err
	}
	allocated, err := s.allocationRepo.SumByReceipt(s.db, receiptID)
	if err != nil {
		return nil, err
	}
	return &ReceiptBalance{
		Receipt:          *receipt,
		AllocatedTotal:   allocated,
		AvailableBalance: AvailableBalance(receipt.ReceivedQuantity, allocated),
	}, nil
}
