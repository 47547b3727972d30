package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// How long an allocation waits for the receipt row lock before failing with
// a retryable error instead of queueing behind a slow competitor.
const allocationLockTimeout = 3 * time.Second

// AllocateRequest carries the parameters of an allocation attempt.
type AllocateRequest struct {
	ReceiptID     int64           `json:"receipt_id" binding:"required"`
	LocationID    int64           `json:"location_id" binding:"required"`
	PlannedNeedID *int64          `json:"planned_need_id"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Note          string          `json:"note"`
	Actor         string          `json:"-"`
}

// AllocateConsolidatedRequest allocates against the pooled balance of every
// ledger line sharing (site, request_number, material), ignoring line ids.
type AllocateConsolidatedRequest struct {
	SiteID        int64           `json:"site_id" binding:"required"`
	RequestNumber string          `json:"request_number" binding:"required"`
	MaterialID    int64           `json:"material_id" binding:"required"`
	LocationID    int64           `json:"location_id" binding:"required"`
	PlannedNeedID *int64          `json:"planned_need_id"`
	Quantity      decimal.Decimal `json:"quantity" binding:"required"`
	Note          string          `json:"note"`
	Actor         string          `json:"-"`
}

// AllocationService records and removes allocations while holding the
// receipt-row lock, so the sum of allocations on a receipt can never exceed
// its received quantity.
type AllocationService interface {
	Allocate(req AllocateRequest) (*models.Allocation, error)
	AllocateConsolidated(req AllocateConsolidatedRequest) (*models.Allocation, error)
	Deallocate(allocationID int64, actor string) error
	GetAllocationByID(id int64) (*models.Allocation, error)
	ListByPlannedNeed(plannedNeedID int64) ([]models.Allocation, decimal.Decimal, error)
}

type allocationService struct {
	allocationRepo repositories.AllocationRepository
	receiptRepo    repositories.ReceiptRepository
	siteRepo       repositories.SiteRepository
	changeLogRepo  repositories.ChangeLogRepository
	db             *sql.DB // For managing transactions
}

// NewAllocationService creates a new instance of AllocationService.
func NewAllocationService(
	ar repositories.AllocationRepository,
	rr repositories.ReceiptRepository,
	sr repositories.SiteRepository,
	clr repositories.ChangeLogRepository,
	db *sql.DB,
) AllocationService {
	return &allocationService{
		allocationRepo: ar,
		receiptRepo:    rr,
		siteRepo:       sr,
		changeLogRepo:  clr,
		db:             db,
	}
}

// decideAllocation is the pure balance check: given what a receipt holds,
// what is already committed, and what the caller wants, it either accepts or
// says exactly why not.
func decideAllocation(received, alreadyAllocated, requested decimal.Decimal) error {
	if requested.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	available := received.Sub(alreadyAllocated)
	if available.LessThanOrEqual(decimal.Zero) {
		return ErrNoBalanceAvailable
	}
	if requested.GreaterThan(available) {
		return &InsufficientBalanceError{Requested: requested, Available: available}
	}
	return nil
}

func setLockTimeout(tx *sql.Tx) error {
	// SET LOCAL scopes the timeout to this transaction only.
	_, err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", allocationLockTimeout.Milliseconds()))
	if err != nil {
		return fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return nil
}

func (s *allocationService) Allocate(req AllocateRequest) (*models.Allocation, error) {
	if req.Actor == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setLockTimeout(tx); err != nil {
		return nil, err
	}

	receipt, err := s.receiptRepo.GetByIDForUpdate(tx, req.ReceiptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: receipt %d not found", ErrValidation, req.ReceiptID)
		}
		return nil, err
	}

	location, err := s.siteRepo.GetLocationByID(req.LocationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: location %d not found", ErrValidation, req.LocationID)
		}
		return nil, fmt.Errorf("failed to validate location: %w", err)
	}
	if location.SiteID != receipt.SiteID {
		return nil, ErrLocationSiteMismatch
	}

	// Recompute under the lock. Reading the sum before locking would let two
	// concurrent callers both pass the balance check.
	alreadyAllocated, err := s.allocationRepo.SumByReceipt(tx, req.ReceiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum existing allocations: %w", err)
	}
	if err := decideAllocation(receipt.ReceivedQuantity, alreadyAllocated, req.Quantity); err != nil {
		return nil, err
	}

	allocation := &models.Allocation{
		SiteID:            receipt.SiteID,
		MaterialID:        receipt.MaterialID,
		LocationID:        req.LocationID,
		ReceiptID:         &req.ReceiptID,
		PlannedNeedID:     req.PlannedNeedID,
		AllocatedQuantity: req.Quantity,
		Note:              req.Note,
		CreatedBy:         req.Actor,
	}
	if _, err := s.allocationRepo.Create(tx, allocation); err != nil {
		return nil, fmt.Errorf("failed to create allocation: %w", err)
	}

	// The audit entry commits or rolls back together with the allocation.
	logEntry := &models.ChangeLogEntry{
		SiteID:        receipt.SiteID,
		PlannedNeedID: req.PlannedNeedID,
		ChangeType:    models.ChangeTypeAllocation,
		NewValue:      req.Quantity.String(),
		Description: fmt.Sprintf("allocated %s to location %d from receipt %d (request %s)",
			req.Quantity.String(), req.LocationID, req.ReceiptID, receipt.RequestNumber),
		Actor: req.Actor,
	}
	if _, err := s.changeLogRepo.Create(tx, logEntry); err != nil {
		return nil, fmt.Errorf("failed to record allocation in change log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	return allocation, nil
}

func (s *allocationService) AllocateConsolidated(req AllocateConsolidatedRequest) (*models.Allocation, error) {
	if req.Actor == "" {
		return nil, fmt.Errorf("%w: actor is required", ErrValidation)
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	location, err := s.siteRepo.GetLocationByID(req.LocationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: location %d not found", ErrValidation, req.LocationID)
		}
		return nil, fmt.Errorf("failed to validate location: %w", err)
	}
	if location.SiteID != req.SiteID {
		return nil, ErrLocationSiteMismatch
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := setLockTimeout(tx); err != nil {
		return nil, err
	}

	lines, err := s.receiptRepo.LockLinesForKey(tx, req.SiteID, req.RequestNumber, req.MaterialID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: no receipts for request %s", ErrValidation, req.RequestNumber)
	}

	// The authoritative ceiling is the largest received quantity any line
	// ever reported, because the source system repeats the cumulative total
	// and the individual lines may disagree.
	ceiling := decimal.Zero
	ceilingLine := &lines[0]
	for i := range lines {
		if lines[i].ReceivedQuantity.GreaterThan(ceiling) {
			ceiling = lines[i].ReceivedQuantity
			ceilingLine = &lines[i]
		}
	}

	alreadyAllocated, err := s.allocationRepo.SumByRequestKey(tx, req.SiteID, req.RequestNumber, req.MaterialID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum existing allocations: %w", err)
	}
	if err := decideAllocation(ceiling, alreadyAllocated, req.Quantity); err != nil {
		return nil, err
	}

	allocation := &models.Allocation{
		SiteID:            req.SiteID,
		MaterialID:        req.MaterialID,
		LocationID:        req.LocationID,
		ReceiptID:         &ceilingLine.ID,
		PlannedNeedID:     req.PlannedNeedID,
		AllocatedQuantity: req.Quantity,
		Note:              req.Note,
		CreatedBy:         req.Actor,
	}
	if _, err := s.allocationRepo.Create(tx, allocation); err != nil {
		return nil, fmt.Errorf("failed to create allocation: %w", err)
	}

	logEntry := &models.ChangeLogEntry{
		SiteID:        req.SiteID,
		PlannedNeedID: req.PlannedNeedID,
		ChangeType:    models.ChangeTypeAllocation,
		NewValue:      req.Quantity.String(),
		Description: fmt.Sprintf("allocated %s to location %d from consolidated balance of request %s",
			req.Quantity.String(), req.LocationID, req.RequestNumber),
		Actor: req.Actor,
	}
	if _, err := s.changeLogRepo.Create(tx, logEntry); err != nil {
		return nil, fmt.Errorf("failed to record allocation in change log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	return allocation, nil
}

// Deallocate removes an allocation row. The audit entry keeps the history;
// the ledger itself never stores negative adjustments.
func (s *allocationService) Deallocate(allocationID int64, actor string) error {
	if actor == "" {
		return fmt.Errorf("%w: actor is required", ErrValidation)
	}

	allocation, err := s.allocationRepo.GetByID(allocationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: allocation %d not found", ErrValidation, allocationID)
		}
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.allocationRepo.Delete(tx, allocationID); err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}

	logEntry := &models.ChangeLogEntry{
		SiteID:        allocation.SiteID,
		PlannedNeedID: allocation.PlannedNeedID,
		ChangeType:    models.ChangeTypeDeletion,
		OldValue:      allocation.AllocatedQuantity.String(),
		Description: fmt.Sprintf("removed allocation of %s at %s",
			allocation.AllocatedQuantity.String(), allocation.LocationName),
		Actor: actor,
	}
	if _, err := s.changeLogRepo.Create(tx, logEntry); err != nil {
		return fmt.Errorf("failed to record deallocation in change log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit deallocation: %w", err)
	}
	return nil
}

func (s *allocationService) GetAllocationByID(id int64) (*models.Allocation, error) {
	return s.allocationRepo.GetByID(id)
}

// ListByPlannedNeed returns the allocations tied to a planning row together
// with their committed total.
func (s *allocationService) ListByPlannedNeed(plannedNeedID int64) ([]models.Allocation, decimal.Decimal, error) {
	allocations, err := s.allocationRepo.ListByPlannedNeed(plannedNeedID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	total, err := s.allocationRepo.SumByPlannedNeed(plannedNeedID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return allocations, total, nil
}
