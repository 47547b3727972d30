package services

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"supply_map_backend/internal/importer"
	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// maxReportItems bounds the illustrative lists in an import report. The
// counts are always exact; the lists are samples.
const maxReportItems = 20

// ImportReport summarizes one reconciliation run.
type ImportReport struct {
	BatchID            int64               `json:"batch_id,omitempty"`
	SkippedDuplicate   bool                `json:"skipped_duplicate"`
	Created            int                 `json:"created"`
	Updated            int                 `json:"updated"`
	Rejected           int                 `json:"rejected"`
	LinkedPlannedNeeds int                 `json:"linked_planned_needs"`
	UnresolvedCount    int                 `json:"unresolved_count"`
	Unresolved         []string            `json:"unresolved,omitempty"`
	RowErrorCount      int                 `json:"row_error_count"`
	RowErrors          []importer.RowError `json:"row_errors,omitempty"`
	Warnings           []string            `json:"warnings,omitempty"`
}

// ImportService runs the reconciliation importer against one site's ledger.
// The batch is linear: rows are written one by one so a concurrent allocation
// holding a row lock is waited on, not interleaved with.
type ImportService interface {
	ImportFile(siteID int64, fileName string, data []byte, actor string) (*ImportReport, error)
	History(siteID int64, limit int) ([]models.ImportBatch, error)
}

type importService struct {
	materialRepo    repositories.MaterialRepository
	receiptRepo     repositories.ReceiptRepository
	plannedNeedRepo repositories.PlannedNeedRepository
	allocationRepo  repositories.AllocationRepository
	importBatchRepo repositories.ImportBatchRepository
	changeLogRepo   repositories.ChangeLogRepository
	siteRepo        repositories.SiteRepository
	db              *sql.DB
}

// NewImportService creates a new instance of ImportService.
func NewImportService(
	mr repositories.MaterialRepository,
	rr repositories.ReceiptRepository,
	pnr repositories.PlannedNeedRepository,
	ar repositories.AllocationRepository,
	ibr repositories.ImportBatchRepository,
	clr repositories.ChangeLogRepository,
	sr repositories.SiteRepository,
	db *sql.DB,
) ImportService {
	return &importService{
		materialRepo:    mr,
		receiptRepo:     rr,
		plannedNeedRepo: pnr,
		allocationRepo:  ar,
		importBatchRepo: ibr,
		changeLogRepo:   clr,
		siteRepo:        sr,
		db:              db,
	}
}

func (s *importService) ImportFile(siteID int64, fileName string, data []byte, actor string) (*ImportReport, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrValidation)
	}
	site, err := s.siteRepo.GetSiteByID(siteID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: site %d not found", ErrValidation, siteID)
		}
		return nil, err
	}

	sum := sha256.Sum256(data)
	contentHash := hex.EncodeToString(sum[:])

	if existing, err := s.importBatchRepo.FindBySiteAndHash(siteID, contentHash); err == nil {
		log.Warn().
			Int64("site_id", siteID).
			Int64("previous_batch_id", existing.ID).
			Str("file", fileName).
			Msg("Identical file already imported, skipping")
		return &ImportReport{
			BatchID:          existing.ID,
			SkippedDuplicate: true,
			Warnings:         []string{"identical file already imported for this site, nothing to do"},
		}, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	grid, err := importer.ParseFile(fileName, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	headerIdx, columns, err := importer.DetectHeader(grid)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	// A header missing a required column aborts the run before any write.
	// Parsing on regardless would read the absent cells as empty and zero
	// out stored received quantities.
	if err := columns.RequireColumns(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	aggregated, rowErrs := importer.Consolidate(grid, headerIdx, columns)

	codes := make([]string, 0, len(aggregated))
	for _, row := range aggregated {
		codes = append(codes, row.MaterialCode)
	}
	materials, err := s.materialRepo.CodeMap(codes)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	var unresolved []string
	for _, row := range aggregated {
		// Rows with no requested quantity are headers-of-sections or totals
		// in the source export, not receipts.
		if row.RequestedQuantity.LessThanOrEqual(decimal.Zero) {
			continue
		}
		material, ok := materials[row.MaterialCode]
		if !ok {
			// Unknown codes are reported, never auto-created: the catalog is
			// curated by hand and a typo must not become a material.
			unresolved = append(unresolved, row.MaterialCode)
			continue
		}
		created, err := s.writeReceipt(siteID, material, row)
		if err != nil {
			if errors.Is(err, ErrInvariantViolation) {
				report.Rejected++
				rowErrs = append(rowErrs, importer.RowError{Message: err.Error()})
				continue
			}
			return nil, err
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}

		linked, err := s.linkPlannedNeeds(siteID, material.ID, row)
		if err != nil {
			return nil, err
		}
		report.LinkedPlannedNeeds += linked
	}

	batch := &models.ImportBatch{
		SiteID:      siteID,
		ContentHash: contentHash,
		FileName:    fileName,
		CreatedBy:   actor,
	}
	if _, err := s.importBatchRepo.Create(batch); err != nil {
		return nil, fmt.Errorf("failed to record import batch: %w", err)
	}
	report.BatchID = batch.ID

	report.UnresolvedCount = len(unresolved)
	report.Unresolved = boundList(unresolved, maxReportItems)
	report.RowErrorCount = len(rowErrs)
	if len(rowErrs) > maxReportItems {
		rowErrs = rowErrs[:maxReportItems]
	}
	report.RowErrors = rowErrs

	// Audit write is best-effort here; the ledger rows are already in.
	logEntry := &models.ChangeLogEntry{
		SiteID:     siteID,
		ChangeType: models.ChangeTypeImport,
		Description: fmt.Sprintf("imported %s into %s: %d created, %d updated, %d rejected, %d unresolved",
			fileName, site.Name, report.Created, report.Updated, report.Rejected, report.UnresolvedCount),
		Actor: actor,
	}
	if _, err := s.changeLogRepo.Create(s.db, logEntry); err != nil {
		log.Warn().Err(err).Int64("site_id", siteID).Msg("Failed to write import change log entry")
	}

	log.Info().
		Int64("site_id", siteID).
		Int64("batch_id", batch.ID).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("rejected", report.Rejected).
		Int("unresolved", report.UnresolvedCount).
		Msg("Import finished")
	return report, nil
}

// writeReceipt upserts one consolidated group into the ledger. A received
// decrease is only applied if it still covers existing allocations; the
// guard and the write are a single statement, so no lock is needed here.
// A rejected decrease comes back wrapping ErrInvariantViolation.
func (s *importService) writeReceipt(siteID int64, material *models.Material, row importer.AggregatedRow) (created bool, err error) {
	existing, err := s.receiptRepo.FindByKey(siteID, row.RequestNumber, material.ID, "")
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return false, err
	}
	if existing != nil && row.ReceivedQuantity.LessThan(existing.ReceivedQuantity) {
		ok, err := s.receiptRepo.UpdateReceivedGuarded(s.db, existing.ID, row.ReceivedQuantity)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("%w: request %s material %s: received quantity %s is below what is already allocated",
				ErrInvariantViolation, row.RequestNumber, row.MaterialCode, row.ReceivedQuantity.String())
		}
	}

	entry := &models.ReceiptEntry{
		SiteID:              siteID,
		MaterialID:          material.ID,
		RequestNumber:       row.RequestNumber,
		RequestLineID:       "",
		RequestDate:         row.RequestDate,
		RequestedQuantity:   row.RequestedQuantity,
		ReceivedQuantity:    row.ReceivedQuantity,
		PurchaseOrderNumber: row.PurchaseOrderNumber,
		PurchaseOrderDate:   row.PurchaseOrderDate,
		SupplierName:        row.SupplierName,
		ExpectedDate:        row.ExpectedDate,
		InvoiceNumber:       row.InvoiceNumber,
		InvoiceDate:         row.InvoiceDate,
	}
	wasCreated, err := s.receiptRepo.Upsert(s.db, entry)
	if err != nil {
		return false, err
	}
	return wasCreated, nil
}

// linkPlannedNeeds refreshes procurement reference fields on planning rows
// that match the receipt, either by request number or by having none yet.
// It never creates an allocation: allocation stays an explicit human action.
func (s *importService) linkPlannedNeeds(siteID, materialID int64, row importer.AggregatedRow) (int, error) {
	needs, err := s.plannedNeedRepo.FindForLink(siteID, materialID, row.RequestNumber)
	if err != nil {
		return 0, err
	}
	if len(needs) == 0 {
		return 0, nil
	}

	allocated, err := s.allocationRepo.SumByRequestKey(s.db, siteID, row.RequestNumber, materialID)
	if err != nil {
		return 0, err
	}
	remaining := row.RequestedQuantity.Sub(allocated)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	linked := 0
	for i := range needs {
		need := &needs[i]
		need.RequestNumber = row.RequestNumber
		need.PurchaseOrderNumber = row.PurchaseOrderNumber
		need.SupplierName = row.SupplierName
		need.ExpectedDate = row.ExpectedDate
		need.RemainingBalance = remaining
		if err := s.plannedNeedRepo.UpdateProcurementRefs(need); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				continue
			}
			return linked, err
		}
		linked++
	}
	return linked, nil
}

func (s *importService) History(siteID int64, limit int) ([]models.ImportBatch, error) {
	return s.importBatchRepo.ListBySite(siteID, limit)
}

func boundList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
