package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// CreatePlannedNeedRequest carries planning input. Quantities come as
// strings so the decimal precision survives the JSON round trip untouched.
type CreatePlannedNeedRequest struct {
	SiteID          int64           `json:"site_id" binding:"required"`
	LocationID      *int64          `json:"location_id"`
	MaterialID      int64           `json:"material_id" binding:"required"`
	RequestNumber   string          `json:"request_number"`
	RequestLineID   string          `json:"request_line_id"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity" binding:"required"`
	NeededByDate    *time.Time      `json:"needed_by_date"`
	CategoryTag     string          `json:"category_tag"`
	Notes           string          `json:"notes"`
	Actor           string          `json:"-"`
}

// UpdatePlannedNeedRequest edits planner-owned fields. Procurement reference
// fields are owned by the importer and not editable here.
type UpdatePlannedNeedRequest struct {
	LocationID      *int64          `json:"location_id"`
	RequestNumber   string          `json:"request_number"`
	RequestLineID   string          `json:"request_line_id"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity" binding:"required"`
	NeededByDate    *time.Time      `json:"needed_by_date"`
	CategoryTag     string          `json:"category_tag"`
	Notes           string          `json:"notes"`
	Actor           string          `json:"-"`
}

// PlannedNeedView is a planned need with its derived pipeline state and
// balances, assembled on read.
type PlannedNeedView struct {
	models.PlannedNeed
	State            PipelineState   `json:"state"`
	IsOverdue        bool            `json:"is_overdue"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// PlannedNeedService owns the planning rows of a site.
type PlannedNeedService interface {
	CreatePlannedNeed(req CreatePlannedNeedRequest) (*models.PlannedNeed, error)
	GetPlannedNeed(id int64) (*PlannedNeedView, error)
	ListPlannedNeeds(filters models.PlannedNeedFilters) ([]PlannedNeedView, int, error)
	UpdatePlannedNeed(id int64, req UpdatePlannedNeedRequest) (*models.PlannedNeed, error)
	DeletePlannedNeed(id int64, actor string) error
}

type plannedNeedService struct {
	plannedNeedRepo repositories.PlannedNeedRepository
	materialRepo    repositories.MaterialRepository
	receiptRepo     repositories.ReceiptRepository
	siteRepo        repositories.SiteRepository
	changeLog       ChangeLogService
}

// NewPlannedNeedService creates a new instance of PlannedNeedService.
func NewPlannedNeedService(
	pnr repositories.PlannedNeedRepository,
	mr repositories.MaterialRepository,
	rr repositories.ReceiptRepository,
	sr repositories.SiteRepository,
	cls ChangeLogService,
) PlannedNeedService {
	return &plannedNeedService{
		plannedNeedRepo: pnr,
		materialRepo:    mr,
		receiptRepo:     rr,
		siteRepo:        sr,
		changeLog:       cls,
	}
}

func (s *plannedNeedService) validateRefs(siteID int64, locationID *int64, materialID int64) error {
	if _, err := s.siteRepo.GetSiteByID(siteID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: site %d not found", ErrValidation, siteID)
		}
		return err
	}
	if _, err := s.materialRepo.GetByID(materialID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: material %d not found", ErrValidation, materialID)
		}
		return err
	}
	if locationID != nil {
		ok, err := s.siteRepo.LocationBelongsToSite(*locationID, siteID)
		if err != nil {
			return fmt.Errorf("failed to validate location: %w", err)
		}
		if !ok {
			return ErrLocationSiteMismatch
		}
	}
	return nil
}

func (s *plannedNeedService) CreatePlannedNeed(req CreatePlannedNeedRequest) (*models.PlannedNeed, error) {
	if req.PlannedQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: planned quantity must be positive", ErrValidation)
	}
	if err := s.validateRefs(req.SiteID, req.LocationID, req.MaterialID); err != nil {
		return nil, err
	}

	categoryTag := req.CategoryTag
	if categoryTag == "" {
		categoryTag = models.DefaultCategoryTag
	}
	need := &models.PlannedNeed{
		SiteID:          req.SiteID,
		LocationID:      req.LocationID,
		MaterialID:      req.MaterialID,
		RequestNumber:   req.RequestNumber,
		RequestLineID:   req.RequestLineID,
		PlannedQuantity: req.PlannedQuantity,
		NeededByDate:    req.NeededByDate,
		CategoryTag:     categoryTag,
		Notes:           req.Notes,
		CreatedBy:       req.Actor,
	}
	if _, err := s.plannedNeedRepo.Create(need); err != nil {
		return nil, err
	}

	s.changeLog.Record(&models.ChangeLogEntry{
		SiteID:        need.SiteID,
		PlannedNeedID: &need.ID,
		ChangeType:    models.ChangeTypeCreation,
		NewValue:      need.PlannedQuantity.String(),
		Description:   fmt.Sprintf("created planned need for material %d, quantity %s", need.MaterialID, need.PlannedQuantity.String()),
		Actor:         req.Actor,
	})
	return s.plannedNeedRepo.GetByID(need.ID)
}

func (s *plannedNeedService) buildView(need *models.PlannedNeed) (*PlannedNeedView, error) {
	view := &PlannedNeedView{PlannedNeed: *need}

	var receipt *models.ReceiptEntry
	if need.RequestNumber != "" {
		found, err := s.receiptRepo.FindByKey(need.SiteID, need.RequestNumber, need.MaterialID, "")
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		receipt = found
	}

	view.State = DeriveStatus(need, receipt, need.AllocatedQuantity)
	view.IsOverdue = IsOverdue(need, time.Now())
	if receipt != nil {
		view.ReceivedQuantity = receipt.ReceivedQuantity
		view.AvailableBalance = AvailableBalance(receipt.ReceivedQuantity, need.AllocatedQuantity)
	}
	return view, nil
}

func (s *plannedNeedService) GetPlannedNeed(id int64) (*PlannedNeedView, error) {
	need, err := s.plannedNeedRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return s.buildView(need)
}

func (s *plannedNeedService) ListPlannedNeeds(filters models.PlannedNeedFilters) ([]PlannedNeedView, int, error) {
	needs, total, err := s.plannedNeedRepo.List(filters)
	if err != nil {
		return nil, 0, err
	}
	views := make([]PlannedNeedView, 0, len(needs))
	for i := range needs {
		view, err := s.buildView(&needs[i])
		if err != nil {
			return nil, 0, err
		}
		views = append(views, *view)
	}
	return views, total, nil
}

// UpdatePlannedNeed applies the edit and audits each changed field with its
// old and new value.
func (s *plannedNeedService) UpdatePlannedNeed(id int64, req UpdatePlannedNeedRequest) (*models.PlannedNeed, error) {
	if req.PlannedQuantity.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: planned quantity must be positive", ErrValidation)
	}
	need, err := s.plannedNeedRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if err := s.validateRefs(need.SiteID, req.LocationID, need.MaterialID); err != nil {
		return nil, err
	}

	type fieldChange struct {
		name     string
		oldValue string
		newValue string
	}
	var changes []fieldChange
	note := func(name, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, fieldChange{name, oldValue, newValue})
		}
	}

	note("planned_quantity", need.PlannedQuantity.String(), req.PlannedQuantity.String())
	note("request_number", need.RequestNumber, req.RequestNumber)
	note("request_line_id", need.RequestLineID, req.RequestLineID)
	note("location_id", formatOptionalID(need.LocationID), formatOptionalID(req.LocationID))
	note("needed_by_date", formatOptionalDate(need.NeededByDate), formatOptionalDate(req.NeededByDate))
	// An empty tag means "keep the current one", so it is neither noted nor
	// applied.
	if req.CategoryTag != "" {
		note("category_tag", need.CategoryTag, req.CategoryTag)
	}
	note("notes", need.Notes, req.Notes)

	need.LocationID = req.LocationID
	need.RequestNumber = req.RequestNumber
	need.RequestLineID = req.RequestLineID
	need.PlannedQuantity = req.PlannedQuantity
	need.NeededByDate = req.NeededByDate
	if req.CategoryTag != "" {
		need.CategoryTag = req.CategoryTag
	}
	need.Notes = req.Notes

	if err := s.plannedNeedRepo.Update(need); err != nil {
		return nil, err
	}

	for _, change := range changes {
		s.changeLog.Record(&models.ChangeLogEntry{
			SiteID:        need.SiteID,
			PlannedNeedID: &need.ID,
			ChangeType:    models.ChangeTypeEdit,
			FieldName:     change.name,
			OldValue:      change.oldValue,
			NewValue:      change.newValue,
			Description:   fmt.Sprintf("changed %s from %q to %q", change.name, change.oldValue, change.newValue),
			Actor:         req.Actor,
		})
	}
	return s.plannedNeedRepo.GetByID(need.ID)
}

// DeletePlannedNeed removes a planning row. Deletion is never automatic; the
// audit entry carries the row's description since the id reference is gone.
func (s *plannedNeedService) DeletePlannedNeed(id int64, actor string) error {
	need, err := s.plannedNeedRepo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.plannedNeedRepo.Delete(id); err != nil {
		return err
	}

	s.changeLog.Record(&models.ChangeLogEntry{
		SiteID:     need.SiteID,
		ChangeType: models.ChangeTypeDeletion,
		OldValue:   need.PlannedQuantity.String(),
		Description: fmt.Sprintf("deleted planned need %d (material %s, quantity %s)",
			need.ID, need.MaterialCode, need.PlannedQuantity.String()),
		Actor: actor,
	})
	return nil
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return fmt.Sprintf("%d", *id)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
