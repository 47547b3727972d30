package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

var ErrMaterialCodeImmutable = errors.New("external code cannot change once the material appears in the receipt ledger")

// CreateMaterialRequest carries catalog-maintenance input.
type CreateMaterialRequest struct {
	ExternalCode  string `json:"external_code" binding:"required"`
	Description   string `json:"description" binding:"required"`
	UnitOfMeasure string `json:"unit_of_measure" binding:"required"`
	Notes         string `json:"notes"`
	Actor         string `json:"-"`
}

// UpdateMaterialRequest updates catalog fields. ExternalCode is accepted so
// typos can be fixed before the code is ever used in the ledger.
type UpdateMaterialRequest struct {
	ExternalCode  string `json:"external_code" binding:"required"`
	Description   string `json:"description" binding:"required"`
	UnitOfMeasure string `json:"unit_of_measure" binding:"required"`
	Active        *bool  `json:"active"`
	Notes         string `json:"notes"`
	Actor         string `json:"-"`
}

// MaterialService maintains the shared material catalog.
type MaterialService interface {
	CreateMaterial(req CreateMaterialRequest) (*models.Material, error)
	GetMaterialByID(id int64) (*models.Material, error)
	ListMaterials(onlyActive bool, search string) ([]models.Material, error)
	UpdateMaterial(id int64, req UpdateMaterialRequest) (*models.Material, error)
}

type materialService struct {
	materialRepo repositories.MaterialRepository
	changeLog    ChangeLogService
}

// NewMaterialService creates a new instance of MaterialService.
func NewMaterialService(mr repositories.MaterialRepository, cls ChangeLogService) MaterialService {
	return &materialService{materialRepo: mr, changeLog: cls}
}

// Keywords marking a material as a tracked bulk category rather than a small
// consumable. Matched against the normalized description.
var bulkCategoryKeywords = []string{
	"cimento", "concreto", "argamassa", "areia", "brita", "pedra",
	"aco", "vergalhao", "bloco", "tijolo", "telha", "madeira",
	"cement", "concrete", "mortar", "sand", "gravel", "rebar", "steel",
	"block", "brick", "lumber",
}

var descriptionStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// ClassifyBulkCategory guesses whether a description names a bulk material
// worth tracking through the allocation pipeline. The flag stays editable;
// this only sets the starting value.
func ClassifyBulkCategory(description string) bool {
	normalized := strings.ToLower(description)
	if stripped, _, err := transform.String(descriptionStripper, normalized); err == nil {
		normalized = stripped
	}
	for _, keyword := range bulkCategoryKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

func (s *materialService) CreateMaterial(req CreateMaterialRequest) (*models.Material, error) {
	code := strings.TrimSpace(req.ExternalCode)
	if code == "" {
		return nil, fmt.Errorf("%w: external code is required", ErrValidation)
	}

	material := &models.Material{
		ExternalCode:   code,
		Description:    strings.TrimSpace(req.Description),
		UnitOfMeasure:  strings.TrimSpace(req.UnitOfMeasure),
		IsBulkCategory: ClassifyBulkCategory(req.Description),
		Active:         true,
		Notes:          req.Notes,
	}
	if _, err := s.materialRepo.Create(material); err != nil {
		return nil, err
	}

	s.changeLog.Record(&models.ChangeLogEntry{
		ChangeType:  models.ChangeTypeCreation,
		NewValue:    material.ExternalCode,
		Description: fmt.Sprintf("created material %s (%s)", material.ExternalCode, material.Description),
		Actor:       req.Actor,
	})
	return material, nil
}

func (s *materialService) GetMaterialByID(id int64) (*models.Material, error) {
	return s.materialRepo.GetByID(id)
}

func (s *materialService) ListMaterials(onlyActive bool, search string) ([]models.Material, error) {
	return s.materialRepo.List(onlyActive, search)
}

func (s *materialService) UpdateMaterial(id int64, req UpdateMaterialRequest) (*models.Material, error) {
	material, err := s.materialRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	newCode := strings.TrimSpace(req.ExternalCode)
	if newCode != material.ExternalCode {
		referenced, err := s.materialRepo.IsReferencedByReceipt(id)
		if err != nil {
			return nil, err
		}
		if referenced {
			return nil, ErrMaterialCodeImmutable
		}
		material.ExternalCode = newCode
	}

	material.Description = strings.TrimSpace(req.Description)
	material.UnitOfMeasure = strings.TrimSpace(req.UnitOfMeasure)
	material.IsBulkCategory = ClassifyBulkCategory(material.Description)
	material.Notes = req.Notes
	if req.Active != nil {
		material.Active = *req.Active
	}

	if err := s.materialRepo.Update(material); err != nil {
		return nil, err
	}

	s.changeLog.Record(&models.ChangeLogEntry{
		ChangeType:  models.ChangeTypeEdit,
		NewValue:    material.ExternalCode,
		Description: fmt.Sprintf("updated material %s", material.ExternalCode),
		Actor:       req.Actor,
	})
	return material, nil
}
