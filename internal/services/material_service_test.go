package services

import (
	"errors"
	"testing"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// recordingChangeLog captures audit entries without a database.
type recordingChangeLog struct {
	entries []*models.ChangeLogEntry
}

func (r *recordingChangeLog) Record(entry *models.ChangeLogEntry) {
	r.entries = append(r.entries, entry)
}
func (r *recordingChangeLog) List(filters repositories.ChangeLogFilters) ([]models.ChangeLogEntry, int, error) {
	return nil, 0, nil
}

// stubMaterialRepo is a single-row material store with a configurable
// referenced flag.
type stubMaterialRepo struct {
	material   *models.Material
	referenced bool
}

func (s *stubMaterialRepo) Create(m *models.Material) (int64, error) {
	m.ID = 1
	s.material = m
	return 1, nil
}
func (s *stubMaterialRepo) GetByID(id int64) (*models.Material, error) {
	if s.material != nil && s.material.ID == id {
		copied := *s.material
		return &copied, nil
	}
	return nil, repositories.ErrNotFound
}
func (s *stubMaterialRepo) GetByExternalCode(code string) (*models.Material, error) {
	return nil, repositories.ErrNotFound
}
func (s *stubMaterialRepo) List(onlyActive bool, search string) ([]models.Material, error) {
	return nil, nil
}
func (s *stubMaterialRepo) Update(m *models.Material) error {
	s.material = m
	return nil
}
func (s *stubMaterialRepo) CodeMap(codes []string) (map[string]*models.Material, error) {
	return nil, nil
}
func (s *stubMaterialRepo) IsReferencedByReceipt(id int64) (bool, error) {
	return s.referenced, nil
}

func TestClassifyBulkCategory(t *testing.T) {
	tests := []struct {
		description string
		want        bool
	}{
		{"CIMENTO CP-II 50KG", true},
		{"Aço CA-50 10mm", true},
		{"Bloco cerâmico 14x19x39", true},
		{"AREIA MEDIA LAVADA", true},
		{"Parafuso sextavado 3/8", false},
		{"Fita isolante", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ClassifyBulkCategory(tt.description); got != tt.want {
			t.Errorf("ClassifyBulkCategory(%q) = %v, want %v", tt.description, got, tt.want)
		}
	}
}

func TestCreateMaterialSetsBulkFlagAndAudits(t *testing.T) {
	repo := &stubMaterialRepo{}
	audit := &recordingChangeLog{}
	service := NewMaterialService(repo, audit)

	material, err := service.CreateMaterial(CreateMaterialRequest{
		ExternalCode:  "CIM-01",
		Description:   "Cimento CP-II",
		UnitOfMeasure: "SC",
		Actor:         "alice",
	})
	if err != nil {
		t.Fatalf("CreateMaterial error: %v", err)
	}
	if !material.IsBulkCategory {
		t.Error("cement should classify as a bulk category")
	}
	if !material.Active {
		t.Error("new materials start active")
	}
	if len(audit.entries) != 1 || audit.entries[0].ChangeType != models.ChangeTypeCreation {
		t.Errorf("expected one creation audit entry, got %v", audit.entries)
	}
}

func TestUpdateMaterialCodeImmutableOnceReferenced(t *testing.T) {
	repo := &stubMaterialRepo{
		material: &models.Material{
			ID: 1, ExternalCode: "CIM-01", Description: "Cimento", UnitOfMeasure: "SC", Active: true,
		},
		referenced: true,
	}
	service := NewMaterialService(repo, &recordingChangeLog{})

	_, err := service.UpdateMaterial(1, UpdateMaterialRequest{
		ExternalCode:  "CIM-02",
		Description:   "Cimento",
		UnitOfMeasure: "SC",
	})
	if !errors.Is(err, ErrMaterialCodeImmutable) {
		t.Fatalf("error = %v, want ErrMaterialCodeImmutable", err)
	}

	// Other fields stay editable.
	updated, err := service.UpdateMaterial(1, UpdateMaterialRequest{
		ExternalCode:  "CIM-01",
		Description:   "Cimento CP-IV",
		UnitOfMeasure: "SC",
	})
	if err != nil {
		t.Fatalf("UpdateMaterial error: %v", err)
	}
	if updated.Description != "Cimento CP-IV" {
		t.Errorf("description = %q, want updated value", updated.Description)
	}
}

func TestUpdateMaterialCodeEditableBeforeFirstReceipt(t *testing.T) {
	repo := &stubMaterialRepo{
		material: &models.Material{
			ID: 1, ExternalCode: "CIM-TYPO", Description: "Cimento", UnitOfMeasure: "SC", Active: true,
		},
		referenced: false,
	}
	service := NewMaterialService(repo, &recordingChangeLog{})

	updated, err := service.UpdateMaterial(1, UpdateMaterialRequest{
		ExternalCode:  "CIM-01",
		Description:   "Cimento",
		UnitOfMeasure: "SC",
	})
	if err != nil {
		t.Fatalf("UpdateMaterial error: %v", err)
	}
	if updated.ExternalCode != "CIM-01" {
		t.Errorf("external code = %q, want CIM-01", updated.ExternalCode)
	}
}
