package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"supply_map_backend/internal/models"
)

// MaterialRepository defines the interface for material-catalog database operations.
type MaterialRepository interface {
	Create(material *models.Material) (int64, error)
	GetByID(id int64) (*models.Material, error)
	GetByExternalCode(code string) (*models.Material, error)
	List(onlyActive bool, search string) ([]models.Material, error)
	Update(material *models.Material) error
	CodeMap(codes []string) (map[string]*models.Material, error)
	IsReferencedByReceipt(id int64) (bool, error)
}

type materialRepository struct {
	db *sql.DB
}

// NewMaterialRepository creates a new instance of MaterialRepository.
func NewMaterialRepository(db *sql.DB) MaterialRepository {
	return &materialRepository{db: db}
}

const materialColumns = `id, external_code, description, unit_of_measure, is_bulk_category, active, notes, created_at, updated_at`

func scanMaterial(row interface{ Scan(...interface{}) error }, m *models.Material) error {
	return row.Scan(
		&m.ID, &m.ExternalCode, &m.Description, &m.UnitOfMeasure,
		&m.IsBulkCategory, &m.Active, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
}

func (r *materialRepository) Create(material *models.Material) (int64, error) {
	query := `INSERT INTO materials (external_code, description, unit_of_measure, is_bulk_category, active, notes)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query,
		material.ExternalCode, material.Description, material.UnitOfMeasure,
		material.IsBulkCategory, material.Active, material.Notes,
	).Scan(&material.ID, &material.CreatedAt, &material.UpdatedAt)
	if err != nil {
		return 0, wrapDBError(err, "creating material")
	}
	return material.ID, nil
}

func (r *materialRepository) GetByID(id int64) (*models.Material, error) {
	var m models.Material
	err := scanMaterial(r.db.QueryRow(
		`SELECT `+materialColumns+` FROM materials WHERE id = $1`, id), &m)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting material by id")
	}
	return &m, nil
}

func (r *materialRepository) GetByExternalCode(code string) (*models.Material, error) {
	var m models.Material
	err := scanMaterial(r.db.QueryRow(
		`SELECT `+materialColumns+` FROM materials WHERE external_code = $1`, code), &m)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting material by external code")
	}
	return &m, nil
}

func (r *materialRepository) List(onlyActive bool, search string) ([]models.Material, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + materialColumns + ` FROM materials`)

	var conditions []string
	var args []interface{}
	argCount := 1

	if onlyActive {
		conditions = append(conditions, "active = TRUE")
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(description) LIKE $%d OR LOWER(external_code) LIKE $%d)", argCount, argCount))
		args = append(args, "%"+strings.ToLower(search)+"%")
		argCount++
	}
	if len(conditions) > 0 {
		queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	queryBuilder.WriteString(" ORDER BY description")

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, wrapDBError(err, "listing materials")
	}
	defer rows.Close()

	materials := []models.Material{}
	for rows.Next() {
		var m models.Material
		if err := scanMaterial(rows, &m); err != nil {
			return nil, wrapDBError(err, "scanning material")
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating materials")
	}
	return materials, nil
}

func (r *materialRepository) Update(material *models.Material) error {
	query := `UPDATE materials
	          SET description = $2, unit_of_measure = $3, is_bulk_category = $4, active = $5, notes = $6, updated_at = NOW()
	          WHERE id = $1
	          RETURNING updated_at`
	err := r.db.QueryRow(query,
		material.ID, material.Description, material.UnitOfMeasure,
		material.IsBulkCategory, material.Active, material.Notes,
	).Scan(&material.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return wrapDBError(err, "updating material")
	}
	return nil
}

// CodeMap resolves a batch of external codes in one query. Codes with no
// catalog entry are simply absent from the result; the importer uses that to
// build its unresolved report.
func (r *materialRepository) CodeMap(codes []string) (map[string]*models.Material, error) {
	result := make(map[string]*models.Material, len(codes))
	if len(codes) == 0 {
		return result, nil
	}
	rows, err := r.db.Query(
		`SELECT `+materialColumns+` FROM materials WHERE external_code = ANY($1)`,
		pq.Array(codes))
	if err != nil {
		return nil, wrapDBError(err, "resolving material codes")
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Material
		if err := scanMaterial(rows, &m); err != nil {
			return nil, wrapDBError(err, "scanning material code map")
		}
		mCopy := m
		result[m.ExternalCode] = &mCopy
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating material code map")
	}
	return result, nil
}

func (r *materialRepository) IsReferencedByReceipt(id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM receipt_ledger WHERE material_id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBError(err, "checking material receipt references")
	}
	return exists, nil
}
