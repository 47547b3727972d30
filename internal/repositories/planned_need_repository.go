package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"supply_map_backend/internal/models"
)

// PlannedNeedRepository defines database operations for planning rows.
type PlannedNeedRepository interface {
	Create(need *models.PlannedNeed) (int64, error)
	GetByID(id int64) (*models.PlannedNeed, error)
	List(filters models.PlannedNeedFilters) ([]models.PlannedNeed, int, error)
	Update(need *models.PlannedNeed) error
	Delete(id int64) error

	// FindForLink returns needs of the site/material that either carry the
	// given request number or have no request number yet. The importer uses it
	// to attach procurement references after a matching receipt shows up.
	FindForLink(siteID, materialID int64, requestNumber string) ([]models.PlannedNeed, error)
	UpdateProcurementRefs(need *models.PlannedNeed) error
}

type plannedNeedRepository struct {
	db *sql.DB
}

// NewPlannedNeedRepository creates a new instance of PlannedNeedRepository.
func NewPlannedNeedRepository(db *sql.DB) PlannedNeedRepository {
	return &plannedNeedRepository{db: db}
}

const plannedNeedSelect = `
	SELECT pn.id, pn.site_id, pn.location_id, pn.material_id,
	       pn.request_number, pn.request_line_id, pn.planned_quantity,
	       pn.purchase_order_number, pn.supplier_name,
	       pn.needed_by_date, pn.expected_date, pn.remaining_balance,
	       pn.category_tag, pn.notes, pn.created_by, pn.created_at, pn.updated_at,
	       m.external_code, m.description, m.unit_of_measure,
	       COALESCE(l.name, ''),
	       COALESCE((SELECT SUM(a.allocated_quantity) FROM allocations a WHERE a.planned_need_id = pn.id), 0)
	FROM planned_needs pn
	JOIN materials m ON m.id = pn.material_id
	LEFT JOIN site_locations l ON l.id = pn.location_id`

func scanPlannedNeed(row interface{ Scan(...interface{}) error }, n *models.PlannedNeed) error {
	return row.Scan(
		&n.ID, &n.SiteID, &n.LocationID, &n.MaterialID,
		&n.RequestNumber, &n.RequestLineID, &n.PlannedQuantity,
		&n.PurchaseOrderNumber, &n.SupplierName,
		&n.NeededByDate, &n.ExpectedDate, &n.RemainingBalance,
		&n.CategoryTag, &n.Notes, &n.CreatedBy, &n.CreatedAt, &n.UpdatedAt,
		&n.MaterialCode, &n.MaterialDescription, &n.UnitOfMeasure,
		&n.LocationName,
		&n.AllocatedQuantity,
	)
}

func (r *plannedNeedRepository) Create(need *models.PlannedNeed) (int64, error) {
	query := `INSERT INTO planned_needs
	          (site_id, location_id, material_id, request_number, request_line_id,
	           planned_quantity, purchase_order_number, supplier_name,
	           needed_by_date, expected_date, remaining_balance,
	           category_tag, notes, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query,
		need.SiteID, need.LocationID, need.MaterialID, need.RequestNumber, need.RequestLineID,
		need.PlannedQuantity, need.PurchaseOrderNumber, need.SupplierName,
		need.NeededByDate, need.ExpectedDate, need.RemainingBalance,
		need.CategoryTag, need.Notes, need.CreatedBy,
	).Scan(&need.ID, &need.CreatedAt, &need.UpdatedAt)
	if err != nil {
		return 0, wrapDBError(err, "creating planned need")
	}
	return need.ID, nil
}

func (r *plannedNeedRepository) GetByID(id int64) (*models.PlannedNeed, error) {
	var n models.PlannedNeed
	err := scanPlannedNeed(r.db.QueryRow(plannedNeedSelect+` WHERE pn.id = $1`, id), &n)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting planned need by id")
	}
	return &n, nil
}

func (r *plannedNeedRepository) List(filters models.PlannedNeedFilters) ([]models.PlannedNeed, int, error) {
	conditions := []string{"pn.site_id = $1"}
	args := []interface{}{filters.SiteID}
	argCount := 2

	if filters.LocationID != nil {
		conditions = append(conditions, fmt.Sprintf("pn.location_id = $%d", argCount))
		args = append(args, *filters.LocationID)
		argCount++
	}
	if filters.MaterialID != nil {
		conditions = append(conditions, fmt.Sprintf("pn.material_id = $%d", argCount))
		args = append(args, *filters.MaterialID)
		argCount++
	}
	if filters.RequestNumber != nil {
		conditions = append(conditions, fmt.Sprintf("pn.request_number = $%d", argCount))
		args = append(args, *filters.RequestNumber)
		argCount++
	}
	if filters.CategoryTag != nil {
		conditions = append(conditions, fmt.Sprintf("pn.category_tag = $%d", argCount))
		args = append(args, *filters.CategoryTag)
		argCount++
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM planned_needs pn`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, wrapDBError(err, "counting planned needs")
	}

	query := plannedNeedSelect + where + " ORDER BY m.description, pn.id"
	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		args = append(args, filters.PageSize, (page-1)*filters.PageSize)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, wrapDBError(err, "listing planned needs")
	}
	defer rows.Close()

	needs := []models.PlannedNeed{}
	for rows.Next() {
		var n models.PlannedNeed
		if err := scanPlannedNeed(rows, &n); err != nil {
			return nil, 0, wrapDBError(err, "scanning planned need")
		}
		needs = append(needs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError(err, "iterating planned needs")
	}
	return needs, total, nil
}

func (r *plannedNeedRepository) Update(need *models.PlannedNeed) error {
	query := `UPDATE planned_needs
	          SET location_id = $2, material_id = $3, request_number = $4, request_line_id = $5,
	              planned_quantity = $6, needed_by_date = $7, category_tag = $8,
	              notes = $9, updated_at = NOW()
	          WHERE id = $1
	          RETURNING updated_at`
	err := r.db.QueryRow(query,
		need.ID, need.LocationID, need.MaterialID, need.RequestNumber, need.RequestLineID,
		need.PlannedQuantity, need.NeededByDate, need.CategoryTag, need.Notes,
	).Scan(&need.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return wrapDBError(err, "updating planned need")
	}
	return nil
}

func (r *plannedNeedRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM planned_needs WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "deleting planned need")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, "checking planned need deletion")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *plannedNeedRepository) FindForLink(siteID, materialID int64, requestNumber string) ([]models.PlannedNeed, error) {
	query := plannedNeedSelect + `
	WHERE pn.site_id = $1 AND pn.material_id = $2
	  AND (pn.request_number = $3 OR pn.request_number = '')
	ORDER BY pn.id`
	rows, err := r.db.Query(query, siteID, materialID, requestNumber)
	if err != nil {
		return nil, wrapDBError(err, "finding planned needs for linking")
	}
	defer rows.Close()

	needs := []models.PlannedNeed{}
	for rows.Next() {
		var n models.PlannedNeed
		if err := scanPlannedNeed(rows, &n); err != nil {
			return nil, wrapDBError(err, "scanning planned need for linking")
		}
		needs = append(needs, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating planned needs for linking")
	}
	return needs, nil
}

// UpdateProcurementRefs writes only the importer-owned columns, leaving the
// planner-owned ones (quantity, location, notes) untouched.
func (r *plannedNeedRepository) UpdateProcurementRefs(need *models.PlannedNeed) error {
	query := `UPDATE planned_needs
	          SET request_number = $2, purchase_order_number = $3, supplier_name = $4,
	              expected_date = $5, remaining_balance = $6, updated_at = NOW()
	          WHERE id = $1`
	result, err := r.db.Exec(query,
		need.ID, need.RequestNumber, need.PurchaseOrderNumber, need.SupplierName,
		need.ExpectedDate, need.RemainingBalance)
	if err != nil {
		return wrapDBError(err, "updating planned need procurement refs")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, "checking procurement refs update")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
