package repositories

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
)

// AllocationRepository defines database operations for the allocation ledger.
// Write methods take a SQLExecutor because allocations are only ever written
// inside the allocation service's transaction.
type AllocationRepository interface {
	Create(exec SQLExecutor, allocation *models.Allocation) (int64, error)
	GetByID(id int64) (*models.Allocation, error)
	Delete(exec SQLExecutor, id int64) error
	SumByReceipt(exec SQLExecutor, receiptID int64) (decimal.Decimal, error)
	SumByRequestKey(exec SQLExecutor, siteID int64, requestNumber string, materialID int64) (decimal.Decimal, error)
	ListByPlannedNeed(plannedNeedID int64) ([]models.Allocation, error)
	SumByPlannedNeed(plannedNeedID int64) (decimal.Decimal, error)
}

type allocationRepository struct {
	db *sql.DB
}

// NewAllocationRepository creates a new instance of AllocationRepository.
func NewAllocationRepository(db *sql.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

func (r *allocationRepository) Create(exec SQLExecutor, allocation *models.Allocation) (int64, error) {
	query := `INSERT INTO allocations
	          (site_id, material_id, location_id, receipt_id, planned_need_id,
	           allocated_quantity, note, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at`
	err := exec.QueryRow(query,
		allocation.SiteID, allocation.MaterialID, allocation.LocationID,
		allocation.ReceiptID, allocation.PlannedNeedID,
		allocation.AllocatedQuantity, allocation.Note, allocation.CreatedBy,
	).Scan(&allocation.ID, &allocation.CreatedAt)
	if err != nil {
		return 0, wrapDBError(err, "creating allocation")
	}
	return allocation.ID, nil
}

func (r *allocationRepository) GetByID(id int64) (*models.Allocation, error) {
	var a models.Allocation
	query := `SELECT a.id, a.site_id, a.material_id, a.location_id, a.receipt_id, a.planned_need_id,
	                 a.allocated_quantity, a.note, a.created_by, a.created_at,
	                 l.name, m.external_code
	          FROM allocations a
	          JOIN site_locations l ON l.id = a.location_id
	          JOIN materials m ON m.id = a.material_id
	          WHERE a.id = $1`
	err := r.db.QueryRow(query, id).Scan(
		&a.ID, &a.SiteID, &a.MaterialID, &a.LocationID, &a.ReceiptID, &a.PlannedNeedID,
		&a.AllocatedQuantity, &a.Note, &a.CreatedBy, &a.CreatedAt,
		&a.LocationName, &a.MaterialCode,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting allocation by id")
	}
	return &a, nil
}

func (r *allocationRepository) Delete(exec SQLExecutor, id int64) error {
	result, err := exec.Exec(`DELETE FROM allocations WHERE id = $1`, id)
	if err != nil {
		return wrapDBError(err, "deleting allocation")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapDBError(err, "checking allocation deletion")
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *allocationRepository) SumByReceipt(exec SQLExecutor, receiptID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := exec.QueryRow(
		`SELECT COALESCE(SUM(allocated_quantity), 0) FROM allocations WHERE receipt_id = $1`,
		receiptID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, wrapDBError(err, "summing allocations by receipt")
	}
	return sum, nil
}

func (r *allocationRepository) SumByRequestKey(exec SQLExecutor, siteID int64, requestNumber string, materialID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(a.allocated_quantity), 0)
	          FROM allocations a
	          JOIN receipt_ledger r ON r.id = a.receipt_id
	          WHERE r.site_id = $1 AND r.request_number = $2 AND r.material_id = $3`
	err := exec.QueryRow(query, siteID, requestNumber, materialID).Scan(&sum)
	if err != nil {
		return decimal.Zero, wrapDBError(err, "summing allocations by request key")
	}
	return sum, nil
}

func (r *allocationRepository) ListByPlannedNeed(plannedNeedID int64) ([]models.Allocation, error) {
	query := `SELECT a.id, a.site_id, a.material_id, a.location_id, a.receipt_id, a.planned_need_id,
	                 a.allocated_quantity, a.note, a.created_by, a.created_at,
	                 l.name, m.external_code
	          FROM allocations a
	          JOIN site_locations l ON l.id = a.location_id
	          JOIN materials m ON m.id = a.material_id
	          WHERE a.planned_need_id = $1
	          ORDER BY a.created_at`
	rows, err := r.db.Query(query, plannedNeedID)
	if err != nil {
		return nil, wrapDBError(err, "listing allocations by planned need")
	}
	defer rows.Close()

	allocations := []models.Allocation{}
	for rows.Next() {
		var a models.Allocation
		err := rows.Scan(
			&a.ID, &a.SiteID, &a.MaterialID, &a.LocationID, &a.ReceiptID, &a.PlannedNeedID,
			&a.AllocatedQuantity, &a.Note, &a.CreatedBy, &a.CreatedAt,
			&a.LocationName, &a.MaterialCode,
		)
		if err != nil {
			return nil, wrapDBError(err, "scanning allocation")
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating allocations")
	}
	return allocations, nil
}

func (r *allocationRepository) SumByPlannedNeed(plannedNeedID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.db.QueryRow(
		`SELECT COALESCE(SUM(allocated_quantity), 0) FROM allocations WHERE planned_need_id = $1`,
		plannedNeedID,
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, wrapDBError(err, "summing allocations by planned need")
	}
	return sum, nil
}
