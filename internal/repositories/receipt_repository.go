package repositories

import (
	"database/sql"

	"github.com/shopspring/decimal"

	"supply_map_backend/internal/models"
)

// ReceiptRepository defines database operations for the receipt ledger.
// Methods taking a SQLExecutor participate in a caller-managed transaction;
// the allocation service relies on that for its FOR UPDATE reads.
type ReceiptRepository interface {
	GetByID(id int64) (*models.ReceiptEntry, error)
	GetByIDForUpdate(tx SQLExecutor, id int64) (*models.ReceiptEntry, error)
	ListBySite(siteID int64, requestNumber string) ([]models.ReceiptEntry, error)
	FindByKey(siteID int64, requestNumber string, materialID int64, requestLineID string) (*models.ReceiptEntry, error)

	// Upsert inserts or updates the row for the entry's unique key and reports
	// whether a new row was created.
	Upsert(exec SQLExecutor, entry *models.ReceiptEntry) (bool, error)

	// UpdateReceivedGuarded lowers received_quantity only if the new value
	// still covers what has already been allocated against the row. Returns
	// false when the guard rejected the write.
	UpdateReceivedGuarded(exec SQLExecutor, id int64, newReceived decimal.Decimal) (bool, error)

	// LockLinesForKey locks every ledger row of (site, request, material)
	// regardless of line id, for the consolidated-balance allocation path.
	LockLinesForKey(tx SQLExecutor, siteID int64, requestNumber string, materialID int64) ([]models.ReceiptEntry, error)
}

type receiptRepository struct {
	db *sql.DB
}

// NewReceiptRepository creates a new instance of ReceiptRepository.
func NewReceiptRepository(db *sql.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

const receiptColumns = `r.id, r.site_id, r.material_id, r.request_number, r.request_line_id,
	r.request_date, r.requested_quantity, r.received_quantity,
	r.purchase_order_number, r.purchase_order_date, r.supplier_name,
	r.expected_date, r.invoice_number, r.invoice_date, r.created_at, r.updated_at`

const receiptJoined = `
	SELECT ` + receiptColumns + `,
	       m.external_code, m.description, m.unit_of_measure
	FROM receipt_ledger r
	JOIN materials m ON m.id = r.material_id`

func scanReceipt(row interface{ Scan(...interface{}) error }, e *models.ReceiptEntry, joined bool) error {
	dest := []interface{}{
		&e.ID, &e.SiteID, &e.MaterialID, &e.RequestNumber, &e.RequestLineID,
		&e.RequestDate, &e.RequestedQuantity, &e.ReceivedQuantity,
		&e.PurchaseOrderNumber, &e.PurchaseOrderDate, &e.SupplierName,
		&e.ExpectedDate, &e.InvoiceNumber, &e.InvoiceDate, &e.CreatedAt, &e.UpdatedAt,
	}
	if joined {
		dest = append(dest, &e.MaterialCode, &e.MaterialDescription, &e.UnitOfMeasure)
	}
	return row.Scan(dest...)
}

func (r *receiptRepository) GetByID(id int64) (*models.ReceiptEntry, error) {
	var e models.ReceiptEntry
	err := scanReceipt(r.db.QueryRow(receiptJoined+` WHERE r.id = $1`, id), &e, true)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting receipt by id")
	}
	return &e, nil
}

func (r *receiptRepository) GetByIDForUpdate(tx SQLExecutor, id int64) (*models.ReceiptEntry, error) {
	var e models.ReceiptEntry
	query := `SELECT ` + receiptColumns + ` FROM receipt_ledger r WHERE r.id = $1 FOR UPDATE`
	err := scanReceipt(tx.QueryRow(query, id), &e, false)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "locking receipt row")
	}
	return &e, nil
}

func (r *receiptRepository) ListBySite(siteID int64, requestNumber string) ([]models.ReceiptEntry, error) {
	query := receiptJoined + ` WHERE r.site_id = $1`
	args := []interface{}{siteID}
	if requestNumber != "" {
		query += ` AND r.request_number = $2`
		args = append(args, requestNumber)
	}
	query += ` ORDER BY r.request_number, m.description`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, wrapDBError(err, "listing receipts")
	}
	defer rows.Close()

	entries := []models.ReceiptEntry{}
	for rows.Next() {
		var e models.ReceiptEntry
		if err := scanReceipt(rows, &e, true); err != nil {
			return nil, wrapDBError(err, "scanning receipt")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating receipts")
	}
	return entries, nil
}

func (r *receiptRepository) FindByKey(siteID int64, requestNumber string, materialID int64, requestLineID string) (*models.ReceiptEntry, error) {
	var e models.ReceiptEntry
	query := receiptJoined + `
	WHERE r.site_id = $1 AND r.request_number = $2 AND r.material_id = $3 AND r.request_line_id = $4`
	err := scanReceipt(r.db.QueryRow(query, siteID, requestNumber, materialID, requestLineID), &e, true)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "finding receipt by key")
	}
	return &e, nil
}

func (r *receiptRepository) Upsert(exec SQLExecutor, entry *models.ReceiptEntry) (bool, error) {
	query := `INSERT INTO receipt_ledger
	          (site_id, material_id, request_number, request_line_id,
	           request_date, requested_quantity, received_quantity,
	           purchase_order_number, purchase_order_date, supplier_name,
	           expected_date, invoice_number, invoice_date)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          ON CONFLICT (site_id, request_number, material_id, request_line_id)
	          DO UPDATE SET
	              request_date = EXCLUDED.request_date,
	              requested_quantity = EXCLUDED.requested_quantity,
	              received_quantity = EXCLUDED.received_quantity,
	              purchase_order_number = EXCLUDED.purchase_order_number,
	              purchase_order_date = EXCLUDED.purchase_order_date,
	              supplier_name = EXCLUDED.supplier_name,
	              expected_date = EXCLUDED.expected_date,
	              invoice_number = EXCLUDED.invoice_number,
	              invoice_date = EXCLUDED.invoice_date,
	              updated_at = NOW()
	          RETURNING id, (xmax = 0)`
	var created bool
	err := exec.QueryRow(query,
		entry.SiteID, entry.MaterialID, entry.RequestNumber, entry.RequestLineID,
		entry.RequestDate, entry.RequestedQuantity, entry.ReceivedQuantity,
		entry.PurchaseOrderNumber, entry.PurchaseOrderDate, entry.SupplierName,
		entry.ExpectedDate, entry.InvoiceNumber, entry.InvoiceDate,
	).Scan(&entry.ID, &created)
	if err != nil {
		return false, wrapDBError(err, "upserting receipt")
	}
	return created, nil
}

func (r *receiptRepository) UpdateReceivedGuarded(exec SQLExecutor, id int64, newReceived decimal.Decimal) (bool, error) {
	query := `UPDATE receipt_ledger
	          SET received_quantity = $2, updated_at = NOW()
	          WHERE id = $1
	            AND $2 >= (SELECT COALESCE(SUM(allocated_quantity), 0)
	                       FROM allocations WHERE receipt_id = $1)`
	result, err := exec.Exec(query, id, newReceived)
	if err != nil {
		return false, wrapDBError(err, "updating received quantity")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, wrapDBError(err, "checking received quantity update")
	}
	return affected > 0, nil
}

func (r *receiptRepository) LockLinesForKey(tx SQLExecutor, siteID int64, requestNumber string, materialID int64) ([]models.ReceiptEntry, error) {
	query := `SELECT ` + receiptColumns + `
	          FROM receipt_ledger r
	          WHERE r.site_id = $1 AND r.request_number = $2 AND r.material_id = $3
	          ORDER BY r.id
	          FOR UPDATE`
	rows, err := tx.Query(query, siteID, requestNumber, materialID)
	if err != nil {
		return nil, wrapDBError(err, "locking receipt lines")
	}
	defer rows.Close()

	entries := []models.ReceiptEntry{}
	for rows.Next() {
		var e models.ReceiptEntry
		if err := scanReceipt(rows, &e, false); err != nil {
			return nil, wrapDBError(err, "scanning locked receipt line")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating locked receipt lines")
	}
	return entries, nil
}
