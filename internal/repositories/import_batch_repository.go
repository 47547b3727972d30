package repositories

import (
	"database/sql"

	"supply_map_backend/internal/models"
)

// ImportBatchRepository tracks processed uploads for idempotency.
type ImportBatchRepository interface {
	FindBySiteAndHash(siteID int64, contentHash string) (*models.ImportBatch, error)
	Create(batch *models.ImportBatch) (int64, error)
	ListBySite(siteID int64, limit int) ([]models.ImportBatch, error)
}

type importBatchRepository struct {
	db *sql.DB
}

// NewImportBatchRepository creates a new instance of ImportBatchRepository.
func NewImportBatchRepository(db *sql.DB) ImportBatchRepository {
	return &importBatchRepository{db: db}
}

func (r *importBatchRepository) FindBySiteAndHash(siteID int64, contentHash string) (*models.ImportBatch, error) {
	var b models.ImportBatch
	err := r.db.QueryRow(
		`SELECT id, site_id, content_hash, file_name, created_by, created_at
		 FROM import_batches WHERE site_id = $1 AND content_hash = $2`,
		siteID, contentHash,
	).Scan(&b.ID, &b.SiteID, &b.ContentHash, &b.FileName, &b.CreatedBy, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "finding import batch by hash")
	}
	return &b, nil
}

func (r *importBatchRepository) Create(batch *models.ImportBatch) (int64, error) {
	err := r.db.QueryRow(
		`INSERT INTO import_batches (site_id, content_hash, file_name, created_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		batch.SiteID, batch.ContentHash, batch.FileName, batch.CreatedBy,
	).Scan(&batch.ID, &batch.CreatedAt)
	if err != nil {
		return 0, wrapDBError(err, "creating import batch")
	}
	return batch.ID, nil
}

func (r *importBatchRepository) ListBySite(siteID int64, limit int) ([]models.ImportBatch, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(
		`SELECT id, site_id, content_hash, file_name, created_by, created_at
		 FROM import_batches WHERE site_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		siteID, limit)
	if err != nil {
		return nil, wrapDBError(err, "listing import batches")
	}
	defer rows.Close()

	batches := []models.ImportBatch{}
	for rows.Next() {
		var b models.ImportBatch
		if err := rows.Scan(&b.ID, &b.SiteID, &b.ContentHash, &b.FileName, &b.CreatedBy, &b.CreatedAt); err != nil {
			return nil, wrapDBError(err, "scanning import batch")
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating import batches")
	}
	return batches, nil
}
