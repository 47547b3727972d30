package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"supply_map_backend/internal/models"
)

// ChangeLogFilters narrows audit-trail queries.
type ChangeLogFilters struct {
	SiteID        int64
	PlannedNeedID *int64
	ChangeType    *string
	Page          int
	PageSize      int
}

// ChangeLogRepository defines operations on the append-only audit trail.
// There is no update or delete; the table only grows.
type ChangeLogRepository interface {
	Create(exec SQLExecutor, entry *models.ChangeLogEntry) (int64, error)
	List(filters ChangeLogFilters) ([]models.ChangeLogEntry, int, error)
}

type changeLogRepository struct {
	db *sql.DB
}

// NewChangeLogRepository creates a new instance of ChangeLogRepository.
func NewChangeLogRepository(db *sql.DB) ChangeLogRepository {
	return &changeLogRepository{db: db}
}

func (r *changeLogRepository) Create(exec SQLExecutor, entry *models.ChangeLogEntry) (int64, error) {
	query := `INSERT INTO change_log
	          (site_id, planned_need_id, change_type, field_name, old_value, new_value, description, actor)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at`
	err := exec.QueryRow(query,
		entry.SiteID, entry.PlannedNeedID, entry.ChangeType,
		entry.FieldName, entry.OldValue, entry.NewValue,
		entry.Description, entry.Actor,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return 0, wrapDBError(err, "creating change log entry")
	}
	return entry.ID, nil
}

func (r *changeLogRepository) List(filters ChangeLogFilters) ([]models.ChangeLogEntry, int, error) {
	conditions := []string{"site_id = $1"}
	args := []interface{}{filters.SiteID}
	argCount := 2

	if filters.PlannedNeedID != nil {
		conditions = append(conditions, fmt.Sprintf("planned_need_id = $%d", argCount))
		args = append(args, *filters.PlannedNeedID)
		argCount++
	}
	if filters.ChangeType != nil {
		conditions = append(conditions, fmt.Sprintf("change_type = $%d", argCount))
		args = append(args, *filters.ChangeType)
		argCount++
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM change_log`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, wrapDBError(err, "counting change log entries")
	}

	query := `SELECT id, site_id, planned_need_id, change_type, field_name, old_value, new_value, description, actor, created_at
	          FROM change_log` + where + ` ORDER BY created_at DESC, id DESC`
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
		return nil, 0, wrapDBError(err, "listing change log entries")
	}
	defer rows.Close()

	entries := []models.ChangeLogEntry{}
	for rows.Next() {
		var e models.ChangeLogEntry
		err := rows.Scan(
			&e.ID, &e.SiteID, &e.PlannedNeedID, &e.ChangeType,
			&e.FieldName, &e.OldValue, &e.NewValue,
			&e.Description, &e.Actor, &e.CreatedAt,
		)
		if err != nil {
			return nil, 0, wrapDBError(err, "scanning change log entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapDBError(err, "iterating change log entries")
	}
	return entries, total, nil
}
