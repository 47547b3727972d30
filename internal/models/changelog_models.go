package models

import "time"

// Change types recorded in the audit trail.
const (
	ChangeTypeCreation   = "creation"
	ChangeTypeEdit       = "edit"
	ChangeTypeAllocation = "allocation"
	ChangeTypeStatus     = "status"
	ChangeTypeImport     = "import"
	ChangeTypeDeletion   = "deletion"
)

// ChangeLogEntry is a write-only audit record. Entries are never mutated or
// deleted; PlannedNeedID is kept nullable so entries survive the deletion of
// the row they describe.
type ChangeLogEntry struct {
	ID            int64     `json:"id"`
	SiteID        int64     `json:"site_id"`
	PlannedNeedID *int64    `json:"planned_need_id,omitempty"`
	ChangeType    string    `json:"change_type"`
	FieldName     string    `json:"field_name,omitempty"`
	OldValue      string    `json:"old_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
	Description   string    `json:"description"`
	Actor         string    `json:"actor"`
	CreatedAt     time.Time `json:"created_at"`
}

// ImportBatch records the content hash of every processed upload, per site,
// so byte-identical re-uploads can be skipped.
type ImportBatch struct {
	ID          int64     `json:"id"`
	SiteID      int64     `json:"site_id"`
	ContentHash string    `json:"content_hash"`
	FileName    string    `json:"file_name"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}
