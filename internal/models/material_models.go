package models

import "time"

// Material is a catalog entry for a purchasable item. The catalog is imported
// from the external procurement system and maintained manually; ExternalCode
// is the reconciliation key and must never change once a receipt references it.
type Material struct {
	ID             int64     `json:"id"`
	ExternalCode   string    `json:"external_code"`
	Description    string    `json:"description"`
	UnitOfMeasure  string    `json:"unit_of_measure"`
	IsBulkCategory bool      `json:"is_bulk_category"`
	Active         bool      `json:"active"`
	Notes          string    `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
