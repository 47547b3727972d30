package models

// Site and SiteLocation are read-only reference data. They are owned by the
// project-registry module; this service only validates against them.

type Site struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	ExternalCode string `json:"external_code"`
	Active       bool   `json:"active"`
}

// SiteLocation is a sub-area of a site (block, lobby, tower...) to which
// material is physically allocated.
type SiteLocation struct {
	ID     int64  `json:"id"`
	SiteID int64  `json:"site_id"`
	Name   string `json:"name"`
}
