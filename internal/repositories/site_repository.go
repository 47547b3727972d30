package repositories

import (
	"database/sql"

	"supply_map_backend/internal/models"
)

// SiteRepository exposes the read-only site registry.
type SiteRepository interface {
	GetSiteByID(id int64) (*models.Site, error)
	GetLocationByID(id int64) (*models.SiteLocation, error)
	LocationBelongsToSite(locationID, siteID int64) (bool, error)
	ListSites(onlyActive bool) ([]models.Site, error)
	ListLocations(siteID int64) ([]models.SiteLocation, error)
}

type siteRepository struct {
	db *sql.DB
}

// NewSiteRepository creates a new instance of SiteRepository.
func NewSiteRepository(db *sql.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (r *siteRepository) GetSiteByID(id int64) (*models.Site, error) {
	var s models.Site
	err := r.db.QueryRow(
		`SELECT id, name, external_code, active FROM sites WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.ExternalCode, &s.Active)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting site by id")
	}
	return &s, nil
}

func (r *siteRepository) GetLocationByID(id int64) (*models.SiteLocation, error) {
	var l models.SiteLocation
	err := r.db.QueryRow(
		`SELECT id, site_id, name FROM site_locations WHERE id = $1`, id,
	).Scan(&l.ID, &l.SiteID, &l.Name)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapDBError(err, "getting site location by id")
	}
	return &l, nil
}

func (r *siteRepository) LocationBelongsToSite(locationID, siteID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM site_locations WHERE id = $1 AND site_id = $2)`,
		locationID, siteID,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBError(err, "checking location ownership")
	}
	return exists, nil
}

func (r *siteRepository) ListSites(onlyActive bool) ([]models.Site, error) {
	query := `SELECT id, name, external_code, active FROM sites`
	if onlyActive {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, wrapDBError(err, "listing sites")
	}
	defer rows.Close()

	sites := []models.Site{}
	for rows.Next() {
		var s models.Site
		if err := rows.Scan(&s.ID, &s.Name, &s.ExternalCode, &s.Active); err != nil {
			return nil, wrapDBError(err, "scanning site")
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating sites")
	}
	return sites, nil
}

func (r *siteRepository) ListLocations(siteID int64) ([]models.SiteLocation, error) {
	rows, err := r.db.Query(
		`SELECT id, site_id, name FROM site_locations WHERE site_id = $1 ORDER BY name`, siteID)
	if err != nil {
		return nil, wrapDBError(err, "listing site locations")
	}
	defer rows.Close()

	locations := []models.SiteLocation{}
	for rows.Next() {
		var l models.SiteLocation
		if err := rows.Scan(&l.ID, &l.SiteID, &l.Name); err != nil {
			return nil, wrapDBError(err, "scanning site location")
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError(err, "iterating site locations")
	}
	return locations, nil
}
