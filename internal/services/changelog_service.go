package services

import (
	"database/sql"

	"github.com/rs/zerolog/log"

	"supply_map_backend/internal/models"
	"supply_map_backend/internal/repositories"
)

// ChangeLogService writes and reads the audit trail. Record is best-effort:
// a failed audit write is logged and swallowed, never failing the business
// operation. The one exception is the allocation service, which writes its
// entries through the repository inside its own transaction.
type ChangeLogService interface {
	Record(entry *models.ChangeLogEntry)
	List(filters repositories.ChangeLogFilters) ([]models.ChangeLogEntry, int, error)
}

type changeLogService struct {
	changeLogRepo repositories.ChangeLogRepository
	db            *sql.DB
}

// NewChangeLogService creates a new instance of ChangeLogService.
func NewChangeLogService(clr repositories.ChangeLogRepository, db *sql.DB) ChangeLogService {
	return &changeLogService{changeLogRepo: clr, db: db}
}

func (s *changeLogService) Record(entry *models.ChangeLogEntry) {
	if _, err := s.changeLogRepo.Create(s.db, entry); err != nil {
		log.Warn().
			Err(err).
			Int64("site_id", entry.SiteID).
			Str("change_type", entry.ChangeType).
			Str("description", entry.Description).
			Msg("Failed to write change log entry")
	}
}

func (s *changeLogService) List(filters repositories.ChangeLogFilters) ([]models.ChangeLogEntry, int, error) {
	return s.changeLogRepo.List(filters)
}
