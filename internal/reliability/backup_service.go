package reliability

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aristath/bagz/internal/database"
	"github.com/rs/zerolog"
)

// BackupService takes consistent point-in-time copies of open databases
type BackupService struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewBackupService creates a backup service over the named databases
func NewBackupService(databases map[string]*database.DB, log zerolog.Logger) *BackupService {
	return &BackupService{
		databases: databases,
		log:       log.With().Str("service", "backup").Logger(),
	}
}

// GetDatabaseNames returns the database names to back up, sorted.
// client_data only holds cached provider responses and is skipped unless asked for.
func (s *BackupService) GetDatabaseNames(includeClientData bool) []string {
	names := make([]string, 0, len(s.databases))
	for name := range s.databases {
		if name == "client_data" && !includeClientData {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackupDatabase writes a snapshot of the named database to destPath.
// An existing file at destPath is replaced.
func (s *BackupService) BackupDatabase(name, destPath string) error {
	db, ok := s.databases[name]
	if !ok {
		return fmt.Errorf("unknown database: %s", name)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove previous backup: %w", err)
	}

	// Consistent copy of the live database
	if _, err := db.Conn().Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("failed to snapshot %s: %w", name, err)
	}

	s.log.Debug().Str("database", name).Str("path", destPath).Msg("Database snapshot written")
	return nil
}
