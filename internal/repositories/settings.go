package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/qlink/internal/models"
	"github.com/desertthunder/qlink/internal/shared"
)

// SettingsRepository reads and writes the single settings row.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new SettingsRepository with the given database connection
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored [models.Settings].
func (r *SettingsRepository) Get() (*models.Settings, error) {
	var (
		reverse   bool
		updatedAt time.Time
	)

	err := r.db.QueryRow("SELECT reverse, updated_at FROM settings WHERE id = 1").Scan(&reverse, &updatedAt)
	if err == sql.ErrNoRows {
		return &models.Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read settings: %v", shared.ErrStore, err)
	}

	return &models.Settings{Reverse: reverse, UpdatedAt: updatedAt}, nil
}

// Save writes settings, creating the row if a rollback removed it.
func (r *SettingsRepository) Save(settings *models.Settings) error {
	now := time.Now()

	query := `
		INSERT INTO settings (id, reverse, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET reverse = excluded.reverse, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, settings.Reverse, now); err != nil {
		return fmt.Errorf("%w: failed to save settings: %v", shared.ErrStore, err)
	}

	settings.UpdatedAt = now
	return nil
}
