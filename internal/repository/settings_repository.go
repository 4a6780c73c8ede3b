package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clothes-shop/internal/domain"
)

// SettingsRepository reads and writes the single admin settings record
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.AdminSettings, error)
	Update(ctx context.Context, settings *domain.AdminSettings) error
}

type settingsRepository struct {
	db DBTX
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db DBTX) SettingsRepository {
	return &settingsRepository{db: db}
}

// Get returns the settings row. A missing row reads as the unlocked default.
func (r *settingsRepository) Get(ctx context.Context) (*domain.AdminSettings, error) {
	query := `SELECT edit_locked, updated_by, updated_at FROM admin_settings WHERE id = 1`

	settings := &domain.AdminSettings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&settings.EditLocked,
		&settings.UpdatedBy,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.AdminSettings{}, nil
		}
		return nil, fmt.Errorf("failed to load admin settings: %w", err)
	}

	return settings, nil
}

// Update writes the settings row, creating it if absent
func (r *settingsRepository) Update(ctx context.Context, settings *domain.AdminSettings) error {
	query := `
		INSERT INTO admin_settings (id, edit_locked, updated_by, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET edit_locked = EXCLUDED.edit_locked,
		    updated_by = EXCLUDED.updated_by,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query, settings.EditLocked, settings.UpdatedBy, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update admin settings: %w", err)
	}

	return nil
}
