package optionconfigs

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes option config persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func preloadValues(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Values", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Preload("Values.Image")
}

func (r *Repository) FindByOptionIDs(ctx context.Context, optionIDs []string) ([]models.OptionConfig, error) {
	if len(optionIDs) == 0 {
		return []models.OptionConfig{}, nil
	}
	var rows []models.OptionConfig
	err := preloadValues(r.db.WithContext(ctx)).
		Where("option_id IN ?", optionIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindByOptionID(ctx context.Context, optionID string) (*models.OptionConfig, error) {
	var cfg models.OptionConfig
	if err := preloadValues(r.db.WithContext(ctx)).Where("option_id = ?", optionID).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Replace stores cfg as the config of its option. An existing config keeps its
// id while its values and images are replaced.
func (r *Repository) Replace(ctx context.Context, cfg *models.OptionConfig) (*models.OptionConfig, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.OptionConfig
		err := tx.Where("option_id = ?", cfg.OptionID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(cfg).Error
		case err != nil:
			return err
		}

		if err := deleteValues(tx, existing.ID); err != nil {
			return err
		}

		values := cfg.Values
		cfg.Values = nil
		cfg.ID = existing.ID
		cfg.CreatedAt = existing.CreatedAt
		if err := tx.Omit("Values").Save(cfg).Error; err != nil {
			return err
		}
		for i := range values {
			values[i].ConfigID = cfg.ID
		}
		if len(values) > 0 {
			if err := tx.Create(&values).Error; err != nil {
				return err
			}
		}
		cfg.Values = values
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// SoftDelete removes the config of an option with its values and images.
func (r *Repository) SoftDelete(ctx context.Context, optionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.OptionConfig
		if err := tx.Where("option_id = ?", optionID).First(&existing).Error; err != nil {
			return err
		}
		if err := deleteValues(tx, existing.ID); err != nil {
			return err
		}
		return tx.Delete(&existing).Error
	})
}

// deleteValues soft deletes images before values so the subquery still sees them.
func deleteValues(tx *gorm.DB, configID uuid.UUID) error {
	valueIDs := tx.Model(&models.OptionValue{}).Select("id").Where("config_id = ?", configID)
	if err := tx.Where("value_id IN (?)", valueIDs).Delete(&models.OptionImage{}).Error; err != nil {
		return err
	}
	return tx.Where("config_id = ?", configID).Delete(&models.OptionValue{}).Error
}
