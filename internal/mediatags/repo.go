package mediatags

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes media tag persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a media tag repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, tag *models.MediaTag) (*models.MediaTag, error) {
	if err := r.db.WithContext(ctx).Create(tag).Error; err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaTag, error) {
	var tag models.MediaTag
	if err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *Repository) FindByVariantID(ctx context.Context, variantID string) (*models.MediaTag, error) {
	var tag models.MediaTag
	if err := r.db.WithContext(ctx).Where("variant_id = ?", variantID).First(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// FindByVariantIDs returns the live tags for the given variants.
func (r *Repository) FindByVariantIDs(ctx context.Context, variantIDs []string) ([]models.MediaTag, error) {
	if len(variantIDs) == 0 {
		return []models.MediaTag{}, nil
	}
	var rows []models.MediaTag
	err := r.db.WithContext(ctx).
		Where("variant_id IN ?", variantIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Update(ctx context.Context, tag *models.MediaTag) error {
	return r.db.WithContext(ctx).Save(tag).Error
}

// SoftDelete marks the tag of a variant deleted. It returns gorm.ErrRecordNotFound
// when the variant has no live tag.
func (r *Repository) SoftDelete(ctx context.Context, variantID string) error {
	res := r.db.WithContext(ctx).Where("variant_id = ?", variantID).Delete(&models.MediaTag{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Upsert sets the tag value of a variant, creating the row when missing.
func (r *Repository) Upsert(ctx context.Context, variantID, productID string, value int) (*models.MediaTag, error) {
	var result *models.MediaTag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := r.WithTx(tx)
		existing, err := txRepo.FindByVariantID(ctx, variantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing == nil {
			created, err := txRepo.Create(ctx, &models.MediaTag{
				VariantID: variantID,
				ProductID: productID,
				Value:     value,
			})
			if err != nil {
				return err
			}
			result = created
			return nil
		}
		existing.ProductID = productID
		existing.Value = value
		if err := txRepo.Update(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
