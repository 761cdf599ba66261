package productforms

import (
	"context"
	"errors"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes product form persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func preloadFields(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC").Order("created_at ASC")
		}).
		Preload("Fields.Image")
}

func (r *Repository) FindByProductIDs(ctx context.Context, productIDs []string) ([]models.ProductForm, error) {
	if len(productIDs) == 0 {
		return []models.ProductForm{}, nil
	}
	var rows []models.ProductForm
	err := preloadFields(r.db.WithContext(ctx)).
		Where("product_id IN ?", productIDs).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) FindFieldByID(ctx context.Context, id uuid.UUID) (*models.ProductFormField, error) {
	var field models.ProductFormField
	if err := r.db.WithContext(ctx).First(&field, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &field, nil
}

// Replace stores form as the form of its product, replacing existing fields.
func (r *Repository) Replace(ctx context.Context, form *models.ProductForm) (*models.ProductForm, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ProductForm
		err := tx.Where("product_id = ?", form.ProductID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(form).Error
		case err != nil:
			return err
		}

		if err := deleteFields(tx, existing.ID); err != nil {
			return err
		}

		fields := form.Fields
		form.Fields = nil
		form.ID = existing.ID
		form.CreatedAt = existing.CreatedAt
		if err := tx.Omit("Fields").Save(form).Error; err != nil {
			return err
		}
		for i := range fields {
			fields[i].FormID = form.ID
		}
		if len(fields) > 0 {
			if err := tx.Create(&fields).Error; err != nil {
				return err
			}
		}
		form.Fields = fields
		return nil
	})
	if err != nil {
		return nil, err
	}
	return form, nil
}

// SoftDelete removes the form of a product with its fields and field images.
func (r *Repository) SoftDelete(ctx context.Context, productID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ProductForm
		if err := tx.Where("product_id = ?", productID).First(&existing).Error; err != nil {
			return err
		}
		if err := deleteFields(tx, existing.ID); err != nil {
			return err
		}
		return tx.Delete(&existing).Error
	})
}

func deleteFields(tx *gorm.DB, formID uuid.UUID) error {
	fieldIDs := tx.Model(&models.ProductFormField{}).Select("id").Where("form_id = ?", formID)
	if err := tx.Where("field_id IN (?)", fieldIDs).Delete(&models.FieldImage{}).Error; err != nil {
		return err
	}
	return tx.Where("form_id = ?", formID).Delete(&models.ProductFormField{}).Error
}
