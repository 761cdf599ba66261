package mediagroups

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductTag identifies the group shared by every variant of ProductID tagged Tag.
type ProductTag struct {
	ProductID string
	Tag       int
}

// Repository exposes media group persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func orderedItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("created_at ASC")
}

// Create inserts the group and its items in one transaction.
func (r *Repository) Create(ctx context.Context, group *models.MediaGroup) (*models.MediaGroup, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := group.Items
		group.Items = nil
		if err := tx.Create(group).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].GroupID = group.ID
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		group.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.MediaGroup, error) {
	var group models.MediaGroup
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		First(&group, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByProductAndTags loads the live groups matching any of the pairs.
func (r *Repository) FindByProductAndTags(ctx context.Context, pairs []ProductTag) ([]models.MediaGroup, error) {
	if len(pairs) == 0 {
		return []models.MediaGroup{}, nil
	}

	cond := r.db.WithContext(ctx)
	for i, p := range pairs {
		if i == 0 {
			cond = cond.Where("product_id = ? AND media_tag = ?", p.ProductID, p.Tag)
			continue
		}
		cond = cond.Or("product_id = ? AND media_tag = ?", p.ProductID, p.Tag)
	}

	var rows []models.MediaGroup
	err := r.db.WithContext(ctx).
		Preload("Items", orderedItems).
		Where(cond).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) Update(ctx context.Context, group *models.MediaGroup) error {
	return r.db.WithContext(ctx).Omit("Items").Save(group).Error
}

// SoftDelete removes the group and its items. Returns gorm.ErrRecordNotFound
// when the group does not exist.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.MediaGroup{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("group_id = ?", id).Delete(&models.MediaItem{}).Error
	})
}
