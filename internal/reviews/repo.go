package reviews

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MissingReviewsError lists review ids that did not resolve to live rows.
type MissingReviewsError struct {
	IDs []uuid.UUID
}

func (e *MissingReviewsError) Error() string {
	return fmt.Sprintf("%d review(s) not found", len(e.IDs))
}

// Repository exposes product review persistence operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the review with its images.
func (r *Repository) Create(ctx context.Context, review *models.ProductReview) (*models.ProductReview, error) {
	if err := r.db.WithContext(ctx).Create(review).Error; err != nil {
		return nil, err
	}
	return review, nil
}

func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.ProductReview, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductReview{}).Preload("Images")
	if opts.productID != "" {
		query = query.Where("product_id = ?", opts.productID)
	}
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.ProductReview
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// RatingSummary returns the average rating and count of approved reviews.
func (r *Repository) RatingSummary(ctx context.Context, productID string) (float64, int64, error) {
	var summary struct {
		Average *float64
		Total   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ProductReview{}).
		Select("AVG(rating) AS average, COUNT(*) AS total").
		Where("product_id = ? AND status = ?", productID, enums.ReviewStatusApproved).
		Scan(&summary).Error
	if err != nil {
		return 0, 0, err
	}
	if summary.Average == nil {
		return 0, summary.Total, nil
	}
	return *summary.Average, summary.Total, nil
}

// UpdateStatus sets status on every review in one transaction. Unknown ids
// abort the update with a MissingReviewsError.
func (r *Repository) UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.ReviewStatus) ([]models.ProductReview, error) {
	var updated []models.ProductReview
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.ProductReview
		if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return err
		}
		if missing := missingIDs(ids, rows); len(missing) > 0 {
			return &MissingReviewsError{IDs: missing}
		}
		if err := tx.Model(&models.ProductReview{}).Where("id IN ?", ids).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Preload("Images").Where("id IN ?", ids).Order("created_at ASC").Find(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SoftDelete removes a review and its images.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.ProductReview{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("review_id = ?", id).Delete(&models.ProductReviewImage{}).Error
	})
}

func missingIDs(want []uuid.UUID, rows []models.ProductReview) []uuid.UUID {
	found := make(map[uuid.UUID]struct{}, len(rows))
	for _, row := range rows {
		found[row.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range want {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
