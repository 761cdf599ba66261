package reviews

import (
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgpagination "github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
)

// ListParams filters the admin review listing.
type ListParams struct {
	Status    string
	ProductID string
	pkgpagination.Params
}

type ListResult struct {
	Items  []ReviewItem `json:"items"`
	Cursor string       `json:"cursor"`
}

// ApprovedResult is the storefront view of a product's reviews.
type ApprovedResult struct {
	ProductID     string       `json:"product_id"`
	AverageRating float64      `json:"average_rating"`
	Count         int64        `json:"count"`
	Items         []ReviewItem `json:"items"`
	Cursor        string       `json:"cursor"`
}

type ReviewItem struct {
	ID           uuid.UUID          `json:"id"`
	ProductID    string             `json:"product_id"`
	CustomerID   string             `json:"customer_id"`
	CustomerName *string            `json:"customer_name,omitempty"`
	Rating       int                `json:"rating"`
	Title        *string            `json:"title,omitempty"`
	Content      string             `json:"content"`
	Status       enums.ReviewStatus `json:"status"`
	Images       []ReviewImage      `json:"images"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type ReviewImage struct {
	ID     uuid.UUID `json:"id"`
	FileID string    `json:"file_id"`
	URL    string    `json:"url"`
}

type listQuery struct {
	productID string
	status    *enums.ReviewStatus
	limit     int
	cursor    *pkgpagination.Cursor
}

func toReviewItem(m models.ProductReview) ReviewItem {
	images := make([]ReviewImage, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, ReviewImage{ID: img.ID, FileID: img.FileID, URL: img.URL})
	}
	return ReviewItem{
		ID:           m.ID,
		ProductID:    m.ProductID,
		CustomerID:   m.CustomerID,
		CustomerName: m.CustomerName,
		Rating:       m.Rating,
		Title:        m.Title,
		Content:      m.Content,
		Status:       m.Status,
		Images:       images,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toReviewItems(rows []models.ProductReview) []ReviewItem {
	items := make([]ReviewItem, len(rows))
	for i, row := range rows {
		items[i] = toReviewItem(row)
	}
	return items
}
