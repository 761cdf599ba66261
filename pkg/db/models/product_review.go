package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

type ProductReview struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID    string               `gorm:"column:product_id;not null" json:"product_id"`
	CustomerID   string               `gorm:"column:customer_id;not null" json:"customer_id"`
	CustomerName *string              `gorm:"column:customer_name" json:"customer_name,omitempty"`
	Rating       int                  `gorm:"column:rating;not null" json:"rating"`
	Title        *string              `gorm:"column:title" json:"title,omitempty"`
	Content      string               `gorm:"column:content;not null" json:"content"`
	Status       enums.ReviewStatus   `gorm:"column:status;type:varchar(16);not null;default:pending" json:"status"`
	Images       []ProductReviewImage `gorm:"foreignKey:ReviewID" json:"images"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt       `gorm:"column:deleted_at;index" json:"-"`
}

func (ProductReview) TableName() string { return "product_reviews" }

func (m *ProductReview) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type ProductReviewImage struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ReviewID  uuid.UUID      `gorm:"column:review_id;type:uuid;not null" json:"review_id"`
	FileID    string         `gorm:"column:file_id;not null" json:"file_id"`
	URL       string         `gorm:"column:url;not null" json:"url"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (ProductReviewImage) TableName() string { return "product_review_images" }

func (m *ProductReviewImage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
