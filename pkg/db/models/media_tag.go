package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaTag groups variants that should share a media set. One tag per variant.
type MediaTag struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	VariantID string         `gorm:"column:variant_id;not null" json:"variant_id"`
	ProductID string         `gorm:"column:product_id;not null" json:"product_id"`
	Value     int            `gorm:"column:value;not null" json:"value"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MediaTag) TableName() string { return "media_tags" }

func (m *MediaTag) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
