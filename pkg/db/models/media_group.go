package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MediaGroup is the media set shared by every variant of a product carrying MediaTag.
type MediaGroup struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UUID      string         `gorm:"column:uuid;not null" json:"uuid"`
	ProductID string         `gorm:"column:product_id;not null" json:"product_id"`
	MediaTag  int            `gorm:"column:media_tag;not null" json:"media_tag"`
	Items     []MediaItem    `gorm:"foreignKey:GroupID" json:"medias"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MediaGroup) TableName() string { return "media_groups" }

func (m *MediaGroup) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	return nil
}

// MediaItem is one uploaded file inside a MediaGroup.
type MediaItem struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	GroupID     uuid.UUID      `gorm:"column:group_id;type:uuid;not null" json:"group_id"`
	FileID      string         `gorm:"column:file_id;not null" json:"file_id"`
	Name        *string        `gorm:"column:name" json:"name,omitempty"`
	Size        int64          `gorm:"column:size;not null" json:"size"`
	MimeType    string         `gorm:"column:mime_type;not null" json:"mime_type"`
	IsThumbnail bool           `gorm:"column:is_thumbnail;not null;default:false" json:"is_thumbnail"`
	URL         string         `gorm:"column:url;not null" json:"url"`
	Position    int            `gorm:"column:position;not null;default:0" json:"position"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (MediaItem) TableName() string { return "media_items" }

func (m *MediaItem) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
