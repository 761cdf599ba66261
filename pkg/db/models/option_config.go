package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OptionConfig describes how a product option is presented on the storefront.
type OptionConfig struct {
	ID              uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OptionID        string            `gorm:"column:option_id;not null" json:"option_id"`
	DisplayType     enums.DisplayType `gorm:"column:display_type;type:varchar(16);not null" json:"display_type"`
	IsSelected      bool              `gorm:"column:is_selected;not null;default:false" json:"is_selected"`
	IsPrimaryOption bool              `gorm:"column:is_primary_option;not null;default:false" json:"is_primary_option"`
	Values          []OptionValue     `gorm:"foreignKey:ConfigID" json:"values"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt    `gorm:"column:deleted_at;index" json:"-"`
}

func (OptionConfig) TableName() string { return "option_configs" }

func (m *OptionConfig) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// OptionValue is the presentation of a single option value (swatch color or image).
type OptionValue struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ConfigID  uuid.UUID      `gorm:"column:config_id;type:uuid;not null" json:"config_id"`
	Value     string         `gorm:"column:value;not null" json:"value"`
	Color     *string        `gorm:"column:color" json:"color,omitempty"`
	Metadata  datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	Position  int            `gorm:"column:position;not null;default:0" json:"position"`
	Image     *OptionImage   `gorm:"foreignKey:ValueID" json:"image,omitempty"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (OptionValue) TableName() string { return "option_values" }

func (m *OptionValue) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

type OptionImage struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ValueID   uuid.UUID      `gorm:"column:value_id;type:uuid;not null" json:"value_id"`
	FileID    string         `gorm:"column:file_id;not null" json:"file_id"`
	URL       string         `gorm:"column:url;not null" json:"url"`
	MimeType  string         `gorm:"column:mime_type;not null" json:"mime_type"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (OptionImage) TableName() string { return "option_images" }

func (m *OptionImage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
