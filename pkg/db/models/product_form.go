package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ProductForm is the personalization form attached to a product.
type ProductForm struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID string             `gorm:"column:product_id;not null" json:"product_id"`
	Title     *string            `gorm:"column:title" json:"title,omitempty"`
	Fields    []ProductFormField `gorm:"foreignKey:FormID" json:"fields"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt     `gorm:"column:deleted_at;index" json:"-"`
}

func (ProductForm) TableName() string { return "product_forms" }

func (m *ProductForm) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// ProductFormField is one input of a ProductForm. Validation holds
// {"max_file_size": bytes, "image_ratios": ["1:1", ...]} for image fields.
type ProductFormField struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FormID      uuid.UUID       `gorm:"column:form_id;type:uuid;not null" json:"form_id"`
	Label       string          `gorm:"column:label;not null" json:"label"`
	Description *string         `gorm:"column:description" json:"description,omitempty"`
	InputType   enums.InputType `gorm:"column:input_type;type:varchar(16);not null" json:"input_type"`
	Required    bool            `gorm:"column:required;not null;default:false" json:"required"`
	Options     datatypes.JSON  `gorm:"column:options" json:"options,omitempty"`
	Validation  datatypes.JSON  `gorm:"column:validation" json:"validation,omitempty"`
	Position    int             `gorm:"column:position;not null;default:0" json:"position"`
	Image       *FieldImage     `gorm:"foreignKey:FieldID" json:"image,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index" json:"-"`
}

func (ProductFormField) TableName() string { return "product_form_fields" }

func (m *ProductFormField) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// FieldImage is the example image shown next to a form field.
type FieldImage struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FieldID   uuid.UUID      `gorm:"column:field_id;type:uuid;not null" json:"field_id"`
	FileID    string         `gorm:"column:file_id;not null" json:"file_id"`
	URL       string         `gorm:"column:url;not null" json:"url"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

func (FieldImage) TableName() string { return "product_form_field_images" }

func (m *FieldImage) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
