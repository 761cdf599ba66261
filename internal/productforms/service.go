package productforms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type formsRepository interface {
	FindByProductIDs(ctx context.Context, productIDs []string) ([]models.ProductForm, error)
	FindFieldByID(ctx context.Context, id uuid.UUID) (*models.ProductFormField, error)
	Replace(ctx context.Context, form *models.ProductForm) (*models.ProductForm, error)
	SoftDelete(ctx context.Context, productID string) error
}

// Service manages product personalization forms.
type Service interface {
	ListByProducts(ctx context.Context, productIDs []string) ([]models.ProductForm, error)
	Upsert(ctx context.Context, input UpsertInput) (*models.ProductForm, error)
	Delete(ctx context.Context, productID string) error
	ValidateUpload(ctx context.Context, fieldID uuid.UUID, upload Upload) (*models.ProductFormField, error)
}

// Upload is a customer file submitted against a form field.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

type UpsertInput struct {
	ProductID string       `json:"product_id" validate:"required"`
	Title     *string      `json:"title"`
	Fields    []FieldInput `json:"fields" validate:"dive"`
}

type FieldInput struct {
	Label       string           `json:"label" validate:"required"`
	Description *string          `json:"description"`
	InputType   string           `json:"input_type" validate:"required"`
	Required    bool             `json:"required"`
	Options     []string         `json:"options"`
	Validation  *FieldValidation `json:"validation"`
	Image       *ImageInput      `json:"image"`
}

type ImageInput struct {
	FileID string `json:"file_id" validate:"required"`
	URL    string `json:"url" validate:"required,url"`
}

type service struct {
	repo formsRepository
}

func NewService(repo formsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product form repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByProducts(ctx context.Context, productIDs []string) ([]models.ProductForm, error) {
	ids := types.UniqueIDs(productIDs)
	if len(ids) == 0 {
		return []models.ProductForm{}, nil
	}
	rows, err := s.repo.FindByProductIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list product forms")
	}
	return rows, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.ProductForm, error) {
	form, err := buildForm(input)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Replace(ctx, form)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save product form")
	}
	return saved, nil
}

func (s *service) Delete(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if err := s.repo.SoftDelete(ctx, productID); err != nil {
		return pkgerrors.FromRecordLookup(err, gorm.ErrRecordNotFound, "product form")
	}
	return nil
}

func (s *service) ValidateUpload(ctx context.Context, fieldID uuid.UUID, upload Upload) (*models.ProductFormField, error) {
	if fieldID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "field id is required")
	}
	field, err := s.repo.FindFieldByID(ctx, fieldID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "form field not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load form field")
	}
	if field.InputType != enums.InputTypeImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "form field does not accept uploads")
	}
	if err := checkUpload(field, upload); err != nil {
		return nil, err
	}
	return field, nil
}

func buildForm(input UpsertInput) (*models.ProductForm, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	form := &models.ProductForm{ProductID: productID, Title: input.Title}
	for i, f := range input.Fields {
		label := strings.TrimSpace(f.Label)
		if label == "" {
			return nil, fieldError(i, "label is required")
		}
		inputType, err := enums.ParseInputType(f.InputType)
		if err != nil {
			return nil, fieldError(i, "invalid input_type")
		}

		field := models.ProductFormField{
			Label:       label,
			Description: f.Description,
			InputType:   inputType,
			Required:    f.Required,
			Position:    i,
		}

		if inputType == enums.InputTypeDropdown {
			options := compact(f.Options)
			if len(options) == 0 {
				return nil, fieldError(i, "dropdown fields require options")
			}
			raw, err := json.Marshal(options)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode field options")
			}
			field.Options = datatypes.JSON(raw)
		}

		if f.Validation != nil && !f.Validation.isZero() {
			if inputType != enums.InputTypeImages {
				return nil, fieldError(i, "validation rules only apply to images fields")
			}
			if f.Validation.MaxFileSize < 0 {
				return nil, fieldError(i, "max_file_size must not be negative")
			}
			for _, r := range f.Validation.ImageRatios {
				if _, err := parseRatio(r); err != nil {
					return nil, fieldError(i, err.Error())
				}
			}
			raw, err := json.Marshal(f.Validation)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode field validation")
			}
			field.Validation = datatypes.JSON(raw)
		}

		if f.Image != nil {
			if strings.TrimSpace(f.Image.FileID) == "" || strings.TrimSpace(f.Image.URL) == "" {
				return nil, fieldError(i, "image requires file_id and url")
			}
			field.Image = &models.FieldImage{
				FileID: strings.TrimSpace(f.Image.FileID),
				URL:    strings.TrimSpace(f.Image.URL),
			}
		}
		form.Fields = append(form.Fields, field)
	}
	return form, nil
}

func fieldError(index int, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"field_index": index})
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
