package optionconfigs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type configsRepository interface {
	FindByOptionIDs(ctx context.Context, optionIDs []string) ([]models.OptionConfig, error)
	Replace(ctx context.Context, cfg *models.OptionConfig) (*models.OptionConfig, error)
	SoftDelete(ctx context.Context, optionID string) error
}

// Service manages how product options render on the storefront.
type Service interface {
	ListByOptions(ctx context.Context, optionIDs []string) ([]models.OptionConfig, error)
	Upsert(ctx context.Context, input UpsertInput) (*models.OptionConfig, error)
	Delete(ctx context.Context, optionID string) error
}

type UpsertInput struct {
	OptionID        string             `json:"option_id" validate:"required"`
	DisplayType     string             `json:"display_type" validate:"required"`
	IsSelected      bool               `json:"is_selected"`
	IsPrimaryOption bool               `json:"is_primary_option"`
	Values          []OptionValueInput `json:"values" validate:"dive"`
}

type OptionValueInput struct {
	Value    string         `json:"value" validate:"required"`
	Color    *string        `json:"color"`
	Metadata map[string]any `json:"metadata"`
	Image    *ImageInput    `json:"image"`
}

type ImageInput struct {
	FileID   string `json:"file_id" validate:"required"`
	URL      string `json:"url" validate:"required,url"`
	MimeType string `json:"mime_type" validate:"required"`
}

type service struct {
	repo configsRepository
}

func NewService(repo configsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("option config repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByOptions(ctx context.Context, optionIDs []string) ([]models.OptionConfig, error) {
	ids := types.UniqueIDs(optionIDs)
	if len(ids) == 0 {
		return []models.OptionConfig{}, nil
	}
	rows, err := s.repo.FindByOptionIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list option configs")
	}
	return rows, nil
}

func (s *service) Upsert(ctx context.Context, input UpsertInput) (*models.OptionConfig, error) {
	cfg, err := buildConfig(input)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Replace(ctx, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save option config")
	}
	return saved, nil
}

func (s *service) Delete(ctx context.Context, optionID string) error {
	optionID = strings.TrimSpace(optionID)
	if optionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "option_id is required")
	}
	if err := s.repo.SoftDelete(ctx, optionID); err != nil {
		return pkgerrors.FromRecordLookup(err, gorm.ErrRecordNotFound, "option config")
	}
	return nil
}

func buildConfig(input UpsertInput) (*models.OptionConfig, error) {
	optionID := strings.TrimSpace(input.OptionID)
	if optionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "option_id is required")
	}
	displayType, err := enums.ParseDisplayType(input.DisplayType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid display_type")
	}

	cfg := &models.OptionConfig{
		OptionID:        optionID,
		DisplayType:     displayType,
		IsSelected:      input.IsSelected,
		IsPrimaryOption: input.IsPrimaryOption,
	}
	for i, v := range input.Values {
		value := strings.TrimSpace(v.Value)
		if value == "" {
			return nil, valueError(i, "value is required")
		}

		var color *string
		if v.Color != nil {
			if trimmed := strings.TrimSpace(*v.Color); trimmed != "" {
				color = &trimmed
			}
		}
		if displayType == enums.DisplayTypeColors && color == nil {
			return nil, valueError(i, "colors display requires a color on every value")
		}
		if displayType == enums.DisplayTypeImages && v.Image == nil {
			return nil, valueError(i, "images display requires an image on every value")
		}

		row := models.OptionValue{Value: value, Color: color, Position: i}
		if v.Metadata != nil {
			raw, err := json.Marshal(v.Metadata)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid value metadata")
			}
			row.Metadata = datatypes.JSON(raw)
		}
		if v.Image != nil {
			if strings.TrimSpace(v.Image.FileID) == "" || strings.TrimSpace(v.Image.URL) == "" {
				return nil, valueError(i, "image requires file_id and url")
			}
			row.Image = &models.OptionImage{
				FileID:   strings.TrimSpace(v.Image.FileID),
				URL:      strings.TrimSpace(v.Image.URL),
				MimeType: strings.TrimSpace(v.Image.MimeType),
			}
		}
		cfg.Values = append(cfg.Values, row)
	}
	return cfg, nil
}

func valueError(index int, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"value_index": index})
}
