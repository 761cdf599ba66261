package mediatags

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"gorm.io/gorm"
)

type tagsRepository interface {
	FindByVariantIDs(ctx context.Context, variantIDs []string) ([]models.MediaTag, error)
	Upsert(ctx context.Context, variantID, productID string, value int) (*models.MediaTag, error)
	SoftDelete(ctx context.Context, variantID string) error
}

// Service manages the media tag assigned to each variant.
type Service interface {
	ListByVariants(ctx context.Context, variantIDs []string) ([]models.MediaTag, error)
	SetTag(ctx context.Context, input SetTagInput) (*models.MediaTag, error)
	Remove(ctx context.Context, variantID string) error
}

type SetTagInput struct {
	VariantID string `json:"variant_id" validate:"required"`
	ProductID string `json:"product_id" validate:"required"`
	Value     int    `json:"value" validate:"required,min=1"`
}

type service struct {
	repo tagsRepository
}

func NewService(repo tagsRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("media tag repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListByVariants(ctx context.Context, variantIDs []string) ([]models.MediaTag, error) {
	ids := types.UniqueIDs(variantIDs)
	if len(ids) == 0 {
		return []models.MediaTag{}, nil
	}
	rows, err := s.repo.FindByVariantIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list media tags")
	}
	return rows, nil
}

func (s *service) SetTag(ctx context.Context, input SetTagInput) (*models.MediaTag, error) {
	variantID := strings.TrimSpace(input.VariantID)
	productID := strings.TrimSpace(input.ProductID)
	if variantID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant_id is required")
	}
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.Value < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media tag value must be a positive integer")
	}

	tag, err := s.repo.Upsert(ctx, variantID, productID, input.Value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save media tag")
	}
	return tag, nil
}

func (s *service) Remove(ctx context.Context, variantID string) error {
	variantID = strings.TrimSpace(variantID)
	if variantID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant_id is required")
	}
	if err := s.repo.SoftDelete(ctx, variantID); err != nil {
		return pkgerrors.FromRecordLookup(err, gorm.ErrRecordNotFound, "media tag")
	}
	return nil
}
