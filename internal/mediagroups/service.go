package mediagroups

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type groupsRepository interface {
	Create(ctx context.Context, group *models.MediaGroup) (*models.MediaGroup, error)
	FindByProductAndTags(ctx context.Context, pairs []ProductTag) ([]models.MediaGroup, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type tagsRepository interface {
	FindByVariantIDs(ctx context.Context, variantIDs []string) ([]models.MediaTag, error)
}

// Service resolves variant media through media tags and manages groups.
type Service interface {
	VariantMedias(ctx context.Context, variantIDs []string) ([]VariantMedias, error)
	TrimmedVariantMedias(ctx context.Context, variantIDs []string) ([]VariantMedias, error)
	CreateGroup(ctx context.Context, input CreateGroupInput) (*models.MediaGroup, error)
	DeleteGroup(ctx context.Context, id uuid.UUID) error
}

// VariantMedias is the media set resolved for one variant.
type VariantMedias struct {
	VariantID string             `json:"variant_id"`
	MediaTag  *int               `json:"media_tag"`
	Medias    []models.MediaItem `json:"medias"`
}

type CreateGroupInput struct {
	ProductID string           `json:"product_id" validate:"required"`
	MediaTag  int              `json:"media_tag" validate:"required,min=1"`
	Medias    []MediaItemInput `json:"medias" validate:"required,min=1,dive"`
}

type MediaItemInput struct {
	FileID      string  `json:"file_id" validate:"required"`
	Name        *string `json:"name"`
	Size        int64   `json:"size" validate:"min=0"`
	MimeType    string  `json:"mime_type" validate:"required"`
	IsThumbnail bool    `json:"is_thumbnail"`
	URL         string  `json:"url" validate:"required,url"`
}

type service struct {
	groups groupsRepository
	tags   tagsRepository
}

func NewService(groups groupsRepository, tags tagsRepository) (Service, error) {
	if groups == nil {
		return nil, fmt.Errorf("media group repository required")
	}
	if tags == nil {
		return nil, fmt.Errorf("media tag repository required")
	}
	return &service{groups: groups, tags: tags}, nil
}

func (s *service) VariantMedias(ctx context.Context, variantIDs []string) ([]VariantMedias, error) {
	ids := types.UniqueIDs(variantIDs)
	result := make([]VariantMedias, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	tags, err := s.tags.FindByVariantIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media tags")
	}
	tagByVariant := make(map[string]models.MediaTag, len(tags))
	pairs := make([]ProductTag, 0, len(tags))
	seenPair := map[ProductTag]struct{}{}
	for _, tag := range tags {
		tagByVariant[tag.VariantID] = tag
		pair := ProductTag{ProductID: tag.ProductID, Tag: tag.Value}
		if _, ok := seenPair[pair]; ok {
			continue
		}
		seenPair[pair] = struct{}{}
		pairs = append(pairs, pair)
	}

	groups, err := s.groups.FindByProductAndTags(ctx, pairs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media groups")
	}
	groupByPair := make(map[ProductTag]models.MediaGroup, len(groups))
	for _, g := range groups {
		pair := ProductTag{ProductID: g.ProductID, Tag: g.MediaTag}
		if _, ok := groupByPair[pair]; !ok {
			groupByPair[pair] = g
		}
	}

	for _, id := range ids {
		entry := VariantMedias{VariantID: id, Medias: []models.MediaItem{}}
		if tag, ok := tagByVariant[id]; ok {
			value := tag.Value
			entry.MediaTag = &value
			if g, ok := groupByPair[ProductTag{ProductID: tag.ProductID, Tag: tag.Value}]; ok && g.Items != nil {
				entry.Medias = g.Items
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *service) TrimmedVariantMedias(ctx context.Context, variantIDs []string) ([]VariantMedias, error) {
	full, err := s.VariantMedias(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	for i := range full {
		full[i].Medias = trimToThumbnail(full[i].Medias)
	}
	return full, nil
}

// trimToThumbnail keeps the thumbnail item, or the first item when none is flagged.
func trimToThumbnail(items []models.MediaItem) []models.MediaItem {
	if len(items) == 0 {
		return []models.MediaItem{}
	}
	for _, item := range items {
		if item.IsThumbnail {
			return []models.MediaItem{item}
		}
	}
	return []models.MediaItem{items[0]}
}

func (s *service) CreateGroup(ctx context.Context, input CreateGroupInput) (*models.MediaGroup, error) {
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if input.MediaTag < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "media_tag must be a positive integer")
	}
	if len(input.Medias) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one media item is required")
	}

	existing, err := s.groups.FindByProductAndTags(ctx, []ProductTag{{ProductID: productID, Tag: input.MediaTag}})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load media groups")
	}
	if len(existing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "media group already exists for product and tag")
	}

	group := &models.MediaGroup{ProductID: productID, MediaTag: input.MediaTag}
	seenFiles := map[string]struct{}{}
	thumbnails := 0
	for i, m := range input.Medias {
		fileID := strings.TrimSpace(m.FileID)
		if fileID == "" || strings.TrimSpace(m.URL) == "" || strings.TrimSpace(m.MimeType) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "media items require file_id, url and mime_type").
				WithDetails(map[string]any{"index": i})
		}
		if _, dup := seenFiles[fileID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate file_id in media items").
				WithDetails(map[string]any{"file_id": fileID})
		}
		seenFiles[fileID] = struct{}{}
		if m.IsThumbnail {
			thumbnails++
		}
		group.Items = append(group.Items, models.MediaItem{
			FileID:      fileID,
			Name:        m.Name,
			Size:        m.Size,
			MimeType:    strings.TrimSpace(m.MimeType),
			IsThumbnail: m.IsThumbnail,
			URL:         strings.TrimSpace(m.URL),
			Position:    i,
		})
	}
	if thumbnails > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only one media item may be the thumbnail")
	}

	created, err := s.groups.Create(ctx, group)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "media file already belongs to a group")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create media group")
	}
	return created, nil
}

func (s *service) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "group id is required")
	}
	if err := s.groups.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "media group not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete media group")
	}
	return nil
}
