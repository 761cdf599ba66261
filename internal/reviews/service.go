package reviews

import (
	"context"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgpagination "github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"
)

const (
	minRating        = 1
	maxRating        = 5
	maxTitleLength   = 200
	maxContentLength = 5000
	maxReviewImages  = 5
)

type reviewsRepository interface {
	Create(ctx context.Context, review *models.ProductReview) (*models.ProductReview, error)
	List(ctx context.Context, opts listQuery) ([]models.ProductReview, error)
	RatingSummary(ctx context.Context, productID string) (float64, int64, error)
	UpdateStatus(ctx context.Context, ids []uuid.UUID, status enums.ReviewStatus) ([]models.ProductReview, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service handles review submission, storefront listing and moderation by admins.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*ReviewItem, error)
	ListApproved(ctx context.Context, productID string, params pkgpagination.Params) (*ApprovedResult, error)
	List(ctx context.Context, params ListParams) (*ListResult, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) ([]ReviewItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type SubmitInput struct {
	ProductID    string       `json:"product_id" validate:"required"`
	CustomerID   string       `json:"customer_id" validate:"required"`
	CustomerName *string      `json:"customer_name"`
	Rating       int          `json:"rating" validate:"required,min=1,max=5"`
	Title        *string      `json:"title"`
	Content      string       `json:"content" validate:"required"`
	Images       []ImageInput `json:"images" validate:"max=5,dive"`
}

type ImageInput struct {
	FileID string `json:"file_id" validate:"required"`
	URL    string `json:"url" validate:"required,url"`
}

type UpdateStatusInput struct {
	IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
	Status string      `json:"status" validate:"required"`
}

type service struct {
	repo      reviewsRepository
	publisher events.Publisher
	logg      *logger.Logger
	policy    *bluemonday.Policy
}

func NewService(repo reviewsRepository, publisher events.Publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("review repository required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		logg:      logg,
		policy:    bluemonday.StrictPolicy(),
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*ReviewItem, error) {
	productID := strings.TrimSpace(input.ProductID)
	customerID := strings.TrimSpace(input.CustomerID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	if customerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
	}
	if input.Rating < minRating || input.Rating > maxRating {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if len(input.Images) > maxReviewImages {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many review images")
	}

	content := s.sanitize(input.Content)
	if content == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is too long")
	}
	title := s.sanitizePtr(input.Title)
	if title != nil && utf8.RuneCountInString(*title) > maxTitleLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is too long")
	}

	review := &models.ProductReview{
		ProductID:    productID,
		CustomerID:   customerID,
		CustomerName: s.sanitizePtr(input.CustomerName),
		Rating:       input.Rating,
		Title:        title,
		Content:      content,
		Status:       enums.ReviewStatusPending,
	}
	for _, img := range input.Images {
		if strings.TrimSpace(img.FileID) == "" || strings.TrimSpace(img.URL) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "review images require file_id and url")
		}
		review.Images = append(review.Images, models.ProductReviewImage{
			FileID: strings.TrimSpace(img.FileID),
			URL:    strings.TrimSpace(img.URL),
		})
	}

	created, err := s.repo.Create(ctx, review)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}

	events.PublishAll(ctx, s.publisher, s.logg, events.Event{
		Type:        events.TypeReviewSubmitted,
		AggregateID: created.ID.String(),
		Data: map[string]any{
			"review_id":  created.ID,
			"product_id": created.ProductID,
			"rating":     created.Rating,
		},
	})

	item := toReviewItem(*created)
	return &item, nil
}

func (s *service) ListApproved(ctx context.Context, productID string, params pkgpagination.Params) (*ApprovedResult, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}

	approved := enums.ReviewStatusApproved
	items, cursor, err := s.page(ctx, listQuery{productID: productID, status: &approved}, params)
	if err != nil {
		return nil, err
	}

	average, count, err := s.repo.RatingSummary(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize ratings")
	}

	return &ApprovedResult{
		ProductID:     productID,
		AverageRating: math.Round(average*100) / 100,
		Count:         count,
		Items:         items,
		Cursor:        cursor,
	}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*ListResult, error) {
	query := listQuery{productID: strings.TrimSpace(params.ProductID)}
	if strings.TrimSpace(params.Status) != "" {
		status, err := enums.ParseReviewStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.status = &status
	}

	items, cursor, err := s.page(ctx, query, params.Params)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, Cursor: cursor}, nil
}

func (s *service) page(ctx context.Context, query listQuery, params pkgpagination.Params) ([]ReviewItem, string, error) {
	query.limit = pkgpagination.LimitWithBuffer(params.Limit)
	cursor, err := pkgpagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}

	rows, next := pkgpagination.Trim(rows, params.Limit, func(row models.ProductReview) pkgpagination.Cursor {
		return pkgpagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})
	return toReviewItems(rows), next, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) ([]ReviewItem, error) {
	status, err := enums.ParseReviewStatus(input.Status)
	if err != nil || !status.IsDecision() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be approved or rejected")
	}
	ids := uniqueUUIDs(input.IDs)
	if len(ids) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one review id is required")
	}

	updated, err := s.repo.UpdateStatus(ctx, ids, status)
	if err != nil {
		var missing *MissingReviewsError
		if errors.As(err, &missing) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "reviews not found").
				WithDetails(map[string]any{"ids": missing.IDs})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update review status")
	}

	evts := make([]events.Event, 0, len(updated))
	for _, review := range updated {
		evts = append(evts, events.Event{
			Type:        events.TypeReviewStatusUpdated,
			AggregateID: review.ID.String(),
			Data: map[string]any{
				"review_id":  review.ID,
				"product_id": review.ProductID,
				"status":     review.Status,
			},
		})
	}
	events.PublishAll(ctx, s.publisher, s.logg, evts...)

	return toReviewItems(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return pkgerrors.FromRecordLookup(err, gorm.ErrRecordNotFound, "review")
	}
	return nil
}

// sanitize strips markup and returns plain text. The strict policy escapes
// entities, which would otherwise be stored and served as "&amp;".
func (s *service) sanitize(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *service) sanitizePtr(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := s.sanitize(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func uniqueUUIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
