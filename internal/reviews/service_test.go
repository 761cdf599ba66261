package reviews

import (
	"context"
	"sync"
	"testing"

	"github.com/angelmondragon/storefront-backend/internal/events"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T) (Service, *recordingPublisher, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	pub := &recordingPublisher{}
	svc, err := NewService(NewRepository(conn), pub, nil)
	require.NoError(t, err)
	return svc, pub, conn
}

func submit(t *testing.T, svc Service, productID string, rating int) *ReviewItem {
	t.Helper()
	review, err := svc.Submit(context.Background(), SubmitInput{
		ProductID:  productID,
		CustomerID: "cus_1",
		Rating:     rating,
		Content:    "Fits well",
	})
	require.NoError(t, err)
	return review
}

func TestSubmitSanitizesAndStartsPending(t *testing.T) {
	svc, pub, _ := newTestService(t)
	title := "<b>Great</b> shirt"

	review, err := svc.Submit(context.Background(), SubmitInput{
		ProductID:  "prod_1",
		CustomerID: "cus_1",
		Rating:     5,
		Title:      &title,
		Content:    `Loved it <script>alert("x")</script><a href="javascript:bad()">link</a>`,
		Images:     []ImageInput{{FileID: "file_1", URL: "https://cdn.test/1.png"}},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.ReviewStatusPending, review.Status)
	require.NotNil(t, review.Title)
	assert.Equal(t, "Great shirt", *review.Title)
	assert.NotContains(t, review.Content, "<")
	assert.NotContains(t, review.Content, "alert")
	assert.Len(t, review.Images, 1)
	assert.Equal(t, []string{events.TypeReviewSubmitted}, pub.types())
}

func TestSubmitKeepsPlainTextPunctuation(t *testing.T) {
	svc, _, conn := newTestService(t)
	title := "Salt & Pepper"
	name := "O'Brien"

	review, err := svc.Submit(context.Background(), SubmitInput{
		ProductID:    "prod_1",
		CustomerID:   "cus_1",
		CustomerName: &name,
		Rating:       4,
		Title:        &title,
		Content:      `I don't regret it, "5 < 6"`,
	})
	require.NoError(t, err)

	require.NotNil(t, review.Title)
	assert.Equal(t, "Salt & Pepper", *review.Title)
	assert.Equal(t, `I don't regret it, "5 < 6"`, review.Content)

	var stored models.ProductReview
	require.NoError(t, conn.First(&stored, "id = ?", review.ID).Error)
	require.NotNil(t, stored.Title)
	assert.Equal(t, "Salt & Pepper", *stored.Title)
	assert.Equal(t, `I don't regret it, "5 < 6"`, stored.Content)
	require.NotNil(t, stored.CustomerName)
	assert.Equal(t, "O'Brien", *stored.CustomerName)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	cases := map[string]SubmitInput{
		"rating too low":  {ProductID: "p", CustomerID: "c", Rating: 0, Content: "ok"},
		"rating too high": {ProductID: "p", CustomerID: "c", Rating: 6, Content: "ok"},
		"missing product": {CustomerID: "c", Rating: 3, Content: "ok"},
		"markup only":     {ProductID: "p", CustomerID: "c", Rating: 3, Content: "<script>x</script>"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
}

func TestUpdateStatusAndListApproved(t *testing.T) {
	ctx := context.Background()
	svc, pub, _ := newTestService(t)

	a := submit(t, svc, "prod_1", 5)
	b := submit(t, svc, "prod_1", 4)
	c := submit(t, svc, "prod_1", 1)

	updated, err := svc.UpdateStatus(ctx, UpdateStatusInput{IDs: []uuid.UUID{a.ID, b.ID, a.ID}, Status: "approved"})
	require.NoError(t, err)
	assert.Len(t, updated, 2)
	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{IDs: []uuid.UUID{c.ID}, Status: "rejected"})
	require.NoError(t, err)

	result, err := svc.ListApproved(ctx, "prod_1", pagination.Params{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Count)
	assert.InDelta(t, 4.5, result.AverageRating, 0.001)
	assert.Len(t, result.Items, 2)
	for _, item := range result.Items {
		assert.Equal(t, enums.ReviewStatusApproved, item.Status)
	}

	statusEvents := 0
	for _, typ := range pub.types() {
		if typ == events.TypeReviewStatusUpdated {
			statusEvents++
		}
	}
	assert.Equal(t, 3, statusEvents)
}

func TestUpdateStatusRejectsPendingAndUnknownIDs(t *testing.T) {
	ctx := context.Background()
	svc, _, conn := newTestService(t)
	a := submit(t, svc, "prod_1", 5)

	_, err := svc.UpdateStatus(ctx, UpdateStatusInput{IDs: []uuid.UUID{a.ID}, Status: "pending"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.UpdateStatus(ctx, UpdateStatusInput{IDs: []uuid.UUID{a.ID, uuid.New()}, Status: "approved"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	var stored models.ProductReview
	require.NoError(t, conn.First(&stored, "id = ?", a.ID).Error)
	assert.Equal(t, enums.ReviewStatusPending, stored.Status, "partial batch must not be applied")
}

func TestAdminListPaginatesAndFilters(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	for i := 0; i < 5; i++ {
		submit(t, svc, "prod_1", 3)
	}
	submit(t, svc, "prod_2", 3)

	first, err := svc.List(ctx, ListParams{ProductID: "prod_1", Status: "pending", Params: pagination.Params{Limit: 3}})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.NotEmpty(t, first.Cursor)

	second, err := svc.List(ctx, ListParams{ProductID: "prod_1", Params: pagination.Params{Limit: 3, Cursor: first.Cursor}})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.Empty(t, second.Cursor)

	seen := map[uuid.UUID]bool{}
	for _, item := range append(first.Items, second.Items...) {
		assert.False(t, seen[item.ID], "review listed twice")
		seen[item.ID] = true
	}

	_, err = svc.List(ctx, ListParams{Status: "archived"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDeleteCascadesToImages(t *testing.T) {
	ctx := context.Background()
	svc, _, conn := newTestService(t)

	review, err := svc.Submit(ctx, SubmitInput{
		ProductID:  "prod_1",
		CustomerID: "cus_1",
		Rating:     4,
		Content:    "Nice",
		Images:     []ImageInput{{FileID: "file_1", URL: "https://cdn.test/1.png"}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, review.ID))

	var images int64
	require.NoError(t, conn.Model(&models.ProductReviewImage{}).Count(&images).Error)
	assert.Zero(t, images)

	err = svc.Delete(ctx, review.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
