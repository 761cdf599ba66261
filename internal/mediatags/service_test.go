package mediatags

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (Service, *Repository) {
	t.Helper()
	repo := NewRepository(dbtest.Open(t))
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc, repo
}

func TestSetTagUpsertsByVariant(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	first, err := svc.SetTag(ctx, SetTagInput{VariantID: "var_1", ProductID: "prod_1", Value: 2})
	require.NoError(t, err)

	second, err := svc.SetTag(ctx, SetTagInput{VariantID: "var_1", ProductID: "prod_1", Value: 5})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Value)
}

func TestSetTagRejectsNonPositiveValue(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SetTag(context.Background(), SetTagInput{VariantID: "var_1", ProductID: "prod_1", Value: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListByVariantsSkipsDeletedAndUnknown(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.SetTag(ctx, SetTagInput{VariantID: "var_1", ProductID: "prod_1", Value: 1})
	require.NoError(t, err)
	_, err = svc.SetTag(ctx, SetTagInput{VariantID: "var_2", ProductID: "prod_1", Value: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "var_2"))

	rows, err := svc.ListByVariants(ctx, []string{"var_1", "var_2", "var_3", " var_1 "})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "var_1", rows[0].VariantID)
}

func TestRemoveAndRecreateAfterSoftDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.SetTag(ctx, SetTagInput{VariantID: "var_1", ProductID: "prod_1", Value: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(ctx, "var_1"))

	again, err := svc.SetTag(ctx, SetTagInput{VariantID: "var_1", ProductID: "prod_1", Value: 3})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestRemoveUnknownVariantIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Remove(context.Background(), "var_missing")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type failingRepo struct{}

func (failingRepo) FindByVariantIDs(context.Context, []string) ([]models.MediaTag, error) {
	return nil, errors.New("db down")
}

func (failingRepo) Upsert(context.Context, string, string, int) (*models.MediaTag, error) {
	return nil, errors.New("db down")
}

func (failingRepo) SoftDelete(context.Context, string) error { return errors.New("db down") }

func TestRepositoryFailuresAreInternal(t *testing.T) {
	svc, err := NewService(failingRepo{})
	require.NoError(t, err)

	_, err = svc.ListByVariants(context.Background(), []string{"var_1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))

	err = svc.Remove(context.Background(), "var_1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
