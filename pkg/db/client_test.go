package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	client, err := NewSQLite(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewSQLiteCreatesModuleTables(t *testing.T) {
	client := newTestClient(t)
	for _, table := range []string{"media_tags", "media_groups", "media_items", "option_configs", "option_values", "option_images", "product_forms", "product_form_fields", "product_form_field_images", "product_reviews", "product_review_images"} {
		if !client.DB().Migrator().HasTable(table) {
			t.Fatalf("expected table %s", table)
		}
	}
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&models.MediaTag{VariantID: "variant_committed", ProductID: "prod_1", Value: 1}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	rollbackErr := errors.New("rollback")
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&models.MediaTag{VariantID: "variant_rolled_back", ProductID: "prod_1", Value: 2}).Error; err != nil {
			return err
		}
		return rollbackErr
	}); !errors.Is(err, rollbackErr) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	var count int64
	if err := client.DB().Model(&models.MediaTag{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 committed row, got %d", count)
	}
}

func TestPingSQLite(t *testing.T) {
	client := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "media_tags_variant_id_key"}
	if !IsUniqueViolation(fmt.Errorf("insert: %w", pgErr), "") {
		t.Fatalf("expected pg unique violation")
	}
	if !IsUniqueViolation(pgErr, "media_tags_variant_id_key") {
		t.Fatalf("expected constraint match")
	}
	if IsUniqueViolation(pgErr, "other_constraint") {
		t.Fatalf("constraint mismatch should not match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: media_items.file_id"), "") {
		t.Fatalf("expected sqlite message to match")
	}
	if IsUniqueViolation(errors.New("connection refused"), "") {
		t.Fatalf("unrelated errors should not match")
	}
}

func TestQueryLoggerReportsFailuresAndSlowStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: &buf})
	ql := &queryLogger{logg: logg, slow: 10 * time.Millisecond}
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT 1", 1 }

	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found should not be logged: %s", buf.String())
	}

	ql.Trace(ctx, time.Now(), stmt, errors.New("boom"))
	if !strings.Contains(buf.String(), "query failed") || !strings.Contains(buf.String(), "SELECT 1") {
		t.Fatalf("expected failed query log, got %s", buf.String())
	}

	buf.Reset()
	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "slow query") {
		t.Fatalf("expected slow query log, got %s", buf.String())
	}

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast query should not be logged: %s", buf.String())
	}
}
