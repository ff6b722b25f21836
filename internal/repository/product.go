package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"offer_aggregator/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm" // GORM library
)

// insertChunkSize is the batch size used when a bulk insert fails and the
// upserter degrades to chunked insertion.
const insertChunkSize = 20

// ProductRepository defines the interface for persisting canonical product
// records. The upsert replaces the previous batch for the same scope; it
// never merges.
type ProductRepository interface {
	// EnsureSchema provisions the destination table. Idempotent.
	EnsureSchema(ctx context.Context) error
	// Upsert clears the (store, location) scope and inserts the batch,
	// degrading from bulk to chunked to per-row insertion on failure. It
	// returns the number of rows actually persisted, which may be less than
	// len(records). The error is non-nil only when nothing could be done at
	// all (scope clearing failed, or the schema could not be provisioned).
	Upsert(ctx context.Context, records []models.ProductRecord, store string, location *string) (int, error)
	// ListProducts returns the current batch for a scope in display order.
	ListProducts(ctx context.Context, store string, location *string) ([]models.ProductRecord, error)
	CountProducts(ctx context.Context) (int64, error)
}

// PostgresProductRepository implements ProductRepository for PostgreSQL using GORM.
type PostgresProductRepository struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewPostgresProductRepository creates a new instance.
func NewPostgresProductRepository(db *gorm.DB, log *logrus.Logger) *PostgresProductRepository {
	return &PostgresProductRepository{db: db, log: log}
}

// EnsureSchema handles GORM's automatic table creation/migration.
func (r *PostgresProductRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&models.ProductRecord{})
}

// Upsert runs the clear → bulk → chunked → per-row state machine. Row-level
// failures are logged and skipped; the terminal state is reached once every
// record has been attempted.
func (r *PostgresProductRepository) Upsert(ctx context.Context, records []models.ProductRecord, store string, location *string) (int, error) {
	if err := r.clearScope(ctx, store, location); err != nil {
		if !schemaMissing(err) {
			return 0, fmt.Errorf("clearing scope %s/%v: %w", store, location, err)
		}
		// Destination table does not exist yet: provision once and retry.
		if err := r.EnsureSchema(ctx); err != nil {
			return 0, fmt.Errorf("provisioning schema: %w", err)
		}
		if err := r.clearScope(ctx, store, location); err != nil {
			return 0, fmt.Errorf("clearing scope after schema provisioning: %w", err)
		}
	}

	inserted := insertWithDegradation(records, func(batch []models.ProductRecord) error {
		return r.db.WithContext(ctx).Create(&batch).Error
	}, func(index int, err error) {
		r.log.WithFields(logrus.Fields{"store": store, "position": records[index].Position, "error": err}).
			Warn("row insert failed, skipping")
	})

	return inserted, nil
}

// clearScope hard-deletes all prior rows for the (store, location) scope so
// concurrent scrapes of other stores are untouched.
func (r *PostgresProductRepository) clearScope(ctx context.Context, store string, location *string) error {
	query := r.db.WithContext(ctx).Unscoped().Where("store = ?", store)
	if location == nil {
		query = query.Where("store_location IS NULL")
	} else {
		query = query.Where("store_location = ?", *location)
	}
	return query.Delete(&models.ProductRecord{}).Error
}

// ListProducts returns the persisted batch for a scope ordered by position.
func (r *PostgresProductRepository) ListProducts(ctx context.Context, store string, location *string) ([]models.ProductRecord, error) {
	query := r.db.WithContext(ctx).Where("store = ?", store)
	if location != nil {
		query = query.Where("store_location = ?", *location)
	}

	var records []models.ProductRecord
	result := query.Order("position asc").Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", result.Error)
	}
	return records, nil
}

// CountProducts returns the total number of records in the table.
func (r *PostgresProductRepository) CountProducts(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.ProductRecord{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("gorm count failed: %w", result.Error)
	}
	return count, nil
}

// insertWithDegradation attempts one bulk insert, falls back to fixed-size
// chunks on failure, and finally to per-row insertion for any failing chunk.
// It returns the number of rows persisted and never aborts the run on a
// row-level failure.
func insertWithDegradation(records []models.ProductRecord, insert func([]models.ProductRecord) error, onRowFailure func(index int, err error)) int {
	if len(records) == 0 {
		return 0
	}

	if err := insert(records); err == nil {
		return len(records)
	}

	inserted := 0
	for start := 0; start < len(records); start += insertChunkSize {
		end := start + insertChunkSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		if err := insert(chunk); err == nil {
			inserted += len(chunk)
			continue
		}

		for i := range chunk {
			if err := insert(chunk[i : i+1]); err != nil {
				onRowFailure(start+i, err)
				continue
			}
			inserted++
		}
	}
	return inserted
}

// schemaMissing recognizes PostgreSQL's "relation does not exist" (SQLSTATE
// 42P01), the one error the upserter responds to by provisioning the schema.
func schemaMissing(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "does not exist")
}
