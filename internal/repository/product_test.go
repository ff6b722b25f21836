package repository

import (
	"errors"
	"fmt"
	"testing"

	"offer_aggregator/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
)

func batch(n int) []models.ProductRecord {
	records := make([]models.ProductRecord, n)
	for i := range records {
		records[i] = models.ProductRecord{
			Name:     fmt.Sprintf("Produkt %d", i+1),
			Store:    "willys",
			Position: i + 1,
		}
	}
	return records
}

func TestInsertWithDegradationBulkSuccess(t *testing.T) {
	calls := 0
	inserted := insertWithDegradation(batch(45), func(records []models.ProductRecord) error {
		calls++
		return nil
	}, func(int, error) {
		t.Fatal("no row failures expected")
	})

	if inserted != 45 {
		t.Errorf("expected 45 inserted, got %d", inserted)
	}
	if calls != 1 {
		t.Errorf("bulk success must take one call, got %d", calls)
	}
}

func TestInsertWithDegradationSingleBadRow(t *testing.T) {
	// Row 7 violates a uniqueness constraint: the bulk insert and its chunk
	// fail, every other row lands individually.
	records := batch(20)
	failures := 0

	inserted := insertWithDegradation(records, func(part []models.ProductRecord) error {
		for _, record := range part {
			if record.Position == 7 {
				return errors.New("duplicate key value violates unique constraint")
			}
		}
		return nil
	}, func(index int, err error) {
		failures++
		if records[index].Position != 7 {
			t.Errorf("unexpected failing row %d", records[index].Position)
		}
	})

	if inserted != 19 {
		t.Errorf("expected insertedCount 19, got %d", inserted)
	}
	if failures != 1 {
		t.Errorf("expected 1 row failure, got %d", failures)
	}
}

func TestInsertWithDegradationChunkRecovery(t *testing.T) {
	// 45 records, bad row at position 30: chunks 1 and 3 insert whole, chunk
	// 2 degrades to per-row insertion.
	records := batch(45)

	inserted := insertWithDegradation(records, func(part []models.ProductRecord) error {
		for _, record := range part {
			if record.Position == 30 {
				return errors.New("value too long for type character varying(255)")
			}
		}
		return nil
	}, func(int, error) {})

	if inserted != 44 {
		t.Errorf("expected 44 inserted, got %d", inserted)
	}
}

func TestInsertWithDegradationNeverExceedsBatch(t *testing.T) {
	records := batch(10)
	inserted := insertWithDegradation(records, func(part []models.ProductRecord) error {
		return errors.New("relation is read only")
	}, func(int, error) {})

	if inserted != 0 {
		t.Errorf("expected 0 inserted, got %d", inserted)
	}
}

func TestInsertWithDegradationEmptyBatch(t *testing.T) {
	if got := insertWithDegradation(nil, nil, nil); got != 0 {
		t.Errorf("expected 0 for empty batch, got %d", got)
	}
}

func TestSchemaMissing(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "42P01", Message: `relation "product_records" does not exist`}
	if !schemaMissing(fmt.Errorf("insert: %w", pgErr)) {
		t.Error("wrapped 42P01 must be recognized")
	}

	if schemaMissing(errors.New("connection refused")) {
		t.Error("unrelated errors must not trigger schema provisioning")
	}

	if !schemaMissing(errors.New(`ERROR: relation "product_records" does not exist`)) {
		t.Error("message-based detection must still work for non-pg drivers")
	}
}
