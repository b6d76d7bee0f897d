package payments

import (
	"context"
	"strings"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// The in-memory driver drops locking clauses, so the lock is asserted on the
// SQL a Postgres session would run. Without it, two concurrent payments with
// distinct references could both read the same paid total and the later
// commit would overwrite the earlier credit.
func TestFindOrderForUpdateTakesRowLock(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=localhost user=comercio dbname=comercio sslmode=disable",
	}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}

	var queries []string
	err = db.Callback().Query().After("gorm:query").Register("capture_sql", func(tx *gorm.DB) {
		queries = append(queries, tx.Statement.SQL.String())
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	repo := NewRepository(db)
	_, _ = repo.FindOrderForUpdate(context.Background(), 7)

	locked := false
	for _, query := range queries {
		if strings.Contains(query, "FOR UPDATE") {
			locked = true
		}
	}
	if !locked {
		t.Fatalf("expected a FOR UPDATE read, got %q", queries)
	}
}
