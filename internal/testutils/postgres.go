// Package testutils holds helpers shared by tests that need a real Postgres.
package testutils

import (
	"context"
	"os"
	"testing"

	"planets-api/internal/shared/database"
)

// OpenPostgres connects to TEST_DATABASE_URL, applies migrations and empties the planet tables.
// The test is skipped when TEST_DATABASE_URL is not set.
func OpenPostgres(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres test")
	}

	ctx := context.Background()
	db, err := database.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.RunMigrations(ctx); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		`TRUNCATE planet_terrains, planet_climates, planets, terrains, climates RESTART IDENTITY CASCADE`,
	); err != nil {
		t.Fatalf("failed to truncate test database: %v", err)
	}

	return db
}
