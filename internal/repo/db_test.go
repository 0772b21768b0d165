package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/fitstack/go-fitness-backend/internal/domain"
)

// testDB opens an isolated in-memory database migrated with the full schema.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func mustCreateProfile(t *testing.T, db *gorm.DB, p *domain.Profile) {
	t.Helper()
	if p.Email == "" {
		p.Email = p.ID + "@example.com"
	}
	if err := CreateProfile(context.Background(), db, p); err != nil {
		t.Fatalf("create profile %s: %v", p.ID, err)
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	if _, err := OpenSQLite("/no/such/dir/app.db"); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_CreatesAndMigrates(t *testing.T) {
	path := t.TempDir() + "/app.db"
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	mustCreateProfile(t, db, &domain.Profile{ID: "u1"})
	if _, err := GetProfile(context.Background(), db, "u1"); err != nil {
		t.Fatalf("round trip through file db: %v", err)
	}
}
