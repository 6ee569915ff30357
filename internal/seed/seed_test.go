package seed

import (
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/Simplici0/vidrieria/internal/catalog"
	"github.com/Simplici0/vidrieria/internal/db"
	"github.com/Simplici0/vidrieria/internal/migrations"
)

func openMigrated(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "seed-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := migrations.Up(database.DB, zerolog.Nop()); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestRunIsIdempotent(t *testing.T) {
	database := openMigrated(t)
	doc, err := catalog.DefaultDocument()
	if err != nil {
		t.Fatalf("load default document: %v", err)
	}

	want := len(rows(doc))
	for i := 0; i < 5; i++ {
		stats, err := Run(database, doc)
		if err != nil {
			t.Fatalf("run seed (iteration=%d): %v", i, err)
		}
		if i == 0 {
			if stats.Inserts != want {
				t.Fatalf("expected %d inserts in first run, got %d", want, stats.Inserts)
			}
			if got := storedRows(t, database, doc); got != want {
				t.Fatalf("expected %d stored catalog rows, got %d", want, got)
			}
			continue
		}
		if stats.Inserts != 0 || stats.Updates != 0 {
			t.Fatalf("expected no changes in iteration %d, got %+v", i, stats)
		}
	}

	assertCount(t, database, `SELECT COUNT(*) FROM glass_prices WHERE name = ?`, []any{"Vidrio Templado"}, 7)
	assertCount(t, database, `SELECT COUNT(*) FROM category_components WHERE category = ? AND auto = 1`, []any{"door"}, 4)
	assertCount(t, database, `SELECT COUNT(*) FROM category_options WHERE category = ? AND kind = ?`, []any{"window", "opening"}, 3)
	assertCount(t, database, `SELECT COUNT(*) FROM labor_rates WHERE id = 1`, nil, 1)
}

func TestRunUpdatesChangedPrices(t *testing.T) {
	database := openMigrated(t)
	doc, err := catalog.DefaultDocument()
	if err != nil {
		t.Fatalf("load default document: %v", err)
	}
	if _, err := Run(database, doc); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	doc.StandardProducts[0].Price = "135.00"
	doc.Labor.Minimum = "60.00"
	stats, err := Run(database, doc)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if stats.Inserts != 0 || stats.Updates != 2 {
		t.Fatalf("expected 2 updates, got %+v", stats)
	}

	var price string
	if err := database.Get(&price, `SELECT price FROM standard_products WHERE name = ?`, doc.StandardProducts[0].Name); err != nil {
		t.Fatalf("query price: %v", err)
	}
	if price != "135.00" {
		t.Fatalf("price = %q, want 135.00", price)
	}
}

func TestRunRejectsCorruptDocument(t *testing.T) {
	database := openMigrated(t)
	doc, err := catalog.DefaultDocument()
	if err != nil {
		t.Fatalf("load default document: %v", err)
	}
	doc.Version = 7

	if _, err := Run(database, doc); err == nil {
		t.Fatalf("expected corrupt document to be rejected")
	}
	assertCount(t, database, `SELECT COUNT(*) FROM glass_prices`, nil, 0)
}

func assertCount(t *testing.T, database *sqlx.DB, query string, args []any, expected int) {
	t.Helper()

	var count int
	if err := database.Get(&count, query, args...); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != expected {
		t.Fatalf("expected count=%d, got %d for query=%s", expected, count, query)
	}
}

// storedRows counts every row of the tables the document seeds.
func storedRows(t *testing.T, database *sqlx.DB, doc catalog.Document) int {
	t.Helper()

	seen := map[string]bool{}
	total := 0
	for _, r := range rows(doc) {
		if seen[r.table] {
			continue
		}
		seen[r.table] = true
		var n int
		if err := database.Get(&n, `SELECT COUNT(*) FROM `+r.table); err != nil {
			t.Fatalf("count %s: %v", r.table, err)
		}
		total += n
	}
	return total
}
