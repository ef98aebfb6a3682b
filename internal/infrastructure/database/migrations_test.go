package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260301_090000_create_samples.up.sql": {Data: []byte(`
			CREATE TABLE samples (id INTEGER PRIMARY KEY, city TEXT NOT NULL);
		`)},
		"20260302_090000_add_index.up.sql": {Data: []byte(`
			CREATE INDEX idx_samples_city ON samples (city);
		`)},
		"20260302_090000_add_index.down.sql": {Data: []byte(`DROP INDEX idx_samples_city;`)},
		"README.md":                          {Data: []byte("not a migration")},
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations(), "."); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var name string
	if err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_samples_city'",
	).Scan(&name); err != nil {
		t.Fatalf("index not created: %v", err)
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations(), ".")
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("applied = %d, want 2", len(applied))
	}
	if len(pending) != 0 {
		t.Errorf("pending = %d, want 0", len(pending))
	}
	if applied[0].Version != "20260301_090000" {
		t.Errorf("applied[0].Version = %q", applied[0].Version)
	}

	// Idempotent.
	if err := db.Migrate(ctx, testMigrations(), "."); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_StopsAtFailure(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"20260301_090000_ok.up.sql":     {Data: []byte(`CREATE TABLE ok (id INTEGER);`)},
		"20260302_090000_broken.up.sql": {Data: []byte(`CREATE TABLE ok (id INTEGER);`)},
		"20260303_090000_later.up.sql":  {Data: []byte(`CREATE TABLE later (id INTEGER);`)},
	}

	if err := db.Migrate(ctx, fsys, "."); err == nil {
		t.Fatal("Migrate() expected error for duplicate table")
	}

	applied, pending, err := db.MigrationStatus(ctx, fsys, ".")
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 1 || len(pending) != 2 {
		t.Errorf("applied=%d pending=%d, want 1 and 2", len(applied), len(pending))
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background(), nil, "."); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20260301_090000_lookups.up.sql", "20260301_090000", "lookups", true},
		{"20260301_090000_multi_word_name.up.sql", "20260301_090000", "multi_word_name", true},
		{"20260301_090000.up.sql", "20260301_090000", "20260301_090000", true},
		{"20260301_090000_lookups.down.sql", "", "", false},
		{"20260301_090000_lookups.sql", "", "", false},
		{"lookups.up.sql", "", "", false},
		{"README.md", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.filename, version, name, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}
