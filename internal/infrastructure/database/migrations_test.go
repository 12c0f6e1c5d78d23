package database

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/nerrad567/mqtt-launcher/migrations"
)

func testMigrations() fstest.MapFS {
	return fstest.MapFS{
		"20260101_000000_first.up.sql": {Data: []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);")},
		"20260102_000000_second.up.sql": {Data: []byte(
			"CREATE TABLE second (id INTEGER PRIMARY KEY);\nINSERT INTO second (id) VALUES (1);",
		)},
		"20260102_000000_second.down.sql": {Data: []byte("DROP TABLE second;")},
		"README.md":                        {Data: []byte("not a migration")},
	}
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var got string
	err := db.QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&got)
	return err == nil
}

// TestMigrate verifies migration application.
func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	n, err := db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d, want 2", n)
	}

	for _, table := range []string{"first", "second"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s not created", table)
		}
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "20260101_000000" || applied[1].Version != "20260102_000000" {
		t.Errorf("AppliedMigrations() = %+v", applied)
	}
	if applied[0].AppliedAt.IsZero() {
		t.Error("AppliedAt not recorded")
	}

	// Running again should be idempotent
	n, err = db.Migrate(ctx, testMigrations())
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("second Migrate() applied %d, want 0", n)
	}
}

// TestMigrateFailureRollsBack verifies a broken migration leaves no trace.
func TestMigrateFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := testMigrations()
	fsys["20260103_000000_broken.up.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE third (id INTEGER); NOT SQL;")}

	n, err := db.Migrate(ctx, fsys)
	if err == nil {
		t.Fatal("Migrate() expected error for broken migration")
	}
	if n != 2 {
		t.Errorf("Migrate() applied %d before failing, want 2", n)
	}
	if tableExists(t, db, "third") {
		t.Error("table from failed migration was not rolled back")
	}

	applied, _ := db.AppliedMigrations(ctx)
	if len(applied) != 2 {
		t.Errorf("recorded %d migrations, want 2", len(applied))
	}
}

// TestMigrateEmbedded applies the migrations shipped with the binary.
func TestMigrateEmbedded(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "executions") {
		t.Error("executions table not created")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20261014_120000_executions.up.sql", "20261014_120000", "executions", true},
		{"20261014_120000_add_index_on_topic.up.sql", "20261014_120000", "add_index_on_topic", true},
		{"20261014_120000.up.sql", "20261014_120000", "", true},
		{"20261014_120000_executions.down.sql", "", "", false},
		{"20261014.up.sql", "", "", false},
		{"executions.sql", "", "", false},
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
