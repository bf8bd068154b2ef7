package storage

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

// testDB creates a temporary database for testing.
func testDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenDB(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "sub", "dir", "tabgroups.db")

	db, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file not found: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	if count != len(migrations) {
		t.Errorf("expected %d migrations recorded, got %d", len(migrations), count)
	}
}

func TestOpenDB_IdempotentMigrations(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "idempotent.db")

	db1, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("first OpenDB: %v", err)
	}
	if err := SaveSettings(db1, map[string]string{"autoGroup": "true"}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	db1.Close()

	db2, err := OpenDB(dbPath)
	if err != nil {
		t.Fatalf("second OpenDB: %v", err)
	}
	defer db2.Close()

	values, err := LoadSettings(db2)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if values["autoGroup"] != "true" {
		t.Error("expected stored setting to survive reopening")
	}
}

func TestDefaultDBPath(t *testing.T) {
	p, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	if filepath.Base(p) != "tabgroups.db" {
		t.Errorf("expected filename tabgroups.db, got %s", filepath.Base(p))
	}
	if !filepath.IsAbs(p) {
		t.Errorf("expected absolute path, got %s", p)
	}
}

func TestSaveSettingsUpserts(t *testing.T) {
	db := testDB(t)

	if err := SaveSettings(db, map[string]string{
		"autoGroup":        "false",
		"autoGroupDomains": `["github.com"]`,
	}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if err := SaveSettings(db, map[string]string{"autoGroup": "true"}); err != nil {
		t.Fatalf("SaveSettings (update): %v", err)
	}

	values, err := LoadSettings(db)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(values), values)
	}
	if values["autoGroup"] != "true" {
		t.Errorf("autoGroup = %q, want true", values["autoGroup"])
	}
	if values["autoGroupDomains"] != `["github.com"]` {
		t.Errorf("autoGroupDomains = %q", values["autoGroupDomains"])
	}
}

func TestRecordAndListExports(t *testing.T) {
	db := testDB(t)

	id1, err := RecordExport(db, "tab_groups_export_2024-01-01.json", 2, 5, []byte(`{"version":"1.0"}`))
	if err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	id2, err := RecordExport(db, "tab_groups_export_2024-01-02.json", 1, 1, []byte(`{"version":"1.0","groups":[]}`))
	if err != nil {
		t.Fatalf("RecordExport: %v", err)
	}

	list, err := ListExports(db)
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 exports, got %d", len(list))
	}
	if list[0].ID != id2 || list[1].ID != id1 {
		t.Errorf("expected newest first, got ids %d, %d", list[0].ID, list[1].ID)
	}
	if list[1].GroupCount != 2 || list[1].TabCount != 5 {
		t.Errorf("unexpected counts: %+v", list[1])
	}

	rec, err := GetExport(db, id1)
	if err != nil {
		t.Fatalf("GetExport: %v", err)
	}
	if string(rec.Document) != `{"version":"1.0"}` {
		t.Errorf("document = %s", rec.Document)
	}
	if rec.FileName != "tab_groups_export_2024-01-01.json" {
		t.Errorf("file name = %q", rec.FileName)
	}
}

func TestGetExportNotFound(t *testing.T) {
	db := testDB(t)
	if _, err := GetExport(db, 42); err == nil {
		t.Fatal("expected error for missing export")
	}
}

func TestDeleteExport(t *testing.T) {
	db := testDB(t)
	id, err := RecordExport(db, "a.json", 0, 0, []byte(`{}`))
	if err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	if err := DeleteExport(db, id); err != nil {
		t.Fatalf("DeleteExport: %v", err)
	}
	if err := DeleteExport(db, id); err == nil {
		t.Error("expected error deleting twice")
	}
	list, _ := ListExports(db)
	if len(list) != 0 {
		t.Errorf("expected no exports, got %d", len(list))
	}
}
