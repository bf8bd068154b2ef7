package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ExportSummary holds the metadata of a recorded export.
type ExportSummary struct {
	ID         int64
	FileName   string
	CreatedAt  time.Time
	GroupCount int
	TabCount   int
}

// ExportRecord is an export with its JSON document.
type ExportRecord struct {
	ExportSummary
	Document []byte
}

// RecordExport stores an export document and returns its ID.
func RecordExport(db *sql.DB, fileName string, groups, tabs int, document []byte) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO exports (file_name, group_count, tab_count, document) VALUES (?, ?, ?, ?)",
		fileName, groups, tabs, string(document),
	)
	if err != nil {
		return 0, fmt.Errorf("insert export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get export id: %w", err)
	}
	return id, nil
}

// ListExports returns recorded exports, newest first.
func ListExports(db *sql.DB) ([]ExportSummary, error) {
	rows, err := db.Query(
		"SELECT id, file_name, created_at, group_count, tab_count FROM exports ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query exports: %w", err)
	}
	defer rows.Close()

	var result []ExportSummary
	for rows.Next() {
		var s ExportSummary
		if err := rows.Scan(&s.ID, &s.FileName, &s.CreatedAt, &s.GroupCount, &s.TabCount); err != nil {
			return nil, fmt.Errorf("scan export: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exports: %w", err)
	}
	return result, nil
}

// GetExport loads a recorded export by ID.
func GetExport(db *sql.DB, id int64) (*ExportRecord, error) {
	rec := &ExportRecord{}
	var doc string
	err := db.QueryRow(
		"SELECT id, file_name, created_at, group_count, tab_count, document FROM exports WHERE id = ?",
		id,
	).Scan(&rec.ID, &rec.FileName, &rec.CreatedAt, &rec.GroupCount, &rec.TabCount, &doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("export %d not found", id)
		}
		return nil, fmt.Errorf("query export: %w", err)
	}
	rec.Document = []byte(doc)
	return rec, nil
}

// DeleteExport removes a recorded export.
func DeleteExport(db *sql.DB, id int64) error {
	res, err := db.Exec("DELETE FROM exports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete export: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("export %d not found", id)
	}
	return nil
}
