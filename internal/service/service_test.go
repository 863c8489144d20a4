package service

import (
	"bytes"
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/database"
	"github.com/xuri/excelize/v2"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), database.DriverSQLite, ":memory:", 0, zerolog.Nop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, database.DriverSQLite); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// xlsx builds an in-memory workbook whose first sheet holds rows.
func xlsx(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		r := row
		if err := f.SetSheetRow("Sheet1", cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	buf := new(bytes.Buffer)
	if _, err := f.WriteTo(buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf
}
