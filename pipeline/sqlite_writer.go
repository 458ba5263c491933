package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-detmir/models"
	_ "modernc.org/sqlite"
)

const (
	dropRecordsTable   = `DROP TABLE IF EXISTS records`
	createRecordsTable = `CREATE TABLE records (
	position    INTEGER PRIMARY KEY,
	id          TEXT NOT NULL,
	title       TEXT NOT NULL,
	price       TEXT NOT NULL,
	promo_price TEXT NOT NULL,
	url         TEXT NOT NULL,
	city        TEXT NOT NULL
)`
	insertRecord = `INSERT INTO records (position, id, title, price, promo_price, url, city) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// SQLiteWriter stores records in the records table of a SQLite file. The
// table is recreated when the writer is opened.
type SQLiteWriter struct {
	path    string
	db      *sql.DB
	written int
	mu      sync.Mutex
}

// NewSQLiteWriter opens filename and replaces the records table.
func NewSQLiteWriter(filename string) (*SQLiteWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	for _, stmt := range []string{dropRecordsTable, createRecordsTable} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("prepare records table: %w", err)
		}
	}

	return &SQLiteWriter{path: filename, db: db}, nil
}

// Write inserts records in one transaction, keeping their order.
func (sw *SQLiteWriter) Write(records []models.Record) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	ctx := context.Background()
	tx, err := sw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		position := sw.written + i + 1
		if _, err := stmt.ExecContext(ctx, position, rec.ID, rec.Title, rec.Price, rec.PromoPrice, rec.URL, rec.City); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	sw.written += len(records)
	return nil
}

// Close closes the database handle.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate reopens the file and checks the stored row count.
func (sw *SQLiteWriter) Validate() error {
	records, err := ReadSQLite(sw.path)
	if err != nil {
		return err
	}
	sw.mu.Lock()
	written := sw.written
	sw.mu.Unlock()
	if len(records) != written {
		return fmt.Errorf("sqlite has %d rows, wrote %d", len(records), written)
	}
	return nil
}

// ReadSQLite loads the records table ordered by insertion position.
func ReadSQLite(filename string) ([]models.Record, error) {
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT id, title, price, promo_price, url, city FROM records ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []models.Record
	for rows.Next() {
		var rec models.Record
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Price, &rec.PromoPrice, &rec.URL, &rec.City); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
