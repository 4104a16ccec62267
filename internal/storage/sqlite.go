package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/scholarkb/scholarkb/internal/paper"
	_ "modernc.org/sqlite"
)

// Errors returned by registry operations.
var (
	ErrFingerprintExists = errors.New("paper with this fingerprint already exists")
	ErrNoChunks          = errors.New("paper has no chunks")
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// PaperRecord is a stored paper together with its ingestion ordinal.
type PaperRecord struct {
	paper.Paper
	Ordinal int64
}

// selectPaperFields contains the standard field list for SELECT queries.
const selectPaperFields = `ordinal, id, fingerprint, title, authors_json,
	pub_year, venue, abstract, keywords_json, doi,
	source_path, added_at, metadata_source`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Paper registry; ordinal preserves ingestion order
		CREATE TABLE IF NOT EXISTS papers (
			ordinal INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			fingerprint TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			authors_json TEXT NOT NULL,
			pub_year INTEGER,
			venue TEXT,
			abstract TEXT,
			keywords_json TEXT NOT NULL,
			doi TEXT,
			source_path TEXT NOT NULL,
			added_at TEXT NOT NULL,
			metadata_source TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_papers_title ON papers(title);

		-- Chunks with little-endian float32 embedding blobs
		CREATE TABLE IF NOT EXISTS chunks (
			paper_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			text TEXT NOT NULL,
			section TEXT,
			embedding BLOB NOT NULL,
			PRIMARY KEY (paper_id, seq)
		);

		-- Embedding model and dimensions the stored vectors were built with
		CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// CommitPaper stores a paper and all of its chunks in one transaction and
// returns the paper's ordinal. If a paper with the same fingerprint exists,
// nothing is written and ErrFingerprintExists is returned.
func (d *DB) CommitPaper(p paper.Paper, chunks []paper.Chunk) (int64, error) {
	if len(chunks) == 0 {
		return 0, ErrNoChunks
	}

	authorsJSON, err := json.Marshal(nonNil(p.Authors))
	if err != nil {
		return 0, fmt.Errorf("marshaling authors for %s: %w", p.ID, err)
	}
	keywordsJSON, err := json.Marshal(nonNil(p.Keywords))
	if err != nil {
		return 0, fmt.Errorf("marshaling keywords for %s: %w", p.ID, err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow(`SELECT COUNT(*) FROM papers WHERE fingerprint = ? OR id = ?`, p.Fingerprint, p.ID).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("checking fingerprint: %w", err)
	}
	if exists > 0 {
		return 0, ErrFingerprintExists
	}

	var year sql.NullInt64
	if p.Year != nil {
		year = sql.NullInt64{Int64: int64(*p.Year), Valid: true}
	}

	res, err := tx.Exec(`
		INSERT INTO papers (
			id, fingerprint, title, authors_json,
			pub_year, venue, abstract, keywords_json, doi,
			source_path, added_at, metadata_source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Fingerprint, p.Title, string(authorsJSON),
		year, nullableStringValue(p.Venue), nullableStringValue(p.Abstract), string(keywordsJSON), nullableStringValue(p.DOI),
		p.SourcePath, p.AddedAt.UTC().Format(time.RFC3339Nano), string(p.MetadataSource),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting paper %s: %w", p.ID, err)
	}
	ordinal, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading ordinal for %s: %w", p.ID, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO chunks (paper_id, seq, text, section, embedding) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if c.PaperID != p.ID {
			return 0, fmt.Errorf("chunk %d belongs to %s, not %s", c.Seq, c.PaperID, p.ID)
		}
		if _, err := stmt.Exec(c.PaperID, c.Seq, c.Text, nullableStringValue(c.Section), EncodeVector(c.Embedding)); err != nil {
			return 0, fmt.Errorf("inserting chunk %s/%d: %w", c.PaperID, c.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing paper %s: %w", p.ID, err)
	}
	return ordinal, nil
}

// HasFingerprint reports whether a paper with the given fingerprint is stored.
func (d *DB) HasFingerprint(fingerprint string) (bool, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM papers WHERE fingerprint = ?`, fingerprint).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking fingerprint: %w", err)
	}
	return count > 0, nil
}

// GetPaper retrieves a paper by its ID. Returns nil if not found.
func (d *DB) GetPaper(id string) (*PaperRecord, error) {
	row := d.db.QueryRow(`SELECT `+selectPaperFields+` FROM papers WHERE id = ?`, id)
	return scanPaper(row)
}

// ListPapers returns all papers in ingestion order.
func (d *DB) ListPapers() ([]PaperRecord, error) {
	rows, err := d.db.Query(`SELECT ` + selectPaperFields + ` FROM papers ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("listing papers: %w", err)
	}
	defer rows.Close()

	return scanPapers(rows)
}

// CountPapers returns the total number of papers.
func (d *DB) CountPapers() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM papers").Scan(&count)
	return count, err
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPaper(s scanner) (*PaperRecord, error) {
	var rec PaperRecord
	var authorsJSON, keywordsJSON, addedAt, source string
	var venue, abstract, doi sql.NullString
	var year sql.NullInt64

	err := s.Scan(
		&rec.Ordinal, &rec.ID, &rec.Fingerprint, &rec.Title, &authorsJSON,
		&year, &venue, &abstract, &keywordsJSON, &doi,
		&rec.SourcePath, &addedAt, &source,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rec.Venue = venue.String
	rec.Abstract = abstract.String
	rec.DOI = doi.String
	rec.MetadataSource = paper.MetadataSource(source)
	if year.Valid {
		rec.Year = paper.IntPtr(int(year.Int64))
	}

	if rec.AddedAt, err = time.Parse(time.RFC3339Nano, addedAt); err != nil {
		return nil, fmt.Errorf("parsing added_at for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(authorsJSON), &rec.Authors); err != nil {
		return nil, fmt.Errorf("parsing authors JSON for %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(keywordsJSON), &rec.Keywords); err != nil {
		return nil, fmt.Errorf("parsing keywords JSON for %s: %w", rec.ID, err)
	}

	return &rec, nil
}

func scanPapers(rows *sql.Rows) ([]PaperRecord, error) {
	var recs []PaperRecord
	for rows.Next() {
		rec, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recs = append(recs, *rec)
		}
	}
	return recs, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
