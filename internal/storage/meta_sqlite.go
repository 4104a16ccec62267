package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// ErrModelMismatch indicates the stored vectors were built with a different
// embedding model or dimensions than the one configured.
var ErrModelMismatch = errors.New("index was built with a different embedding model")

const (
	metaKeyModel      = "model"
	metaKeyDimensions = "dimensions"
)

// IndexMeta describes the embedding model of the stored vectors.
type IndexMeta struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// GetIndexMeta returns the recorded embedding model, or nil if none is recorded yet.
func (d *DB) GetIndexMeta() (*IndexMeta, error) {
	rows, err := d.db.Query(`SELECT key, value FROM index_meta`)
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning index metadata: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	model, ok := values[metaKeyModel]
	if !ok {
		return nil, nil
	}
	dims, err := strconv.Atoi(values[metaKeyDimensions])
	if err != nil {
		return nil, fmt.Errorf("parsing index dimensions: %w", err)
	}
	return &IndexMeta{Model: model, Dimensions: dims}, nil
}

// EnsureIndexMeta records model and dimensions on first use and afterwards
// returns ErrModelMismatch if they differ from what was recorded.
func (d *DB) EnsureIndexMeta(model string, dimensions int) error {
	meta, err := d.GetIndexMeta()
	if err != nil {
		return err
	}
	if meta == nil {
		tx, err := d.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()
		if err := setIndexMeta(tx, model, dimensions); err != nil {
			return err
		}
		return tx.Commit()
	}
	if meta.Model != model || meta.Dimensions != dimensions {
		return fmt.Errorf("%w: stored %s (%d dims), configured %s (%d dims)",
			ErrModelMismatch, meta.Model, meta.Dimensions, model, dimensions)
	}
	return nil
}

func setIndexMeta(tx *sql.Tx, model string, dimensions int) error {
	stmt := `INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`
	if _, err := tx.Exec(stmt, metaKeyModel, model); err != nil {
		return fmt.Errorf("saving index model: %w", err)
	}
	if _, err := tx.Exec(stmt, metaKeyDimensions, strconv.Itoa(dimensions)); err != nil {
		return fmt.Errorf("saving index dimensions: %w", err)
	}
	return nil
}
