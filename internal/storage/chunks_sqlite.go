package storage

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scholarkb/scholarkb/internal/paper"
)

// EncodeVector serializes a vector as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector parses a blob written by EncodeVector.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// ChunkRecord is a stored chunk with its owning paper's ordinal.
type ChunkRecord struct {
	paper.Chunk
	Ordinal int64
}

// LoadChunks returns every chunk that belongs to a registered paper,
// ordered by paper ordinal and then sequence.
func (d *DB) LoadChunks() ([]ChunkRecord, error) {
	rows, err := d.db.Query(`
		SELECT p.ordinal, c.paper_id, c.seq, c.text, c.section, c.embedding
		FROM chunks c JOIN papers p ON p.id = c.paper_id
		ORDER BY p.ordinal, c.seq`)
	if err != nil {
		return nil, fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()

	var recs []ChunkRecord
	for rows.Next() {
		var rec ChunkRecord
		var section sql.NullString
		var blob []byte
		if err := rows.Scan(&rec.Ordinal, &rec.PaperID, &rec.Seq, &rec.Text, &section, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		rec.Section = section.String
		if rec.Embedding, err = DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("chunk %s/%d: %w", rec.PaperID, rec.Seq, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountChunks returns the number of chunks owned by registered papers.
func (d *DB) CountChunks() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE paper_id IN (SELECT id FROM papers)`).Scan(&count)
	return count, err
}

// ReplaceEmbeddings overwrites the stored vectors of the given chunks and
// records the model they were produced with, in one transaction.
func (d *DB) ReplaceEmbeddings(chunks []paper.Chunk, model string, dimensions int) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`UPDATE chunks SET embedding = ? WHERE paper_id = ? AND seq = ?`)
	if err != nil {
		return fmt.Errorf("preparing embedding update: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.Exec(EncodeVector(c.Embedding), c.PaperID, c.Seq); err != nil {
			return fmt.Errorf("updating chunk %s/%d: %w", c.PaperID, c.Seq, err)
		}
	}
	if err := setIndexMeta(tx, model, dimensions); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing embeddings: %w", err)
	}
	return nil
}

// Compact deletes chunks whose paper is no longer registered and reclaims
// free pages. It returns the number of chunks removed.
func (d *DB) Compact() (int, error) {
	res, err := d.db.Exec(`DELETE FROM chunks WHERE paper_id NOT IN (SELECT id FROM papers)`)
	if err != nil {
		return 0, fmt.Errorf("deleting orphan chunks: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting removed chunks: %w", err)
	}
	if _, err := d.db.Exec(`VACUUM`); err != nil {
		return 0, fmt.Errorf("vacuuming database: %w", err)
	}
	return int(removed), nil
}

// IndexReport summarizes the consistency of the stored index.
type IndexReport struct {
	Papers              int        `json:"papers"`
	Chunks              int        `json:"chunks"`
	OrphanChunks        int        `json:"orphan_chunks"`
	PapersWithoutChunks []string   `json:"papers_without_chunks,omitempty"`
	BadVectors          int        `json:"bad_vectors"`
	Meta                *IndexMeta `json:"meta,omitempty"`
}

// Healthy reports whether the index has no inconsistencies.
func (r *IndexReport) Healthy() bool {
	return r.OrphanChunks == 0 && len(r.PapersWithoutChunks) == 0 && r.BadVectors == 0
}

// Check inspects the stored papers and chunks for inconsistencies.
func (d *DB) Check() (*IndexReport, error) {
	report := &IndexReport{}
	var err error

	if report.Papers, err = d.CountPapers(); err != nil {
		return nil, fmt.Errorf("counting papers: %w", err)
	}
	if report.Chunks, err = d.CountChunks(); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}
	err = d.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE paper_id NOT IN (SELECT id FROM papers)`).Scan(&report.OrphanChunks)
	if err != nil {
		return nil, fmt.Errorf("counting orphan chunks: %w", err)
	}

	rows, err := d.db.Query(`SELECT id FROM papers WHERE id NOT IN (SELECT DISTINCT paper_id FROM chunks) ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("finding papers without chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		report.PapersWithoutChunks = append(report.PapersWithoutChunks, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if report.Meta, err = d.GetIndexMeta(); err != nil {
		return nil, err
	}
	if report.Meta != nil {
		err = d.db.QueryRow(`SELECT COUNT(*) FROM chunks WHERE LENGTH(embedding) != ?`, 4*report.Meta.Dimensions).Scan(&report.BadVectors)
		if err != nil {
			return nil, fmt.Errorf("counting bad vectors: %w", err)
		}
	}

	return report, nil
}
