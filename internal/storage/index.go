package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// RecordingRecord is one row of the processed-recordings index.
type RecordingRecord struct {
	Hash        string
	Filename    string
	Duration    float64
	Language    string
	Speakers    int
	Turns       int
	JSONPath    string
	TxtPath     string
	ProcessedAt time.Time
}

// Index tracks processed recordings in a local sqlite database so
// downstream consumers (QA review, analytics) can enumerate transcripts
// without scanning the output directory.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (creating if needed) the sqlite index at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("storage: open index: %w", err)
	}

	if _, err := db.Exec(`
	PRAGMA busy_timeout = 10000;
	PRAGMA journal_mode = WAL;
	PRAGMA synchronous  = NORMAL;

	create table if not exists recordings (
		hash         text primary key not null,
		filename     text not null,
		duration     real not null,
		language     text not null,
		speakers     integer not null,
		turns        integer not null,
		json_path    text not null,
		txt_path     text not null,
		processed_at text not null
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Upsert records a processed recording, replacing any previous row for
// the same content hash (idempotent re-processing).
func (ix *Index) Upsert(ctx context.Context, rec RecordingRecord) error {
	_, err := ix.db.ExecContext(ctx, `
		insert into recordings
			(hash, filename, duration, language, speakers, turns, json_path, txt_path, processed_at)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(hash) do update set
			filename = excluded.filename,
			duration = excluded.duration,
			language = excluded.language,
			speakers = excluded.speakers,
			turns = excluded.turns,
			json_path = excluded.json_path,
			txt_path = excluded.txt_path,
			processed_at = excluded.processed_at`,
		rec.Hash, rec.Filename, rec.Duration, rec.Language, rec.Speakers,
		rec.Turns, rec.JSONPath, rec.TxtPath, rec.ProcessedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: upsert recording: %w", err)
	}
	return nil
}

// Get returns the index row for a content hash, or sql.ErrNoRows.
func (ix *Index) Get(ctx context.Context, hash string) (RecordingRecord, error) {
	var rec RecordingRecord
	var processedAt string
	err := ix.db.QueryRowContext(ctx, `
		select hash, filename, duration, language, speakers, turns, json_path, txt_path, processed_at
		from recordings where hash = ?`, hash).
		Scan(&rec.Hash, &rec.Filename, &rec.Duration, &rec.Language, &rec.Speakers,
			&rec.Turns, &rec.JSONPath, &rec.TxtPath, &processedAt)
	if err != nil {
		return RecordingRecord{}, err
	}
	rec.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
	return rec, nil
}

// List returns all index rows, most recently processed first.
func (ix *Index) List(ctx context.Context) ([]RecordingRecord, error) {
	rows, err := ix.db.QueryContext(ctx, `
		select hash, filename, duration, language, speakers, turns, json_path, txt_path, processed_at
		from recordings order by processed_at desc`)
	if err != nil {
		return nil, fmt.Errorf("storage: list recordings: %w", err)
	}
	defer rows.Close()

	var records []RecordingRecord
	for rows.Next() {
		var rec RecordingRecord
		var processedAt string
		if err := rows.Scan(&rec.Hash, &rec.Filename, &rec.Duration, &rec.Language,
			&rec.Speakers, &rec.Turns, &rec.JSONPath, &rec.TxtPath, &processedAt); err != nil {
			return nil, fmt.Errorf("storage: scan recording row: %w", err)
		}
		rec.ProcessedAt, _ = time.Parse(time.RFC3339, processedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (ix *Index) Close() error {
	return ix.db.Close()
}
