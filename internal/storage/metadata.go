package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yoyole123/gdrive-transcriber/internal/types"
)

// MetadataDB records per-recording run outcomes in SQLite
type MetadataDB struct {
	db *sql.DB
}

// NewMetadataDB opens (and if needed initializes) the metadata database
func NewMetadataDB(dbPath string) (*MetadataDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS transcripts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL UNIQUE,
		file_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		local_path TEXT NOT NULL,
		segment_count INTEGER,
		placeholder_count INTEGER,
		balance TEXT,
		email_sent INTEGER,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON transcripts(created_at);
	CREATE INDEX IF NOT EXISTS idx_file_name ON transcripts(file_name);
	`

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MetadataDB{db: db}, nil
}

// SaveResult records the outcome of one processed recording
func (mdb *MetadataDB) SaveResult(result *types.FileResult) error {
	query := `
	INSERT INTO transcripts (job_id, file_id, file_name, local_path, segment_count, placeholder_count, balance, email_sent, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := mdb.db.Exec(query,
		result.JobID, result.FileID, result.FileName, result.LocalPath,
		result.SegmentCount, result.Placeholders, result.Balance,
		result.EmailSent, result.ProcessedAt)
	if err != nil {
		return fmt.Errorf("failed to save transcript metadata: %w", err)
	}
	return nil
}

// GetTranscript retrieves one recording's metadata by job id
func (mdb *MetadataDB) GetTranscript(jobID string) (map[string]interface{}, error) {
	query := `
	SELECT job_id, file_id, file_name, local_path, segment_count, placeholder_count, balance, email_sent, created_at
	FROM transcripts WHERE job_id = ?
	`

	row := mdb.db.QueryRow(query, jobID)
	return scanTranscript(row.Scan)
}

// ListTranscripts returns the most recent recordings, newest first
func (mdb *MetadataDB) ListTranscripts(limit int) ([]map[string]interface{}, error) {
	query := `
	SELECT job_id, file_id, file_name, local_path, segment_count, placeholder_count, balance, email_sent, created_at
	FROM transcripts ORDER BY created_at DESC LIMIT ?
	`

	rows, err := mdb.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []map[string]interface{}
	for rows.Next() {
		entry, err := scanTranscript(rows.Scan)
		if err != nil {
			continue
		}
		transcripts = append(transcripts, entry)
	}
	return transcripts, rows.Err()
}

// scanTranscript maps one transcripts row into a JSON-friendly map
func scanTranscript(scan func(dest ...interface{}) error) (map[string]interface{}, error) {
	var (
		jobID, fileID, fileName, localPath, balance string
		segmentCount, placeholderCount              int
		emailSent                                   bool
		createdAt                                   time.Time
	)

	err := scan(&jobID, &fileID, &fileName, &localPath, &segmentCount, &placeholderCount, &balance, &emailSent, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcript row: %w", err)
	}

	return map[string]interface{}{
		"job_id":            jobID,
		"file_id":           fileID,
		"file_name":         fileName,
		"local_path":        localPath,
		"segment_count":     segmentCount,
		"placeholder_count": placeholderCount,
		"balance":           balance,
		"email_sent":        emailSent,
		"created_at":        createdAt,
	}, nil
}

// Close closes the database connection
func (mdb *MetadataDB) Close() error {
	return mdb.db.Close()
}
