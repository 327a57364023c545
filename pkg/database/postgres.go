package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Config holds the PostgreSQL connection parameters.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	MaxPool  int
}

// DB is the durable document catalog.
type DB struct {
	*sql.DB
}

// Document is a catalog row. Summary is nil until the result listener
// persists one.
type Document struct {
	ID          uuid.UUID `json:"id"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Summary     *string   `json:"summary,omitempty"`
}

// NewPostgresDB creates a new PostgreSQL connection pool
func NewPostgresDB(cfg Config) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection pool settings
	db.SetMaxOpenConns(cfg.MaxPool)
	db.SetMaxIdleConns(cfg.MaxPool / 2)
	db.SetConnMaxLifetime(time.Hour)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Migrate creates the documents table if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS documents (
			id           UUID PRIMARY KEY,
			file_name    TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size_bytes   BIGINT NOT NULL,
			uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			summary      TEXT
		)
	`

	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

// CreateDocument inserts a new catalog row.
func (db *DB) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (id, file_name, content_type, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := db.ExecContext(ctx, query,
		doc.ID, doc.FileName, doc.ContentType, doc.SizeBytes, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument returns the row for id, or nil if it does not exist.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	doc := &Document{}

	query := `
		SELECT id, file_name, content_type, size_bytes, uploaded_at, summary
		FROM documents
		WHERE id = $1
	`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.FileName,
		&doc.ContentType,
		&doc.SizeBytes,
		&doc.UploadedAt,
		&doc.Summary,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListDocuments returns all catalog rows in upload order.
func (db *DB) ListDocuments(ctx context.Context) ([]Document, error) {
	query := `
		SELECT id, file_name, content_type, size_bytes, uploaded_at, summary
		FROM documents
		ORDER BY uploaded_at ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		err := rows.Scan(
			&doc.ID,
			&doc.FileName,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.UploadedAt,
			&doc.Summary,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// DeleteDocument removes the row for id, reporting whether it existed.
func (db *DB) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	return affected > 0, nil
}

// SaveSummary persists the summary produced by the worker. Last write wins
// on concurrent updates to the same document.
func (db *DB) SaveSummary(ctx context.Context, id uuid.UUID, summary string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE documents SET summary = $1 WHERE id = $2`, summary, id)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

// GetSummary returns the stored summary for id, or "" when none exists.
func (db *DB) GetSummary(ctx context.Context, id uuid.UUID) (string, error) {
	var summary sql.NullString

	err := db.QueryRowContext(ctx,
		`SELECT summary FROM documents WHERE id = $1`, id).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get summary: %w", err)
	}

	if !summary.Valid {
		return "", nil
	}
	return summary.String, nil
}
