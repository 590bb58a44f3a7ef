package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Fantasim/crowdfund/internal/models"
)

// SaveMetadata caches a fetched metadata document under its content hash.
func (d *DB) SaveMetadata(hash string, md *models.Metadata) error {
	doc, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata %s: %w", hash, err)
	}

	if _, err := d.conn.Exec(
		`INSERT INTO metadata (hash, document) VALUES (?, ?)
		 ON CONFLICT(hash) DO UPDATE SET document = excluded.document, fetched_at = datetime('now')`,
		hash, string(doc),
	); err != nil {
		return fmt.Errorf("save metadata %s: %w", hash, err)
	}

	slog.Debug("metadata saved", "hash", hash, "bytes", len(doc))
	return nil
}

// GetMetadata returns the cached document for hash, or nil if it was never fetched.
func (d *DB) GetMetadata(hash string) (*models.Metadata, error) {
	var doc string
	err := d.conn.QueryRow(`SELECT document FROM metadata WHERE hash = ?`, hash).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query metadata %s: %w", hash, err)
	}

	var md models.Metadata
	if err := json.Unmarshal([]byte(doc), &md); err != nil {
		return nil, fmt.Errorf("decode metadata %s: %w", hash, err)
	}
	return &md, nil
}
