package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Fantasim/crowdfund/internal/models"
)

// StartSyncRun records the beginning of a watcher refresh cycle.
func (d *DB) StartSyncRun(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if _, err := d.conn.Exec(
		`INSERT INTO sync_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(models.SyncStatusRunning), now,
	); err != nil {
		return fmt.Errorf("start sync run %s: %w", id, err)
	}

	slog.Debug("sync run started", "syncID", id)
	return nil
}

// FinishSyncRun closes a refresh cycle. A non-empty errMsg marks the run as failed.
func (d *DB) FinishSyncRun(id string, campaigns, failures int, errMsg string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	status := models.SyncStatusCompleted
	var errCol sql.NullString
	if errMsg != "" {
		status = models.SyncStatusFailed
		errCol = sql.NullString{String: errMsg, Valid: true}
	}

	result, err := d.conn.Exec(
		`UPDATE sync_runs SET status = ?, campaigns = ?, failures = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(status), campaigns, failures, errCol, now, id,
	)
	if err != nil {
		return fmt.Errorf("finish sync run %s: %w", id, err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("sync run %s not found", id)
	}

	slog.Debug("sync run finished",
		"syncID", id,
		"status", status,
		"campaigns", campaigns,
		"failures", failures,
	)
	return nil
}

// LatestSyncRun returns the most recently started run, or nil if none exist.
func (d *DB) LatestSyncRun() (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		status     string
		finishedAt sql.NullString
		errMsg     sql.NullString
	)
	err := d.conn.QueryRow(
		`SELECT id, status, campaigns, failures, started_at, finished_at, error
		 FROM sync_runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &status, &run.Campaigns, &run.Failures, &run.StartedAt, &finishedAt, &errMsg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest sync run: %w", err)
	}

	run.Status = models.SyncStatus(status)
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.String
	}
	if errMsg.Valid {
		run.Error = &errMsg.String
	}
	return &run, nil
}
