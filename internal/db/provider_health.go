package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// ProviderHealthRow represents a row in the provider_health table.
type ProviderHealthRow struct {
	ProviderName     string `json:"providerName"`
	CircuitState     string `json:"circuitState"`
	ConsecutiveFails int    `json:"consecutiveFails"`
	LastSuccess      string `json:"lastSuccess,omitempty"`
	LastError        string `json:"lastError,omitempty"`
	LastErrorMsg     string `json:"lastErrorMsg,omitempty"`
	UpdatedAt        string `json:"updatedAt"`
}

// RecordProviderSuccess marks a provider call as successful.
func (d *DB) RecordProviderSuccess(name, circuitState string) error {
	_, err := d.conn.Exec(
		`INSERT INTO provider_health (provider_name, circuit_state, consecutive_fails, last_success)
		 VALUES (?, ?, 0, datetime('now'))
		 ON CONFLICT(provider_name) DO UPDATE SET
		   circuit_state = excluded.circuit_state,
		   consecutive_fails = 0,
		   last_success = excluded.last_success,
		   updated_at = datetime('now')`,
		name, circuitState,
	)
	if err != nil {
		return fmt.Errorf("record provider success %s: %w", name, err)
	}
	return nil
}

// RecordProviderFailure increments the failure counter and stores the last error.
func (d *DB) RecordProviderFailure(name, circuitState, errMsg string) error {
	_, err := d.conn.Exec(
		`INSERT INTO provider_health (provider_name, circuit_state, consecutive_fails, last_error, last_error_msg)
		 VALUES (?, ?, 1, datetime('now'), ?)
		 ON CONFLICT(provider_name) DO UPDATE SET
		   circuit_state = excluded.circuit_state,
		   consecutive_fails = provider_health.consecutive_fails + 1,
		   last_error = excluded.last_error,
		   last_error_msg = excluded.last_error_msg,
		   updated_at = datetime('now')`,
		name, circuitState, errMsg,
	)
	if err != nil {
		return fmt.Errorf("record provider failure %s: %w", name, err)
	}

	slog.Debug("provider failure recorded",
		"provider", name,
		"circuitState", circuitState,
	)
	return nil
}

// GetAllProviderHealth returns all provider health records ordered by name.
func (d *DB) GetAllProviderHealth() ([]ProviderHealthRow, error) {
	rows, err := d.conn.Query(
		`SELECT provider_name, circuit_state, consecutive_fails, last_success, last_error, last_error_msg, updated_at
		 FROM provider_health ORDER BY provider_name`,
	)
	if err != nil {
		return nil, fmt.Errorf("query provider health: %w", err)
	}
	defer rows.Close()

	result := make([]ProviderHealthRow, 0)
	for rows.Next() {
		var (
			ph                                 ProviderHealthRow
			lastSuccess, lastError, lastErrMsg sql.NullString
		)
		if err := rows.Scan(&ph.ProviderName, &ph.CircuitState, &ph.ConsecutiveFails,
			&lastSuccess, &lastError, &lastErrMsg, &ph.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan provider health row: %w", err)
		}
		ph.LastSuccess = lastSuccess.String
		ph.LastError = lastError.String
		ph.LastErrorMsg = lastErrMsg.String
		result = append(result, ph)
	}
	return result, rows.Err()
}
