package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Fantasim/crowdfund/internal/models"
)

// ReplaceContributions atomically replaces the stored contribution log of a campaign.
// The slice order is preserved through the seq column.
func (d *DB) ReplaceContributions(campaignID string, events []models.ContributionEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin contributions tx: %w", err)
	}
	defer tx.Rollback()

	if err := replaceContributions(tx, campaignID, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contributions for %s: %w", campaignID, err)
	}

	slog.Debug("contributions replaced",
		"campaignID", campaignID,
		"count", len(events),
	)
	return nil
}

// SaveSnapshot stores a campaign record together with its contribution log in one
// transaction, so readers never see a raised amount paired with a stale log.
func (d *DB) SaveSnapshot(c models.CampaignRecord, events []models.ContributionEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if err := upsertCampaign(tx, c); err != nil {
		return err
	}
	if err := replaceContributions(tx, c.ID, events); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot for %s: %w", c.ID, err)
	}

	slog.Debug("campaign snapshot saved",
		"campaignID", c.ID,
		"raised", c.RaisedAmount.String(),
		"contributions", len(events),
	)
	return nil
}

func replaceContributions(tx *sql.Tx, campaignID string, events []models.ContributionEvent) error {
	id, err := parseCampaignID(campaignID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM contributions WHERE campaign_id = ?`, id); err != nil {
		return fmt.Errorf("clear contributions for %s: %w", campaignID, err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO contributions (campaign_id, seq, contributor, amount, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare contribution insert: %w", err)
	}
	defer stmt.Close()

	for i, ev := range events {
		if ev.Amount == nil {
			return fmt.Errorf("contribution %d of campaign %s has no amount", i, campaignID)
		}
		var ts sql.NullInt64
		if ev.Timestamp != nil {
			ts = sql.NullInt64{Int64: *ev.Timestamp, Valid: true}
		}
		if _, err := stmt.Exec(id, i, ev.Contributor, ev.Amount.String(), ts); err != nil {
			return fmt.Errorf("insert contribution %d of campaign %s: %w", i, campaignID, err)
		}
	}
	return nil
}

// ListContributions returns the stored contribution log of a campaign in contract order.
func (d *DB) ListContributions(campaignID string) ([]models.ContributionEvent, error) {
	id, err := parseCampaignID(campaignID)
	if err != nil {
		return nil, err
	}

	rows, err := d.conn.Query(
		`SELECT contributor, amount, timestamp FROM contributions
		 WHERE campaign_id = ? ORDER BY seq ASC`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("query contributions for %s: %w", campaignID, err)
	}
	defer rows.Close()

	events := make([]models.ContributionEvent, 0)
	for rows.Next() {
		var (
			ev     models.ContributionEvent
			amount string
			ts     sql.NullInt64
		)
		if err := rows.Scan(&ev.Contributor, &amount, &ts); err != nil {
			return nil, fmt.Errorf("scan contribution row: %w", err)
		}
		if ev.Amount, err = parseAmount(amount); err != nil {
			return nil, err
		}
		if ts.Valid {
			ev.Timestamp = models.Int64Ptr(ts.Int64)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
