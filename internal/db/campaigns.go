package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/Fantasim/crowdfund/internal/models"
)

const campaignColumns = `id, creator, title, description, metadata_hash,
	target_amount, raised_amount, deadline, created_at, active, withdrawn`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// UpsertCampaign stores the latest snapshot of a campaign record.
func (d *DB) UpsertCampaign(c models.CampaignRecord) error {
	return upsertCampaign(d.conn, c)
}

func upsertCampaign(ex execer, c models.CampaignRecord) error {
	id, err := parseCampaignID(c.ID)
	if err != nil {
		return err
	}
	if c.TargetAmount == nil || c.RaisedAmount == nil {
		return fmt.Errorf("upsert campaign %s: amounts must be set", c.ID)
	}

	_, err = ex.Exec(
		`INSERT INTO campaigns (`+campaignColumns+`, synced_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		 ON CONFLICT(id) DO UPDATE SET
		   creator = excluded.creator,
		   title = excluded.title,
		   description = excluded.description,
		   metadata_hash = excluded.metadata_hash,
		   target_amount = excluded.target_amount,
		   raised_amount = excluded.raised_amount,
		   deadline = excluded.deadline,
		   created_at = excluded.created_at,
		   active = excluded.active,
		   withdrawn = excluded.withdrawn,
		   synced_at = excluded.synced_at`,
		id, c.Creator, c.Title, c.Description, c.MetadataHash,
		c.TargetAmount.String(), c.RaisedAmount.String(),
		c.Deadline, c.CreatedAt, c.Active, c.Withdrawn,
	)
	if err != nil {
		return fmt.Errorf("upsert campaign %s: %w", c.ID, err)
	}

	slog.Debug("campaign upserted",
		"id", c.ID,
		"raised", c.RaisedAmount.String(),
		"active", c.Active,
	)
	return nil
}

// GetCampaign returns a campaign snapshot. Returns nil if the campaign is not stored.
func (d *DB) GetCampaign(id string) (*models.CampaignRecord, error) {
	numericID, err := parseCampaignID(id)
	if err != nil {
		return nil, err
	}

	row := d.conn.QueryRow(`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, numericID)
	c, err := scanCampaign(row)
	if err == sql.ErrNoRows {
		slog.Debug("campaign not stored", "id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query campaign %s: %w", id, err)
	}
	return c, nil
}

// ListCampaigns returns stored campaigns, newest first.
func (d *DB) ListCampaigns() ([]models.CampaignRecord, error) {
	rows, err := d.conn.Query(`SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := make([]models.CampaignRecord, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}

	slog.Debug("campaigns listed", "count", len(campaigns))
	return campaigns, nil
}

// CountCampaigns returns the number of stored campaigns.
func (d *DB) CountCampaigns() (int, error) {
	var n int
	if err := d.conn.QueryRow(`SELECT COUNT(*) FROM campaigns`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count campaigns: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*models.CampaignRecord, error) {
	var (
		c              models.CampaignRecord
		id             uint64
		target, raised string
	)
	if err := row.Scan(&id, &c.Creator, &c.Title, &c.Description, &c.MetadataHash,
		&target, &raised, &c.Deadline, &c.CreatedAt, &c.Active, &c.Withdrawn); err != nil {
		return nil, err
	}

	var err error
	c.ID = strconv.FormatUint(id, 10)
	if c.TargetAmount, err = parseAmount(target); err != nil {
		return nil, fmt.Errorf("campaign %s target: %w", c.ID, err)
	}
	if c.RaisedAmount, err = parseAmount(raised); err != nil {
		return nil, fmt.Errorf("campaign %s raised: %w", c.ID, err)
	}
	return &c, nil
}

func parseCampaignID(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid campaign id %q: %w", id, err)
	}
	return n, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stored amount %q", s)
	}
	return v, nil
}
