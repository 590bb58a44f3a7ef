package models

import "math/big"

// NetworkMode represents the Ethereum network the contract is deployed on.
type NetworkMode string

const (
	NetworkMainnet NetworkMode = "mainnet"
	NetworkSepolia NetworkMode = "sepolia"
)

// CampaignRecord is the on-chain campaign struct as returned by the contract.
// Amounts are in wei. Timestamps are Unix seconds.
type CampaignRecord struct {
	ID           string
	Creator      string
	Title        string
	Description  string
	MetadataHash string
	TargetAmount *big.Int
	RaisedAmount *big.Int
	Deadline     int64
	CreatedAt    int64
	Active       bool
	Withdrawn    bool
}

// ContributionEvent is a single contribution transaction recorded by the contract.
// Timestamp is nil while the entry is pending.
type ContributionEvent struct {
	Contributor string
	Amount      *big.Int
	Timestamp   *int64
}

// Metadata is the off-chain description blob referenced by CampaignRecord.MetadataHash.
// It is passed through to clients untouched.
type Metadata struct {
	Image          string                 `json:"image,omitempty"`
	Category       string                 `json:"category,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	AdditionalInfo string                 `json:"additionalInfo,omitempty"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

// SyncStatus represents the outcome of a snapshot refresh cycle.
type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "RUNNING"
	SyncStatusCompleted SyncStatus = "COMPLETED"
	SyncStatusFailed    SyncStatus = "FAILED"
)

// SyncRun records one refresh cycle of the watcher.
type SyncRun struct {
	ID         string     `json:"id"`
	Status     SyncStatus `json:"status"`
	Campaigns  int        `json:"campaigns"`
	Failures   int        `json:"failures"`
	StartedAt  string     `json:"startedAt"`
	FinishedAt *string    `json:"finishedAt,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// SystemError represents a recorded provider or watcher failure.
type SystemError struct {
	ID        int    `json:"id"`
	Severity  string `json:"severity"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Resolved  bool   `json:"resolved"`
	CreatedAt string `json:"createdAt"`
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
