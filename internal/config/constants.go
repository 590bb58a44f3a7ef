package config

import "time"

// Campaign View
const (
	RecentContributionsLimit = 10
	PercentPrecision         = 1  // decimals shown for progress and share percentages
	WeiDecimals              = 18 // ETH and Sepolia ETH
	AmountDisplayPlaces      = 4
)

// Chain IDs
const (
	ChainIDMainnet = 1
	ChainIDSepolia = 11155111
)

// Watcher
const (
	DefaultPollInterval      = 15 * time.Second
	MinPollIntervalSec       = 2
	MaxTrackedCampaignsLimit = 5_000
	RefreshCampaignTimeout   = 20 * time.Second
	DiscrepancyCheckLimit    = 20 // contributors cross-checked against getContribution
	ShutdownTimeout          = 10 * time.Second
)

// Circuit Breaker
const (
	CircuitBreakerThreshold   = 3
	CircuitBreakerCooldown    = 30 * time.Second
	CircuitBreakerHalfOpenMax = 1

	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half_open"
)

// Rate Limiting
const (
	RateLimitBurst    = 1 // spreads requests evenly across the second
	RateLimitSlowWait = 250 * time.Millisecond
)

// HTTP clients
const (
	ProviderRequestTimeout  = 15 * time.Second
	HTTPMaxConnsPerHost     = 10
	HTTPMaxIdleConnsPerHost = 5
	HTTPMaxIdleConns        = 20
	MetadataMaxBytes        = 1 << 20
)

// Server
const (
	ServerReadTimeout    = 30 * time.Second
	ServerWriteTimeout   = 0 // SSE streams are long-lived
	ServerIdleTimeout    = 120 * time.Second
	ServerMaxHeaderBytes = 1 << 20
	APITimeout           = 30 * time.Second
	SSEKeepAliveInterval = 15 * time.Second
	SSEHubChannelBuffer  = 64
)

// Logging
const (
	LogFilePattern = "crowdfund-%s.log" // %s = YYYY-MM-DD
	LogFilePrefix  = "crowdfund-"
	LogMaxAgeDays  = 30
)

// Database
const (
	DBBusyTimeout = 5000 // milliseconds
)

// Price
const (
	CoinGeckoBaseURL   = "https://api.coingecko.com/api/v3"
	CoinGeckoIDETH     = "ethereum"
	PriceCacheDuration = 5 * time.Minute
)

// System error categories and severities (for system_errors table)
const (
	ErrorCategoryProvider = "provider"
	ErrorCategoryWatcher  = "watcher"
	ErrorCategoryMetadata = "metadata"

	ErrorSeverityWarn  = "warn"
	ErrorSeverityError = "error"
)

// SSE event types
const (
	EventCampaignUpdated = "campaign_updated"
	EventSyncComplete    = "sync_complete"
	EventSyncState       = "sync_state"
)
