package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var contractAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DBPath   string `envconfig:"CROWDFUND_DB_PATH" default:"./data/crowdfund.sqlite"`
	Host     string `envconfig:"CROWDFUND_HOST" default:"127.0.0.1"`
	Port     int    `envconfig:"CROWDFUND_PORT" default:"8080"`
	LogLevel string `envconfig:"CROWDFUND_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"CROWDFUND_LOG_DIR" default:"./logs"`
	Network  string `envconfig:"CROWDFUND_NETWORK" default:"sepolia"`

	RPCURL          string `envconfig:"CROWDFUND_RPC_URL" required:"true"`
	ContractAddress string `envconfig:"CROWDFUND_CONTRACT_ADDRESS" required:"true"`
	IPFSGateway     string `envconfig:"CROWDFUND_IPFS_GATEWAY" default:"https://ipfs.io"`
	RPCRateLimit    int    `envconfig:"CROWDFUND_RPC_RPS" default:"10"`
	IPFSRateLimit   int    `envconfig:"CROWDFUND_IPFS_RPS" default:"5"`

	PollIntervalSec     int    `envconfig:"CROWDFUND_POLL_INTERVAL_SEC" default:"15"`
	MaxTrackedCampaigns int    `envconfig:"CROWDFUND_MAX_TRACKED_CAMPAIGNS" default:"200"`
	FirstCampaignID     uint64 `envconfig:"CROWDFUND_FIRST_CAMPAIGN_ID" default:"0"`
	CurrencySymbol      string `envconfig:"CROWDFUND_CURRENCY_SYMBOL" default:"ETH"`
	PriceEnabled        bool   `envconfig:"CROWDFUND_PRICE_ENABLED" default:"true"`

	CORSOrigins []string `envconfig:"CROWDFUND_CORS_ORIGINS" default:"http://localhost:3000"`
}

// Load reads configuration from .env file (if present) then from environment variables.
// Environment variables override .env values.
func Load() (*Config, error) {
	// godotenv does NOT override already-set env vars.
	envFiles := []string{".env"}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				slog.Warn("failed to load .env file", "file", f, "error", err)
			} else {
				slog.Info("loaded .env file", "file", f)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.Network != "mainnet" && c.Network != "sepolia" {
		return fmt.Errorf("%w: network must be \"mainnet\" or \"sepolia\", got %q", ErrInvalidConfig, c.Network)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if !strings.HasPrefix(c.RPCURL, "http://") && !strings.HasPrefix(c.RPCURL, "https://") &&
		!strings.HasPrefix(c.RPCURL, "ws://") && !strings.HasPrefix(c.RPCURL, "wss://") {
		return fmt.Errorf("%w: rpc url must be http(s) or ws(s), got %q", ErrInvalidConfig, c.RPCURL)
	}
	if !contractAddressRegex.MatchString(c.ContractAddress) {
		return fmt.Errorf("%w: contract address must match 0x + 40 hex characters, got %q", ErrInvalidConfig, c.ContractAddress)
	}
	if c.RPCRateLimit < 0 || c.IPFSRateLimit < 0 {
		return fmt.Errorf("%w: rate limits must be >= 0 (0 disables), got rpc=%d ipfs=%d", ErrInvalidConfig, c.RPCRateLimit, c.IPFSRateLimit)
	}
	if c.PollIntervalSec < MinPollIntervalSec {
		return fmt.Errorf("%w: poll interval must be >= %d seconds, got %d", ErrInvalidConfig, MinPollIntervalSec, c.PollIntervalSec)
	}
	if c.MaxTrackedCampaigns < 1 || c.MaxTrackedCampaigns > MaxTrackedCampaignsLimit {
		return fmt.Errorf("%w: max tracked campaigns must be 1-%d, got %d", ErrInvalidConfig, MaxTrackedCampaignsLimit, c.MaxTrackedCampaigns)
	}
	return nil
}
