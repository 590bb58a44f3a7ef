package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Fantasim/crowdfund/internal/config"
	"github.com/Fantasim/crowdfund/internal/models"
	"github.com/Fantasim/crowdfund/internal/provider"
	"github.com/Fantasim/crowdfund/internal/validate"
)

// Client fetches campaign metadata documents from an IPFS HTTP gateway.
// Documents are content-addressed, so a fetched hash is cached for the life of the process.
type Client struct {
	client  *http.Client
	gateway string
	guard   *provider.Guard
	cache   map[string]*models.Metadata
	mu      sync.RWMutex
}

// NewClient creates a gateway client. rps bounds requests per second to the gateway.
func NewClient(gateway string, rps int) *Client {
	gateway = strings.TrimRight(gateway, "/")
	slog.Info("ipfs client initialized", "gateway", gateway)

	return &Client{
		client:  provider.NewHTTPClient(),
		gateway: gateway,
		guard:   provider.NewGuard("ipfs", rps),
		cache:   make(map[string]*models.Metadata),
	}
}

// Fetch returns the metadata document for hash.
func (c *Client) Fetch(ctx context.Context, hash string) (*models.Metadata, error) {
	if err := validate.MetadataHash(hash); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidMetadataHash, err)
	}

	c.mu.RLock()
	if md, ok := c.cache[hash]; ok {
		c.mu.RUnlock()
		slog.Debug("metadata cache hit", "hash", hash)
		return md, nil
	}
	c.mu.RUnlock()

	var (
		body   []byte
		status int
	)
	url := fmt.Sprintf("%s/ipfs/%s", c.gateway, hash)
	start := time.Now()

	err := c.guard.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("gateway HTTP %d", status)
		}
		if status != http.StatusOK {
			return nil
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, config.MetadataMaxBytes))
		return err
	})
	if err != nil {
		slog.Warn("metadata fetch failed",
			"hash", hash,
			"error", err,
			"elapsed", time.Since(start).Round(time.Millisecond),
		)
		return nil, config.NewTransientError(fmt.Errorf("%w: %s: %v", config.ErrMetadataFetchFailed, hash, err))
	}
	if status != http.StatusOK {
		slog.Warn("metadata gateway non-200 response",
			"hash", hash,
			"status", status,
		)
		return nil, fmt.Errorf("%w: %s: HTTP %d", config.ErrMetadataFetchFailed, hash, status)
	}

	md, err := decodeMetadata(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", config.ErrMetadataFetchFailed, hash, err)
	}

	c.mu.Lock()
	c.cache[hash] = md
	c.mu.Unlock()

	slog.Info("metadata fetched",
		"hash", hash,
		"bytes", len(body),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return md, nil
}

// decodeMetadata maps the known document fields and keeps every other key in Extra.
func decodeMetadata(body []byte) (*models.Metadata, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	md := &models.Metadata{}
	for key, value := range raw {
		switch key {
		case "image":
			md.Image, _ = value.(string)
		case "category":
			md.Category, _ = value.(string)
		case "additionalInfo":
			md.AdditionalInfo, _ = value.(string)
		case "tags":
			list, _ := value.([]interface{})
			for _, item := range list {
				if tag, ok := item.(string); ok {
					md.Tags = append(md.Tags, tag)
				}
			}
		default:
			if md.Extra == nil {
				md.Extra = make(map[string]interface{})
			}
			md.Extra[key] = value
		}
	}
	return md, nil
}
