// Package llama looks up native asset yields from the DeFiLlama yields API.
package llama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public yields API.
const DefaultBaseURL = "https://yields.llama.fi"

var (
	// ErrPoolNotFound is returned when no pool matches the id.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrFieldMissing is returned when neither the field nor its fallbacks hold a number.
	ErrFieldMissing = errors.New("field missing")
)

// fallbackFields lists the fields tried after the requested one.
var fallbackFields = map[string][]string{
	"apyReward": {"apy", "apyBase", "apyMean30d"},
}

// Client fetches the pools list and caches it for a TTL.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
	ttl     time.Duration
	now     func() time.Time

	group     singleflight.Group
	mu        sync.Mutex
	pools     map[string]map[string]any
	fetchedAt time.Time
}

// New builds a client. An empty baseURL selects DefaultBaseURL; ttl <= 0 disables caching.
func New(baseURL string, timeout, ttl time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
		},
		log: log,
		ttl: ttl,
		now: time.Now,
	}
}

type poolsResponse struct {
	Data []map[string]any `json:"data"`
}

// Pools returns every pool keyed by pool id.
func (c *Client) Pools(ctx context.Context) (map[string]map[string]any, error) {
	c.mu.Lock()
	if c.pools != nil && c.ttl > 0 && c.now().Sub(c.fetchedAt) < c.ttl {
		pools := c.pools
		c.mu.Unlock()
		return pools, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do("pools", func() (any, error) {
		pools, err := c.fetchPools(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.pools = pools
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return pools, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]map[string]any), nil
}

func (c *Client) fetchPools(ctx context.Context) (map[string]map[string]any, error) {
	url := c.baseURL + "/pools"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	var data poolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode pools: %w", err)
	}

	pools := make(map[string]map[string]any, len(data.Data))
	for _, pool := range data.Data {
		id, ok := pool["pool"].(string)
		if !ok || id == "" {
			continue
		}
		if _, exists := pools[id]; !exists {
			pools[id] = pool
		}
	}
	c.log.Debug("defillama pools fetched", zap.Int("pools", len(pools)))
	return pools, nil
}

// PoolField returns field of pool, walking the fallbacks of the field when it is not numeric.
func (c *Client) PoolField(ctx context.Context, pool, field string) (float64, error) {
	pool = strings.TrimSpace(pool)
	field = strings.TrimSpace(field)

	pools, err := c.Pools(ctx)
	if err != nil {
		return 0, err
	}
	entry, ok := pools[pool]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPoolNotFound, pool)
	}

	candidates := append([]string{field}, fallbackFields[field]...)
	for _, name := range candidates {
		if value, ok := asFloat(entry[name]); ok {
			return value, nil
		}
	}
	return 0, fmt.Errorf("%w: %s on %s", ErrFieldMissing, field, pool)
}

// NativeYield returns the pool field in percent, or 0 on any failure. Empty pool or field
// returns 0 without a request.
func (c *Client) NativeYield(ctx context.Context, pool, field string) float64 {
	if strings.TrimSpace(pool) == "" || strings.TrimSpace(field) == "" {
		return 0
	}
	value, err := c.PoolField(ctx, pool, field)
	if err != nil {
		c.log.Warn("native yield lookup failed", zap.String("pool", pool), zap.String("field", field), zap.Error(err))
		return 0
	}
	return value
}

func asFloat(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case bool:
		if v {
			f = 1
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
