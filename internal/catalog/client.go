package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-billing/internal/resilience"
)

// ErrNotFound indicates the product does not exist in the directory.
var ErrNotFound = errors.New("catalog: product not found")

// Product is the master record the billing editor needs: the catalog price
// is the pre-discount rate for new lines and the first reconstruction rule
// for loaded ones.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Client resolves products against the directory service with a Redis
// read-through cache in front of it.
type Client struct {
	BaseURL  string
	HTTP     *resilience.HTTPClient
	Redis    *redis.Client
	CacheTTL time.Duration
}

func (c *Client) cacheKey(productID string) string {
	return "catalog:product:" + productID
}

// Lookup returns the master record for a product, preferring the cache.
func (c *Client) Lookup(ctx context.Context, productID string) (Product, error) {
	var p Product
	if c == nil || c.HTTP == nil {
		return p, errors.New("catalog: client not configured")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return p, errors.New("catalog: product id required")
	}
	if c.fromCache(ctx, productID, &p) {
		return p, nil
	}
	endpoint := fmt.Sprintf("%s/products/%s", strings.TrimRight(c.BaseURL, "/"), url.PathEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return p, fmt.Errorf("catalog: build request: %w", err)
	}
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return p, fmt.Errorf("catalog: lookup %s: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return p, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return p, fmt.Errorf("catalog: lookup %s: unexpected status %s", productID, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return p, fmt.Errorf("catalog: decode product %s: %w", productID, err)
	}
	c.store(ctx, productID, p)
	return p, nil
}

func (c *Client) fromCache(ctx context.Context, productID string, dst *Product) bool {
	if c.Redis == nil || c.CacheTTL <= 0 {
		return false
	}
	data, err := c.Redis.Get(ctx, c.cacheKey(productID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *Client) store(ctx context.Context, productID string, p Product) {
	if c.Redis == nil || c.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = c.Redis.Set(ctx, c.cacheKey(productID), data, c.CacheTTL).Err()
}
