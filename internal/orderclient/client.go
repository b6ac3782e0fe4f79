package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/noah-isme/backend-billing/internal/billing"
	"github.com/noah-isme/backend-billing/internal/resilience"
)

// ErrNotFound indicates the requested order does not exist on the order
// service.
var ErrNotFound = errors.New("orderclient: order not found")

// Client talks to the external order/quote service. Loads happen on the
// editing path; creates and updates are issued by the submit worker and are
// fire-and-forget from the editor's perspective.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *resilience.HTTPClient
}

// New wires a client with an instrumented, breaker-guarded transport.
func New(baseURL, apiKey string, httpClient *resilience.HTTPClient) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    httpClient,
	}
}

// GetOrder loads the persisted record for an order being opened for edit.
func (c *Client) GetOrder(ctx context.Context, orderID string) (billing.PersistedOrder, error) {
	var rec billing.PersistedOrder
	if c == nil || c.HTTP == nil {
		return rec, errors.New("orderclient: not configured")
	}
	if strings.TrimSpace(orderID) == "" {
		return rec, errors.New("orderclient: order id required")
	}
	endpoint := fmt.Sprintf("%s/orders/%s", c.BaseURL, url.PathEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return rec, fmt.Errorf("orderclient: build request: %w", err)
	}
	c.decorate(req)
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return rec, fmt.Errorf("orderclient: get order %s: %w", orderID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return rec, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return rec, fmt.Errorf("orderclient: get order %s: unexpected status %s", orderID, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return rec, fmt.Errorf("orderclient: decode order %s: %w", orderID, err)
	}
	return rec, nil
}

// CreateOrder submits a brand-new order.
func (c *Client) CreateOrder(ctx context.Context, data billing.BillingData) error {
	return c.post(ctx, http.MethodPost, c.BaseURL+"/orders", data)
}

// UpdateOrder replaces a persisted order with the edited state.
func (c *Client) UpdateOrder(ctx context.Context, data billing.BillingData) error {
	if strings.TrimSpace(data.OrderID) == "" {
		return errors.New("orderclient: order id required for update")
	}
	endpoint := fmt.Sprintf("%s/orders/%s", c.BaseURL, url.PathEscape(data.OrderID))
	return c.post(ctx, http.MethodPut, endpoint, data)
}

func (c *Client) post(ctx context.Context, method, endpoint string, data billing.BillingData) error {
	if c == nil || c.HTTP == nil {
		return errors.New("orderclient: not configured")
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("orderclient: encode billing data: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("orderclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.decorate(req)
	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("orderclient: %s %s: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("orderclient: %s %s: unexpected status %s", method, endpoint, resp.Status)
	}
	return nil
}

// Ping probes the order service health endpoint for readiness checks.
func (c *Client) Ping(ctx context.Context, timeout time.Duration) error {
	if c == nil || c.HTTP == nil || c.HTTP.Client == nil {
		return errors.New("orderclient: not configured")
	}
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("orderclient: health status %s", resp.Status)
	}
	return nil
}

func (c *Client) decorate(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	req.Header.Set("Accept", "application/json")
}
