package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/birizinit/meuacessor/src/logger"
	"github.com/birizinit/meuacessor/src/metrics"
)

// APIError is a non-2xx response from the broker API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("broker API error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the MyBroker trade API. Requests authenticate with the
// per-user api-token header plus an x-timestamp of the current unix second.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient builds a client bound to one user's broker token.
func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar for broker client", "error", err)
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiToken: apiToken,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		now: time.Now,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating broker request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-token", c.apiToken)
	req.Header.Set("x-timestamp", strconv.FormatInt(c.now().Unix(), 10))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBrokerRequest(path, "transport_error", time.Since(start))
		return fmt.Errorf("calling broker API %s: %w", path, err)
	}
	defer resp.Body.Close()
	metrics.ObserveBrokerRequest(path, strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("reading broker API response for %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: parseAPIError(body, resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding broker API response for %s: %w", path, err)
	}
	return nil
}

// parseAPIError digs the human message out of the broker's error payload,
// which nests it under data.message, message or error depending on the
// endpoint. Falls back to the raw body, then a generic status line.
func parseAPIError(body []byte, status int) string {
	var payload struct {
		Data *struct {
			Message string `json:"message"`
		} `json:"data"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Data != nil && payload.Data.Message != "" {
			return payload.Data.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" && len(trimmed) <= 512 {
		return trimmed
	}
	return fmt.Sprintf("API error: %d", status)
}

// UserInfo fetches the broker-side profile of the token owner.
func (c *Client) UserInfo(ctx context.Context) (*UserData, error) {
	var user UserData
	if err := c.get(ctx, "/token/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Trades fetches one page of the user's trade history.
func (c *Client) Trades(ctx context.Context, page, pageSize int) (*TradesResponse, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(pageSize))
	var resp TradesResponse
	if err := c.get(ctx, "/token/trades", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AllTrades walks the paginated trade endpoint until the inferred last page
// or maxPages, whichever comes first, and returns the concatenated result.
func (c *Client) AllTrades(ctx context.Context, pageSize, maxPages int) ([]Trade, error) {
	var all []Trade
	for page := 1; page <= maxPages; page++ {
		resp, err := c.Trades(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if len(resp.Data) == 0 || page >= resp.TotalPageCount(page, pageSize) {
			break
		}
	}
	return all, nil
}

// Wallets fetches the user's broker account balances.
func (c *Client) Wallets(ctx context.Context) ([]Wallet, error) {
	var wallets []Wallet
	if err := c.get(ctx, "/token/wallets", nil, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}
