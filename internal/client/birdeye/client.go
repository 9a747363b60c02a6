package birdeye

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Client is a read-only wrapper over the Birdeye public API. It is treated as
// a fallible, rate-limited oracle: callers pace requests and tolerate errors.
type Client struct {
	host       string
	apiKey     string
	httpClient *http.Client
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.Status, e.Body)
}

func NewClient(httpClient *http.Client, host, apiKey string) *Client {
	if host == "" {
		host = "https://public-api.birdeye.so"
	}
	host = strings.TrimRight(host, "/")
	return &Client{
		host:       host,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.host + path
	if len(query) > 0 {
		fullURL = fullURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-chain", "solana")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// Snapshot is a point-in-time view of one token. Any field may be absent.
type Snapshot struct {
	Address           string
	Symbol            string
	Name              string
	LogoURI           string
	Price             *decimal.Decimal
	MarketCap         *decimal.Decimal
	Liquidity         *decimal.Decimal
	Volume24h         *decimal.Decimal
	PriceChange24hPct *float64
	Holders           *int64
	Top10HolderPct    *float64
	LaunchedAt        *time.Time
}

type overviewEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

type overviewData struct {
	Address           string   `json:"address"`
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	LogoURI           string   `json:"logoURI"`
	Price             *float64 `json:"price"`
	MarketCap         *float64 `json:"mc"`
	Liquidity         *float64 `json:"liquidity"`
	Volume24hUSD      *float64 `json:"v24hUSD"`
	PriceChange24hPct *float64 `json:"priceChange24hPercent"`
	Holder            *int64   `json:"holder"`
}

type securityData struct {
	Top10HolderPercent *float64 `json:"top10HolderPercent"`
	CreationTime       *int64   `json:"creationTime"`
}

// FetchSnapshot composes token_overview and token_security into one Snapshot.
// A security-endpoint failure degrades to an overview-only snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, address string) (*Snapshot, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("address is required")
	}
	query := url.Values{}
	query.Set("address", address)
	body, err := c.doRequest(ctx, "/defi/token_overview", query)
	if err != nil {
		return nil, err
	}
	var env overviewEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode overview: %w", err)
	}
	var data overviewData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode overview data: %w", err)
		}
	}

	snap := &Snapshot{
		Address:           address,
		Symbol:            data.Symbol,
		Name:              data.Name,
		LogoURI:           data.LogoURI,
		Price:             decimalFromFloat(data.Price),
		MarketCap:         decimalFromFloat(data.MarketCap),
		Liquidity:         decimalFromFloat(data.Liquidity),
		Volume24h:         decimalFromFloat(data.Volume24hUSD),
		PriceChange24hPct: data.PriceChange24hPct,
		Holders:           data.Holder,
	}

	if sec, err := c.fetchSecurity(ctx, address); err == nil && sec != nil {
		snap.Top10HolderPct = sec.Top10HolderPercent
		if sec.CreationTime != nil && *sec.CreationTime > 0 {
			t := time.Unix(*sec.CreationTime, 0).UTC()
			snap.LaunchedAt = &t
		}
	}

	return snap, nil
}

func (c *Client) fetchSecurity(ctx context.Context, address string) (*securityData, error) {
	query := url.Values{}
	query.Set("address", address)
	body, err := c.doRequest(ctx, "/defi/token_security", query)
	if err != nil {
		return nil, err
	}
	var env overviewEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	var data securityData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, err
		}
	}
	return &data, nil
}

// HistoryPoint is one sample of a token's historical price series.
type HistoryPoint struct {
	Ts    time.Time
	Price decimal.Decimal
}

type historyEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Items []struct {
			UnixTime int64    `json:"unixTime"`
			Value    *float64 `json:"value"`
		} `json:"items"`
	} `json:"data"`
}

// FetchHistory returns the per-minute price series in [from, to], filtered to
// positive prices.
func (c *Client) FetchHistory(ctx context.Context, address string, from, to time.Time) ([]HistoryPoint, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("address is required")
	}
	query := url.Values{}
	query.Set("address", address)
	query.Set("address_type", "token")
	query.Set("type", "1m")
	query.Set("time_from", strconv.FormatInt(from.Unix(), 10))
	query.Set("time_to", strconv.FormatInt(to.Unix(), 10))
	body, err := c.doRequest(ctx, "/defi/history_price", query)
	if err != nil {
		return nil, err
	}
	var env historyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	points := make([]HistoryPoint, 0, len(env.Data.Items))
	for _, item := range env.Data.Items {
		if item.Value == nil || *item.Value <= 0 {
			continue
		}
		points = append(points, HistoryPoint{
			Ts:    time.Unix(item.UnixTime, 0).UTC(),
			Price: decimal.NewFromFloat(*item.Value),
		})
	}
	return points, nil
}

func decimalFromFloat(v *float64) *decimal.Decimal {
	if v == nil {
		return nil
	}
	d := decimal.NewFromFloat(*v)
	return &d
}
