package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	xhttp "PumpRadar/pkg/http"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuote is returned when the upstream value is missing or not positive.
	ErrInvalidQuote = errors.New("upstream: invalid quote")
)

type tickerResponse struct {
	Price decimal.Decimal `json:"price"`
}

type statsResponse struct {
	Volume decimal.Decimal `json:"volume"`
}

// Client reads prices and 24h volume from an exchange REST API
// (GET /products/{symbol}/ticker and /products/{symbol}/stats).
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// NewClient creates a Client. timeout bounds every request.
func NewClient(baseURL string, timeout time.Duration, opts ...xhttp.ClientOption) *Client {
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(opts...),
	}
}

// FetchPrice returns the last trade price for symbol.
func (c *Client) FetchPrice(ctx context.Context, symbol string) (float64, error) {
	var out tickerResponse
	if err := c.get(ctx, symbol, "ticker", &out); err != nil {
		return 0, err
	}
	return positive(symbol, "price", out.Price)
}

// FetchVolume returns the rolling 24h base volume for symbol.
func (c *Client) FetchVolume(ctx context.Context, symbol string) (float64, error) {
	var out statsResponse
	if err := c.get(ctx, symbol, "stats", &out); err != nil {
		return 0, err
	}
	return positive(symbol, "volume", out.Volume)
}

func (c *Client) get(ctx context.Context, symbol, resource string, dest interface{}) error {
	u := fmt.Sprintf("%s/products/%s/%s", c.baseURL, url.PathEscape(symbol), resource)
	if err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: "GET", URL: u}, dest); err != nil {
		return fmt.Errorf("%s %s: %w", resource, symbol, err)
	}
	return nil
}

func positive(symbol, field string, d decimal.Decimal) (float64, error) {
	if !d.IsPositive() {
		return 0, fmt.Errorf("%s %s=%s: %w", symbol, field, d.String(), ErrInvalidQuote)
	}
	f, _ := d.Float64()
	return f, nil
}
