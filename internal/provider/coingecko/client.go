package coingecko

import (
	"net/http"
	"net/url"
)

const (
	baseURL     = "https://api.coingecko.com/api/v3"
	defaultName = "CoinGecko"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the primary price source backed by the CoinGecko public API.
type Client struct {
	// name is reported as the provider name.
	name string
	// baseURL is the base URL for the API.
	baseURL string
	// currency is the vs_currency for every quote.
	currency string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
}

// Option is a configuration option for the CoinGecko client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithCurrency sets the quote currency (default usd).
func WithCurrency(currency string) Option {
	return func(c *Client) {
		if currency != "" {
			c.currency = currency
		}
	}
}

// WithName overrides the reported provider name.
func WithName(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.name = name
		}
	}
}

// New creates a new CoinGecko client. The key is optional; the free tier
// works without one.
func New(key string, options ...Option) *Client {
	c := &Client{
		name:       defaultName,
		baseURL:    baseURL,
		currency:   "usd",
		httpClient: http.DefaultClient,
		header:     http.Header{},
	}
	if key != "" {
		// https://docs.coingecko.com/reference/authentication
		c.header.Set("x-cg-demo-api-key", key)
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

func (c *Client) endpoint(path string, query url.Values) string {
	return c.baseURL + path + "?" + query.Encode()
}
