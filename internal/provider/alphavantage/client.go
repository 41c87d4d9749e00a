package alphavantage

import (
	"net/http"
)

const baseURL = "https://www.alphavantage.co/query"

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=alphavantage_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Alpha Vantage query API.
type Client struct {
	// baseURL is the query endpoint.
	baseURL string
	// httpClient is the HTTP client.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// keys supplies the credential for every attempt.
	keys KeySource
	// retry decides how upstream throttling is retried.
	retry RetryPolicy
}

// ClientOption is a configuration option for the Alpha Vantage client.
type ClientOption func(*Client)

// WithBaseURL sets the query endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithRetryPolicy replaces the default single retry.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// NewClient creates a new Alpha Vantage client drawing credentials from keys.
func NewClient(keys KeySource, options ...ClientOption) (*Client, error) {
	if keys == nil {
		return nil, errNilKeySource
	}
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		keys:       keys,
		retry:      DefaultRetryPolicy(),
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// Name identifies the client in payloads and logs.
func (c *Client) Name() string { return "alphavantage" }
