package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"stockdata/internal/provider"
)

// KeySource supplies one credential per attempt.
type KeySource interface {
	Next() string
}

var errNilKeySource = errors.New("alphavantage: nil key source")

// maxBody bounds a full-size time series response.
const maxBody = 32 << 20

// throttlePhrases are matched case-insensitively against the notice fields.
var throttlePhrases = []string{
	"api call frequency",
	"api rate limit",
	"api key",
	"requests per day",
}

// Fetch performs the request, retrying upstream throttling with the next key
// according to the retry policy. Every other failure is returned at once.
func (c *Client) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
	if err := req.Validate(); err != nil {
		return provider.Payload{}, err
	}

	attempts := c.retry.attempts()
	for attempt := 1; ; attempt++ {
		body, err := c.fetchOnce(ctx, req, c.keys.Next())
		if err == nil {
			return provider.Payload{Category: req.Category, Symbol: req.Symbol, Body: body, Source: c.Name()}, nil
		}
		if !provider.IsRateLimited(err) || attempt >= attempts {
			return provider.Payload{}, err
		}
		log.Warn().
			Str("category", req.Category.String()).
			Str("symbol", req.Symbol).
			Int("attempt", attempt).
			Msg("upstream throttled, retrying with next key")
		if err := c.retry.wait(ctx, attempt); err != nil {
			return provider.Payload{}, err
		}
	}
}

// fetchOnce issues one call with one key and classifies the response body.
func (c *Client) fetchOnce(ctx context.Context, req provider.Request, key string) ([]byte, error) {
	query := req.Query()
	if key != "" {
		query.Set("apikey", key)
	}

	url := fmt.Sprintf("%s?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header = c.header.Clone()

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return nil, &provider.RateLimitError{Upstream: true, Notice: res.Status}
	case res.StatusCode < 200 || res.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(res.Body, 2<<10))
		return nil, &provider.UpstreamError{Status: res.StatusCode, Message: strings.TrimSpace(string(b))}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if err := Classify(body); err != nil {
		return nil, err
	}
	return body, nil
}

// notices holds the top-level fields the provider uses to signal failure inside
// a 200 response.
type notices struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

// Classify inspects a 200 body: an "Error Message" field fails with
// *provider.UpstreamError, a throttle notice with *provider.RateLimitError.
// Anything else that is a JSON object passes.
func Classify(body []byte) error {
	var n notices
	if err := json.Unmarshal(body, &n); err != nil {
		return &provider.UpstreamError{Message: fmt.Sprintf("decoding response: %v", err)}
	}
	if n.ErrorMessage != "" {
		return &provider.UpstreamError{Message: n.ErrorMessage}
	}
	for _, notice := range []string{n.Note, n.Information} {
		if isThrottleNotice(notice) {
			return &provider.RateLimitError{Upstream: true, Notice: notice}
		}
	}
	return nil
}

func isThrottleNotice(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, p := range throttlePhrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
