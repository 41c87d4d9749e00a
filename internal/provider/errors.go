package provider

import (
    "errors"
    "fmt"
    "math"
    "time"
)

var (
    // ErrRateLimited covers both the client-side request window and upstream
    // quota notices.
    ErrRateLimited     = errors.New("rate limit exceeded")
    ErrUpstream        = errors.New("upstream error")
    ErrDataUnavailable = errors.New("data unavailable")
    ErrInvalidSymbol   = errors.New("invalid symbol")
    ErrNoKeys          = errors.New("no api keys configured")
)

// RateLimitError is returned by the local window (Upstream=false) or when the
// upstream body carries a throttle notice (Upstream=true).
type RateLimitError struct {
    Wait     time.Duration
    Upstream bool
    Notice   string
}

func (e *RateLimitError) Error() string {
    if e.Upstream {
        return "API rate limit exceeded. Please try again later."
    }
    return fmt.Sprintf("Rate limit exceeded. Please wait %d seconds before trying again.", e.WaitSeconds())
}

// WaitSeconds rounds the wait up to whole seconds for display.
func (e *RateLimitError) WaitSeconds() int {
    return int(math.Ceil(e.Wait.Seconds()))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// UpstreamError carries the provider's error message verbatim.
type UpstreamError struct {
    Message string
    Status  int
}

func (e *UpstreamError) Error() string {
    if e.Status != 0 {
        return fmt.Sprintf("upstream status %d: %s", e.Status, e.Message)
    }
    return e.Message
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// DataUnavailableError reports a required category missing from an otherwise
// successful response.
type DataUnavailableError struct {
    Category Category
}

func (e *DataUnavailableError) Error() string {
    switch e.Category {
    case CategoryOverview:
        return "No company overview data available"
    case CategoryEarnings:
        return "No earnings data available"
    case CategoryDaily, CategoryIntraday:
        return "No historical data available"
    case CategoryQuote:
        return "No data found for symbol"
    }
    return fmt.Sprintf("no %s data available", e.Category)
}

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

// IsRateLimited reports whether err is any kind of rate limit failure.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsExternalError reports whether err originated from the upstream provider.
func IsExternalError(err error) bool {
    var rl *RateLimitError
    if errors.As(err, &rl) && rl.Upstream {
        return true
    }
    return errors.Is(err, ErrUpstream) || errors.Is(err, ErrDataUnavailable)
}
