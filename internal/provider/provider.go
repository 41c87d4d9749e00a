package provider

import (
    "context"
    "fmt"
    "net/url"
    "strings"
)

// Category tags one upstream data family. Every payload carries its category so
// the normalizer can pick exactly one parser for it.
type Category int

const (
    CategoryQuote Category = iota + 1
    CategoryOverview
    CategoryEarnings
    CategoryDaily
    CategoryIntraday
)

var categoryNames = map[Category]string{
    CategoryQuote:    "quote",
    CategoryOverview: "overview",
    CategoryEarnings: "earnings",
    CategoryDaily:    "daily",
    CategoryIntraday: "intraday",
}

var categoryFunctions = map[Category]string{
    CategoryQuote:    "GLOBAL_QUOTE",
    CategoryOverview: "OVERVIEW",
    CategoryEarnings: "EARNINGS",
    CategoryDaily:    "TIME_SERIES_DAILY",
    CategoryIntraday: "TIME_SERIES_INTRADAY",
}

// String returns the short name used in fixture file names and logs.
func (c Category) String() string {
    if s, ok := categoryNames[c]; ok {
        return s
    }
    return fmt.Sprintf("category(%d)", int(c))
}

// Function returns the upstream "function" query parameter.
func (c Category) Function() string { return categoryFunctions[c] }

func (c Category) Valid() bool {
    _, ok := categoryNames[c]
    return ok
}

// ParseCategory maps a short name (quote, overview, ...) back to its Category.
func ParseCategory(s string) (Category, error) {
    s = strings.ToLower(strings.TrimSpace(s))
    for c, name := range categoryNames {
        if name == s {
            return c, nil
        }
    }
    return 0, fmt.Errorf("unknown category %q", s)
}

// Request is one logical upstream call.
type Request struct {
    Category   Category
    Symbol     string
    Interval   string // intraday only, e.g. 5min
    OutputSize string // compact | full
}

// Validate checks the request is complete enough to send upstream.
func (r Request) Validate() error {
    if !r.Category.Valid() {
        return fmt.Errorf("invalid request: %s", r.Category)
    }
    if strings.TrimSpace(r.Symbol) == "" {
        return ErrInvalidSymbol
    }
    if r.Category == CategoryIntraday && r.Interval == "" {
        return fmt.Errorf("invalid request: intraday requires an interval")
    }
    return nil
}

// Query builds the upstream query parameters without the credential.
func (r Request) Query() url.Values {
    q := url.Values{}
    q.Set("function", r.Category.Function())
    q.Set("symbol", r.Symbol)
    if r.Interval != "" {
        q.Set("interval", r.Interval)
    }
    if r.OutputSize != "" {
        q.Set("outputsize", r.OutputSize)
    }
    return q
}

// Payload is a classified, successful upstream body for one category.
type Payload struct {
    Category Category
    Symbol   string
    Body     []byte
    // Source names where the body came from, e.g. "alphavantage" or "fixture".
    Source string
}

// Fetcher performs one upstream call for one category.
type Fetcher interface {
    Name() string
    Fetch(ctx context.Context, req Request) (Payload, error)
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(s string) (string, error) {
    s = strings.ToUpper(strings.TrimSpace(s))
    if s == "" {
        return "", ErrInvalidSymbol
    }
    return s, nil
}

var seriesByRange = map[string]Category{
    "1D":  CategoryIntraday,
    "1W":  CategoryIntraday,
    "1M":  CategoryDaily,
    "3M":  CategoryDaily,
    "YTD": CategoryDaily,
    "1Y":  CategoryDaily,
    "5Y":  CategoryDaily,
}

// SeriesForRange returns the time-series category backing a chart range label.
// Unknown labels fall back to the daily series.
func SeriesForRange(label string) Category {
    if c, ok := seriesByRange[strings.ToUpper(strings.TrimSpace(label))]; ok {
        return c
    }
    return CategoryDaily
}
