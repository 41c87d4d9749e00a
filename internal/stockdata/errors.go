package stockdata

import (
    "errors"

    "stockdata/internal/provider"
)

// LookupError is the single failure surfaced for one symbol lookup. Error
// returns the text shown to the user; Unwrap exposes the cause for errors.Is.
type LookupError struct {
    Symbol string
    Err    error
}

func (e *LookupError) Error() string {
    var rl *provider.RateLimitError
    if errors.As(e.Err, &rl) {
        return rl.Error()
    }
    if e.Err == nil {
        return "Failed to fetch stock data"
    }
    return "Failed to fetch stock data: " + e.Err.Error()
}

func (e *LookupError) Unwrap() error { return e.Err }
