package ratelimit

import (
    "sync"
    "time"

    "stockdata/internal/provider"
)

const (
    DefaultMaxRequests = 5
    DefaultWindow      = time.Minute
)

// SlidingWindow admits at most MaxRequests calls in any trailing Window.
// It never waits: a call that would exceed the window fails immediately with
// a *provider.RateLimitError carrying the time until the oldest call ages out.
type SlidingWindow struct {
    MaxRequests int
    Window      time.Duration
    // Now is the clock; nil means time.Now.
    Now func() time.Time

    mu       sync.Mutex
    requests []time.Time // ascending
}

// NewSlidingWindow applies defaults for non-positive arguments.
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
    if maxRequests <= 0 { maxRequests = DefaultMaxRequests }
    if window <= 0 { window = DefaultWindow }
    return &SlidingWindow{MaxRequests: maxRequests, Window: window}
}

// CheckLimit trims timestamps older than Window, then records now or rejects.
func (s *SlidingWindow) CheckLimit() error {
    s.mu.Lock()
    defer s.mu.Unlock()

    now := time.Now()
    if s.Now != nil { now = s.Now() }
    window := s.Window
    if window <= 0 { window = DefaultWindow }
    max := s.MaxRequests
    if max <= 0 { max = DefaultMaxRequests }

    // drop everything at or beyond the window edge
    keep := s.requests[:0]
    for _, t := range s.requests {
        if now.Sub(t) < window {
            keep = append(keep, t)
        }
    }
    s.requests = keep

    if len(s.requests) >= max {
        wait := window - now.Sub(s.requests[0])
        return &provider.RateLimitError{Wait: wait}
    }
    s.requests = append(s.requests, now)
    return nil
}

// Reset forgets every tracked request.
func (s *SlidingWindow) Reset() {
    s.mu.Lock()
    s.requests = nil
    s.mu.Unlock()
}

// InFlight reports how many requests are inside the current window.
func (s *SlidingWindow) InFlight() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.requests)
}
