// Package stockdata composes the cache, the request window, the upstream
// fetcher and the normalizer into the two lookups the application exposes.
package stockdata

import (
    "context"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"
    "golang.org/x/sync/singleflight"

    "stockdata/internal/normalize"
    "stockdata/internal/provider"
    "stockdata/internal/provider/cache"
    "stockdata/internal/provider/ratelimit"
)

// Limiter gates each outbound batch. It must fail fast rather than wait.
type Limiter interface {
    CheckLimit() error
}

// Client serves the full StockData aggregate.
type Client struct {
    fetcher provider.Fetcher
    cache   *cache.Cache[*provider.StockData]
    limiter Limiter

    quoteEndpoint bool
    interval      string
    outputSize    string
    batchTimeout  time.Duration

    sf singleflight.Group
}

// DefaultBatchTimeout bounds one shared upstream batch.
const DefaultBatchTimeout = 30 * time.Second

// Option configures a Client.
type Option func(*Client)

// WithCache replaces the default five minute cache.
func WithCache(c *cache.Cache[*provider.StockData]) Option {
    return func(cl *Client) { cl.cache = c }
}

// WithLimiter replaces the default window of 5 requests per minute.
func WithLimiter(l Limiter) Option {
    return func(cl *Client) { cl.limiter = l }
}

// WithQuoteEndpoint also fetches GLOBAL_QUOTE instead of relying only on the
// quote derived from the daily series.
func WithQuoteEndpoint(enabled bool) Option {
    return func(cl *Client) { cl.quoteEndpoint = enabled }
}

// WithIntraday fetches the intraday series at interval (e.g. 5min). Empty
// disables it.
func WithIntraday(interval string) Option {
    return func(cl *Client) { cl.interval = interval }
}

// WithOutputSize sets the series output size (compact or full).
func WithOutputSize(size string) Option {
    return func(cl *Client) { cl.outputSize = size }
}

// WithBatchTimeout bounds a shared batch independently of any caller. Zero
// or less keeps DefaultBatchTimeout.
func WithBatchTimeout(d time.Duration) Option {
    return func(cl *Client) {
        if d > 0 {
            cl.batchTimeout = d
        }
    }
}

// New returns a Client reading through f.
func New(f provider.Fetcher, opts ...Option) *Client {
    c := &Client{fetcher: f, outputSize: "compact", batchTimeout: DefaultBatchTimeout}
    for _, opt := range opts {
        opt(c)
    }
    if c.cache == nil {
        c.cache = cache.New[*provider.StockData](cache.DefaultTTL, 0)
    }
    if c.limiter == nil {
        c.limiter = ratelimit.NewSlidingWindow(ratelimit.DefaultMaxRequests, ratelimit.DefaultWindow)
    }
    return c
}

func allDataKey(symbol string) string { return "all_data_" + symbol }

// FetchAll returns the aggregate for symbol, from cache when fresh. On a miss
// the request window is checked once for the whole batch, then every category
// is fetched concurrently. A failed required category fails the lookup and
// nothing is cached. Concurrent calls for the same symbol share one batch; the
// batch is detached from every caller, so a caller whose ctx ends gets its own
// ctx error while the others still receive the result.
func (c *Client) FetchAll(ctx context.Context, symbol string) (*provider.StockData, error) {
    sym, err := provider.NormalizeSymbol(symbol)
    if err != nil {
        return nil, &LookupError{Symbol: symbol, Err: err}
    }
    key := allDataKey(sym)
    if sd, ok := c.cache.Get(key); ok {
        log.Debug().Str("symbol", sym).Msg("stock data served from cache")
        return sd, nil
    }
    if err := ctx.Err(); err != nil {
        return nil, &LookupError{Symbol: sym, Err: err}
    }

    ch := c.sf.DoChan(key, func() (any, error) {
        // a caller may have stored it while we queued
        if sd, ok := c.cache.Get(key); ok {
            return sd, nil
        }
        if err := c.limiter.CheckLimit(); err != nil {
            return nil, err
        }
        bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.batchTimeout)
        defer cancel()

        start := time.Now()
        set, err := c.fetchSet(bctx, sym)
        if err != nil {
            return nil, err
        }
        sd, err := normalize.Assemble(sym, set)
        if err != nil {
            return nil, err
        }
        c.cache.Set(key, sd)
        log.Info().Str("symbol", sym).Dur("took", time.Since(start)).Int("points", len(sd.HistoricalData)).Msg("stock data fetched")
        return sd, nil
    })

    select {
    case <-ctx.Done():
        log.Debug().Str("symbol", sym).Msg("caller left before the batch finished")
        return nil, &LookupError{Symbol: sym, Err: ctx.Err()}
    case res := <-ch:
        if res.Err != nil {
            log.Error().Err(res.Err).Str("symbol", sym).Bool("shared", res.Shared).Msg("stock data lookup failed")
            return nil, &LookupError{Symbol: sym, Err: res.Err}
        }
        return res.Val.(*provider.StockData), nil
    }
}

func (c *Client) fetchSet(ctx context.Context, sym string) (normalize.Set, error) {
    var set normalize.Set
    g, gctx := errgroup.WithContext(ctx)

    required := []struct {
        req provider.Request
        dst *provider.Payload
    }{
        {provider.Request{Category: provider.CategoryOverview, Symbol: sym}, &set.Overview},
        {provider.Request{Category: provider.CategoryEarnings, Symbol: sym}, &set.Earnings},
        {provider.Request{Category: provider.CategoryDaily, Symbol: sym, OutputSize: c.outputSize}, &set.Daily},
    }
    for _, r := range required {
        r := r
        g.Go(func() error {
            p, err := c.fetcher.Fetch(gctx, r.req)
            if err != nil {
                log.Warn().Err(err).Str("symbol", sym).Str("category", r.req.Category.String()).Msg("required category failed")
                return err
            }
            *r.dst = p
            return nil
        })
    }

    optional := func(req provider.Request, dst **provider.Payload) {
        g.Go(func() error {
            p, err := c.fetcher.Fetch(gctx, req)
            if err != nil {
                log.Warn().Err(err).Str("symbol", sym).Str("category", req.Category.String()).Msg("optional category skipped")
                return nil
            }
            *dst = &p
            return nil
        })
    }
    if c.quoteEndpoint {
        optional(provider.Request{Category: provider.CategoryQuote, Symbol: sym}, &set.Quote)
    }
    if c.interval != "" {
        optional(provider.Request{Category: provider.CategoryIntraday, Symbol: sym, Interval: c.interval, OutputSize: c.outputSize}, &set.Intraday)
    }

    if err := g.Wait(); err != nil {
        return normalize.Set{}, err
    }
    return set, nil
}

// ClearCache drops every cached aggregate.
func (c *Client) ClearCache() { c.cache.Clear() }

// CacheStats reports the aggregate cache counters.
func (c *Client) CacheStats() cache.Stats { return c.cache.Stats() }
