package stockdata

import (
    "context"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "stockdata/internal/normalize"
    "stockdata/internal/provider"
    "stockdata/internal/provider/cache"
)

// Proxy serves the narrower quote + overview record. Its caches are its own;
// nothing is shared with Client.
type Proxy struct {
    fetcher   provider.Fetcher
    quotes    *cache.Cache[provider.QuoteSnapshot]
    overviews *cache.Cache[provider.DetailOverview]
}

// NewProxy returns a Proxy whose caches keep entries for ttl (five minutes
// when ttl <= 0) with at most maxItems entries each (0 = unbounded).
func NewProxy(f provider.Fetcher, ttl time.Duration, maxItems int) *Proxy {
    return &Proxy{
        fetcher:   f,
        quotes:    cache.New[provider.QuoteSnapshot](ttl, maxItems),
        overviews: cache.New[provider.DetailOverview](ttl, maxItems),
    }
}

// GetStockData fetches the quote and the overview concurrently and merges
// them. Either one failing fails the call; the one that succeeded stays cached.
func (p *Proxy) GetStockData(ctx context.Context, symbol string) (provider.Detail, error) {
    sym, err := provider.NormalizeSymbol(symbol)
    if err != nil {
        return provider.Detail{}, err
    }

    var (
        q  provider.QuoteSnapshot
        ov provider.DetailOverview
    )
    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() (err error) {
        q, err = p.quote(gctx, sym)
        return err
    })
    g.Go(func() (err error) {
        ov, err = p.overview(gctx, sym)
        return err
    })
    if err := g.Wait(); err != nil {
        log.Error().Err(err).Str("symbol", sym).Msg("proxy lookup failed")
        return provider.Detail{}, err
    }
    return normalize.Detail(q, ov), nil
}

func (p *Proxy) quote(ctx context.Context, sym string) (provider.QuoteSnapshot, error) {
    key := "quote_" + sym
    if q, ok := p.quotes.Get(key); ok {
        return q, nil
    }
    pl, err := p.fetcher.Fetch(ctx, provider.Request{Category: provider.CategoryQuote, Symbol: sym})
    if err != nil {
        return provider.QuoteSnapshot{}, err
    }
    q, err := normalize.Quote(pl.Body)
    if err != nil {
        return provider.QuoteSnapshot{}, err
    }
    p.quotes.Set(key, q)
    return q, nil
}

func (p *Proxy) overview(ctx context.Context, sym string) (provider.DetailOverview, error) {
    key := "overview_" + sym
    if ov, ok := p.overviews.Get(key); ok {
        return ov, nil
    }
    pl, err := p.fetcher.Fetch(ctx, provider.Request{Category: provider.CategoryOverview, Symbol: sym})
    if err != nil {
        return provider.DetailOverview{}, err
    }
    ov, err := normalize.DetailOverview(pl.Body)
    if err != nil {
        return provider.DetailOverview{}, err
    }
    p.overviews.Set(key, ov)
    return ov, nil
}

// ClearCache drops both proxy caches.
func (p *Proxy) ClearCache() {
    p.quotes.Clear()
    p.overviews.Clear()
}
