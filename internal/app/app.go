// Package app wires configuration into the lookup services shared by the
// server and the CLI.
package app

import (
    "time"

    "github.com/rs/zerolog/log"

    "stockdata/internal/config"
    "stockdata/internal/httpx"
    "stockdata/internal/provider"
    "stockdata/internal/provider/alphavantage"
    "stockdata/internal/provider/cache"
    "stockdata/internal/provider/fixture"
    "stockdata/internal/provider/keyring"
    "stockdata/internal/provider/ratelimit"
    "stockdata/internal/stockdata"
)

// App holds the constructed services. Each App owns its caches, window and
// key cursor; nothing is process global.
type App struct {
    Client  *stockdata.Client
    Proxy   *stockdata.Proxy
    Fetcher provider.Fetcher
    // Upstream bypasses local fixtures.
    Upstream provider.Fetcher
    Limiter  *ratelimit.SlidingWindow
}

// Build validates cfg and constructs the services.
func Build(cfg config.Config) (*App, error) {
    if err := cfg.Validate(); err != nil {
        return nil, err
    }
    ring, err := keyring.New(cfg.AlphaVantage.APIKeys...)
    if err != nil {
        return nil, err
    }

    hc := httpx.New(time.Duration(cfg.Server.RequestTimeoutSec) * time.Second)
    av, err := alphavantage.NewClient(ring,
        alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
        alphavantage.WithHTTPClient(hc),
        alphavantage.WithRetryPolicy(alphavantage.RetryPolicy{
            Attempts:   cfg.AlphaVantage.RetryAttempts,
            Backoff:    time.Duration(cfg.AlphaVantage.RetryBackoffMS) * time.Millisecond,
            MaxBackoff: time.Duration(cfg.AlphaVantage.RetryMaxBackoffMS) * time.Millisecond,
            Jitter:     cfg.AlphaVantage.RetryJitter,
        }),
    )
    if err != nil {
        return nil, err
    }

    // The proxy path keeps its own key cursor and makes a single attempt.
    proxyRing, err := keyring.New(cfg.AlphaVantage.APIKeys...)
    if err != nil {
        return nil, err
    }
    proxyAV, err := alphavantage.NewClient(proxyRing,
        alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
        alphavantage.WithHTTPClient(hc),
        alphavantage.WithRetryPolicy(alphavantage.RetryPolicy{Attempts: 1}),
    )
    if err != nil {
        return nil, err
    }

    var f, pf provider.Fetcher = av, proxyAV
    if cfg.Fetch.FixturesDir != "" {
        local := fixture.NewDir(cfg.Fetch.FixturesDir)
        f = &fixture.LocalFirst{Local: local, P: av, Classify: alphavantage.Classify}
        pf = &fixture.LocalFirst{Local: local, P: proxyAV, Classify: alphavantage.Classify}
        log.Info().Str("dir", cfg.Fetch.FixturesDir).Msg("local fixtures enabled")
    }

    lim := ratelimit.NewSlidingWindow(cfg.Limits.MaxRequests, time.Duration(cfg.Limits.WindowSec)*time.Second)
    ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second
    client := stockdata.New(f,
        stockdata.WithCache(cache.New[*provider.StockData](ttl, cfg.Cache.MaxItems)),
        stockdata.WithLimiter(lim),
        stockdata.WithQuoteEndpoint(cfg.Fetch.UseQuoteEndpoint),
        stockdata.WithIntraday(cfg.Fetch.IntradayInterval),
        stockdata.WithOutputSize(cfg.Fetch.OutputSize),
        stockdata.WithBatchTimeout(time.Duration(cfg.Fetch.BatchTimeoutSec)*time.Second),
    )
    proxy := stockdata.NewProxy(pf, time.Duration(cfg.Cache.ProxyTTLSeconds)*time.Second, cfg.Cache.MaxItems)

    log.Info().
        Int("keys", ring.Size()).
        Int("max_requests", lim.MaxRequests).
        Dur("window", lim.Window).
        Dur("cache_ttl", ttl).
        Int("cache_max_items", cfg.Cache.MaxItems).
        Msg("stock data services ready")
    return &App{Client: client, Proxy: proxy, Fetcher: f, Upstream: av, Limiter: lim}, nil
}
