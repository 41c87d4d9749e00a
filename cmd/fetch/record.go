package main

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "stockdata/internal/provider"
    "stockdata/internal/provider/fixture"
)

// recorder writes raw upstream bodies as fixture files, one request window
// slot per symbol.
type recorder struct {
    fetcher     provider.Fetcher
    limiter     interface{ CheckLimit() error }
    dir         string
    interval    string // intraday; empty skips it
    wait        bool   // sleep out a full window instead of failing
    concurrency int
    sleep       func(ctx context.Context, d time.Duration) error
}

func (r *recorder) requests(symbol string) []provider.Request {
    reqs := []provider.Request{
        {Category: provider.CategoryQuote, Symbol: symbol},
        {Category: provider.CategoryOverview, Symbol: symbol},
        {Category: provider.CategoryEarnings, Symbol: symbol},
        {Category: provider.CategoryDaily, Symbol: symbol, OutputSize: "compact"},
    }
    if r.interval != "" {
        reqs = append(reqs, provider.Request{Category: provider.CategoryIntraday, Symbol: symbol, Interval: r.interval, OutputSize: "compact"})
    }
    return reqs
}

// Record fetches every category for each symbol and returns the written paths.
func (r *recorder) Record(ctx context.Context, symbols []string) ([]string, error) {
    if err := os.MkdirAll(r.dir, 0o755); err != nil {
        return nil, fmt.Errorf("create fixtures dir: %w", err)
    }
    var written []string
    for _, raw := range symbols {
        sym, err := provider.NormalizeSymbol(raw)
        if err != nil {
            return written, fmt.Errorf("%q: %w", raw, err)
        }
        if err := r.gate(ctx); err != nil {
            return written, err
        }
        paths, err := r.recordSymbol(ctx, sym)
        written = append(written, paths...)
        if err != nil {
            return written, fmt.Errorf("%s: %w", sym, err)
        }
    }
    return written, nil
}

func (r *recorder) gate(ctx context.Context) error {
    for {
        err := r.limiter.CheckLimit()
        var rl *provider.RateLimitError
        if err == nil || !r.wait || !errors.As(err, &rl) {
            return err
        }
        log.Info().Dur("wait", rl.Wait).Msg("request window full, waiting")
        if err := r.sleep(ctx, rl.Wait); err != nil {
            return err
        }
    }
}

func (r *recorder) recordSymbol(ctx context.Context, sym string) ([]string, error) {
    reqs := r.requests(sym)
    paths := make([]string, len(reqs))
    g, gctx := errgroup.WithContext(ctx)
    if r.concurrency > 0 {
        g.SetLimit(r.concurrency)
    }
    for i, req := range reqs {
        i, req := i, req
        g.Go(func() error {
            p, err := r.fetcher.Fetch(gctx, req)
            if err != nil {
                return fmt.Errorf("%s: %w", req.Category, err)
            }
            path := filepath.Join(r.dir, fixture.Name(req.Category, sym))
            if err := writeFile(path, p.Body); err != nil {
                return err
            }
            paths[i] = path
            return nil
        })
    }
    err := g.Wait()
    out := paths[:0]
    for _, p := range paths {
        if p != "" {
            out = append(out, p)
        }
    }
    return out, err
}

// writeFile replaces path atomically so a reader never sees half a body.
func writeFile(path string, body []byte) error {
    tmp, err := os.CreateTemp(filepath.Dir(path), ".record-*")
    if err != nil {
        return fmt.Errorf("create temp: %w", err)
    }
    defer os.Remove(tmp.Name())
    if _, err := tmp.Write(body); err != nil {
        tmp.Close()
        return fmt.Errorf("write %s: %w", path, err)
    }
    if err := tmp.Close(); err != nil {
        return fmt.Errorf("close %s: %w", path, err)
    }
    return os.Rename(tmp.Name(), path)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-t.C:
        return nil
    case <-ctx.Done():
        return ctx.Err()
    }
}
