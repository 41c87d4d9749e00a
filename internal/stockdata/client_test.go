package stockdata

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "os"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "stockdata/internal/httpx"
    "stockdata/internal/provider"
    "stockdata/internal/provider/alphavantage"
    "stockdata/internal/provider/cache"
    "stockdata/internal/provider/fixture"
    "stockdata/internal/provider/keyring"
    "stockdata/internal/provider/ratelimit"
)

// fakeFetcher answers from testdata and counts calls per category.
type fakeFetcher struct {
    mu    sync.Mutex
    calls map[provider.Category]int
    reqs  []provider.Request
    errs  map[provider.Category]error
    gate  chan struct{}
    files fixture.Lookup
}

func newFakeFetcher() *fakeFetcher {
    return &fakeFetcher{
        calls: map[provider.Category]int{},
        errs:  map[provider.Category]error{},
        files: &fixture.Dir{FS: os.DirFS("testdata")},
    }
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    f.mu.Lock()
    f.calls[req.Category]++
    f.reqs = append(f.reqs, req)
    err := f.errs[req.Category]
    f.mu.Unlock()

    if f.gate != nil {
        select {
        case <-f.gate:
        case <-ctx.Done():
            return provider.Payload{}, ctx.Err()
        }
    }
    if err != nil {
        return provider.Payload{}, err
    }
    body, ok, err := f.files.Lookup(req.Category, req.Symbol)
    if err != nil {
        return provider.Payload{}, err
    }
    if !ok {
        return provider.Payload{}, &provider.UpstreamError{Message: "Invalid API call."}
    }
    return provider.Payload{Category: req.Category, Symbol: req.Symbol, Body: body, Source: "fake"}, nil
}

func (f *fakeFetcher) total() int {
    f.mu.Lock()
    defer f.mu.Unlock()
    n := 0
    for _, c := range f.calls {
        n += c
    }
    return n
}

func (f *fakeFetcher) count(c provider.Category) int {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.calls[c]
}

func TestFetchAll_FreshLookupThenCached(t *testing.T) {
    t.Parallel()

    // Arrange
    f := newFakeFetcher()
    c := New(f)

    // Act
    sd, err := c.FetchAll(context.Background(), "aapl")

    // Assert
    require.NoError(t, err)
    require.Equal(t, "AAPL", sd.Symbol)
    require.InDelta(t, 190, sd.Quote.Price, 1e-9)
    require.InDelta(t, 2, sd.Quote.Change, 1e-9, "last two daily closes 188 -> 190")
    require.InDelta(t, 1.0638297, sd.Quote.ChangePercent, 1e-6)
    require.Equal(t, "Apple Inc", sd.Overview.Name)
    require.Zero(t, sd.PEData.CurrentPE)
    require.Len(t, sd.Earnings.Quarterly, 2)
    require.Len(t, sd.HistoricalData, 3)
    require.Equal(t, 3, f.total())
    require.Zero(t, f.count(provider.CategoryQuote))

    again, err := c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.Same(t, sd, again)
    require.Equal(t, 3, f.total(), "cached lookup makes no upstream calls")
}

func TestFetchAll_DailyRequestIsCompact(t *testing.T) {
    t.Parallel()
    f := newFakeFetcher()
    _, err := New(f).FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    for _, r := range f.reqs {
        if r.Category == provider.CategoryDaily {
            require.Equal(t, "compact", r.OutputSize)
        }
    }
}

func TestFetchAll_InvalidSymbol(t *testing.T) {
    t.Parallel()
    f := newFakeFetcher()
    _, err := New(f).FetchAll(context.Background(), "  ")

    var le *LookupError
    require.ErrorAs(t, err, &le)
    require.ErrorIs(t, err, provider.ErrInvalidSymbol)
    require.Zero(t, f.total())
}

func TestFetchAll_RequiredFailureCachesNothing(t *testing.T) {
    t.Parallel()

    // Arrange
    f := newFakeFetcher()
    f.errs[provider.CategoryEarnings] = &provider.UpstreamError{Message: "Invalid API call. Please retry or visit the documentation."}
    store := cache.New[*provider.StockData](0, 0)
    c := New(f, WithCache(store))

    // Act
    sd, err := c.FetchAll(context.Background(), "AAPL")

    // Assert
    require.Nil(t, sd)
    require.EqualError(t, err, "Failed to fetch stock data: Invalid API call. Please retry or visit the documentation.")
    require.ErrorIs(t, err, provider.ErrUpstream)
    require.Zero(t, store.Len())

    delete(f.errs, provider.CategoryEarnings)
    _, err = c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.Equal(t, 1, store.Len())
}

func TestFetchAll_MissingRequiredKey(t *testing.T) {
    t.Parallel()
    f := newFakeFetcher()
    // overview without a company name, everything else well formed
    f.files = lookupFunc(func(c provider.Category, s string) ([]byte, bool, error) {
        switch c {
        case provider.CategoryOverview:
            return []byte(`{"Symbol":"ZZZZ"}`), true, nil
        case provider.CategoryEarnings:
            return []byte(`{"quarterlyEarnings":[]}`), true, nil
        }
        return []byte(`{"Time Series (Daily)":{"2024-01-02":{"4. close":"1"}}}`), true, nil
    })

    _, err := New(f).FetchAll(context.Background(), "ZZZZ")
    require.ErrorIs(t, err, provider.ErrDataUnavailable)
    require.EqualError(t, err, "Failed to fetch stock data: No company overview data available")
}

type lookupFunc func(provider.Category, string) ([]byte, bool, error)

func (f lookupFunc) Lookup(c provider.Category, s string) ([]byte, bool, error) { return f(c, s) }

func TestFetchAll_LimiterRejectsBeforeAnyFetch(t *testing.T) {
    t.Parallel()

    // Arrange
    now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
    lim := ratelimit.NewSlidingWindow(1, time.Minute)
    lim.Now = func() time.Time { return now }
    f := newFakeFetcher()
    c := New(f, WithLimiter(lim))

    _, err := c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    before := f.total()

    // Act
    now = now.Add(5 * time.Second)
    _, err = c.FetchAll(context.Background(), "MSFT")

    // Assert
    require.True(t, provider.IsRateLimited(err))
    require.EqualError(t, err, "Rate limit exceeded. Please wait 55 seconds before trying again.")
    require.Equal(t, before, f.total())

    // cached symbols bypass the window
    _, err = c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
}

func TestFetchAll_OptionalCategories(t *testing.T) {
    t.Parallel()

    f := newFakeFetcher()
    c := New(f, WithQuoteEndpoint(true), WithIntraday("5min"))
    sd, err := c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.InDelta(t, 190.64, sd.Quote.Price, 1e-9, "dedicated quote wins")
    require.Len(t, sd.IntradayData, 2)
    require.Equal(t, 1, f.count(provider.CategoryIntraday))
    for _, r := range f.reqs {
        if r.Category == provider.CategoryIntraday {
            require.Equal(t, "5min", r.Interval)
        }
    }
}

func TestFetchAll_OptionalFailureDoesNotFailLookup(t *testing.T) {
    t.Parallel()

    f := newFakeFetcher()
    f.errs[provider.CategoryQuote] = &provider.RateLimitError{Upstream: true}
    f.errs[provider.CategoryIntraday] = &provider.UpstreamError{Message: "boom"}
    sd, err := New(f, WithQuoteEndpoint(true), WithIntraday("5min")).FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.InDelta(t, 190, sd.Quote.Price, 1e-9, "falls back to the derived quote")
    require.Empty(t, sd.IntradayData)
}

func TestFetchAll_ConcurrentCallsShareOneBatch(t *testing.T) {
    t.Parallel()

    // Arrange
    f := newFakeFetcher()
    f.gate = make(chan struct{})
    lim := ratelimit.NewSlidingWindow(1, time.Minute)
    c := New(f, WithLimiter(lim))

    // Act
    const n = 8
    results := make([]*provider.StockData, n)
    errs := make([]error, n)
    var wg sync.WaitGroup
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            results[i], errs[i] = c.FetchAll(context.Background(), "AAPL")
        }(i)
    }
    time.Sleep(20 * time.Millisecond)
    close(f.gate)
    wg.Wait()

    // Assert
    for i := 0; i < n; i++ {
        require.NoError(t, errs[i])
        require.Same(t, results[0], results[i])
    }
    require.Equal(t, 1, f.count(provider.CategoryOverview))
    require.Equal(t, 1, lim.InFlight(), "one window slot for the whole batch")
}

func TestFetchAll_ContextCanceled(t *testing.T) {
    t.Parallel()
    f := newFakeFetcher()
    f.gate = make(chan struct{})
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    _, err := New(f).FetchAll(ctx, "AAPL")
    require.True(t, errors.Is(err, context.Canceled))
    require.Zero(t, f.total(), "no batch started for a caller already gone")
}

func TestFetchAll_CallerLeavingDoesNotFailSharedBatch(t *testing.T) {
    t.Parallel()

    // Arrange
    f := newFakeFetcher()
    f.gate = make(chan struct{})
    lim := ratelimit.NewSlidingWindow(5, time.Minute)
    c := New(f, WithLimiter(lim))

    ctxA, cancelA := context.WithCancel(context.Background())
    errA := make(chan error, 1)
    go func() {
        _, err := c.FetchAll(ctxA, "AAPL")
        errA <- err
    }()
    require.Eventually(t, func() bool { return f.total() == 3 }, time.Second, time.Millisecond)

    type result struct {
        sd  *provider.StockData
        err error
    }
    resB := make(chan result, 1)
    go func() {
        sd, err := c.FetchAll(context.Background(), "AAPL")
        resB <- result{sd, err}
    }()
    time.Sleep(20 * time.Millisecond)

    // Act
    cancelA()
    require.ErrorIs(t, <-errA, context.Canceled)
    close(f.gate)
    b := <-resB

    // Assert
    require.NoError(t, b.err)
    require.Equal(t, "AAPL", b.sd.Symbol)
    require.Equal(t, 1, f.count(provider.CategoryOverview))
    require.Equal(t, 1, lim.InFlight())
    cached, err := c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.Same(t, b.sd, cached)
}

// overviewRecorder counts OVERVIEW calls and the keys they carried.
type overviewRecorder struct {
    mu   sync.Mutex
    keys []string
}

func (r *overviewRecorder) add(key string) {
    r.mu.Lock()
    r.keys = append(r.keys, key)
    r.mu.Unlock()
}

func (r *overviewRecorder) seen() []string {
    r.mu.Lock()
    defer r.mu.Unlock()
    return append([]string(nil), r.keys...)
}

// throttledServer answers every OVERVIEW call with a frequency notice and the
// rest from testdata.
func throttledServer(t *testing.T, rec *overviewRecorder) *httptest.Server {
    t.Helper()
    files := fixture.Dir{FS: os.DirFS("testdata")}
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        q := r.URL.Query()
        w.Header().Set("Content-Type", "application/json")
        var cat provider.Category
        switch q.Get("function") {
        case "OVERVIEW":
            rec.add(q.Get("apikey"))
            _, _ = w.Write([]byte(`{"Note":"Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute and 500 calls per day."}`))
            return
        case "EARNINGS":
            cat = provider.CategoryEarnings
        case "TIME_SERIES_DAILY":
            cat = provider.CategoryDaily
        default:
            http.NotFound(w, r)
            return
        }
        body, _, _ := files.Lookup(cat, q.Get("symbol"))
        _, _ = w.Write(body)
    }))
    t.Cleanup(srv.Close)
    return srv
}

func TestFetchAll_ThrottledTwiceFailsWithTryAgainLater(t *testing.T) {
    t.Parallel()

    // Arrange
    rec := &overviewRecorder{}
    srv := throttledServer(t, rec)
    // more keys than calls in the batch, so every draw is distinct
    ring, err := keyring.New("k1", "k2", "k3", "k4", "k5")
    require.NoError(t, err)
    av, err := alphavantage.NewClient(ring,
        alphavantage.WithBaseURL(srv.URL),
        alphavantage.WithHTTPClient(httpx.New(5*time.Second)),
    )
    require.NoError(t, err)
    store := cache.New[*provider.StockData](0, 0)
    c := New(av, WithCache(store))

    // Act
    _, err = c.FetchAll(context.Background(), "AAPL")

    // Assert
    require.EqualError(t, err, "API rate limit exceeded. Please try again later.")
    require.True(t, provider.IsRateLimited(err))
    keys := rec.seen()
    require.Len(t, keys, 2, "exactly one retry")
    require.NotEqual(t, keys[0], keys[1], "retry uses the next key")
    require.Zero(t, store.Len())
}

func TestClient_ClearCacheAndStats(t *testing.T) {
    t.Parallel()
    f := newFakeFetcher()
    c := New(f)
    _, err := c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    _, err = c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.EqualValues(t, 1, c.CacheStats().Hits)

    c.ClearCache()
    _, err = c.FetchAll(context.Background(), "AAPL")
    require.NoError(t, err)
    require.Equal(t, 2, f.count(provider.CategoryOverview))
}
