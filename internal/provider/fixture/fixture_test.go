package fixture

import (
    "context"
    "testing"
    "testing/fstest"

    "github.com/stretchr/testify/require"

    "stockdata/internal/provider"
    "stockdata/internal/provider/alphavantage"
)

type countingFetcher struct{ calls int }

func (c *countingFetcher) Name() string { return "network" }
func (c *countingFetcher) Fetch(_ context.Context, req provider.Request) (provider.Payload, error) {
    c.calls++
    return provider.Payload{Category: req.Category, Symbol: req.Symbol, Body: []byte(`{}`), Source: "network"}, nil
}

func TestName(t *testing.T) {
    require.Equal(t, "AAPL_daily.json", Name(provider.CategoryDaily, "AAPL"))
    require.Equal(t, "AAPL_overview.json", Name(provider.CategoryOverview, "AAPL"))
}

func TestDir_Lookup(t *testing.T) {
    d := &Dir{FS: fstest.MapFS{"AAPL_quote.json": {Data: []byte(`{"Global Quote":{}}`)}}}

    b, ok, err := d.Lookup(provider.CategoryQuote, "AAPL")
    require.NoError(t, err)
    require.True(t, ok)
    require.JSONEq(t, `{"Global Quote":{}}`, string(b))

    _, ok, err = d.Lookup(provider.CategoryEarnings, "AAPL")
    require.NoError(t, err)
    require.False(t, ok, "missing recording is only a fallback trigger")

    var nilDir *Dir
    _, ok, err = nilDir.Lookup(provider.CategoryQuote, "AAPL")
    require.NoError(t, err)
    require.False(t, ok)
}

func TestLocalFirst_PrefersRecording(t *testing.T) {
    net := &countingFetcher{}
    lf := &LocalFirst{Local: NewDir("testdata"), P: net, Classify: alphavantage.Classify}

    p, err := lf.Fetch(testContext(t), provider.Request{Category: provider.CategoryOverview, Symbol: "MSFT"})
    require.NoError(t, err)
    require.Equal(t, "fixture", p.Source)
    require.Contains(t, string(p.Body), "Microsoft Corporation")
    require.Zero(t, net.calls)
    require.Equal(t, "network", lf.Name())
}

func TestLocalFirst_FallsBackToNetwork(t *testing.T) {
    net := &countingFetcher{}
    lf := &LocalFirst{Local: NewDir("testdata"), P: net}

    p, err := lf.Fetch(testContext(t), provider.Request{Category: provider.CategoryDaily, Symbol: "MSFT"})
    require.NoError(t, err)
    require.Equal(t, "network", p.Source)
    require.Equal(t, 1, net.calls)
}

func TestLocalFirst_RecordedErrorIsClassified(t *testing.T) {
    net := &countingFetcher{}
    lf := &LocalFirst{Local: NewDir("testdata"), P: net, Classify: alphavantage.Classify}

    _, err := lf.Fetch(testContext(t), provider.Request{Category: provider.CategoryEarnings, Symbol: "MSFT"})
    require.ErrorIs(t, err, provider.ErrUpstream)
    require.Zero(t, net.calls)
}

func TestLocalFirst_NilLookupGoesToNetwork(t *testing.T) {
    net := &countingFetcher{}
    lf := &LocalFirst{P: net}
    _, err := lf.Fetch(testContext(t), provider.Request{Category: provider.CategoryDaily, Symbol: "AAPL"})
    require.NoError(t, err)
    require.Equal(t, 1, net.calls)
}
