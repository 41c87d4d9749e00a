package normalize

import (
    "fmt"

    "stockdata/internal/provider"
)

// Set holds the payloads fetched for one symbol. Overview, Earnings and Daily
// are required; Quote and Intraday are optional.
type Set struct {
    Overview provider.Payload
    Earnings provider.Payload
    Daily    provider.Payload
    Quote    *provider.Payload
    Intraday *provider.Payload
}

// Assemble builds the StockData aggregate. Any required category that does not
// parse fails the whole result. A dedicated quote that does not parse falls back
// to the quote derived from the daily series; an unparseable intraday series is
// left out.
func Assemble(symbol string, s Set) (*provider.StockData, error) {
    for _, p := range []struct {
        got  provider.Category
        want provider.Category
    }{
        {s.Overview.Category, provider.CategoryOverview},
        {s.Earnings.Category, provider.CategoryEarnings},
        {s.Daily.Category, provider.CategoryDaily},
    } {
        if p.got != p.want {
            return nil, fmt.Errorf("assemble: expected %s payload, got %s", p.want, p.got)
        }
    }

    ov, pe, err := Overview(s.Overview.Body)
    if err != nil {
        return nil, err
    }
    earnings, err := Earnings(s.Earnings.Body)
    if err != nil {
        return nil, err
    }
    history, err := TimeSeries(provider.CategoryDaily, s.Daily.Body)
    if err != nil {
        return nil, err
    }
    if len(history) == 0 {
        return nil, unavailable(provider.CategoryDaily)
    }

    quote := QuoteFromHistory(history)
    if s.Quote != nil && s.Quote.Category == provider.CategoryQuote {
        if snap, err := Quote(s.Quote.Body); err == nil {
            quote = snap.Quote
        }
    }

    var intraday []provider.PricePoint
    if s.Intraday != nil && s.Intraday.Category == provider.CategoryIntraday {
        if pts, err := TimeSeries(provider.CategoryIntraday, s.Intraday.Body); err == nil && len(pts) > 0 {
            intraday = pts
        }
    }

    return &provider.StockData{
        Symbol:         symbol,
        Quote:          quote,
        Overview:       ov,
        Earnings:       earnings,
        PEData:         pe,
        HistoricalData: history,
        IntradayData:   intraday,
    }, nil
}
