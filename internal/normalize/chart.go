package normalize

import (
    "strings"
    "time"

    "stockdata/internal/provider"
)

const day = 24 * time.Hour

var rangeSpans = map[string]time.Duration{
    "1D": day,
    "1W": 7 * day,
    "1M": 30 * day,
    "3M": 90 * day,
    "1Y": 365 * day,
    "5Y": 5 * 365 * day,
}

// ChartRange selects the points shown for a chart range label relative to
// now. Intraday ranges use the intraday series when one was fetched; YTD keeps
// points in now's calendar year (UTC); unknown labels return the full daily
// history.
func ChartRange(sd *provider.StockData, label string, now time.Time) []provider.PricePoint {
    if sd == nil {
        return nil
    }
    label = strings.ToUpper(strings.TrimSpace(label))
    if provider.SeriesForRange(label) == provider.CategoryIntraday && len(sd.IntradayData) > 0 {
        return sd.IntradayData
    }

    var keep func(time.Time) bool
    if label == "YTD" {
        year := now.UTC().Year()
        keep = func(t time.Time) bool { return t.UTC().Year() == year }
    } else if span, ok := rangeSpans[label]; ok {
        keep = func(t time.Time) bool { return now.Sub(t) <= span }
    } else {
        return sd.HistoricalData
    }

    out := make([]provider.PricePoint, 0, len(sd.HistoricalData))
    for _, p := range sd.HistoricalData {
        if keep(time.UnixMilli(p.Timestamp)) {
            out = append(out, p)
        }
    }
    return out
}
