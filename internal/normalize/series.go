package normalize

import (
    "cmp"
    "encoding/json"
    "slices"
    "sort"
    "strings"
    "time"
    _ "time/tzdata"

    "github.com/rs/zerolog/log"

    "stockdata/internal/provider"
)

const dailySeriesKey = "Time Series (Daily)"

var stampLayouts = []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

// TimeSeries parses a daily or intraday body into points sorted ascending by
// timestamp. Date-only keys are read as UTC midnight; date-time keys in the
// "Time Zone" given by the meta data, UTC when that zone is unknown. Keys that
// do not parse as dates are skipped and logged; a non-empty series with no
// parseable key is rejected.
func TimeSeries(category provider.Category, body []byte) ([]provider.PricePoint, error) {
    var raw map[string]json.RawMessage
    if err := json.Unmarshal(body, &raw); err != nil {
        return nil, unavailable(category)
    }
    key, ok := seriesKey(category, raw)
    if !ok {
        return nil, unavailable(category)
    }
    var series map[string]map[string]field
    if err := json.Unmarshal(raw[key], &series); err != nil {
        return nil, unavailable(category)
    }
    loc := metaLocation(raw["Meta Data"])

    points := make([]provider.PricePoint, 0, len(series))
    skipped := 0
    for stamp, v := range series {
        ts, ok := parseStamp(stamp, loc)
        if !ok {
            skipped++
            log.Debug().Str("category", category.String()).Str("key", stamp).Msg("skipping unparseable series timestamp")
            continue
        }
        vol := v["5. volume"]
        if vol.missing() {
            vol = v["6. volume"]
        }
        points = append(points, provider.PricePoint{
            Timestamp: ts.UnixMilli(),
            Price:     v["4. close"].number(),
            Volume:    vol.integer(),
            Open:      v["1. open"].pointer(),
            High:      v["2. high"].pointer(),
            Low:       v["3. low"].pointer(),
        })
    }
    if skipped > 0 && len(points) == 0 {
        return nil, unavailable(category)
    }
    slices.SortFunc(points, func(a, b provider.PricePoint) int { return cmp.Compare(a.Timestamp, b.Timestamp) })
    return points, nil
}

func seriesKey(category provider.Category, raw map[string]json.RawMessage) (string, bool) {
    switch category {
    case provider.CategoryDaily:
        _, ok := raw[dailySeriesKey]
        return dailySeriesKey, ok
    case provider.CategoryIntraday:
        // "Time Series (5min)", "Time Series (60min)", ...
        keys := make([]string, 0, 1)
        for k := range raw {
            if strings.HasPrefix(k, "Time Series (") && k != dailySeriesKey {
                keys = append(keys, k)
            }
        }
        if len(keys) == 0 {
            return "", false
        }
        sort.Strings(keys)
        return keys[0], true
    }
    return "", false
}

func metaLocation(meta json.RawMessage) *time.Location {
    if len(meta) == 0 {
        return time.UTC
    }
    var m map[string]string
    if err := json.Unmarshal(meta, &m); err != nil {
        return time.UTC
    }
    for k, v := range m {
        if strings.HasSuffix(k, "Time Zone") {
            if loc, err := time.LoadLocation(strings.TrimSpace(v)); err == nil {
                return loc
            }
        }
    }
    return time.UTC
}

func parseStamp(s string, loc *time.Location) (time.Time, bool) {
    s = strings.TrimSpace(s)
    for _, layout := range stampLayouts {
        l := loc
        if len(layout) == len("2006-01-02") {
            l = time.UTC
        }
        if t, err := time.ParseInLocation(layout, s, l); err == nil {
            return t, true
        }
    }
    return time.Time{}, false
}
