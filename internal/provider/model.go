package provider

import (
    "encoding/json"

    "github.com/guregu/null/v5"
)

// StockData is the aggregate handed to the dashboard. It is never mutated after
// construction; the cache owns it and callers get a read-only reference.
type StockData struct {
    Symbol         string       `json:"symbol"`
    Quote          Quote        `json:"quote"`
    Overview       Overview     `json:"overview"`
    Earnings       Earnings     `json:"earnings"`
    PEData         PEData       `json:"peData"`
    HistoricalData []PricePoint `json:"historicalData"`
    IntradayData   []PricePoint `json:"intradayData,omitempty"`
}

type Quote struct {
    Price         float64 `json:"price"`
    Change        float64 `json:"change"`
    ChangePercent float64 `json:"changePercent"`
    Volume        int64   `json:"volume"`
}

// Overview holds the fundamentals shown in the aggregate view. Numeric fields are
// 0 when the upstream value is "None", absent or malformed.
type Overview struct {
    Name             string  `json:"name"`
    Description      string  `json:"description"`
    Sector           string  `json:"sector"`
    MarketCap        float64 `json:"marketCap"`
    DividendYield    float64 `json:"dividendYield"`
    DividendPerShare float64 `json:"dividendPerShare"`
    PayoutRatio      float64 `json:"payoutRatio"`
}

type Earnings struct {
    Quarterly []QuarterlyEarning `json:"quarterly"`
}

type QuarterlyEarning struct {
    Date               string  `json:"date"`
    ReportedEPS        float64 `json:"reportedEPS"`
    EstimatedEPS       float64 `json:"estimatedEPS"`
    Surprise           float64 `json:"surprise"`
    SurprisePercentage float64 `json:"surprisePercentage"`
}

// PEData is the set of valuation ratios; all default to 0.
type PEData struct {
    CurrentPE         float64 `json:"currentPE"`
    ForwardPE         float64 `json:"forwardPE"`
    PEGRatio          float64 `json:"pegRatio"`
    PriceToBookRatio  float64 `json:"priceToBookRatio"`
    PriceToSalesRatio float64 `json:"priceToSalesRatio"`
}

// PricePoint is one time-series sample. Timestamp is epoch milliseconds.
type PricePoint struct {
    Timestamp int64    `json:"timestamp"`
    Price     float64  `json:"price"`
    Volume    int64    `json:"volume"`
    Open      *float64 `json:"open,omitempty"`
    High      *float64 `json:"high,omitempty"`
    Low       *float64 `json:"low,omitempty"`
}

// NA is a nullable number that renders as the string "N/A" when unset.
type NA struct {
    null.Float
}

// NAFrom wraps a known value.
func NAFrom(v float64) NA { return NA{null.FloatFrom(v)} }

// Or returns the value, or def when unset.
func (n NA) Or(def float64) float64 {
    if !n.Valid {
        return def
    }
    return n.Float64
}

func (n NA) MarshalJSON() ([]byte, error) {
    if !n.Valid {
        return []byte(`"N/A"`), nil
    }
    return json.Marshal(n.Float64)
}

func (n *NA) UnmarshalJSON(b []byte) error {
    if string(b) == `"N/A"` || string(b) == "null" {
        *n = NA{}
        return nil
    }
    return n.Float.UnmarshalJSON(b)
}

// Detail is the narrower quote + overview record served by the proxy. Ratio and
// yield fields keep "not reported" distinct from zero.
type Detail struct {
    Symbol           string  `json:"symbol"`
    Price            float64 `json:"price"`
    Change           float64 `json:"change"`
    ChangePercent    float64 `json:"changePercent"`
    Volume           int64   `json:"volume"`
    CompanyName      string  `json:"companyName"`
    Sector           string  `json:"sector"`
    MarketCap        float64 `json:"marketCap"`
    PERatio          NA      `json:"peRatio"`
    ForwardPE        NA      `json:"forwardPE"`
    DividendYield    NA      `json:"dividendYield"`
    DividendPerShare NA      `json:"dividendPerShare"`
    PayoutRatio      NA      `json:"payoutRatio"`
}

// QuoteSnapshot is a normalized GLOBAL_QUOTE body.
type QuoteSnapshot struct {
    Symbol string
    Quote
}

// DetailOverview is the overview as normalized for the detail view.
type DetailOverview struct {
    Symbol           string
    CompanyName      string
    Sector           string
    MarketCap        float64
    PERatio          NA
    ForwardPE        NA
    DividendYield    NA
    DividendPerShare NA
    PayoutRatio      NA
}
