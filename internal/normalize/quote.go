package normalize

import (
    "encoding/json"

    "github.com/shopspring/decimal"

    "stockdata/internal/provider"
)

type globalQuoteBody struct {
    GlobalQuote map[string]field `json:"Global Quote"`
}

// Quote parses a GLOBAL_QUOTE body. An absent or empty "Global Quote" object
// means the symbol is unknown.
func Quote(body []byte) (provider.QuoteSnapshot, error) {
    var b globalQuoteBody
    if err := json.Unmarshal(body, &b); err != nil || len(b.GlobalQuote) == 0 {
        return provider.QuoteSnapshot{}, unavailable(provider.CategoryQuote)
    }
    q := b.GlobalQuote
    return provider.QuoteSnapshot{
        Symbol: q["01. symbol"].text(""),
        Quote: provider.Quote{
            Price:         q["05. price"].number(),
            Change:        q["09. change"].number(),
            ChangePercent: q["10. change percent"].number(),
            Volume:        q["06. volume"].integer(),
        },
    }, nil
}

// QuoteFromHistory derives the quote from the last two points of an ascending
// series. With fewer than two points change and changePercent stay 0.
func QuoteFromHistory(points []provider.PricePoint) provider.Quote {
    if len(points) == 0 {
        return provider.Quote{}
    }
    cur := points[len(points)-1]
    q := provider.Quote{Price: cur.Price, Volume: cur.Volume}
    if len(points) < 2 {
        return q
    }
    prev := decimal.NewFromFloat(points[len(points)-2].Price)
    change := decimal.NewFromFloat(cur.Price).Sub(prev)
    q.Change = change.InexactFloat64()
    if !prev.IsZero() {
        q.ChangePercent = change.Div(prev).Mul(decimal.NewFromInt(100)).InexactFloat64()
    }
    return q
}
