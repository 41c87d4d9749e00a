package normalize

import (
    "encoding/json"

    "stockdata/internal/provider"
)

type overviewBody struct {
    Symbol               field `json:"Symbol"`
    Name                 field `json:"Name"`
    Description          field `json:"Description"`
    Sector               field `json:"Sector"`
    MarketCapitalization field `json:"MarketCapitalization"`
    PERatio              field `json:"PERatio"`
    ForwardPE            field `json:"ForwardPE"`
    PEGRatio             field `json:"PEGRatio"`
    PriceToBookRatio     field `json:"PriceToBookRatio"`
    PriceToSalesRatio    field `json:"PriceToSalesRatio"`
    PriceToSalesRatioTTM field `json:"PriceToSalesRatioTTM"`
    DividendYield        field `json:"DividendYield"`
    DividendPerShare     field `json:"DividendPerShare"`
    PayoutRatio          field `json:"PayoutRatio"`
}

func decodeOverview(body []byte) (overviewBody, map[string]json.RawMessage, error) {
    var raw map[string]json.RawMessage
    if err := json.Unmarshal(body, &raw); err != nil {
        return overviewBody{}, nil, unavailable(provider.CategoryOverview)
    }
    var b overviewBody
    if err := json.Unmarshal(body, &b); err != nil {
        return overviewBody{}, nil, unavailable(provider.CategoryOverview)
    }
    return b, raw, nil
}

// Overview parses an OVERVIEW body for the aggregate view. The company name is
// required; every numeric field falls back to 0.
func Overview(body []byte) (provider.Overview, provider.PEData, error) {
    b, _, err := decodeOverview(body)
    if err != nil {
        return provider.Overview{}, provider.PEData{}, err
    }
    name := b.Name.text("")
    if name == "" {
        return provider.Overview{}, provider.PEData{}, unavailable(provider.CategoryOverview)
    }

    ps := b.PriceToSalesRatio
    if ps.missing() {
        ps = b.PriceToSalesRatioTTM
    }
    ov := provider.Overview{
        Name:             name,
        Description:      b.Description.text("No description available"),
        Sector:           b.Sector.text("N/A"),
        MarketCap:        b.MarketCapitalization.number(),
        DividendYield:    b.DividendYield.number(),
        DividendPerShare: b.DividendPerShare.number(),
        PayoutRatio:      b.PayoutRatio.number(),
    }
    pe := provider.PEData{
        CurrentPE:         b.PERatio.number(),
        ForwardPE:         b.ForwardPE.number(),
        PEGRatio:          b.PEGRatio.number(),
        PriceToBookRatio:  b.PriceToBookRatio.number(),
        PriceToSalesRatio: ps.number(),
    }
    return ov, pe, nil
}

// DetailOverview parses an OVERVIEW body for the detail view, where ratio and
// yield fields stay unset ("N/A") instead of collapsing to 0. Only an empty
// body is rejected.
func DetailOverview(body []byte) (provider.DetailOverview, error) {
    b, raw, err := decodeOverview(body)
    if err != nil {
        return provider.DetailOverview{}, err
    }
    if len(raw) == 0 {
        return provider.DetailOverview{}, unavailable(provider.CategoryOverview)
    }
    return provider.DetailOverview{
        Symbol:           b.Symbol.text(""),
        CompanyName:      b.Name.text(""),
        Sector:           b.Sector.text(""),
        MarketCap:        b.MarketCapitalization.number(),
        PERatio:          b.PERatio.optional(),
        ForwardPE:        b.ForwardPE.optional(),
        DividendYield:    b.DividendYield.optional(),
        DividendPerShare: b.DividendPerShare.optional(),
        PayoutRatio:      b.PayoutRatio.optional(),
    }, nil
}

// Detail merges a quote snapshot and a detail overview; overview fields win
// where both carry the symbol.
func Detail(q provider.QuoteSnapshot, ov provider.DetailOverview) provider.Detail {
    symbol := ov.Symbol
    if symbol == "" {
        symbol = q.Symbol
    }
    return provider.Detail{
        Symbol:           symbol,
        Price:            q.Price,
        Change:           q.Change,
        ChangePercent:    q.ChangePercent,
        Volume:           q.Volume,
        CompanyName:      ov.CompanyName,
        Sector:           ov.Sector,
        MarketCap:        ov.MarketCap,
        PERatio:          ov.PERatio,
        ForwardPE:        ov.ForwardPE,
        DividendYield:    ov.DividendYield,
        DividendPerShare: ov.DividendPerShare,
        PayoutRatio:      ov.PayoutRatio,
    }
}
