package normalize

import (
    "encoding/json"

    "stockdata/internal/provider"
)

type earningsBody struct {
    Quarterly *[]struct {
        FiscalDateEnding   string `json:"fiscalDateEnding"`
        ReportedEPS        field  `json:"reportedEPS"`
        EstimatedEPS       field  `json:"estimatedEPS"`
        Surprise           field  `json:"surprise"`
        SurprisePercentage field  `json:"surprisePercentage"`
    } `json:"quarterlyEarnings"`
}

// Earnings parses an EARNINGS body. Quarters keep the upstream order.
func Earnings(body []byte) (provider.Earnings, error) {
    var b earningsBody
    if err := json.Unmarshal(body, &b); err != nil || b.Quarterly == nil {
        return provider.Earnings{}, unavailable(provider.CategoryEarnings)
    }
    out := make([]provider.QuarterlyEarning, 0, len(*b.Quarterly))
    for _, q := range *b.Quarterly {
        out = append(out, provider.QuarterlyEarning{
            Date:               q.FiscalDateEnding,
            ReportedEPS:        q.ReportedEPS.number(),
            EstimatedEPS:       q.EstimatedEPS.number(),
            Surprise:           q.Surprise.number(),
            SurprisePercentage: q.SurprisePercentage.number(),
        })
    }
    return provider.Earnings{Quarterly: out}, nil
}
