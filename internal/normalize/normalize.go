// Package normalize maps upstream payloads onto the internal stock model. Every
// function here is pure: the same body always yields the same result.
package normalize

import (
    "bytes"
    "encoding/json"
    "strings"

    "github.com/shopspring/decimal"

    "stockdata/internal/provider"
)

// field accepts a JSON string, number or null. The provider sends numbers as
// strings and uses the literal "None" for unreported values.
type field string

func (f *field) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    switch {
    case bytes.Equal(b, []byte("null")):
        *f = ""
    case len(b) > 0 && b[0] == '"':
        var s string
        if err := json.Unmarshal(b, &s); err != nil {
            return err
        }
        *f = field(s)
    default:
        *f = field(b)
    }
    return nil
}

// missing reports values the provider uses for "not reported".
func (f field) missing() bool {
    switch strings.TrimSpace(string(f)) {
    case "", "None", "-", "N/A":
        return true
    }
    return false
}

func (f field) text(def string) string {
    if f.missing() {
        return def
    }
    return strings.TrimSpace(string(f))
}

func (f field) decimal() (decimal.Decimal, bool) {
    if f.missing() {
        return decimal.Zero, false
    }
    s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(string(f)), "%"))
    s = strings.ReplaceAll(s, ",", "")
    d, err := decimal.NewFromString(s)
    if err != nil {
        return decimal.Zero, false
    }
    return d, true
}

// number parses leniently: anything unparseable is 0.
func (f field) number() float64 {
    d, _ := f.decimal()
    return d.InexactFloat64()
}

func (f field) integer() int64 {
    d, _ := f.decimal()
    return d.IntPart()
}

// optional keeps "not reported" distinct from zero.
func (f field) optional() provider.NA {
    d, ok := f.decimal()
    if !ok {
        return provider.NA{}
    }
    return provider.NAFrom(d.InexactFloat64())
}

func (f field) pointer() *float64 {
    d, ok := f.decimal()
    if !ok {
        return nil
    }
    v := d.InexactFloat64()
    return &v
}

func unavailable(c provider.Category) error {
    return &provider.DataUnavailableError{Category: c}
}
