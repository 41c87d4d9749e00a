// Package fixture serves pre-fetched upstream bodies from disk so the client can
// run offline or against recorded data.
package fixture

import (
    "context"
    "errors"
    "fmt"
    "io/fs"
    "os"

    "github.com/rs/zerolog/log"

    "stockdata/internal/provider"
)

// Lookup resolves a recorded body for one category and symbol. ok=false means
// nothing is recorded, which is not an error.
type Lookup interface {
    Lookup(category provider.Category, symbol string) (body []byte, ok bool, err error)
}

// Dir reads {symbol}_{category}.json files, e.g. AAPL_overview.json.
type Dir struct {
    FS fs.FS
}

// NewDir roots a Dir at path on the local filesystem.
func NewDir(path string) *Dir { return &Dir{FS: os.DirFS(path)} }

// Name returns the file name a recording must use.
func Name(category provider.Category, symbol string) string {
    return fmt.Sprintf("%s_%s.json", symbol, category)
}

func (d *Dir) Lookup(category provider.Category, symbol string) ([]byte, bool, error) {
    if d == nil || d.FS == nil {
        return nil, false, nil
    }
    b, err := fs.ReadFile(d.FS, Name(category, symbol))
    if errors.Is(err, fs.ErrNotExist) {
        return nil, false, nil
    }
    if err != nil {
        return nil, false, fmt.Errorf("read fixture: %w", err)
    }
    return b, true, nil
}

// LocalFirst wraps a Fetcher and answers from Local when a recording exists,
// falling through to P otherwise. Recorded bodies go through the same
// classification as live ones via Classify when it is set.
type LocalFirst struct {
    Local Lookup
    P     provider.Fetcher
    // Classify rejects recorded error/throttle bodies; nil accepts any body.
    Classify func(body []byte) error
}

func (l *LocalFirst) Name() string { return l.P.Name() }

func (l *LocalFirst) Fetch(ctx context.Context, req provider.Request) (provider.Payload, error) {
    if l.Local != nil {
        body, ok, err := l.Local.Lookup(req.Category, req.Symbol)
        if err != nil {
            return provider.Payload{}, err
        }
        if ok {
            if l.Classify != nil {
                if err := l.Classify(body); err != nil {
                    return provider.Payload{}, err
                }
            }
            log.Debug().Str("category", req.Category.String()).Str("symbol", req.Symbol).Msg("served from fixture")
            return provider.Payload{Category: req.Category, Symbol: req.Symbol, Body: body, Source: "fixture"}, nil
        }
    }
    return l.P.Fetch(ctx, req)
}
