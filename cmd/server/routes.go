package main

import (
    "compress/gzip"
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/go-chi/cors"
    "github.com/google/uuid"
    "github.com/rs/zerolog/log"

    "stockdata/internal/normalize"
    "stockdata/internal/provider"
)

// stockService is the full aggregate lookup.
type stockService interface {
    FetchAll(ctx context.Context, symbol string) (*provider.StockData, error)
}

// detailService is the quote + overview lookup.
type detailService interface {
    GetStockData(ctx context.Context, symbol string) (provider.Detail, error)
}

type chartResponse struct {
    Symbol string                `json:"symbol"`
    Range  string                `json:"range"`
    Points []provider.PricePoint `json:"points"`
}

type errorResponse struct {
    Error string `json:"error"`
}

func newRouter(stocks stockService, details detailService, timeout time.Duration) http.Handler {
    r := chi.NewRouter()
    r.Use(requestID)
    r.Use(middleware.RealIP)
    r.Use(accessLog)
    r.Use(recoverPanic)
    r.Use(withGzip)
    r.Use(cors.Handler(cors.Options{
        AllowedOrigins: []string{"*"},
        AllowedMethods: []string{http.MethodGet, http.MethodOptions},
        AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
        ExposedHeaders: []string{requestIDHeader},
        MaxAge:         300,
    }))
    if timeout > 0 {
        r.Use(middleware.Timeout(timeout))
    }

    r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", "text/plain; charset=utf-8")
        w.WriteHeader(http.StatusOK)
        _, _ = w.Write([]byte("ok"))
    })
    r.Route("/api", func(r chi.Router) {
        r.Get("/stock/{symbol}", handleStock(stocks))
        r.Get("/stock/{symbol}/chart", handleChart(stocks, time.Now))
        r.Get("/quote/{symbol}", handleQuote(details))
    })
    return r
}

func handleStock(stocks stockService) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        sd, err := stocks.FetchAll(r.Context(), chi.URLParam(r, "symbol"))
        if err != nil {
            writeError(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, sd)
    }
}

func handleChart(stocks stockService, now func() time.Time) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        rng := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("range")))
        if rng == "" {
            rng = "1M"
        }
        sd, err := stocks.FetchAll(r.Context(), chi.URLParam(r, "symbol"))
        if err != nil {
            writeError(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, chartResponse{
            Symbol: sd.Symbol,
            Range:  rng,
            Points: normalize.ChartRange(sd, rng, now()),
        })
    }
}

func handleQuote(details detailService) http.HandlerFunc {
    return func(w http.ResponseWriter, r *http.Request) {
        d, err := details.GetStockData(r.Context(), chi.URLParam(r, "symbol"))
        if err != nil {
            writeError(w, r, err)
            return
        }
        writeJSON(w, http.StatusOK, d)
    }
}

// statusClientClosedRequest is the nginx convention for a caller that went
// away before the response was ready.
const statusClientClosedRequest = 499

// statusFor maps the lookup error taxonomy onto HTTP.
func statusFor(err error) int {
    switch {
    case errors.Is(err, context.Canceled):
        return statusClientClosedRequest
    case errors.Is(err, provider.ErrInvalidSymbol):
        return http.StatusBadRequest
    case provider.IsRateLimited(err):
        return http.StatusTooManyRequests
    case errors.Is(err, provider.ErrDataUnavailable):
        return http.StatusNotFound
    case errors.Is(err, context.DeadlineExceeded):
        return http.StatusGatewayTimeout
    case errors.Is(err, provider.ErrUpstream):
        return http.StatusBadGateway
    }
    return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
    status := statusFor(err)
    var rl *provider.RateLimitError
    if errors.As(err, &rl) && rl.Wait > 0 {
        w.Header().Set("Retry-After", strconv.Itoa(rl.WaitSeconds()))
    }
    log.Warn().Err(err).Str("request_id", requestIDFrom(r.Context())).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
    writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    enc := json.NewEncoder(w)
    enc.SetEscapeHTML(false)
    _ = enc.Encode(v)
}

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

// requestID keeps an incoming X-Request-ID or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        id := r.Header.Get(requestIDHeader)
        if id == "" {
            id = uuid.New().String()
        }
        w.Header().Set(requestIDHeader, id)
        next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
    })
}

func requestIDFrom(ctx context.Context) string {
    id, _ := ctx.Value(ctxKey{}).(string)
    return id
}

func accessLog(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
        start := time.Now()
        next.ServeHTTP(ww, r)
        log.Info().
            Str("request_id", requestIDFrom(r.Context())).
            Str("method", r.Method).
            Str("path", r.URL.Path).
            Int("status", ww.Status()).
            Int("bytes", ww.BytesWritten()).
            Dur("took", time.Since(start)).
            Msg("http request")
    })
}

// withGzip compresses response when client supports gzip.
func withGzip(next http.Handler) http.Handler {
    var gzPool = sync.Pool{New: func() any {
        // JSON payloads: favour speed over ratio
        w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
        return w
    }}
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
            next.ServeHTTP(w, r)
            return
        }
        gz := gzPool.Get().(*gzip.Writer)
        gz.Reset(w)
        defer func() {
            _ = gz.Close()
            gz.Reset(io.Discard)
            gzPool.Put(gz)
        }()
        w.Header().Set("Content-Encoding", "gzip")
        w.Header().Add("Vary", "Accept-Encoding")
        next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
    })
}

type gzipResponseWriter struct {
    http.ResponseWriter
    Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
    return g.Writer.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if rec := recover(); rec != nil {
                log.Error().Interface("panic", rec).Str("request_id", requestIDFrom(r.Context())).Msg("handler panicked")
                writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
            }
        }()
        next.ServeHTTP(w, r)
    })
}
