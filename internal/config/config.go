package config

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strconv"
    "strings"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Server struct {
    Port              string `json:"port" yaml:"port"`
    RequestTimeoutSec int    `json:"request_timeout_sec" yaml:"request_timeout_sec"`
}

type AlphaVantage struct {
    APIKeys []string `json:"api_keys" yaml:"api_keys"`
    BaseURL string   `json:"base_url" yaml:"base_url"`
    // RetryAttempts counts the first call; 2 means one retry on throttling.
    RetryAttempts     int     `json:"retry_attempts" yaml:"retry_attempts"`
    RetryBackoffMS    int     `json:"retry_backoff_ms" yaml:"retry_backoff_ms"`
    RetryMaxBackoffMS int     `json:"retry_max_backoff_ms" yaml:"retry_max_backoff_ms"`
    RetryJitter       float64 `json:"retry_jitter" yaml:"retry_jitter"` // fraction in [0, 1]
}

type Limits struct {
    MaxRequests int `json:"max_requests" yaml:"max_requests"`
    WindowSec   int `json:"window_sec" yaml:"window_sec"`
}

type Cache struct {
    TTLSeconds      int `json:"ttl_sec" yaml:"ttl_sec"`
    MaxItems        int `json:"max_items" yaml:"max_items"`
    ProxyTTLSeconds int `json:"proxy_ttl_sec" yaml:"proxy_ttl_sec"`
}

type Fetch struct {
    UseQuoteEndpoint bool   `json:"use_quote_endpoint" yaml:"use_quote_endpoint"`
    IntradayInterval string `json:"intraday_interval" yaml:"intraday_interval"`
    OutputSize       string `json:"output_size" yaml:"output_size"`
    // FixturesDir enables local-first lookups from {SYMBOL}_{category}.json files.
    FixturesDir string `json:"fixtures_dir" yaml:"fixtures_dir"`
    // BatchTimeoutSec bounds one shared upstream batch, independent of callers.
    BatchTimeoutSec int `json:"batch_timeout_sec" yaml:"batch_timeout_sec"`
}

type Log struct {
    Level         string `json:"level" yaml:"level"`
    Format        string `json:"format" yaml:"format"`
    FileEnabled   bool   `json:"file_enabled" yaml:"file_enabled"`
    FilePath      string `json:"file_path" yaml:"file_path"`
    RotationSize  int    `json:"rotation_size_mb" yaml:"rotation_size_mb"`
    RetentionDays int    `json:"retention_days" yaml:"retention_days"`
}

type Config struct {
    Server       Server       `json:"server" yaml:"server"`
    AlphaVantage AlphaVantage `json:"alphavantage" yaml:"alphavantage"`
    Limits       Limits       `json:"limits" yaml:"limits"`
    Cache        Cache        `json:"cache" yaml:"cache"`
    Fetch        Fetch        `json:"fetch" yaml:"fetch"`
    Log          Log          `json:"log" yaml:"log"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 10},
        AlphaVantage: AlphaVantage{
            BaseURL:       "https://www.alphavantage.co/query",
            RetryAttempts: 2,
        },
        Limits: Limits{MaxRequests: 5, WindowSec: 60},
        Cache:  Cache{TTLSeconds: 300, ProxyTTLSeconds: 300},
        Fetch:  Fetch{OutputSize: "compact", BatchTimeoutSec: 30},
        Log: Log{
            Level:         "info",
            Format:        "json",
            FilePath:      "logs",
            RotationSize:  50,
            RetentionDays: 7,
        },
    }
}

// candidates are tried in order when Load is given no path.
var candidates = []string{"config.json", "config.yaml", "config.yml"}

// Load reads a .env file when present, then a JSON or YAML config from path
// (by extension), then applies environment overrides. An empty path picks the
// first of config.json, config.yaml, config.yml that exists; none is fine.
func Load(path string) (Config, error) {
    cfg := Default()
    if _, err := os.Stat(".env"); err == nil {
        if err := godotenv.Load(); err != nil {
            return cfg, fmt.Errorf("load .env: %w", err)
        }
    }
    if path == "" {
        for _, c := range candidates {
            if _, err := os.Stat(c); err == nil {
                path = c
                break
            }
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if err := decode(path, b, &cfg); err != nil {
                return cfg, fmt.Errorf("parse config: %w", err)
            }
        }
    }
    applyEnv(&cfg)
    return cfg, nil
}

func decode(path string, b []byte, cfg *Config) error {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".yaml", ".yml":
        return yaml.Unmarshal(b, cfg)
    default:
        return json.Unmarshal(b, cfg)
    }
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
    if len(c.AlphaVantage.APIKeys) == 0 {
        return errors.New("config: no alpha vantage api keys (set ALPHA_VANTAGE_API_KEYS or ALPHA_VANTAGE_API_KEY)")
    }
    if c.Fetch.OutputSize != "" && c.Fetch.OutputSize != "compact" && c.Fetch.OutputSize != "full" {
        return fmt.Errorf("config: output_size must be compact or full, got %q", c.Fetch.OutputSize)
    }
    if c.AlphaVantage.RetryAttempts < 1 {
        return fmt.Errorf("config: retry_attempts must be >= 1, got %d", c.AlphaVantage.RetryAttempts)
    }
    return nil
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    envInt("REQUEST_TIMEOUT_SEC", 1, &cfg.Server.RequestTimeoutSec)

    if v := os.Getenv("ALPHA_VANTAGE_API_KEYS"); v != "" {
        cfg.AlphaVantage.APIKeys = splitCSV(v)
    } else if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
        cfg.AlphaVantage.APIKeys = splitCSV(v)
    }
    if v := os.Getenv("ALPHA_VANTAGE_BASE_URL"); v != "" { cfg.AlphaVantage.BaseURL = v }
    envInt("STOCKDATA_RETRY_ATTEMPTS", 1, &cfg.AlphaVantage.RetryAttempts)
    envInt("STOCKDATA_RETRY_BACKOFF_MS", 0, &cfg.AlphaVantage.RetryBackoffMS)

    envInt("STOCKDATA_MAX_RPM", 1, &cfg.Limits.MaxRequests)
    envInt("STOCKDATA_WINDOW_SEC", 1, &cfg.Limits.WindowSec)
    envInt("STOCKDATA_CACHE_TTL_SEC", 1, &cfg.Cache.TTLSeconds)
    envInt("STOCKDATA_CACHE_MAX_ITEMS", 0, &cfg.Cache.MaxItems)
    envInt("PROXY_CACHE_TTL_SEC", 1, &cfg.Cache.ProxyTTLSeconds)

    envBool("STOCKDATA_USE_QUOTE_ENDPOINT", &cfg.Fetch.UseQuoteEndpoint)
    if v, ok := os.LookupEnv("STOCKDATA_INTRADAY_INTERVAL"); ok { cfg.Fetch.IntradayInterval = strings.TrimSpace(v) }
    if v := os.Getenv("STOCKDATA_FIXTURES_DIR"); v != "" { cfg.Fetch.FixturesDir = v }
    envInt("STOCKDATA_BATCH_TIMEOUT_SEC", 1, &cfg.Fetch.BatchTimeoutSec)

    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = strings.ToLower(v) }
    if v := os.Getenv("LOG_FORMAT"); v != "" { cfg.Log.Format = strings.ToLower(v) }
    envBool("LOG_FILE_ENABLED", &cfg.Log.FileEnabled)
    if v := os.Getenv("LOG_FILE_PATH"); v != "" { cfg.Log.FilePath = v }
}

// envInt sets *dst when name holds an integer >= min.
func envInt(name string, min int, dst *int) {
    v := strings.TrimSpace(os.Getenv(name))
    if v == "" { return }
    x, err := strconv.Atoi(v)
    if err != nil || x < min { return }
    *dst = x
}

func envBool(name string, dst *bool) {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
    case "1", "true", "yes", "y": *dst = true
    case "0", "false", "no", "n": *dst = false
    }
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
