package main

import (
    "encoding/json"
    "fmt"
    "io"
    "os"
    "strings"
    "time"

    "github.com/spf13/cobra"

    "stockdata/internal/app"
    "stockdata/internal/config"
    "stockdata/internal/logger"
    "stockdata/internal/normalize"
)

type options struct {
    cfgFile  string
    fixtures string
    keys     []string
    verbose  bool
    compact  bool
}

func newRootCmd(out io.Writer) *cobra.Command {
    var (
        opts options
        a    *app.App
    )
    root := &cobra.Command{
        Use:           "fetch",
        Short:         "Look up stock data and print it as JSON",
        SilenceUsage: true,
        PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
            var err error
            a, err = build(opts)
            return err
        },
    }
    root.PersistentFlags().StringVar(&opts.cfgFile, "config", os.Getenv("CONFIG_FILE"), "config file (.json or .yaml)")
    root.PersistentFlags().StringVar(&opts.fixtures, "fixtures", "", "serve {SYMBOL}_{category}.json files from this directory before calling upstream")
    root.PersistentFlags().StringSliceVar(&opts.keys, "key", nil, "api key; repeat or comma-separate for rotation")
    root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging to stderr")
    root.PersistentFlags().BoolVar(&opts.compact, "compact", false, "print JSON on one line")

    printJSON := func(v any) error {
        enc := json.NewEncoder(out)
        enc.SetEscapeHTML(false)
        if !opts.compact {
            enc.SetIndent("", "  ")
        }
        return enc.Encode(v)
    }

    allCmd := &cobra.Command{
        Use:   "all SYMBOL",
        Short: "Quote, overview, earnings and price history",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            sd, err := a.Client.FetchAll(cmd.Context(), args[0])
            if err != nil {
                return err
            }
            return printJSON(sd)
        },
    }

    quoteCmd := &cobra.Command{
        Use:   "quote SYMBOL",
        Short: "Quote merged with the company overview",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            d, err := a.Proxy.GetStockData(cmd.Context(), args[0])
            if err != nil {
                return err
            }
            return printJSON(d)
        },
    }

    var rng string
    chartCmd := &cobra.Command{
        Use:   "chart SYMBOL",
        Short: "Price points for a chart range (1D, 1W, 1M, 3M, YTD, 1Y, 5Y)",
        Args:  cobra.ExactArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            sd, err := a.Client.FetchAll(cmd.Context(), args[0])
            if err != nil {
                return err
            }
            rng = strings.ToUpper(rng)
            return printJSON(map[string]any{
                "symbol": sd.Symbol,
                "range":  rng,
                "points": normalize.ChartRange(sd, rng, time.Now()),
            })
        },
    }
    chartCmd.Flags().StringVar(&rng, "range", "1M", "chart range")

    rec := &recorder{concurrency: 2, sleep: sleepCtx}
    recordCmd := &cobra.Command{
        Use:   "record SYMBOL...",
        Short: "Save raw upstream responses as fixture files for --fixtures",
        Args:  cobra.MinimumNArgs(1),
        RunE: func(cmd *cobra.Command, args []string) error {
            rec.fetcher = a.Upstream
            rec.limiter = a.Limiter
            paths, err := rec.Record(cmd.Context(), args)
            for _, p := range paths {
                fmt.Fprintln(out, p)
            }
            return err
        },
    }
    recordCmd.Flags().StringVar(&rec.dir, "out", "fixtures", "directory to write {SYMBOL}_{category}.json files into")
    recordCmd.Flags().StringVar(&rec.interval, "intraday", "5min", "intraday interval to record; empty skips intraday")
    recordCmd.Flags().BoolVar(&rec.wait, "wait", false, "wait for the request window instead of failing")
    recordCmd.Flags().IntVar(&rec.concurrency, "concurrency", 2, "parallel requests per symbol")

    root.AddCommand(allCmd, quoteCmd, chartCmd, recordCmd)
    return root
}

func build(opts options) (*app.App, error) {
    cfg, err := config.Load(opts.cfgFile)
    if err != nil {
        return nil, err
    }
    if len(opts.keys) > 0 {
        cfg.AlphaVantage.APIKeys = opts.keys
    }
    if opts.fixtures != "" {
        cfg.Fetch.FixturesDir = opts.fixtures
    }
    level := "warn"
    if opts.verbose {
        level = "debug"
    }
    if err := logger.Init(logger.Config{Level: level, Format: "pretty", ServiceName: "stockdata-fetch", Out: os.Stderr}); err != nil {
        return nil, fmt.Errorf("logger: %w", err)
    }
    return app.Build(cfg)
}
