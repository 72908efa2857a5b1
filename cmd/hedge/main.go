// Command hedge backtests the delta hedge of the configured option on a market data
// file and writes the portfolio history as JSON. Runs are stored when a database is
// configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/banachtech/pathpricer/config"
	"github.com/banachtech/pathpricer/data"
	"github.com/banachtech/pathpricer/db"
	"github.com/banachtech/pathpricer/hedging"
	"github.com/banachtech/pathpricer/logging"
	"github.com/banachtech/pathpricer/pricer"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"gonum.org/v1/gonum/mat"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	marketPath := flag.String("market", "", "market data CSV (Id,DateOfPrice,Value)")
	outPath := flag.String("out", "portfolio.json", "output file for the portfolio history")
	quiet := flag.Bool("quiet", false, "hide the progress bar")
	estimate := flag.Bool("estimate-vol", false, "estimate the loading matrix from the market data instead of the configured one")
	flag.Parse()

	if *marketPath == "" {
		fmt.Println("Error: -market is required")
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, *configPath, *marketPath, *outPath, !*quiet, *estimate); err != nil {
		slog.Error("backtest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, marketPath, outPath string, showProgress, estimate bool) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(c.Log.Logging("pricer", "hedge"))
	slog.SetDefault(logger)

	feeds, err := data.LoadFeeds(marketPath)
	if err != nil {
		return err
	}
	params, err := c.HedgingParams(data.Underlyings(feeds))
	if err != nil {
		return err
	}
	pricerParams, err := c.PricerParams()
	if err != nil {
		return err
	}
	if estimate {
		if pricerParams.Volatility, err = estimateLoadings(feeds, params); err != nil {
			return err
		}
		logger.Info("estimated loadings", "assets", len(params.Underlyings), "observations", len(feeds))
	}
	p, err := pricer.New(pricerParams, pricer.WithLogger(logger))
	if err != nil {
		return err
	}

	opts := []hedging.Option{hedging.WithLogger(logger)}
	if showProgress {
		bar := progressBar(len(feeds))
		defer bar.Finish()
		opts = append(opts, hedging.WithProgress(func(done, _ int) {
			bar.Set(done)
		}))
	}
	sim, err := hedging.New(params, p, opts...)
	if err != nil {
		return err
	}
	states, err := sim.Run(ctx, feeds)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := hedging.WriteJSON(out, states); err != nil {
		return err
	}

	sum := hedging.Summarize(states)
	logger.Info("backtest finished",
		"states", len(states),
		"output", outPath,
		"mean_tracking_error", sum.Mean,
		"std_tracking_error", sum.Std,
		"final_pnl", sum.FinalPnL)

	if c.Database.DSN == "" {
		return nil
	}
	gdb, err := db.Open(c.Database.DSN, logger, c.Database.SlowThreshold)
	if err != nil {
		return err
	}
	store := db.NewStore(gdb)
	if err := store.Migrate(); err != nil {
		return err
	}
	record := db.NewRun(p.Info().Payoff, params.Underlyings, pricerParams.Samples, states, sum)
	if err := store.CreateRun(ctx, record); err != nil {
		return err
	}
	logger.Info("run stored", "run_id", record.ID)
	return nil
}

// estimateLoadings fits the model to the feeds, assuming they are evenly spaced.
func estimateLoadings(feeds []data.Feed, params hedging.Params) (*mat.Dense, error) {
	if len(feeds) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 feeds to estimate volatility", data.ErrNoMarketData)
	}
	history, err := data.History(feeds, params.Underlyings)
	if err != nil {
		return nil, err
	}
	dt := params.Converter.Distance(feeds[0].Date, feeds[len(feeds)-1].Date) / float64(len(feeds)-1)
	return data.EstimateLoadings(history, dt)
}

func progressBar(length int) *progressbar.ProgressBar {
	bar := progressbar.NewOptions(
		length,
		progressbar.OptionSetDescription("hedging"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetVisibility(true),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
	return bar
}
