// Command price values the configured option on a price history.
//
//	price -config pricer.yaml -past past.csv -t 0.25 -monitoring=false
//
// Each line of the history file holds the spots of every underlying, in the order
// of the volatility matrix rows. The first line is the initial observation and the
// following lines the observed payment dates, then the current spots when the
// valuation date is not a payment date.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/banachtech/pathpricer/config"
	"github.com/banachtech/pathpricer/data"
	"github.com/banachtech/pathpricer/logging"
	"github.com/banachtech/pathpricer/pricer"
	"github.com/joho/godotenv"
	"gonum.org/v1/gonum/mat"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	pastPath := flag.String("past", "", "CSV file of observed spots, one row per observation")
	t := flag.Float64("t", 0, "valuation time in years since creation")
	monitoring := flag.Bool("monitoring", true, "the last row was observed on a payment date")
	quotesPath := flag.String("quotes", "", "JSON file of call quotes per asset; recalibrates the volatilities keeping the configured correlations")
	flag.Parse()

	if *pastPath == "" {
		fmt.Println("Error: -past is required")
		flag.Usage()
		os.Exit(1)
	}
	if err := run(*configPath, *pastPath, *quotesPath, *t, *monitoring, os.Stdout); err != nil {
		slog.Error("pricing failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, pastPath, quotesPath string, t float64, monitoring bool, w io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := logging.New(c.Log.Logging("pricer", "price"))
	slog.SetDefault(logger)

	params, err := c.PricerParams()
	if err != nil {
		return err
	}
	if quotesPath != "" {
		if params.Volatility, err = recalibrate(quotesPath, params.Rate, params.Volatility); err != nil {
			return err
		}
	}
	p, err := pricer.New(params, pricer.WithLogger(logger))
	if err != nil {
		return err
	}

	f, err := os.Open(pastPath)
	if err != nil {
		return err
	}
	defer f.Close()
	past, err := readPast(f)
	if err != nil {
		return fmt.Errorf("%s: %w", pastPath, err)
	}

	res, err := p.PriceAndDeltas(past, t, monitoring)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

type assetQuotes struct {
	Spot   float64      `json:"spot"`
	Quotes []data.Quote `json:"quotes"`
}

// recalibrate replaces the volatility of each asset by the mean implied volatility
// of its quotes and keeps the correlations of the loading matrix vol.
func recalibrate(path string, rate float64, vol *mat.Dense) (*mat.Dense, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var assets []assetQuotes
	if err := json.Unmarshal(b, &assets); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return loadings(assets, rate, vol)
}

func loadings(assets []assetQuotes, rate float64, vol *mat.Dense) (*mat.Dense, error) {
	n, _ := vol.Dims()
	if len(assets) != n {
		return nil, fmt.Errorf("quotes for %d assets, model has %d", len(assets), n)
	}
	vols := make([]float64, n)
	for i, a := range assets {
		v, err := data.CalibrateVol(a.Spot, rate, a.Quotes)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", i, err)
		}
		vols[i] = v
	}

	var cov mat.SymDense
	cov.SymOuterK(1, vol)
	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		corr.SetSym(i, i, 1)
		for j := i + 1; j < n; j++ {
			// a riskless asset is uncorrelated
			if v := cov.At(i, i) * cov.At(j, j); v > 0 {
				corr.SetSym(i, j, cov.At(i, j)/math.Sqrt(v))
			}
		}
	}
	return data.LoadingsFromCorrelation(vols, corr)
}

func readPast(r io.Reader) (*mat.Dense, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pricer.ErrInvalidHistory
	}
	past := mat.NewDense(len(records), len(records[0]), nil)
	for i, rec := range records {
		for j, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i+1, err)
			}
			past.Set(i, j, v)
		}
	}
	return past, nil
}
