package pricer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/banachtech/pathpricer/mc"
	"github.com/banachtech/pathpricer/payoff"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidConfig   = errors.New("invalid pricer configuration")
	ErrInvalidHistory  = errors.New("invalid price history")
	ErrNonPositiveSpot = errors.New("spot price must be positive")
)

// Params configures a Pricer. Volatility is the square loading matrix of the model.
type Params struct {
	Rate       float64
	Volatility *mat.Dense
	Dates      []float64
	Strikes    []float64
	Payoff     payoff.Kind
	Samples    int
	FDStep     float64
	Seed       uint64
	Workers    int
}

// Result holds the price, the deltas and their Monte Carlo errors. PriceStdDev is
// the half-width of the 95% confidence interval.
type Result struct {
	Price        float64   `json:"price"`
	PriceStdDev  float64   `json:"price_std_dev"`
	Deltas       []float64 `json:"deltas"`
	DeltasStdDev []float64 `json:"deltas_std_dev"`
}

// Info describes the static configuration of a Pricer.
type Info struct {
	Rate     float64 `json:"interest_rate"`
	FDStep   float64 `json:"fd_step"`
	Samples  int     `json:"samples"`
	Assets   int     `json:"assets"`
	Payoff   string  `json:"payoff"`
	Maturity float64 `json:"maturity"`
	Workers  int     `json:"workers"`
}

// Option customises a Pricer.
type Option func(*Pricer)

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pricer) { p.logger = l }
}

// Pricer estimates prices and deltas of a path-dependent option by Monte Carlo
// with paired bump-and-reprice finite differences.
type Pricer struct {
	model   *mc.BlackScholes
	option  payoff.Option
	samples int
	fdStep  float64
	logger  *slog.Logger

	mu      sync.Mutex
	workers []*worker
}

// New validates params and allocates one random stream and set of buffers per worker.
func New(params Params, opts ...Option) (*Pricer, error) {
	if params.Volatility == nil {
		return nil, fmt.Errorf("%w: missing volatility matrix", ErrInvalidConfig)
	}
	if params.Samples <= 0 {
		return nil, fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidConfig, params.Samples)
	}
	if params.FDStep <= 0 || params.FDStep >= 1 {
		return nil, fmt.Errorf("%w: fd step must lie in (0, 1), got %v", ErrInvalidConfig, params.FDStep)
	}
	model, err := mc.NewBlackScholes(params.Rate, params.Volatility)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	option, err := payoff.New(params.Payoff, params.Dates, params.Strikes, model.NAssets)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	p := &Pricer{
		model:   model,
		option:  option,
		samples: params.Samples,
		fdStep:  params.FDStep,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}

	nw := params.Workers
	if nw <= 0 {
		nw = 1
	}
	if nw > params.Samples {
		nw = params.Samples
	}
	rows := len(params.Dates) + 1
	for w := 0; w < nw; w++ {
		draws := params.Samples / nw
		if w < params.Samples%nw {
			draws++
		}
		p.workers = append(p.workers, newWorker(params.Seed+uint64(w), draws, rows, model.NAssets))
	}
	return p, nil
}

// Info returns the static parameters of the pricer.
func (p *Pricer) Info() Info {
	return Info{
		Rate:     p.model.Rate,
		FDStep:   p.fdStep,
		Samples:  p.samples,
		Assets:   p.model.NAssets,
		Payoff:   p.option.Kind().String(),
		Maturity: p.option.Maturity(),
		Workers:  len(p.workers),
	}
}

// Assets returns the number of underlyings.
func (p *Pricer) Assets() int {
	return p.model.NAssets
}

// PriceAndDeltas prices the option at time t given the realised history. past holds
// the initial spots, one row per elapsed payment date and, when t is not a payment
// date, the current spots as its last row.
//
// Calls are serialised: the random streams carry over from one call to the next.
func (p *Pricer) PriceAndDeltas(past *mat.Dense, t float64, isMonitoringDate bool) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	start := time.Now()

	n := p.model.NAssets
	dates := p.option.Dates()
	if past == nil || past.IsEmpty() {
		return nil, fmt.Errorf("%w: empty history", ErrInvalidHistory)
	}
	rows, cols := past.Dims()
	if cols != n {
		return nil, fmt.Errorf("%w: %d columns for %d assets", ErrInvalidHistory, cols, n)
	}

	lastIndex := rows - 1
	if !isMonitoringDate {
		lastIndex = rows - 2
	}
	if t == 0 {
		lastIndex = 0
	}
	if lastIndex < 0 {
		return nil, fmt.Errorf("%w: missing current spot", ErrInvalidHistory)
	}
	if lastIndex > len(dates) {
		return nil, fmt.Errorf("%w: %d rows for %d payment dates", ErrInvalidHistory, rows, len(dates))
	}
	if lastIndex < len(dates) && dates[lastIndex] < t {
		return nil, fmt.Errorf("%w: next payment date %v precedes valuation time %v", ErrInvalidHistory, dates[lastIndex], t)
	}

	spot := mat.Row(nil, rows-1, past)
	for d, s := range spot {
		if !(s > 0) {
			return nil, fmt.Errorf("%w: asset %d has spot %v", ErrNonPositiveSpot, d, s)
		}
	}

	res := &Result{Deltas: make([]float64, n), DeltasStdDev: make([]float64, n)}
	if paid, _, k := p.option.PaidFromPast(past, rows-1, isMonitoringDate); paid {
		p.logger.Debug("option already paid", "pay_index", k, "t", t)
		return res, nil
	}

	T := p.option.Maturity()
	disc := math.Exp(-p.model.Rate * (T - t))
	j := job{
		model:      p.model,
		option:     p.option,
		capitalize: payoff.Capitalize(p.model.Rate, T),
		past:       past,
		t:          t,
		lastIndex:  lastIndex,
		spot:       spot,
		h:          p.fdStep,
		disc:       disc,
	}

	var g errgroup.Group
	for _, w := range p.workers {
		w := w
		g.Go(func() error {
			return w.run(&j)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := newAccumulator(n)
	for _, w := range p.workers {
		total.merge(&w.acc)
	}

	N := float64(p.samples)
	mean, variance := total.moments(total.sum, total.sumSq)
	res.Price = disc * mean
	res.PriceStdDev = 1.96 * disc * math.Sqrt(variance) / math.Sqrt(N)
	for d := 0; d < n; d++ {
		m, v := total.moments(total.deltaSum[d], total.deltaSumSq[d])
		res.Deltas[d] = m
		res.DeltasStdDev[d] = math.Sqrt(v / N)
	}

	p.logger.Debug("priced",
		"t", t,
		"last_index", lastIndex,
		"price", res.Price,
		"samples", p.samples,
		"elapsed", time.Since(start))
	return res, nil
}
