// Package hedging backtests the delta hedge of an option against historical
// market data.
package hedging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/banachtech/pathpricer/data"
	"github.com/banachtech/pathpricer/pricer"
	"github.com/banachtech/pathpricer/util"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrInvalidParams = errors.New("invalid hedging parameters")
	ErrNoFeeds       = errors.New("no market data feeds")
)

// Pricer prices the hedged option. *pricer.Pricer satisfies it.
type Pricer interface {
	PriceAndDeltas(past *mat.Dense, t float64, isMonitoringDate bool) (*pricer.Result, error)
}

type Params struct {
	Underlyings       []string
	PaymentDates      []time.Time
	CreationDate      time.Time
	Rate              float64
	Converter         util.MathDateConverter
	RebalancingPeriod int
}

// Option customises a Simulator.
type Option func(*Simulator)

// WithProgress registers a callback run after each processed feed.
func WithProgress(f func(done, total int)) Option {
	return func(s *Simulator) { s.progress = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// Simulator runs a self-financing delta hedge rebalanced every RebalancingPeriod feeds.
type Simulator struct {
	params   Params
	pricer   Pricer
	progress func(done, total int)
	logger   *slog.Logger
}

func New(params Params, p Pricer, opts ...Option) (*Simulator, error) {
	if len(params.Underlyings) == 0 {
		return nil, fmt.Errorf("%w: no underlyings", ErrInvalidParams)
	}
	if len(params.PaymentDates) == 0 {
		return nil, fmt.Errorf("%w: no payment dates", ErrInvalidParams)
	}
	if params.RebalancingPeriod <= 0 {
		return nil, fmt.Errorf("%w: rebalancing period must be positive, got %d", ErrInvalidParams, params.RebalancingPeriod)
	}
	if params.Converter.DaysInYear <= 0 {
		params.Converter = util.NewMathDateConverter(params.Converter.DaysInYear)
	}
	s := &Simulator{
		params:   params,
		pricer:   p,
		progress: func(int, int) {},
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// portfolio holds Deltas units of each underlying plus cash.
type portfolio struct {
	deltas []float64
	cash   float64
	date   time.Time
}

// value marks the portfolio to spots, with the cash rolled over dt years at rate r.
func (p *portfolio) value(spots []float64, dt, r float64) float64 {
	return floats.Dot(p.deltas, spots) + p.cash*math.Exp(r*dt)
}

// rebalance switches to deltas keeping the portfolio value unchanged.
func (p *portfolio) rebalance(deltas, spots []float64, value float64, date time.Time) {
	p.deltas = append(p.deltas[:0], deltas...)
	p.cash = value - floats.Dot(deltas, spots)
	p.date = date
}

// Run hedges over feeds, which must be in increasing date order. The first feed
// sets up the portfolio at the option price; feeds after the last payment date are
// ignored.
func (s *Simulator) Run(ctx context.Context, feeds []data.Feed) ([]State, error) {
	if len(feeds) == 0 {
		return nil, ErrNoFeeds
	}
	ids := s.params.Underlyings
	conv := s.params.Converter
	maturity := util.Date(s.params.PaymentDates[len(s.params.PaymentDates)-1])

	spots, err := feeds[0].Ordered(ids)
	if err != nil {
		return nil, err
	}
	// The first row of the history is the initial observation.
	monitoring := [][]float64{spots}
	t := conv.Distance(s.params.CreationDate, feeds[0].Date)
	res, err := s.pricer.PriceAndDeltas(stack(monitoring, nil), t, true)
	if err != nil {
		return nil, fmt.Errorf("pricing at %s: %w", feeds[0].Date.Format(util.Layout), err)
	}

	pf := &portfolio{}
	pf.rebalance(res.Deltas, spots, res.Price, feeds[0].Date)
	states := []State{newState(feeds[0].Date, res.Price, res)}
	s.progress(1, len(feeds))

	for i := 1; i < len(feeds); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		feed := feeds[i]
		if util.Date(feed.Date).After(maturity) {
			break
		}
		if spots, err = feed.Ordered(ids); err != nil {
			return nil, err
		}

		isMonitoring := util.IsIn(feed.Date, s.params.PaymentDates)
		if isMonitoring {
			monitoring = append(monitoring, spots)
		}
		if i%s.params.RebalancingPeriod == 0 {
			var past *mat.Dense
			if isMonitoring {
				past = stack(monitoring, nil)
			} else {
				past = stack(monitoring, spots)
			}
			t = conv.Distance(s.params.CreationDate, feed.Date)
			res, err = s.pricer.PriceAndDeltas(past, t, isMonitoring)
			if err != nil {
				return nil, fmt.Errorf("pricing at %s: %w", feed.Date.Format(util.Layout), err)
			}

			value := pf.value(spots, conv.Distance(pf.date, feed.Date), s.params.Rate)
			pf.rebalance(res.Deltas, spots, value, feed.Date)
			states = append(states, newState(feed.Date, value, res))
			s.logger.Debug("rebalanced",
				"date", feed.Date.Format(util.Layout),
				"value", value,
				"price", res.Price,
				"monitoring", isMonitoring)
		}
		s.progress(i+1, len(feeds))
	}
	return states, nil
}

// stack builds the pricer history from the monitoring rows, followed by current
// when it is not nil.
func stack(rows [][]float64, current []float64) *mat.Dense {
	n := len(rows)
	if current != nil {
		n++
	}
	m := mat.NewDense(n, len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	if current != nil {
		m.SetRow(n-1, current)
	}
	return m
}
