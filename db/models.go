package db

import (
	"time"

	"github.com/banachtech/pathpricer/hedging"
)

// Run is one hedging backtest with its summary statistics.
type Run struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Payoff      string    `json:"payoff"`
	Underlyings []string  `gorm:"serializer:json" json:"underlyings"`
	Samples     int       `json:"samples"`

	MeanTrackingError float64 `json:"mean_tracking_error"`
	StdTrackingError  float64 `json:"std_tracking_error"`
	MinTrackingError  float64 `json:"min_tracking_error"`
	MaxTrackingError  float64 `json:"max_tracking_error"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	FinalPnL          float64 `json:"final_pnl"`

	States []State `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE" json:"states"`
}

// State is one rebalancing of a run. Seq keeps the original order.
type State struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	RunID        uint      `gorm:"index" json:"-"`
	Seq          int       `json:"-"`
	Date         time.Time `json:"date"`
	Value        float64   `json:"value"`
	Deltas       []float64 `gorm:"serializer:json" json:"deltas"`
	DeltasStdDev []float64 `gorm:"serializer:json" json:"deltasStdDev"`
	Price        float64   `json:"price"`
	PriceStdDev  float64   `json:"priceStdDev"`
}

// NewRun builds a run record from backtest results.
func NewRun(payoff string, underlyings []string, samples int, states []hedging.State, sum hedging.Summary) *Run {
	run := &Run{
		Payoff:            payoff,
		Underlyings:       underlyings,
		Samples:           samples,
		MeanTrackingError: sum.Mean,
		StdTrackingError:  sum.Std,
		MinTrackingError:  sum.Min,
		MaxTrackingError:  sum.Max,
		MaxDrawdown:       sum.MaxDrawdown,
		FinalPnL:          sum.FinalPnL,
		States:            make([]State, len(states)),
	}
	for i, s := range states {
		run.States[i] = State{
			Seq:          i,
			Date:         s.Date,
			Value:        s.Value,
			Deltas:       s.Deltas,
			DeltasStdDev: s.DeltasStdDev,
			Price:        s.Price,
			PriceStdDev:  s.PriceStdDev,
		}
	}
	return run
}

// HedgingStates converts the stored states back to backtest states.
func (r *Run) HedgingStates() []hedging.State {
	out := make([]hedging.State, len(r.States))
	for i, s := range r.States {
		out[i] = hedging.State{
			Date:         s.Date,
			Value:        s.Value,
			Deltas:       s.Deltas,
			DeltasStdDev: s.DeltasStdDev,
			Price:        s.Price,
			PriceStdDev:  s.PriceStdDev,
		}
	}
	return out
}
