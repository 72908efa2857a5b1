package hedging

import (
	"gonum.org/v1/gonum/stat"
)

// Summary describes how closely the hedge portfolio tracked the option price.
type Summary struct {
	TrackingErrors []float64 `json:"tracking_errors"`
	Mean           float64   `json:"mean"`
	Std            float64   `json:"std"`
	Min            float64   `json:"min"`
	Max            float64   `json:"max"`
	MaxDrawdown    float64   `json:"max_drawdown"`
	FinalPnL       float64   `json:"final_pnl"`
}

// Summarize computes the tracking error (portfolio value minus price) statistics.
func Summarize(states []State) Summary {
	if len(states) == 0 {
		return Summary{}
	}
	te := make([]float64, len(states))
	values := make([]float64, len(states))
	for i, s := range states {
		te[i] = s.Value - s.Price
		values[i] = s.Value
	}

	var sum Summary
	sum.TrackingErrors = te
	if len(te) > 1 {
		sum.Mean, sum.Std = stat.MeanStdDev(te, nil)
	} else {
		sum.Mean = te[0]
	}
	sum.Min, sum.Max = minmax(te)
	sum.MaxDrawdown = maxDrawDown(values)
	sum.FinalPnL = te[len(te)-1]
	return sum
}

func minmax(array []float64) (float64, float64) {
	max := array[0]
	min := array[0]
	for _, value := range array {
		if max < value {
			max = value
		}
		if min > value {
			min = value
		}
	}
	return min, max
}

// maxDrawDown is the largest relative fall of the series from a running peak,
// reported as a non-positive number.
func maxDrawDown(array []float64) float64 {
	peak := array[0]
	worst := 0.0
	for _, x := range array {
		if x > peak {
			peak = x
		}
		if peak > 0 {
			if r := x/peak - 1; r < worst {
				worst = r
			}
		}
	}
	return worst
}
