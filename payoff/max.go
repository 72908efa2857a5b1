package payoff

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Max pays max(max(S) - K, 0) the first time the value turns positive after a date
// where it was zero. The date before the first payment date counts as zero.
type Max struct {
	schedule
}

func maxValue(prices []float64, _ int) float64 {
	return floats.Max(prices)
}

func (o *Max) Kind() Kind { return ConditionalMax }

func (o *Max) Payoff(path mat.Matrix) (float64, int) {
	rows, _ := path.Dims()
	return o.scan(path, rows-1, maxValue, true)
}

func (o *Max) PaidFromPast(past mat.Matrix, lastIndex int, isMonitoringDate bool) (bool, float64, int) {
	return o.paidFromPast(past, lastIndex, isMonitoringDate, maxValue, true)
}
