package payoff

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Basket pays max(mean(S) - K, 0) at the first payment date where it is positive.
type Basket struct {
	schedule
}

func basketValue(prices []float64, _ int) float64 {
	return floats.Sum(prices) / float64(len(prices))
}

func (b *Basket) Kind() Kind { return ConditionalBasket }

func (b *Basket) Payoff(path mat.Matrix) (float64, int) {
	rows, _ := path.Dims()
	return b.scan(path, rows-1, basketValue, false)
}

func (b *Basket) PaidFromPast(past mat.Matrix, lastIndex int, isMonitoringDate bool) (bool, float64, int) {
	return b.paidFromPast(past, lastIndex, isMonitoringDate, basketValue, false)
}
