package payoff

import "gonum.org/v1/gonum/mat"

// MultiFlow is a strip of calls where date k observes asset k only. The first
// positive call pays and terminates the contract.
type MultiFlow struct {
	schedule
}

func multiFlowValue(prices []float64, k int) float64 {
	return prices[k]
}

func (o *MultiFlow) Kind() Kind { return MultiFlowCall }

func (o *MultiFlow) Payoff(path mat.Matrix) (float64, int) {
	rows, _ := path.Dims()
	return o.scan(path, rows-1, multiFlowValue, false)
}

func (o *MultiFlow) PaidFromPast(past mat.Matrix, lastIndex int, isMonitoringDate bool) (bool, float64, int) {
	return o.paidFromPast(past, lastIndex, isMonitoringDate, multiFlowValue, false)
}
