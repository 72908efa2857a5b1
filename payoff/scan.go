package payoff

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// fixing computes the undiscounted cash flow of date k from the prices fixed at k.
type fixing func(prices []float64, k int) float64

// scan walks the payment dates whose rows lie in 1..lastRow and returns the first
// positive cash flow. With zeroThenPositive set, a date only pays when the value at
// the previous date was exactly zero.
func (s schedule) scan(m mat.Matrix, lastRow int, value fixing, zeroThenPositive bool) (float64, int) {
	rows, cols := m.Dims()
	if lastRow > rows-1 {
		lastRow = rows - 1
	}
	if lastRow > len(s.dates) {
		lastRow = len(s.dates)
	}

	var buf []float64
	prev := 0.0
	for k := 0; k+1 <= lastRow; k++ {
		prices := rowView(m, k+1, cols, &buf)
		cur := math.Max(value(prices, k)-s.strikes[k], 0)
		if cur > 0 && (!zeroThenPositive || prev == 0) {
			return cur, k
		}
		prev = cur
	}
	return 0, NoPayment
}

// paidFromPast restricts scan to the rows of the history that are fixings.
func (s schedule) paidFromPast(past mat.Matrix, lastIndex int, isMonitoringDate bool, value fixing, zeroThenPositive bool) (bool, float64, int) {
	lastRow := lastIndex
	if !isMonitoringDate {
		lastRow--
	}
	if lastRow < 1 {
		return false, 0, NoPayment
	}
	amount, k := s.scan(past, lastRow, value, zeroThenPositive)
	return k != NoPayment, amount, k
}

func rowView(m mat.Matrix, i, cols int, buf *[]float64) []float64 {
	if d, ok := m.(mat.RawRowViewer); ok {
		return d.RawRowView(i)
	}
	if *buf == nil {
		*buf = make([]float64, cols)
	}
	return mat.Row(*buf, i, m)
}
