package pricer

import (
	"fmt"
	"math"

	"github.com/banachtech/pathpricer/mc"
	"github.com/banachtech/pathpricer/payoff"
	"gonum.org/v1/gonum/mat"
)

// job is the read-only state shared by the workers of one pricing call.
type job struct {
	model      *mc.BlackScholes
	option     payoff.Option
	capitalize payoff.Capitalization
	past       *mat.Dense
	t          float64
	lastIndex  int
	spot       []float64
	h          float64
	disc       float64
}

// worker owns a random stream, its scratch paths and partial sums. Only one
// goroutine touches a worker at a time.
type worker struct {
	z     mc.NormalSource
	draws int

	path *mat.Dense
	up   *mat.Dense
	down *mat.Dense
	acc  accumulator
}

func newWorker(seed uint64, draws, rows, n int) *worker {
	return &worker{
		z:     mc.NewNormalSource(seed),
		draws: draws,
		path:  mat.NewDense(rows, n, nil),
		up:    mat.NewDense(rows, n, nil),
		down:  mat.NewDense(rows, n, nil),
		acc:   newAccumulator(n),
	}
}

func (w *worker) run(j *job) error {
	w.acc.reset()
	dates := j.option.Dates()
	for i := 0; i < w.draws; i++ {
		j.model.Path(j.past, j.t, j.lastIndex, dates, w.path, w.z)
		v := w.value(j, w.path)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("pricer: non-finite payoff %v on draw %d", v, i)
		}
		w.acc.sum += v
		w.acc.sumSq += v * v

		for d := range j.spot {
			w.up.Copy(w.path)
			mc.ShiftAsset(w.up, d, j.lastIndex, 1+j.h)
			w.down.Copy(w.path)
			mc.ShiftAsset(w.down, d, j.lastIndex, 1-j.h)

			xi := j.disc * (w.value(j, w.up) - w.value(j, w.down)) / (2 * j.h * j.spot[d])
			w.acc.deltaSum[d] += xi
			w.acc.deltaSumSq[d] += xi * xi
		}
	}
	w.acc.count = w.draws
	return nil
}

func (w *worker) value(j *job, path mat.Matrix) float64 {
	amount, k := j.option.Payoff(path)
	return payoff.Value(j.option, amount, k, j.capitalize)
}

// accumulator keeps the sums needed for the sample mean and variance of the payoff
// and of each delta estimator.
type accumulator struct {
	count      int
	sum        float64
	sumSq      float64
	deltaSum   []float64
	deltaSumSq []float64
}

func newAccumulator(n int) accumulator {
	return accumulator{deltaSum: make([]float64, n), deltaSumSq: make([]float64, n)}
}

func (a *accumulator) reset() {
	a.count = 0
	a.sum, a.sumSq = 0, 0
	for d := range a.deltaSum {
		a.deltaSum[d], a.deltaSumSq[d] = 0, 0
	}
}

func (a *accumulator) merge(b *accumulator) {
	a.count += b.count
	a.sum += b.sum
	a.sumSq += b.sumSq
	for d := range a.deltaSum {
		a.deltaSum[d] += b.deltaSum[d]
		a.deltaSumSq[d] += b.deltaSumSq[d]
	}
}

// moments returns the mean and the population variance, clamped at zero.
func (a *accumulator) moments(sum, sumSq float64) (float64, float64) {
	if a.count == 0 {
		return 0, 0
	}
	n := float64(a.count)
	mean := sum / n
	return mean, math.Max(sumSq/n-mean*mean, 0)
}
