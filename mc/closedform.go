package mc

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrNoConvergence = errors.New("implied volatility did not converge")

var stdNormal = distuv.Normal{Mu: 0.0, Sigma: 1.0}

func d1d2(s, k, sigma, T, r float64) (float64, float64) {
	x := sigma * math.Sqrt(T)
	d1 := (math.Log(s/k) + (r+0.5*sigma*sigma)*T) / x
	return d1, d1 - x
}

// BSCall is the Black-Scholes price of a European call.
func BSCall(s, k, sigma, T, r float64) float64 {
	if T <= 0 || sigma <= 0 {
		return math.Max(s-k*math.Exp(-r*math.Max(T, 0)), 0)
	}
	d1, d2 := d1d2(s, k, sigma, T, r)
	return s*stdNormal.CDF(d1) - k*math.Exp(-r*T)*stdNormal.CDF(d2)
}

// BSCallDelta is the Black-Scholes delta of a European call.
func BSCallDelta(s, k, sigma, T, r float64) float64 {
	if T <= 0 || sigma <= 0 {
		if s > k*math.Exp(-r*math.Max(T, 0)) {
			return 1
		}
		return 0
	}
	d1, _ := d1d2(s, k, sigma, T, r)
	return stdNormal.CDF(d1)
}

// ImpliedVol inverts BSCall for the volatility matching price p. The search runs on
// log-volatility with Nelder-Mead.
func ImpliedVol(p, s, k, T, r float64) (float64, error) {
	lower := math.Max(s-k*math.Exp(-r*T), 0)
	if p <= lower || p >= s {
		return math.NaN(), ErrNoConvergence
	}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			diff := BSCall(s, k, math.Exp(x[0]), T, r) - p
			return diff * diff
		},
	}
	res, err := optimize.Minimize(problem, []float64{math.Log(0.3)}, nil, &optimize.NelderMead{})
	if err != nil {
		return math.NaN(), errors.Join(ErrNoConvergence, err)
	}
	return math.Exp(res.X[0]), nil
}
