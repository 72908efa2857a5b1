package data

import (
	"errors"
	"fmt"
	"math"

	"github.com/banachtech/pathpricer/mc"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrNotPositiveDefinite = errors.New("covariance matrix is not positive definite")

// EstimateLoadings estimates the loading matrix of a Black-Scholes model from a
// price history with rows sampled every dt years. The annualised covariance of log
// returns is factored as L·Lᵀ with L lower triangular.
func EstimateLoadings(history mat.Matrix, dt float64) (*mat.Dense, error) {
	rows, cols := history.Dims()
	if rows < 3 || cols == 0 {
		return nil, fmt.Errorf("%w: need at least 3 observations, got %d", ErrNoMarketData, rows)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("time step must be positive, got %v", dt)
	}

	returns := mat.NewDense(rows-1, cols, nil)
	for i := 1; i < rows; i++ {
		for j := 0; j < cols; j++ {
			prev, cur := history.At(i-1, j), history.At(i, j)
			if prev <= 0 || cur <= 0 {
				return nil, fmt.Errorf("%w: non-positive price at row %d, column %d", ErrBadRecord, i, j)
			}
			returns.Set(i-1, j, math.Log(cur/prev))
		}
	}

	var cov, annual mat.SymDense
	stat.CovarianceMatrix(&cov, returns, nil)
	annual.ScaleSym(1/dt, &cov)
	return choleskyLoadings(&annual)
}

// LoadingsFromCorrelation builds the loading matrix of assets with volatilities vols
// and correlation matrix corr.
func LoadingsFromCorrelation(vols []float64, corr mat.Symmetric) (*mat.Dense, error) {
	n := corr.SymmetricDim()
	if len(vols) != n {
		return nil, fmt.Errorf("%d volatilities for a %dx%d correlation matrix", len(vols), n, n)
	}
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, vols[i]*vols[j]*corr.At(i, j))
		}
	}
	return choleskyLoadings(cov)
}

func choleskyLoadings(cov mat.Symmetric) (*mat.Dense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, ErrNotPositiveDefinite
	}
	var l mat.TriDense
	chol.LTo(&l)
	return mat.DenseCopyOf(&l), nil
}

// Quote is the market price of a European call.
type Quote struct {
	Strike   float64 `json:"K"`
	Maturity float64 `json:"T"`
	Price    float64 `json:"price"`
}

// CalibrateVol returns the mean implied volatility of the quotes that invert. Quotes
// outside the no-arbitrage bounds are skipped.
func CalibrateVol(spot, rate float64, quotes []Quote) (float64, error) {
	var vols []float64
	var errs []error
	for _, q := range quotes {
		v, err := mc.ImpliedVol(q.Price, spot, q.Strike, q.Maturity, rate)
		if err != nil {
			errs = append(errs, fmt.Errorf("K=%v T=%v: %w", q.Strike, q.Maturity, err))
			continue
		}
		vols = append(vols, v)
	}
	if len(vols) == 0 {
		return math.NaN(), errors.Join(append([]error{ErrNoMarketData}, errs...)...)
	}
	return stat.Mean(vols, nil), nil
}
