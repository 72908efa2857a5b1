package mc

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var ErrNotSquare = errors.New("volatility matrix must be square")

// NormalSource draws independent standard normal variates. distuv.Normal satisfies it.
type NormalSource interface {
	Rand() float64
}

// NewNormalSource returns a standard normal generator over a seeded source.
func NewNormalSource(seed uint64) NormalSource {
	return distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: rand.NewSource(seed)}
}

// BlackScholes is a multi-asset Black-Scholes model with a flat rate. Row d of the
// volatility matrix holds the factor loadings of asset d.
type BlackScholes struct {
	NAssets int
	Rate    float64
	vol     *mat.Dense
	sigma   []float64
}

// Constructor for the Black-Scholes model. The loading matrix is copied.
func NewBlackScholes(rate float64, vol mat.Matrix) (*BlackScholes, error) {
	r, c := vol.Dims()
	if r != c || r == 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrNotSquare, r, c)
	}
	m := &BlackScholes{NAssets: r, Rate: rate, vol: mat.DenseCopyOf(vol), sigma: make([]float64, r)}
	for d := 0; d < r; d++ {
		m.sigma[d] = floats.Norm(m.vol.RawRowView(d), 2)
	}
	return m, nil
}

// Sigma returns the total volatility of asset d.
func (m *BlackScholes) Sigma(d int) float64 {
	return m.sigma[d]
}

// Volatility returns a copy of the loading matrix.
func (m *BlackScholes) Volatility() *mat.Dense {
	return mat.DenseCopyOf(m.vol)
}

// Path simulates one draw of the asset prices on the payment dates into path, which
// must have len(dates)+1 rows. Rows 0..lastIndex are copied from past and the
// simulation starts from the last row of past at time t. When lastIndex is the last
// row of path, past is copied verbatim and z is not used.
func (m *BlackScholes) Path(past mat.Matrix, t float64, lastIndex int, dates []float64, path *mat.Dense, z NormalSource) {
	rows, _ := path.Dims()
	if lastIndex == rows-1 {
		path.Copy(past)
		return
	}
	for i := 0; i <= lastIndex; i++ {
		for d := 0; d < m.NAssets; d++ {
			path.Set(i, d, past.At(i, d))
		}
	}

	pr, _ := past.Dims()
	g := make([]float64, m.NAssets)
	spot := make([]float64, m.NAssets)
	for d := range spot {
		spot[d] = past.At(pr-1, d)
	}

	// first step from t to the next payment date
	m.step(spot, path.RawRowView(lastIndex+1), dates[lastIndex]-t, g, z)
	for i := lastIndex + 2; i < rows; i++ {
		m.step(path.RawRowView(i-1), path.RawRowView(i), dates[i-1]-dates[i-2], g, z)
	}
}

func (m *BlackScholes) step(prev, next []float64, dt float64, g []float64, z NormalSource) {
	for d := range g {
		g[d] = z.Rand()
	}
	sqrtDt := math.Sqrt(dt)
	for d := 0; d < m.NAssets; d++ {
		s := m.sigma[d]
		next[d] = prev[d] * math.Exp((m.Rate-0.5*s*s)*dt+sqrtDt*floats.Dot(m.vol.RawRowView(d), g))
	}
}

// ShiftAsset multiplies the prices of asset d strictly after lastIndex by factor.
func ShiftAsset(path *mat.Dense, d, lastIndex int, factor float64) {
	rows, _ := path.Dims()
	for i := lastIndex + 1; i < rows; i++ {
		path.Set(i, d, path.At(i, d)*factor)
	}
}
