package mc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// scripted replays a fixed sequence of variates and counts the draws.
type scripted struct {
	vals  []float64
	drawn int
}

func (s *scripted) Rand() float64 {
	v := s.vals[s.drawn%len(s.vals)]
	s.drawn++
	return v
}

func TestNewBlackScholes(t *testing.T) {
	_, err := NewBlackScholes(0.01, mat.NewDense(2, 3, nil))
	require.ErrorIs(t, err, ErrNotSquare)

	m, err := NewBlackScholes(0.01, mat.NewDense(2, 2, []float64{0.3, 0, 0.12, 0.16}))
	require.NoError(t, err)
	require.Equal(t, 2, m.NAssets)
	require.InDelta(t, 0.3, m.Sigma(0), 1e-12)
	require.InDelta(t, 0.2, m.Sigma(1), 1e-12)
}

func TestPathFullHistoryIsCopied(t *testing.T) {
	m, err := NewBlackScholes(0.02, mat.NewDense(2, 2, []float64{0.2, 0, 0.1, 0.1}))
	require.NoError(t, err)

	past := mat.NewDense(3, 2, []float64{100, 50, 101, 49, 103, 52})
	path := mat.NewDense(3, 2, nil)
	z := &scripted{vals: []float64{1}}

	m.Path(past, 1.0, 2, []float64{0.5, 1.0}, path, z)
	require.True(t, mat.Equal(past, path))
	require.Zero(t, z.drawn)
}

func TestPathSingleStep(t *testing.T) {
	r, sigma := 0.03, 0.2
	m, err := NewBlackScholes(r, mat.NewDense(1, 1, []float64{sigma}))
	require.NoError(t, err)

	past := mat.NewDense(1, 1, []float64{100})
	path := mat.NewDense(3, 1, nil)
	z := &scripted{vals: []float64{1, -0.5}}
	dates := []float64{0.5, 1.25}

	m.Path(past, 0, 0, dates, path, z)

	s1 := 100 * math.Exp((r-0.5*sigma*sigma)*0.5+math.Sqrt(0.5)*sigma*1)
	s2 := s1 * math.Exp((r-0.5*sigma*sigma)*0.75+math.Sqrt(0.75)*sigma*(-0.5))
	require.Equal(t, 100.0, path.At(0, 0))
	require.InDelta(t, s1, path.At(1, 0), 1e-10)
	require.InDelta(t, s2, path.At(2, 0), 1e-10)
	require.Equal(t, 2, z.drawn)
}

func TestPathStartsFromCurrentSpot(t *testing.T) {
	m, err := NewBlackScholes(0, mat.NewDense(2, 2, []float64{0.2, 0, 0.1, 0.1}))
	require.NoError(t, err)

	// Initial spot, one fixing, then the current spot between two payment dates.
	past := mat.NewDense(3, 2, []float64{100, 100, 105, 95, 110, 90})
	path := mat.NewDense(4, 2, nil)
	z := &scripted{vals: []float64{1, 2}}
	dates := []float64{0.25, 0.5, 0.75}
	t0 := 0.4

	m.Path(past, t0, 1, dates, path, z)

	require.Equal(t, []float64{100, 100}, path.RawRowView(0))
	require.Equal(t, []float64{105, 95}, path.RawRowView(1))

	dt := dates[1] - t0
	s0 := 110 * math.Exp(-0.5*0.04*dt+math.Sqrt(dt)*(0.2*1))
	s1 := 90 * math.Exp(-0.5*0.02*dt+math.Sqrt(dt)*(0.1*1+0.1*2))
	require.InDelta(t, s0, path.At(2, 0), 1e-10)
	require.InDelta(t, s1, path.At(2, 1), 1e-10)
	require.Equal(t, 4, z.drawn)
}

func TestPathZeroVolatilityIsDeterministic(t *testing.T) {
	r := 0.05
	m, err := NewBlackScholes(r, mat.NewDense(2, 2, []float64{0, 0, 0.1, 0.2}))
	require.NoError(t, err)

	past := mat.NewDense(1, 2, []float64{100, 100})
	path := mat.NewDense(3, 2, nil)
	m.Path(past, 0, 0, []float64{1, 2}, path, NewNormalSource(7))

	require.InDelta(t, 100*math.Exp(r), path.At(1, 0), 1e-10)
	require.InDelta(t, 100*math.Exp(2*r), path.At(2, 0), 1e-10)
}

func TestPathDependsOnlyOnEarlierDraws(t *testing.T) {
	m, err := NewBlackScholes(0.01, mat.NewDense(2, 2, []float64{0.25, 0, 0.05, 0.2}))
	require.NoError(t, err)
	past := mat.NewDense(1, 2, []float64{100, 80})
	dates := []float64{0.25, 0.5, 0.75, 1}

	// Both sequences agree on the first two steps (two assets each).
	a := &scripted{vals: []float64{0.3, -1.2, 0.7, 0.1, 1.5, -0.4, 0.9, 0.2}}
	b := &scripted{vals: []float64{0.3, -1.2, 0.7, 0.1, -2.0, 0.8, -0.6, 1.1}}
	pa := mat.NewDense(5, 2, nil)
	pb := mat.NewDense(5, 2, nil)
	m.Path(past, 0, 0, dates, pa, a)
	m.Path(past, 0, 0, dates, pb, b)

	for i := 0; i <= 2; i++ {
		require.Equal(t, pa.RawRowView(i), pb.RawRowView(i), "row %d", i)
	}
	for i := 3; i <= 4; i++ {
		require.NotEqual(t, pa.RawRowView(i), pb.RawRowView(i), "row %d", i)
	}
}

func TestShiftAsset(t *testing.T) {
	path := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
	ShiftAsset(path, 1, 1, 1.5)
	require.Equal(t, []float64{1, 1, 2, 2, 3, 4.5, 4, 6}, path.RawMatrix().Data)
}

func TestNormalSourceIsSeeded(t *testing.T) {
	a, b := NewNormalSource(11), NewNormalSource(11)
	for i := 0; i < 10; i++ {
		require.Equal(t, a.Rand(), b.Rand())
	}
}

func TestBSCall(t *testing.T) {
	require.InDelta(t, 7.965567455405804, BSCall(100, 100, 0.2, 1, 0), 1e-9)
	require.InDelta(t, 10.450583572185565, BSCall(100, 100, 0.2, 1, 0.05), 1e-9)
	require.InDelta(t, 0.539827837277029, BSCallDelta(100, 100, 0.2, 1, 0), 1e-9)
	require.Equal(t, 0.0, BSCall(90, 100, 0.2, 0, 0))
	require.Equal(t, 1.0, BSCallDelta(110, 100, 0, 1, 0))
}

func TestImpliedVol(t *testing.T) {
	for _, sigma := range []float64{0.1, 0.2, 0.45} {
		p := BSCall(100, 95, sigma, 0.75, 0.02)
		v, err := ImpliedVol(p, 100, 95, 0.75, 0.02)
		require.NoError(t, err)
		require.InDelta(t, sigma, v, 1e-3)
	}

	_, err := ImpliedVol(200, 100, 95, 0.75, 0.02)
	require.ErrorIs(t, err, ErrNoConvergence)
}
