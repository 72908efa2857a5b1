package main

import (
	"strings"
	"testing"

	"github.com/banachtech/pathpricer/data"
	"github.com/banachtech/pathpricer/mc"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestReadPast(t *testing.T) {
	past, err := readPast(strings.NewReader("100, 50\n104.5,48\n"))
	require.NoError(t, err)
	r, c := past.Dims()
	require.Equal(t, 2, r)
	require.Equal(t, 2, c)
	require.Equal(t, 104.5, past.At(1, 0))

	_, err = readPast(strings.NewReader(""))
	require.Error(t, err)

	// csv rejects rows with a different field count
	_, err = readPast(strings.NewReader("100,50\n101\n"))
	require.Error(t, err)

	_, err = readPast(strings.NewReader("100,abc\n"))
	require.Error(t, err)
}

func TestLoadings(t *testing.T) {
	// configured vols 0.2 and 0.25 with correlation 0.6
	vol, err := data.LoadingsFromCorrelation([]float64{0.2, 0.25}, mat.NewSymDense(2, []float64{1, 0.6, 0.6, 1}))
	require.NoError(t, err)

	quote := func(spot, k, sigma float64) data.Quote {
		return data.Quote{Strike: k, Maturity: 1, Price: mc.BSCall(spot, k, sigma, 1, 0.01)}
	}
	assets := []assetQuotes{
		{Spot: 100, Quotes: []data.Quote{quote(100, 95, 0.3), quote(100, 105, 0.3)}},
		{Spot: 50, Quotes: []data.Quote{quote(50, 50, 0.1)}},
	}
	l, err := loadings(assets, 0.01, vol)
	require.NoError(t, err)

	var cov mat.SymDense
	cov.SymOuterK(1, l)
	require.InDelta(t, 0.09, cov.At(0, 0), 2e-3)
	require.InDelta(t, 0.01, cov.At(1, 1), 2e-3)
	require.InDelta(t, 0.6*0.3*0.1, cov.At(0, 1), 2e-3)

	_, err = loadings(assets[:1], 0.01, vol)
	require.Error(t, err)
}
