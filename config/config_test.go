package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/banachtech/pathpricer/payoff"
	"github.com/stretchr/testify/require"
)

const sample = `
log:
  level: debug
server:
  addr: ":9090"
  api_keys:
    - prefix: dmag_d8K
      hash: "$2a$10$abc"
      expires_at: "2030-01-01 00:00:00"
model:
  interest_rate: 0.02
  volatility:
    - [0.2, 0]
    - [0.05, 0.15]
contract:
  payoff: conditional_max
  creation_date: "2023-01-02"
  payment_dates: ["2023-07-03", "2024-01-02"]
  strikes: [105, 110]
monte_carlo:
  samples: 1000
  fd_step: 0.05
  seed: 7
  workers: 2
hedging:
  underlyings: [A, B]
  rebalancing_period: 5
`

func write(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	c, err := Load(write(t, "pricer.yaml", sample))
	require.NoError(t, err)

	require.Equal(t, "debug", c.Log.Level)
	require.Equal(t, 3, c.Log.MaxBackups)
	require.Equal(t, ":9090", c.Server.Addr)
	require.Len(t, c.Server.APIKeys, 1)
	require.Equal(t, time.Second, c.Server.RateLimit.Every)
	require.Equal(t, 365, c.Contract.DaysInYear)

	p, err := c.PricerParams()
	require.NoError(t, err)
	require.Equal(t, payoff.ConditionalMax, p.Payoff)
	require.Equal(t, 0.02, p.Rate)
	require.Equal(t, 0.15, p.Volatility.At(1, 1))
	require.InDeltaSlice(t, []float64{182.0 / 365, 1}, p.Dates, 1e-12)
	require.Equal(t, 1000, p.Samples)
	require.Equal(t, uint64(7), p.Seed)
	require.Equal(t, 2, p.Workers)

	h, err := c.HedgingParams(nil)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, h.Underlyings)
	require.Equal(t, 5, h.RebalancingPeriod)
	require.Len(t, h.PaymentDates, 2)

	lc := c.Log.Logging("pricer", "api")
	require.Equal(t, "api", lc.Module)
	require.Equal(t, "debug", lc.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PRICER_MONTE_CARLO_SAMPLES", "123")
	t.Setenv("PRICER_CONTRACT_PAYOFF", "conditional_basket")

	c, err := Load(write(t, "pricer.yaml", sample))
	require.NoError(t, err)
	require.Equal(t, 123, c.MonteCarlo.Samples)
	require.Equal(t, "conditional_basket", c.Contract.Payoff)
}

func TestLoadSchedule(t *testing.T) {
	c, err := Load(write(t, "pricer.json", `{
		"model": {"volatility": [[0.2]]},
		"contract": {
			"creation_date": "2023-01-04",
			"schedule": {"tenor_months": 12, "frequency_months": 6, "holidays": ["2023-07-04"]},
			"strikes": [100, 100]
		}
	}`))
	require.NoError(t, err)

	dates, err := c.PaymentDates()
	require.NoError(t, err)
	require.Equal(t, []time.Time{
		time.Date(2023, 7, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}, dates)
}

func TestLoadRejectsInvalid(t *testing.T) {
	for _, tc := range []struct {
		name, content string
	}{
		{name: "FD_STEP", content: `
model: {volatility: [[0.2]]}
contract: {creation_date: "2023-01-02", payment_dates: ["2024-01-02"], strikes: [100]}
monte_carlo: {fd_step: 1.5}
`},
		{name: "UNKNOWN_PAYOFF", content: `
model: {volatility: [[0.2]]}
contract: {payoff: asian, creation_date: "2023-01-02", payment_dates: ["2024-01-02"], strikes: [100]}
`},
		{name: "STRIKES_MISMATCH", content: `
model: {volatility: [[0.2]]}
contract: {creation_date: "2023-01-02", payment_dates: ["2024-01-02"], strikes: [100, 110]}
`},
		{name: "NON_SQUARE_VOLATILITY", content: `
model: {volatility: [[0.2, 0.1]]}
contract: {creation_date: "2023-01-02", payment_dates: ["2024-01-02"], strikes: [100]}
`},
		{name: "BAD_DATE", content: `
model: {volatility: [[0.2]]}
contract: {creation_date: "02/01/2023", payment_dates: ["2024-01-02"], strikes: [100]}
`},
		{name: "PAYMENT_BEFORE_CREATION", content: `
model: {volatility: [[0.2]]}
contract: {creation_date: "2023-01-02", payment_dates: ["2022-01-02"], strikes: [100]}
`},
		{name: "SHORT_PREFIX", content: `
server: {api_keys: [{prefix: abc, hash: x}]}
model: {volatility: [[0.2]]}
contract: {creation_date: "2023-01-02", payment_dates: ["2024-01-02"], strikes: [100]}
`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(write(t, "pricer.yaml", tc.content))
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestHedgingParamsUnderlyingsMismatch(t *testing.T) {
	c, err := Load(write(t, "pricer.yaml", sample))
	require.NoError(t, err)
	c.Hedging.Underlyings = nil

	_, err = c.HedgingParams([]string{"A"})
	require.ErrorIs(t, err, ErrInvalidConfig)
	h, err := c.HedgingParams([]string{"X", "Y"})
	require.NoError(t, err)
	require.Equal(t, []string{"X", "Y"}, h.Underlyings)
}
