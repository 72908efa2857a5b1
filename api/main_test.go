package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/banachtech/pathpricer/config"
	"github.com/banachtech/pathpricer/db"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testPrefix = "dmag_d8K"
	testKey    = "dmag_d8K.RGbV3hb3LEwYohYW"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestConfig(keys ...config.APIKey) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Addr:      ":0",
			APIKeys:   keys,
			RateLimit: config.RateLimitConfig{Burst: 5},
		},
		Model: config.ModelConfig{
			InterestRate: 0.01,
			Volatility:   [][]float64{{0.2, 0}, {0.05, 0.15}},
		},
		Contract: config.ContractConfig{
			Payoff:       "conditional_basket",
			CreationDate: "2023-01-02",
			PaymentDates: []string{"2023-01-09", "2023-01-16"},
			Strikes:      []float64{100, 100},
			DaysInYear:   365,
		},
		MonteCarlo: config.MonteCarloConfig{Samples: 200, FDStep: 0.1, Seed: 1, Workers: 2},
		Hedging:    config.HedgingConfig{RebalancingPeriod: 1},
	}
}

func newTestKey(t *testing.T, expiresAt string) config.APIKey {
	hash, err := bcrypt.GenerateFromPassword([]byte(testKey), bcrypt.MinCost)
	require.NoError(t, err)
	return config.APIKey{Prefix: testPrefix, Hash: string(hash), ExpiresAt: expiresAt}
}

func newTestServer(t *testing.T, c *config.Config, store db.Store) *Server {
	server, err := NewServer(c, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return server
}

func addAuthorization(request *http.Request, authorizationType, token string) {
	request.Header.Set(authorizationHeaderKey, fmt.Sprintf("%s %s", authorizationType, token))
}

func serve(t *testing.T, server *Server, method, url string, body any, setup func(*http.Request)) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	request, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if setup != nil {
		setup(request)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, request)
	return recorder
}

// marketData returns daily prices of A and B from the creation date to the last
// payment date.
func marketData() []gin.H {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	var out []gin.H
	for i := 0; i <= 14; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out,
			gin.H{"id": "A", "date": date, "value": 100 + float64(i)/2},
			gin.H{"id": "B", "date": date, "value": 100 - float64(i)/4},
		)
	}
	return out
}
