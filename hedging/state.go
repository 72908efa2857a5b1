package hedging

import (
	"encoding/json"
	"io"
	"time"

	"github.com/banachtech/pathpricer/pricer"
)

const DateLayout = "2006-01-02T15:04:05"

// State is the portfolio after one rebalancing, next to the option price it tracks.
type State struct {
	Date         time.Time
	Value        float64
	Deltas       []float64
	DeltasStdDev []float64
	Price        float64
	PriceStdDev  float64
}

func newState(date time.Time, value float64, res *pricer.Result) State {
	return State{
		Date:         date,
		Value:        value,
		Deltas:       append([]float64(nil), res.Deltas...),
		DeltasStdDev: append([]float64(nil), res.DeltasStdDev...),
		Price:        res.Price,
		PriceStdDev:  res.PriceStdDev,
	}
}

type stateJSON struct {
	Date         string    `json:"date"`
	Value        float64   `json:"value"`
	Deltas       []float64 `json:"deltas"`
	DeltasStdDev []float64 `json:"deltasStdDev"`
	Price        float64   `json:"price"`
	PriceStdDev  float64   `json:"priceStdDev"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Date:         s.Date.Format(DateLayout),
		Value:        s.Value,
		Deltas:       s.Deltas,
		DeltasStdDev: s.DeltasStdDev,
		Price:        s.Price,
		PriceStdDev:  s.PriceStdDev,
	})
}

func (s *State) UnmarshalJSON(b []byte) error {
	var v stateJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	date, err := time.Parse(DateLayout, v.Date)
	if err != nil {
		return err
	}
	*s = State{
		Date:         date,
		Value:        v.Value,
		Deltas:       v.Deltas,
		DeltasStdDev: v.DeltasStdDev,
		Price:        v.Price,
		PriceStdDev:  v.PriceStdDev,
	}
	return nil
}

// WriteJSON writes the states as an indented JSON array.
func WriteJSON(w io.Writer, states []State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if states == nil {
		states = []State{}
	}
	return enc.Encode(states)
}
