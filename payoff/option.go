package payoff

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// NoPayment is the pay index reported when a path never triggers a cash flow.
const NoPayment = -1

var (
	ErrUnknownKind     = errors.New("unknown payoff type")
	ErrInvalidSchedule = errors.New("invalid payment schedule")
)

// Kind selects one of the supported contracts.
type Kind int

const (
	ConditionalBasket Kind = iota
	ConditionalMax
	MultiFlowCall
)

var kindNames = map[Kind]string{
	ConditionalBasket: "conditional_basket",
	ConditionalMax:    "conditional_max",
	MultiFlowCall:     "multi_flow_call",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a configuration string to a Kind. The empty string selects the
// conditional basket.
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	switch key {
	case "", "conditional_basket", "conditionalbasket":
		return ConditionalBasket, nil
	case "conditional_max", "conditionalmax":
		return ConditionalMax, nil
	case "multi_flow_call", "multiflowcall":
		return MultiFlowCall, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Option is an early-terminating contract paying at most one cash flow.
//
// Row k+1 of a path (or of the history) holds the prices fixed at payment date k;
// row 0 is the initial observation and never pays.
type Option interface {
	// Payoff scans the payment dates in order and returns the first cash flow and the
	// index of the date it is paid at, or (0, NoPayment).
	Payoff(path mat.Matrix) (float64, int)
	// PaidFromPast runs the same scan over history rows 1..lastIndex. Row lastIndex is
	// only a fixing when isMonitoringDate is true.
	PaidFromPast(past mat.Matrix, lastIndex int, isMonitoringDate bool) (bool, float64, int)

	Kind() Kind
	Dates() []float64
	Strikes() []float64
	Maturity() float64
}

// New builds the option selected by kind over the given schedule.
func New(kind Kind, dates, strikes []float64, nAssets int) (Option, error) {
	s, err := newSchedule(dates, strikes)
	if err != nil {
		return nil, err
	}
	if nAssets <= 0 {
		return nil, fmt.Errorf("%w: asset count must be positive, got %d", ErrInvalidSchedule, nAssets)
	}

	switch kind {
	case ConditionalBasket:
		return &Basket{schedule: s}, nil
	case ConditionalMax:
		return &Max{schedule: s}, nil
	case MultiFlowCall:
		if len(dates) > nAssets {
			return nil, fmt.Errorf("%w: multi-flow call needs one asset per date, got %d dates for %d assets", ErrInvalidSchedule, len(dates), nAssets)
		}
		return &MultiFlow{schedule: s}, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownKind, kind)
}

// schedule holds the dates and strikes shared by every variant.
type schedule struct {
	dates   []float64
	strikes []float64
}

func newSchedule(dates, strikes []float64) (schedule, error) {
	if len(dates) == 0 {
		return schedule{}, fmt.Errorf("%w: no payment dates", ErrInvalidSchedule)
	}
	if len(dates) != len(strikes) {
		return schedule{}, fmt.Errorf("%w: %d dates but %d strikes", ErrInvalidSchedule, len(dates), len(strikes))
	}
	if dates[0] <= 0 {
		return schedule{}, fmt.Errorf("%w: first date must be positive, got %v", ErrInvalidSchedule, dates[0])
	}
	for i := 1; i < len(dates); i++ {
		if dates[i] <= dates[i-1] {
			return schedule{}, fmt.Errorf("%w: dates must be strictly increasing (%v after %v)", ErrInvalidSchedule, dates[i], dates[i-1])
		}
	}
	s := schedule{
		dates:   make([]float64, len(dates)),
		strikes: make([]float64, len(strikes)),
	}
	copy(s.dates, dates)
	copy(s.strikes, strikes)
	return s, nil
}

func (s schedule) Dates() []float64   { return s.dates }
func (s schedule) Strikes() []float64 { return s.strikes }
func (s schedule) Maturity() float64  { return s.dates[len(s.dates)-1] }
