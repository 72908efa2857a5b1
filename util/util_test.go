package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse(Layout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMathDateConverter(t *testing.T) {
	c := NewMathDateConverter(0)
	require.Equal(t, DefaultDaysInYear, c.DaysInYear)
	require.InDelta(t, 1.0, c.Distance(day("2023-01-01"), day("2024-01-01")), 1e-12)

	c = NewMathDateConverter(252)
	require.InDelta(t, 126.0/252, c.Distance(day("2023-01-01"), day("2023-05-07")), 1e-12)

	intraday := time.Date(2023, 1, 2, 17, 30, 0, 0, time.UTC)
	require.InDelta(t, 1.0/252, c.Distance(day("2023-01-01"), intraday), 1e-12)
	require.Equal(t, []float64{0, 1.0 / 252}, c.Distances(day("2023-01-01"), []time.Time{day("2023-01-01"), day("2023-01-02")}))
}

func TestAdjustFollowing(t *testing.T) {
	hols, err := Hols([]string{"2023-07-04"})
	require.NoError(t, err)

	for _, tc := range []struct {
		in, want string
	}{
		{in: "2023-07-03", want: "2023-07-03"},
		{in: "2023-07-04", want: "2023-07-05"},
		{in: "2023-07-01", want: "2023-07-03"},
		{in: "2023-07-02", want: "2023-07-03"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			require.Equal(t, day(tc.want), AdjustFollowing(day(tc.in), hols))
		})
	}
}

func TestGenerateDates(t *testing.T) {
	hols, err := Hols([]string{"2023-07-04"})
	require.NoError(t, err)

	dates, err := GenerateDates(day("2023-01-04"), 12, 3, hols)
	require.NoError(t, err)
	require.Equal(t, []time.Time{day("2023-04-04"), day("2023-07-05"), day("2023-10-04"), day("2024-01-04")}, dates)

	_, err = GenerateDates(day("2023-01-04"), 2, 3, nil)
	require.ErrorIs(t, err, ErrInvalidSchedule)
	_, err = GenerateDates(day("2023-01-04"), 12, 0, nil)
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestParseDates(t *testing.T) {
	dates, err := ParseDates([]string{"2023-01-04", "2023-02-01"})
	require.NoError(t, err)
	require.Len(t, dates, 2)

	_, err = ParseDates([]string{"04/01/2023"})
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestRandom(t *testing.T) {
	a, b := NewRandom(3), NewRandom(3)
	require.Equal(t, a.Stock(), b.Stock())

	r := NewRandom(9)
	for i := 0; i < 100; i++ {
		v := r.Int(2, 5)
		require.GreaterOrEqual(t, v, 2)
		require.LessOrEqual(t, v, 5)
	}
	for _, s := range r.Spots(5, 100) {
		require.Greater(t, s, 0.0)
	}
	require.Len(t, r.String(7), 7)
	require.Contains(t, r.Email(), "@email.com")
}
