package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrBadRecord     = errors.New("malformed market data record")
	ErrMissingSpot   = errors.New("missing spot")
	ErrNoMarketData  = errors.New("no market data")
	dateLayouts      = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}
	marketDataHeader = []string{"Id", "DateOfPrice", "Value"}
)

// ShareValue is one closing price of one underlying.
type ShareValue struct {
	Id          string
	DateOfPrice time.Time
	Value       float64
}

// Feed holds the spots of every underlying observed on one date.
type Feed struct {
	Date  time.Time
	Spots map[string]float64
}

// Ordered returns the spots of ids in that order.
func (f Feed) Ordered(ids []string) ([]float64, error) {
	out := make([]float64, len(ids))
	for i, id := range ids {
		v, ok := f.Spots[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s on %s", ErrMissingSpot, id, f.Date.Format("2006-01-02"))
		}
		out[i] = v
	}
	return out, nil
}

// ParseDate accepts the date layouts found in market data files.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// ReadShareValues parses Id,DateOfPrice,Value records. The header row is optional.
func ReadShareValues(r io.Reader) ([]ShareValue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(marketDataHeader)
	cr.TrimLeadingSpace = true

	var out []ShareValue
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadRecord, err)
		}
		if line == 1 && strings.EqualFold(rec[0], marketDataHeader[0]) {
			continue
		}
		date, err := ParseDate(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadRecord, line, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrBadRecord, line, err)
		}
		out = append(out, ShareValue{Id: strings.TrimSpace(rec[0]), DateOfPrice: date, Value: v})
	}
	return out, nil
}

// LoadFeeds reads a market data CSV file and groups it into feeds.
func LoadFeeds(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	values, err := ReadShareValues(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Feeds(values), nil
}

// Feeds groups share values by date, in increasing date order.
func Feeds(values []ShareValue) []Feed {
	byDate := map[time.Time]map[string]float64{}
	for _, v := range values {
		spots, ok := byDate[v.DateOfPrice]
		if !ok {
			spots = map[string]float64{}
			byDate[v.DateOfPrice] = spots
		}
		spots[v.Id] = v.Value
	}

	feeds := make([]Feed, 0, len(byDate))
	for date, spots := range byDate {
		feeds = append(feeds, Feed{Date: date, Spots: spots})
	}
	sort.Slice(feeds, func(i, j int) bool { return feeds[i].Date.Before(feeds[j].Date) })
	return feeds
}

// Underlyings lists the ids present in the feeds, sorted.
func Underlyings(feeds []Feed) []string {
	seen := map[string]bool{}
	var ids []string
	for _, f := range feeds {
		for id := range f.Spots {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// History stacks the ordered spots of feeds into a matrix, one row per feed.
func History(feeds []Feed, ids []string) (*mat.Dense, error) {
	if len(feeds) == 0 || len(ids) == 0 {
		return nil, ErrNoMarketData
	}
	m := mat.NewDense(len(feeds), len(ids), nil)
	for i, f := range feeds {
		row, err := f.Ordered(ids)
		if err != nil {
			return nil, err
		}
		m.SetRow(i, row)
	}
	return m, nil
}
