package price

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrEmpty            = errors.New("price set is empty")
	ErrNotEnoughRecords = errors.New("not enough records in price set")
	ErrDuplicateHour    = errors.New("duplicate hour in price set")
	ErrHourRange        = errors.New("hour out of range")
	ErrUnsupportedDay   = errors.New("only 24 hour days are supported")
)

// Record is the price of one hour. Rank 1 is the cheapest hour of the day.
type Record struct {
	Time         time.Time `json:"time"`
	Hour         int       `json:"hour"`
	PriceNoTax   float64   `json:"priceNoTax"`
	PriceWithTax float64   `json:"priceWithTax"`
	Rank         int       `json:"rank"`
}

// Set holds the records of one day. It is never modified after NewSet.
type Set struct {
	records []Record
}

func NewSet(records []Record) (*Set, error) {
	seen := make(map[int]bool, len(records))
	for _, r := range records {
		if r.Hour < 0 || r.Hour > 23 {
			return nil, fmt.Errorf("%w: %d", ErrHourRange, r.Hour)
		}
		if seen[r.Hour] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateHour, r.Hour)
		}
		seen[r.Hour] = true
	}

	cp := make([]Record, len(records))
	copy(cp, records)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].Hour < cp[j].Hour
	})
	return &Set{records: cp}, nil
}

func (s *Set) Len() int {
	return len(s.records)
}

// Records returns a copy ordered by hour.
func (s *Set) Records() []Record {
	cp := make([]Record, len(s.records))
	copy(cp, s.records)
	return cp
}

// FullDay reports if the set has exactly one record for each hour 0-23.
// Clock change days have 23 or 25 hours and are not supported.
func (s *Set) FullDay() bool {
	return len(s.records) == 24
}

// Date returns the local date of the first record.
func (s *Set) Date() time.Time {
	if len(s.records) == 0 {
		return time.Time{}
	}
	t := s.records[0].Time
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *Set) byRank(desc bool) []Record {
	cp := s.Records()
	sort.SliceStable(cp, func(i, j int) bool {
		if desc {
			return cp[i].Rank > cp[j].Rank
		}
		return cp[i].Rank < cp[j].Rank
	})
	return cp
}

// HighestPriced returns n records starting at skip, most expensive first.
func (s *Set) HighestPriced(n, skip int) []Record {
	return window(s.byRank(true), n, skip)
}

// LowestPriced returns n records starting at skip, cheapest first.
func (s *Set) LowestPriced(n, skip int) []Record {
	return window(s.byRank(false), n, skip)
}

func window(records []Record, n, skip int) []Record {
	if skip < 0 {
		skip = 0
	}
	if n <= 0 || skip >= len(records) {
		return []Record{}
	}
	end := skip + n
	if end > len(records) {
		end = len(records)
	}
	return records[skip:end]
}

// AveragePrice is the mean price without tax over the whole day.
func (s *Set) AveragePrice() (float64, error) {
	if len(s.records) == 0 {
		return 0, ErrEmpty
	}
	total := 0.0
	for _, r := range s.records {
		total += r.PriceNoTax
	}
	return total / float64(len(s.records)), nil
}

// AveragePriceOfNLowest is the mean price without tax of the n cheapest hours.
func (s *Set) AveragePriceOfNLowest(n int) (float64, error) {
	if n > len(s.records) {
		return 0, fmt.Errorf("%w: want %d have %d", ErrNotEnoughRecords, n, len(s.records))
	}
	if n <= 0 {
		return 0, fmt.Errorf("%w: want %d", ErrNotEnoughRecords, n)
	}
	total := 0.0
	for _, r := range s.LowestPriced(n, 0) {
		total += r.PriceNoTax
	}
	return total / float64(n), nil
}

// SpreadBetweenHighestAndLowest returns the difference in price without tax
// between the most expensive and the cheapest hour.
func (s *Set) SpreadBetweenHighestAndLowest(n int) (float64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("%w: want %d", ErrNotEnoughRecords, n)
	}
	if len(s.records) == 0 {
		return 0, ErrEmpty
	}
	highest := s.HighestPriced(n, 0)
	lowest := s.LowestPriced(n, 0)
	return highest[0].PriceNoTax - lowest[0].PriceNoTax, nil
}
