package price

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// day builds a full day where rank follows the given prices ordering.
func day(t *testing.T, prices []float64) *Set {
	t.Helper()
	base := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	order := make([]int, len(prices))
	for i := range order {
		order[i] = i
	}
	// rank by price ascending, ties by hour
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			if prices[order[j]] < prices[order[i]] {
				order[i], order[j] = order[j], order[i]
			}
		}
	}
	rank := make([]int, len(prices))
	for r, h := range order {
		rank[h] = r + 1
	}

	records := make([]Record, len(prices))
	for h, p := range prices {
		records[h] = Record{
			Time:         base.Add(time.Duration(h) * time.Hour),
			Hour:         h,
			PriceNoTax:   p,
			PriceWithTax: p * 1.24,
			Rank:         rank[h],
		}
	}
	s, err := NewSet(records)
	require.NoError(t, err)
	return s
}

func TestNewSet(t *testing.T) {
	var tests = []struct {
		name     string
		given    []Record
		expected error
	}{
		{
			name:  "ok",
			given: []Record{{Hour: 1, Rank: 1}, {Hour: 0, Rank: 2}},
		},
		{
			name:     "duplicate hour",
			given:    []Record{{Hour: 1, Rank: 1}, {Hour: 1, Rank: 2}},
			expected: ErrDuplicateHour,
		},
		{
			name:     "hour too big",
			given:    []Record{{Hour: 24, Rank: 1}},
			expected: ErrHourRange,
		},
		{
			name:     "negative hour",
			given:    []Record{{Hour: -1, Rank: 1}},
			expected: ErrHourRange,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSet(tt.given)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestSetIsImmutable(t *testing.T) {
	records := []Record{{Hour: 0, Rank: 1, PriceNoTax: 1}, {Hour: 1, Rank: 2, PriceNoTax: 2}}
	s, err := NewSet(records)
	require.NoError(t, err)

	records[0].PriceNoTax = 100
	got := s.Records()
	got[1].PriceNoTax = 200
	assert.Equal(t, 1.0, s.Records()[0].PriceNoTax)
	assert.Equal(t, 2.0, s.Records()[1].PriceNoTax)

	s.HighestPriced(2, 0)
	assert.Equal(t, 0, s.Records()[0].Hour)
}

func TestHighestAndLowest(t *testing.T) {
	s := day(t, []float64{5, 1, 9, 3, 7})

	high := s.HighestPriced(2, 0)
	require.Len(t, high, 2)
	assert.Equal(t, 2, high[0].Hour)
	assert.Equal(t, 4, high[1].Hour)

	high = s.HighestPriced(2, 1)
	assert.Equal(t, []int{4, 0}, hours(high))

	low := s.LowestPriced(3, 0)
	assert.Equal(t, []int{1, 3, 0}, hours(low))

	assert.Len(t, s.LowestPriced(10, 3), 2)
	assert.Empty(t, s.LowestPriced(3, 10))
	assert.Empty(t, s.LowestPriced(0, 0))
}

func TestAverages(t *testing.T) {
	s := day(t, []float64{4, 1, 9, 2})

	avg, err := s.AveragePrice()
	assert.NoError(t, err)
	assert.Equal(t, 4.0, avg)

	avg, err = s.AveragePriceOfNLowest(2)
	assert.NoError(t, err)
	assert.Equal(t, 1.5, avg)

	_, err = s.AveragePriceOfNLowest(5)
	assert.ErrorIs(t, err, ErrNotEnoughRecords)

	empty, err := NewSet(nil)
	require.NoError(t, err)
	_, err = empty.AveragePrice()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestSpread(t *testing.T) {
	s := day(t, []float64{4, 1, 9, 2})
	spread, err := s.SpreadBetweenHighestAndLowest(2)
	assert.NoError(t, err)
	assert.Equal(t, 8.0, spread)

	_, err = s.SpreadBetweenHighestAndLowest(0)
	assert.ErrorIs(t, err, ErrNotEnoughRecords)
}

func TestFullDayAndDate(t *testing.T) {
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = float64(i)
	}
	s := day(t, prices)
	assert.True(t, s.FullDay())
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), s.Date())

	short := day(t, prices[:23])
	assert.False(t, short.FullDay())
}

func hours(records []Record) []int {
	h := make([]int, len(records))
	for i, r := range records {
		h[i] = r.Hour
	}
	return h
}
