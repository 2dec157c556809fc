package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextHour(t *testing.T) {
	now := time.Date(2024, 1, 31, 23, 45, 30, 0, time.UTC)
	assert.Equal(t, 14*time.Minute+30*time.Second, NextHour(now))

	now = time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Hour, NextHour(now))
}

func TestNextDaily(t *testing.T) {
	var tests = []struct {
		name     string
		now      time.Time
		expected time.Duration
	}{
		{
			name:     "later today",
			now:      time.Date(2024, 1, 31, 20, 30, 0, 0, time.UTC),
			expected: 2*time.Hour + 30*time.Minute,
		},
		{
			name:     "exactly now is tomorrow",
			now:      time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC),
			expected: 24 * time.Hour,
		},
		{
			name:     "passed",
			now:      time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC),
			expected: 23*time.Hour + 30*time.Minute,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextDaily(tt.now, 23))
		})
	}
}

func TestDay(t *testing.T) {
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), Day(time.Date(2024, 2, 29, 17, 3, 0, 0, time.UTC)))
}
