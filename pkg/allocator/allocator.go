package allocator

import (
	"sort"

	"github.com/nergy-se/heatcontrol/pkg/plan"
	"github.com/nergy-se/heatcontrol/pkg/price"
	"github.com/sirupsen/logrus"
)

type Policy struct {
	// ZeroPowerHours is how many of the most expensive hours we try to turn heat off.
	ZeroPowerHours int
	// HalfPowerHours is the maximum number of hours running at half power.
	HalfPowerHours int
	// SafeZeroPowerHours is a hard ceiling on zero power hours, price overrides included.
	SafeZeroPowerHours int
	// MaxConsecutiveZeroPowerHours limits how long the house is left without heat.
	MaxConsecutiveZeroPowerHours int

	// Hours priced above this (with tax) are always turned off.
	UltimateHighestPrice float64
	// Hours priced below this (with tax) always get full heat.
	UltimateLowestPrice float64
}

// Allocate classifies every hour of the set into zero, half or normal power.
// Hours are visited most expensive first so the limited zero and half slots
// go to the costliest hours.
func Allocate(set *price.Set, p Policy) (*plan.Allocation, error) {
	if set.Len() == 0 {
		return nil, price.ErrEmpty
	}

	var zero, half []price.Record
	forced := make(map[int]bool)

	for _, h := range set.HighestPriced(set.Len(), 0) {
		wantsZero := false
		if len(zero) < p.ZeroPowerHours && longestRun(zero, h.Hour) <= p.MaxConsecutiveZeroPowerHours {
			wantsZero = true
		}
		byTarget := wantsZero

		if h.PriceWithTax > p.UltimateHighestPrice {
			wantsZero = true
		}

		if h.PriceWithTax < p.UltimateLowestPrice {
			continue
		}

		if wantsZero {
			if len(zero) < p.SafeZeroPowerHours {
				zero = append(zero, h)
				if !byTarget {
					forced[h.Hour] = true
				}
			} else {
				logrus.WithFields(logrus.Fields{
					"hour":  h.Hour,
					"price": h.PriceWithTax,
					"cap":   p.SafeZeroPowerHours,
				}).Debug("allocator: safe zero power ceiling reached")
			}
			continue
		}

		if len(half) < p.HalfPowerHours {
			half = append(half, h)
		}
	}

	return plan.NewAllocation(set.Date(), set.Records(), zero, half, forced), nil
}

// longestRun returns the longest run of consecutive hours among the zero
// power hours with hour added.
func longestRun(zero []price.Record, hour int) int {
	hours := make([]int, 0, len(zero)+1)
	for _, r := range zero {
		hours = append(hours, r.Hour)
	}
	hours = append(hours, hour)
	sort.Ints(hours)

	longest, run := 1, 1
	for i := 1; i < len(hours); i++ {
		switch hours[i] - hours[i-1] {
		case 0:
			continue
		case 1:
			run++
		default:
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}
