package plan

import (
	"time"

	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/nergy-se/heatcontrol/pkg/price"
)

// Allocation is the resolved power level plan of one day.
type Allocation struct {
	date    time.Time
	records []price.Record
	zero    []price.Record
	half    []price.Record
	forced  map[int]bool
}

// Slot is one planned hour, used for audit and publishing.
type Slot struct {
	Hour         int              `json:"hour"`
	Time         time.Time        `json:"time"`
	PriceNoTax   float64          `json:"priceNoTax"`
	PriceWithTax float64          `json:"priceWithTax"`
	Rank         int              `json:"rank"`
	Level        types.PowerLevel `json:"level"`
	Forced       bool             `json:"forced,omitempty"`
}

func NewAllocation(date time.Time, records, zero, half []price.Record, forced map[int]bool) *Allocation {
	a := &Allocation{
		date:    date,
		records: append([]price.Record(nil), records...),
		zero:    append([]price.Record(nil), zero...),
		half:    append([]price.Record(nil), half...),
		forced:  make(map[int]bool, len(forced)),
	}
	for h, v := range forced {
		a.forced[h] = v
	}
	return a
}

func (a *Allocation) Date() time.Time {
	return a.date
}

func (a *Allocation) ZeroHours() []price.Record {
	return append([]price.Record(nil), a.zero...)
}

func (a *Allocation) HalfHours() []price.Record {
	return append([]price.Record(nil), a.half...)
}

// Forced reports if hour was put in zero power only because of its absolute price.
func (a *Allocation) Forced(hour int) bool {
	return a.forced[hour]
}

// LevelAt returns the power level for an hour of the day. Half power is
// checked first so it wins if an hour ever shows up in both sets.
func (a *Allocation) LevelAt(hour int) types.PowerLevel {
	if a == nil {
		return types.PowerLevelNormal
	}
	for _, r := range a.half {
		if r.Hour == hour {
			return types.PowerLevelHalf
		}
	}
	for _, r := range a.zero {
		if r.Hour == hour {
			return types.PowerLevelZero
		}
	}
	return types.PowerLevelNormal
}

func (a *Allocation) Slot(hour int) (Slot, bool) {
	for _, s := range a.Schedule() {
		if s.Hour == hour {
			return s, true
		}
	}
	return Slot{}, false
}

// Schedule lists every hour of the day with its assigned level ordered by hour.
func (a *Allocation) Schedule() []Slot {
	slots := make([]Slot, 0, len(a.records))
	for _, r := range a.records {
		slots = append(slots, Slot{
			Hour:         r.Hour,
			Time:         r.Time,
			PriceNoTax:   r.PriceNoTax,
			PriceWithTax: r.PriceWithTax,
			Rank:         r.Rank,
			Level:        a.LevelAt(r.Hour),
			Forced:       a.forced[r.Hour],
		})
	}
	return slots
}
