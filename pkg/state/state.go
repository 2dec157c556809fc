package state

import (
	"time"

	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
)

// State is what the controller did on the last tick.
type State struct {
	Time     time.Time        `json:"time"`
	Hour     int              `json:"hour"`
	Level    types.PowerLevel `json:"level"`
	Fallback bool             `json:"fallback,omitempty"`
	PlanDate *time.Time       `json:"planDate,omitempty"` // nil when nothing is planned
	Stale    bool             `json:"stale,omitempty"`
	Price    *float64         `json:"price,omitempty"`
	TotalWh  *float64         `json:"totalWh,omitempty"`
	Alarms   []string         `json:"alarms,omitempty"`
	Serial   string           `json:"serial,omitempty"`
	Version  string           `json:"version,omitempty"`
}

// Map flattens the state into log fields.
func (s State) Map() map[string]interface{} {
	m := make(map[string]interface{})
	m["hour"] = s.Hour
	m["level"] = s.Level.String()
	if s.Fallback {
		m["fallback"] = boolToInt(s.Fallback)
	}
	if s.PlanDate != nil {
		m["planDate"] = s.PlanDate.Format("2006-01-02")
	}
	if s.Stale {
		m["stale"] = boolToInt(s.Stale)
	}
	if s.Price != nil {
		m["price"] = *s.Price
	}
	if s.TotalWh != nil {
		m["totalWh"] = *s.TotalWh
	}
	if len(s.Alarms) > 0 {
		m["alarms"] = s.Alarms
	}
	return m
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
