package state

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	price := 0.123
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	s := State{
		Hour:     18,
		Level:    types.PowerLevelZero,
		PlanDate: &date,
		Stale:    true,
		Price:    &price,
	}
	assert.Equal(t, map[string]interface{}{
		"hour":     18,
		"level":    "zero",
		"planDate": "2024-01-15",
		"stale":    int64(1),
		"price":    0.123,
	}, s.Map())

	s = State{Hour: 3, Fallback: true}
	assert.Equal(t, map[string]interface{}{
		"hour":     3,
		"level":    "normal",
		"fallback": int64(1),
	}, s.Map())
}

func TestJSON(t *testing.T) {
	s := State{Time: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC), Hour: 18, Level: types.PowerLevelHalf}
	b, err := json.Marshal(s)
	assert.NoError(t, err)
	assert.Equal(t, `{"time":"2024-01-15T18:00:00Z","hour":18,"level":"half"}`, string(b))
}
