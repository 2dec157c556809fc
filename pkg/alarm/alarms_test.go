package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveAlarms(t *testing.T) {
	a := &ActiveAlarms{}
	assert.True(t, a.Add(PriceFetch))
	assert.False(t, a.Add(PriceFetch))
	assert.True(t, a.Add(Actuator))
	assert.Equal(t, []string{PriceFetch, Actuator}, a.List())

	assert.True(t, a.Remove(PriceFetch))
	assert.False(t, a.Remove(PriceFetch))
	assert.Equal(t, []string{Actuator}, a.List())

	assert.True(t, a.Remove(Actuator))
	assert.Empty(t, a.List())
}
