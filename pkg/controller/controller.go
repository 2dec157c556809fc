package controller

import (
	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
)

// Actuator drives the heating. SetPowerLevel must have set the outputs
// when it returns and is called every hour even if the level is unchanged.
type Actuator interface {
	SetPowerLevel(level types.PowerLevel) error
}

// Outputs is the state of the two relay outputs for a level.
// Normal is both off, half is A on and zero is both on.
type Outputs struct {
	A bool
	B bool
}

func OutputsFor(level types.PowerLevel) Outputs {
	switch level {
	case types.PowerLevelHalf:
		return Outputs{A: true, B: false}
	case types.PowerLevelZero:
		return Outputs{A: true, B: true}
	}
	return Outputs{}
}
