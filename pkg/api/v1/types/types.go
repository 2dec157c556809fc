package types

import "fmt"

type ActuatorType string

var ActuatorTypeDummy = ActuatorType("dummy")
var ActuatorTypeGPIO = ActuatorType("gpio")
var ActuatorTypeModbusRelay = ActuatorType("modbusrelay")

// PowerLevel is the heat restriction applied during one hour.
// Zero is the most restrictive, Normal means full heat.
type PowerLevel int

const (
	PowerLevelNormal PowerLevel = iota
	PowerLevelHalf
	PowerLevelZero
)

func (l PowerLevel) String() string {
	switch l {
	case PowerLevelNormal:
		return "normal"
	case PowerLevelHalf:
		return "half"
	case PowerLevelZero:
		return "zero"
	}
	return fmt.Sprintf("PowerLevel(%d)", int(l))
}

func (l PowerLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *PowerLevel) UnmarshalText(b []byte) error {
	p, err := ParsePowerLevel(string(b))
	if err != nil {
		return err
	}
	*l = p
	return nil
}

func ParsePowerLevel(s string) (PowerLevel, error) {
	switch s {
	case "normal":
		return PowerLevelNormal, nil
	case "half":
		return PowerLevelHalf, nil
	case "zero":
		return PowerLevelZero, nil
	}
	return PowerLevelNormal, fmt.Errorf("unknown power level %q", s)
}
