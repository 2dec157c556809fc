package modbusrelay

import (
	"fmt"

	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/nergy-se/heatcontrol/pkg/controller"
	"github.com/nergy-se/heatcontrol/pkg/modbusclient"
	"github.com/sirupsen/logrus"
)

// Relay drives a Modbus relay board with two coils, one per output.
type Relay struct {
	client       modbusclient.Client
	coilA, coilB uint16
}

func New(client modbusclient.Client, coilA, coilB uint16) *Relay {
	return &Relay{
		client: client,
		coilA:  coilA,
		coilB:  coilB,
	}
}

func (ts *Relay) SetPowerLevel(level types.PowerLevel) error {
	out := controller.OutputsFor(level)
	logrus.WithFields(logrus.Fields{"level": level, "a": out.A, "b": out.B}).Debugf("modbusrelay: SetPowerLevel")

	err := ts.client.WriteCoil(ts.coilA, out.A)
	if err != nil {
		return err
	}
	err = ts.client.WriteCoil(ts.coilB, out.B)
	if err != nil {
		return err
	}
	return ts.verify(out)
}

// verify reads the coils back so a relay board that silently ignores writes
// is reported as a failure.
func (ts *Relay) verify(expected controller.Outputs) error {
	a, err := ts.client.ReadCoils(ts.coilA, 1)
	if err != nil {
		return err
	}
	b, err := ts.client.ReadCoils(ts.coilB, 1)
	if err != nil {
		return err
	}
	if len(a) != 1 || len(b) != 1 {
		return fmt.Errorf("unexpected coil response length a: %d b: %d", len(a), len(b))
	}
	got := controller.Outputs{A: a[0], B: b[0]}
	if got != expected {
		return fmt.Errorf("relay outputs %+v does not match wanted %+v", got, expected)
	}
	return nil
}
