package dummy

import (
	"sync"

	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/sirupsen/logrus"
)

// Dummy only logs the levels it is given. It remembers them so tests can
// assert on what the control loop did.
type Dummy struct {
	levels []types.PowerLevel
	err    error
	sync.Mutex
}

func New() *Dummy {
	return &Dummy{}
}

func (ts *Dummy) SetPowerLevel(level types.PowerLevel) error {
	ts.Lock()
	defer ts.Unlock()
	logrus.Info("dummy: SetPowerLevel: ", level)
	ts.levels = append(ts.levels, level)
	return ts.err
}

// FailWith makes every following SetPowerLevel return err. nil clears it.
func (ts *Dummy) FailWith(err error) {
	ts.Lock()
	ts.err = err
	ts.Unlock()
}

func (ts *Dummy) Levels() []types.PowerLevel {
	ts.Lock()
	defer ts.Unlock()
	return append([]types.PowerLevel(nil), ts.levels...)
}

func (ts *Dummy) Last() (types.PowerLevel, bool) {
	ts.Lock()
	defer ts.Unlock()
	if len(ts.levels) == 0 {
		return types.PowerLevelNormal, false
	}
	return ts.levels[len(ts.levels)-1], true
}
