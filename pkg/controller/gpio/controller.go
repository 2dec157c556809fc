package gpio

import (
	"fmt"
	"sync"

	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/nergy-se/heatcontrol/pkg/controller"
	"github.com/sirupsen/logrus"
	"github.com/warthog618/go-gpiocdev"
)

// Line is a requested output line of a gpio chip.
type Line interface {
	SetValue(value int) error
	Close() error
}

type requestFunc func(chip string, offset int) (Line, error)

// GPIO drives two relays connected to lines offsetA and offsetB of a gpio
// chip through the character device, normally gpiochip0 on a Raspberry Pi.
type GPIO struct {
	chip             string
	offsetA, offsetB int
	request          requestFunc
	lines            map[int]Line
	mutex            sync.Mutex
}

func New(chip string, offsetA, offsetB int) *GPIO {
	return &GPIO{
		chip:    chip,
		offsetA: offsetA,
		offsetB: offsetB,
		request: requestLine,
		lines:   make(map[int]Line),
	}
}

func requestLine(chip string, offset int) (Line, error) {
	l, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("heatcontrol"),
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (ts *GPIO) SetPowerLevel(level types.PowerLevel) error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()

	out := controller.OutputsFor(level)
	logrus.WithFields(logrus.Fields{
		"level":   level,
		"chip":    ts.chip,
		"offsetA": ts.offsetA,
		"a":       out.A,
		"offsetB": ts.offsetB,
		"b":       out.B,
	}).Debug("gpio: SetPowerLevel")

	err := ts.write(ts.offsetA, out.A)
	if err != nil {
		return err
	}
	return ts.write(ts.offsetB, out.B)
}

func (ts *GPIO) write(offset int, on bool) error {
	line, err := ts.line(offset)
	if err != nil {
		return err
	}
	value := 0
	if on {
		value = 1
	}
	err = line.SetValue(value)
	if err != nil {
		// requested again on the next write
		delete(ts.lines, offset)
		if cerr := line.Close(); cerr != nil {
			logrus.Errorf("error closing gpio line %d: %s", offset, cerr)
		}
		return fmt.Errorf("error setting gpio line %d: %w", offset, err)
	}
	return nil
}

func (ts *GPIO) line(offset int) (Line, error) {
	if l, ok := ts.lines[offset]; ok {
		return l, nil
	}
	l, err := ts.request(ts.chip, offset)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s line %d: %w", ts.chip, offset, err)
	}
	ts.lines[offset] = l
	return l, nil
}

// Close releases all requested lines.
func (ts *GPIO) Close() error {
	ts.mutex.Lock()
	defer ts.mutex.Unlock()
	var firstErr error
	for offset, l := range ts.lines {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(ts.lines, offset)
	}
	return firstErr
}
