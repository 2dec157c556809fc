package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nergy-se/heatcontrol/pkg/alarm"
	"github.com/nergy-se/heatcontrol/pkg/api/v1/config"
	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/nergy-se/heatcontrol/pkg/audit"
	"github.com/nergy-se/heatcontrol/pkg/clock"
	"github.com/nergy-se/heatcontrol/pkg/controller"
	"github.com/nergy-se/heatcontrol/pkg/controller/dummy"
	"github.com/nergy-se/heatcontrol/pkg/controller/gpio"
	"github.com/nergy-se/heatcontrol/pkg/controller/modbusrelay"
	"github.com/nergy-se/heatcontrol/pkg/meter"
	"github.com/nergy-se/heatcontrol/pkg/modbusclient"
	"github.com/nergy-se/heatcontrol/pkg/mqtt"
	"github.com/nergy-se/heatcontrol/pkg/plan"
	"github.com/nergy-se/heatcontrol/pkg/price"
	"github.com/nergy-se/heatcontrol/pkg/spothinta"
	"github.com/nergy-se/heatcontrol/pkg/state"
	"github.com/nergy-se/heatcontrol/pkg/version"
	"github.com/sirupsen/logrus"
)

var errTickPanic = errors.New("tick panicked")

type PriceSource interface {
	Prices(ctx context.Context, day time.Time) (*price.Set, error)
}

type AuditStore interface {
	SaveSchedule(ctx context.Context, a *plan.Allocation) error
	SaveReading(ctx context.Context, r audit.Reading) error
}

type Publisher interface {
	PublishState(s state.State) error
	PublishPlan(a *plan.Allocation) error
}

type Meter interface {
	Read() (*meter.Reading, error)
}

type App struct {
	wg       *sync.WaitGroup
	config   *config.CliConfig
	location *time.Location

	clock     clock.Clock
	source    PriceSource
	actuator  controller.Actuator
	audit     AuditStore
	publisher Publisher
	meter     Meter

	plans     *plan.Store
	alarms    *alarm.ActiveAlarms
	tickMutex sync.Mutex
}

type Option func(*App)

func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

func WithPriceSource(s PriceSource) Option {
	return func(a *App) { a.source = s }
}

func WithActuator(act controller.Actuator) Option {
	return func(a *App) { a.actuator = act }
}

func WithAudit(s AuditStore) Option {
	return func(a *App) { a.audit = s }
}

func WithPublisher(p Publisher) Option {
	return func(a *App) { a.publisher = p }
}

func WithMeter(m Meter) Option {
	return func(a *App) { a.meter = m }
}

func New(config *config.CliConfig, opts ...Option) *App {
	a := &App{
		wg:       &sync.WaitGroup{},
		config:   config,
		location: time.Local,
		clock:    clock.Real{},
		plans:    &plan.Store{},
		alarms:   &alarm.ActiveAlarms{},
	}
	if loc, err := config.TimeLocation(); err == nil {
		a.location = loc
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Start sets up everything not given as an Option from the config and starts
// the hourly tick and the daily refresh.
func (a *App) Start(ctx context.Context) error {
	err := a.config.Validate()
	if err != nil {
		return err
	}

	if a.source == nil {
		a.source = spothinta.New(a.config.PriceServer, a.location, a.clock)
	}

	if a.actuator == nil {
		a.actuator, err = a.setupActuator(ctx)
		if err != nil {
			return err
		}
	}

	if a.audit == nil && a.config.AuditDB != "" {
		store, err := audit.Open(a.config.AuditDB)
		if err != nil {
			return err
		}
		a.audit = store
		a.closeOnDone(ctx, "audit db", store.Close)
	}

	if a.publisher == nil && a.config.MQTTAddress != "" {
		broker, err := mqtt.Start(ctx, a.wg, a.config.MQTTAddress, a.config.MQTTTopicPrefix)
		if err != nil {
			return err
		}
		a.publisher = broker
	}

	if a.meter == nil && a.config.MeterDevice != "" {
		m := meter.New(a.config.MeterDevice, a.config.MeterModel, a.config.MeterPrimaryID)
		a.meter = m
		a.closeOnDone(ctx, "meter", m.Close)
	}

	logrus.WithFields(logrus.Fields{
		"version":  version.Version,
		"actuator": a.config.ActuatorType,
		"location": a.location.String(),
		"serial":   a.config.SerialID(),
	}).Info("starting heatcontrol")

	a.wg.Add(2)
	go a.tickLoop(ctx)
	go a.refreshLoop(ctx)
	return nil
}

func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) setupActuator(ctx context.Context) (controller.Actuator, error) {
	switch types.ActuatorType(a.config.ActuatorType) {
	case types.ActuatorTypeDummy:
		return dummy.New(), nil
	case types.ActuatorTypeGPIO:
		g := gpio.New(a.config.GPIOChip, a.config.GPIOPinA, a.config.GPIOPinB)
		a.closeOnDone(ctx, "gpio", g.Close)
		return g, nil
	case types.ActuatorTypeModbusRelay:
		client := modbusclient.Dial(a.config.ModbusAddress, byte(a.config.ModbusSlaveID))
		a.closeOnDone(ctx, "modbus client", client.Close)
		return modbusrelay.New(client, uint16(a.config.CoilA), uint16(a.config.CoilB)), nil
	}
	return nil, fmt.Errorf("unknown actuator type: %s", a.config.ActuatorType)
}

func (a *App) closeOnDone(ctx context.Context, name string, fn func() error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()
		if err := fn(); err != nil {
			logrus.Errorf("error closing %s: %s", name, err)
		}
	}()
}

func (a *App) tickLoop(ctx context.Context) {
	defer a.wg.Done()
	a.Tick(ctx)
	for {
		delay := clock.NextHour(a.clock.Now())
		logrus.Debug("next tick in ", delay)
		select {
		case <-a.clock.After(delay):
			a.Tick(ctx)
		case <-ctx.Done():
			a.shutdown()
			return
		}
	}
}

// shutdown leaves the heating at normal power when the controller stops.
func (a *App) shutdown() {
	a.tickMutex.Lock()
	defer a.tickMutex.Unlock()
	if err := a.setLevel(types.PowerLevelNormal); err != nil {
		logrus.Errorf("error setting normal power on shutdown: %s", err)
		return
	}
	logrus.Info("stopped with normal power")
}

func (a *App) refreshLoop(ctx context.Context) {
	defer a.wg.Done()

	now := a.clock.Now().In(a.location)
	if err := a.Refresh(ctx, now); err != nil {
		return
	}
	if now.Hour() >= a.config.RefreshHour {
		if err := a.Refresh(ctx, clock.Day(now).AddDate(0, 0, 1)); err != nil {
			return
		}
	}

	for {
		delay := clock.NextDaily(a.clock.Now().In(a.location), a.config.RefreshHour)
		logrus.Debug("next price refresh in ", delay)
		select {
		case <-a.clock.After(delay):
		case <-ctx.Done():
			return
		}
		tomorrow := clock.Day(a.clock.Now().In(a.location)).AddDate(0, 0, 1)
		if err := a.Refresh(ctx, tomorrow); err != nil {
			return
		}
	}
}

// Tick applies the planned level of the current hour. Any error or panic
// drives the actuator to normal power.
func (a *App) Tick(ctx context.Context) (s state.State) {
	a.tickMutex.Lock()
	defer a.tickMutex.Unlock()
	defer func() {
		if r := recover(); r != nil {
			a.fallback(&s, alarm.Panic, fmt.Errorf("%w: %v", errTickPanic, r))
			s.Alarms = a.alarms.List()
			logrus.WithFields(logrus.Fields(s.Map())).Error("tick")
		}
	}()

	now := a.clock.Now().In(a.location)
	s = state.State{
		Time:    now,
		Hour:    now.Hour(),
		Serial:  a.config.SerialID(),
		Version: version.Version,
	}

	err := a.apply(&s)
	if err != nil {
		name := alarm.Actuator
		if errors.Is(err, errTickPanic) {
			name = alarm.Panic
		}
		a.fallback(&s, name, err)
	} else {
		a.clear(alarm.Actuator)
	}

	a.readMeter(ctx, &s)

	s.Alarms = a.alarms.List()
	logrus.WithFields(logrus.Fields(s.Map())).Info("tick")

	if a.publisher != nil {
		if err := a.publisher.PublishState(s); err != nil {
			logrus.Errorf("error publishing state: %s", err)
		}
	}

	if err == nil && a.clear(alarm.Panic) {
		s.Alarms = a.alarms.List()
	}
	return s
}

// fallback raises alarm name and drives normal power.
func (a *App) fallback(s *state.State, name string, err error) {
	a.raise(name, err)
	s.Fallback = true
	s.Level = types.PowerLevelNormal
	if err := a.setLevel(types.PowerLevelNormal); err != nil {
		logrus.Errorf("error setting fallback normal power: %s", err)
	}
}

func (a *App) apply(s *state.State) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errTickPanic, r)
		}
	}()

	allocation, stale := a.plans.Resolve(s.Time)
	s.Level = allocation.LevelAt(s.Hour)
	if allocation != nil {
		date := allocation.Date()
		s.PlanDate = &date
		s.Stale = stale
		if slot, ok := allocation.Slot(s.Hour); ok && !stale {
			p := slot.PriceWithTax
			s.Price = &p
		}
	}
	return a.actuator.SetPowerLevel(s.Level)
}

func (a *App) setLevel(level types.PowerLevel) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errTickPanic, r)
		}
	}()
	return a.actuator.SetPowerLevel(level)
}

func (a *App) readMeter(ctx context.Context, s *state.State) {
	if a.meter == nil {
		return
	}
	r, err := a.meter.Read()
	if err != nil {
		a.raise(alarm.Meter, err)
		return
	}
	a.clear(alarm.Meter)
	s.TotalWh = &r.TotalWh

	if a.audit == nil {
		return
	}
	err = a.audit.SaveReading(ctx, audit.Reading{
		Time:    s.Time,
		MeterID: r.ID,
		TotalWh: r.TotalWh,
		Level:   s.Level.String(),
	})
	if err != nil {
		logrus.Errorf("error saving meter reading: %s", err)
	}
}

// raise logs at error level the first time an alarm goes active.
func (a *App) raise(name string, err error) {
	if a.alarms.Add(name) {
		logrus.WithField("alarm", name).Error(err)
		return
	}
	logrus.WithField("alarm", name).Warn(err)
}

func (a *App) clear(name string) bool {
	if a.alarms.Remove(name) {
		logrus.WithField("alarm", name).Info("alarm cleared")
		return true
	}
	return false
}
