package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/nergy-se/heatcontrol/pkg/allocator"
	"github.com/nergy-se/heatcontrol/pkg/api/v1/types"
	"github.com/nergy-se/heatcontrol/pkg/meter"
)

type CliConfig struct {
	PriceServer string `default:"https://api.spot-hinta.fi"`
	Location    string `default:"Europe/Helsinki"`
	SerialFile  string `default:"/sys/firmware/devicetree/base/serial-number"`

	// Power level policy. Prices are per kWh including tax.
	ZeroPowerHours               int     `default:"3"`
	HalfPowerHours               int     `default:"3"`
	SafeZeroPowerHours           int     `default:"6"`
	MaxConsecutiveZeroPowerHours int     `default:"2"`
	UltimateHighestPrice         float64 `default:"0.5"`
	UltimateLowestPrice          float64 `default:"0.02"`

	// RefreshHour is the local hour when tomorrows prices are fetched.
	RefreshHour  int           `default:"23"`
	RetryBackoff time.Duration `default:"1h"`

	ActuatorType string `default:"dummy"`

	// GPIOPinA and GPIOPinB are line offsets on GPIOChip.
	GPIOChip      string `default:"gpiochip0"`
	GPIOPinA      int    `default:"17"`
	GPIOPinB      int    `default:"27"`
	ModbusAddress string
	ModbusSlaveID int    `default:"1"`
	CoilA         int    `default:"0"`
	CoilB         int    `default:"1"`

	AuditDB string

	MQTTAddress     string
	MQTTTopicPrefix string `default:"heatcontrol"`

	MeterDevice    string
	MeterPrimaryID string
	MeterModel     string `default:"garo-GNM3D-MBUS"`

	LogLevel string `default:"info"`

	Serial string

	mutex sync.RWMutex
}

func (c *CliConfig) Validate() error {
	switch types.ActuatorType(c.ActuatorType) {
	case types.ActuatorTypeDummy, types.ActuatorTypeGPIO:
	case types.ActuatorTypeModbusRelay:
		if c.ModbusAddress == "" {
			return fmt.Errorf("modbusaddress is required for actuator type %s", c.ActuatorType)
		}
	default:
		return fmt.Errorf("unknown actuator type: %s", c.ActuatorType)
	}
	if c.RefreshHour < 0 || c.RefreshHour > 23 {
		return fmt.Errorf("refreshhour must be between 0 and 23 got %d", c.RefreshHour)
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retrybackoff must be positive got %s", c.RetryBackoff)
	}
	if c.UltimateLowestPrice > c.UltimateHighestPrice {
		return fmt.Errorf("ultimatelowestprice %f is above ultimatehighestprice %f", c.UltimateLowestPrice, c.UltimateHighestPrice)
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	if c.MeterDevice != "" {
		id, err := strconv.Atoi(c.MeterPrimaryID)
		if err != nil || id < 0 || id > 250 {
			return fmt.Errorf("meterprimaryid must be a number between 0 and 250 got %q", c.MeterPrimaryID)
		}
		if !meter.Supported(c.MeterModel) {
			return fmt.Errorf("unsupported metermodel %s", c.MeterModel)
		}
	}
	return nil
}

func (c *CliConfig) Policy() allocator.Policy {
	return allocator.Policy{
		ZeroPowerHours:               c.ZeroPowerHours,
		HalfPowerHours:               c.HalfPowerHours,
		SafeZeroPowerHours:           c.SafeZeroPowerHours,
		MaxConsecutiveZeroPowerHours: c.MaxConsecutiveZeroPowerHours,
		UltimateHighestPrice:         c.UltimateHighestPrice,
		UltimateLowestPrice:          c.UltimateLowestPrice,
	}
}

func (c *CliConfig) TimeLocation() (*time.Location, error) {
	if c.Location == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("error loading location %s: %w", c.Location, err)
	}
	return loc, nil
}

func (c *CliConfig) SerialID() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.Serial
}

func (c *CliConfig) LoadSerial() error {
	if c.SerialFile == "" {
		return nil
	}
	id, err := os.ReadFile(c.SerialFile)
	if err != nil {
		return fmt.Errorf("error reading serialfile: %w", err)
	}
	c.mutex.Lock()
	c.Serial = string(bytes.TrimSpace(bytes.Trim(id, "\x00")))
	c.mutex.Unlock()
	return nil
}
