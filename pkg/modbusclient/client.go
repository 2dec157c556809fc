package modbusclient

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"
)

type Client interface {
	WriteCoil(address uint16, on bool) error
	ReadCoils(address, quantity uint16) ([]bool, error)
	Close() error
}

type client struct {
	client modbus.Client
	close  func() error
}

func New(c modbus.Client, close func() error) *client {
	return &client{
		client: c,
		close:  close,
	}
}

// Dial returns a client for a Modbus TCP device. The connection is opened on
// first use and reopened after broken pipes and timeouts.
func Dial(address string, slaveID byte) *client {
	handler := modbus.NewTCPClientHandler(address)
	handler.SlaveId = slaveID
	handler.Timeout = 5 * time.Second
	return New(modbus.NewClient(handler), handler.Close)
}

func (c *client) closeIfNeeded(e error) {
	if e == nil {
		return
	}

	if errors.Is(e, syscall.EPIPE) {
		logrus.Warn("reconnect due to broken pipe")
		err := c.close()
		if err != nil {
			logrus.Errorf("error closing client: %s", err)
		}
	}

	if errors.Is(e, os.ErrDeadlineExceeded) {
		logrus.Warn("reconnect due to i/o timeout")
		err := c.close()
		if err != nil {
			logrus.Errorf("error closing client: %s", err)
		}
	}
}

func (c *client) WriteCoil(address uint16, on bool) error {
	_, err := c.client.WriteSingleCoil(address, CoilValue(on))
	if err != nil {
		c.closeIfNeeded(err)
		return fmt.Errorf("error writing coil %d value %t error: %w", address, on, err)
	}
	return nil
}

func (c *client) ReadCoils(address, quantity uint16) ([]bool, error) {
	b, err := c.client.ReadCoils(address, quantity)
	if err != nil {
		c.closeIfNeeded(err)
		return nil, fmt.Errorf("error reading coils %d: %w", address, err)
	}
	return DecodeCoils(b, quantity), nil
}

func (c *client) Close() error {
	return c.close()
}

// DecodeCoils unpacks coil status bytes, lowest bit first.
func DecodeCoils(data []byte, quantity uint16) []bool {
	coils := make([]bool, 0, quantity)
	for i := 0; i < int(quantity); i++ {
		if i/8 >= len(data) {
			break
		}
		coils = append(coils, data[i/8]&(1<<uint(i%8)) != 0)
	}
	return coils
}

func CoilValue(b bool) uint16 {
	if b {
		return WriteCoilValueOn
	}
	return WriteCoilValueOff
}

const (
	WriteCoilValueOn  uint16 = 0xff00
	WriteCoilValueOff uint16 = 0
)
