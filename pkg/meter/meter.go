package meter

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jonaz/gombus"
)

// ModelGaroGNM3D is a GARO GNM3D three phase meter with the M-Bus module.
const ModelGaroGNM3D = "garo-GNM3D-MBUS"

// Supported reports whether Read knows where model keeps its energy counter.
func Supported(model string) bool {
	return model == ModelGaroGNM3D
}

// Reading is the total energy counter of an electricity meter.
type Reading struct {
	ID      string
	Model   string
	Time    time.Time
	TotalWh float64
}

// Mbus reads an M-Bus electricity meter on a serial device.
type Mbus struct {
	device string
	model  string
	id     string
	dial   func(device string) (gombus.Conn, error)
	conn   gombus.Conn
	mutex  *sync.Mutex
}

func New(device, model, id string) *Mbus {
	return &Mbus{
		device: device,
		model:  model,
		id:     id,
		dial:   gombus.DialSerial,
		mutex:  &sync.Mutex{},
	}
}

func (m *Mbus) init() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.conn != nil {
		return nil
	}
	c, err := m.dial(m.device)
	if err != nil {
		return err
	}
	m.conn = c
	return nil
}

func (m *Mbus) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}

func (m *Mbus) Read() (*Reading, error) {
	id, err := strconv.Atoi(m.id)
	if err != nil {
		return nil, fmt.Errorf("invalid meter primary id %q: %w", m.id, err)
	}
	if !Supported(m.model) {
		return nil, fmt.Errorf("unsupported meter model %s", m.model)
	}

	err = m.init()
	if err != nil {
		return nil, err
	}

	frame, err := m.read(id)
	if err != nil {
		// next read dials again
		m.Close()
		return nil, err
	}

	if len(frame.DataRecords) == 0 {
		return nil, fmt.Errorf("meter %s returned no data records", m.id)
	}

	return &Reading{
		ID:      m.id,
		Model:   m.model,
		Time:    time.Now(),
		TotalWh: frame.DataRecords[0].Value,
	}, nil
}

func (m *Mbus) read(primaryAddr int) (*gombus.DecodedFrame, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, err := m.conn.Write(gombus.SndNKE(uint8(primaryAddr)))
	if err != nil {
		return nil, err
	}

	err = m.conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	if err != nil {
		return nil, err
	}

	_, err = gombus.ReadSingleCharFrame(m.conn)
	if err != nil {
		return nil, err
	}

	return gombus.ReadSingleFrame(m.conn, primaryAddr)
}
